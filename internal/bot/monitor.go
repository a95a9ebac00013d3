package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

const defaultMonitorInterval = 60 * time.Second

// HealthMonitor sweeps the manager's registry on a fixed interval and
// restarts any bot that is registered but reports not-running. It never
// touches bots the manager does not already own.
type HealthMonitor struct {
	manager  *Manager
	logger   *logger.Logger
	interval time.Duration
	cron     *cron.Cron
}

func NewHealthMonitor(manager *Manager, l *logger.Logger, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}

	return &HealthMonitor{
		manager:  manager,
		logger:   l.Named("monitor"),
		interval: interval,
	}
}

// Start schedules the recurring sweep.
func (h *HealthMonitor) Start(ctx context.Context) error {
	if h.cron != nil {
		return errors.New(errors.ErrCodeBotAlreadyRunning, "health monitor already started")
	}

	h.cron = cron.New()

	_, err := h.cron.AddFunc(fmt.Sprintf("@every %s", h.interval), func() {
		h.Sweep(ctx)
	})
	if err != nil {
		h.cron = nil

		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "schedule health sweep", err)
	}

	h.cron.Start()
	h.logger.Info("health monitor started", zap.Duration("interval", h.interval))

	return nil
}

// Stop halts the sweep schedule and waits for a running sweep to end.
func (h *HealthMonitor) Stop() {
	if h.cron == nil {
		return
	}

	<-h.cron.Stop().Done()
	h.cron = nil
	h.logger.Info("health monitor stopped")
}

// Sweep checks every registered bot once and revives the dead ones.
func (h *HealthMonitor) Sweep(ctx context.Context) {
	for userID, running := range h.manager.LivenessReport() {
		if running {
			continue
		}

		if err := h.manager.Revive(ctx, userID); err != nil {
			h.logger.Error("failed to revive bot", zap.String("user_id", userID), zap.Error(err))
		}
	}
}
