package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/tradewind-lab/tradewind/internal/storage"
	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

// EngineFactory builds a Stopped engine for one user's configuration.
// The Manager owns no venue or market-data wiring itself; the factory
// closes over it.
type EngineFactory func(cfg types.BotConfig) (*Engine, error)

// Manager owns one engine per active user. All lifecycle operations are
// idempotent so callers and the health monitor can invoke them without
// coordinating.
type Manager struct {
	registry *Registry
	factory  EngineFactory
	store    storage.Store
	logger   *logger.Logger
}

func NewManager(registry *Registry, factory EngineFactory, store storage.Store, l *logger.Logger) *Manager {
	return &Manager{
		registry: registry,
		factory:  factory,
		store:    store,
		logger:   l.Named("manager"),
	}
}

// StartBotForUser constructs, registers, and starts an engine for the
// user, and marks the config active. If the user already has a
// registered engine the call succeeds without creating a duplicate.
func (m *Manager) StartBotForUser(ctx context.Context, userID string, cfg types.BotConfig) error {
	if _, ok := m.registry.Get(userID); ok {
		m.logger.Info("bot already registered", zap.String("user_id", userID))

		return nil
	}

	if cfg.UserID != userID {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"config belongs to %q, not %q", cfg.UserID, userID)
	}

	engine, err := m.factory(cfg)
	if err != nil {
		return err
	}

	registered, put := m.registry.PutIfAbsent(userID, engine)
	if !put {
		// Lost the race to a concurrent start; theirs wins.
		return nil
	}

	if err := registered.Start(ctx); err != nil {
		m.registry.Delete(userID)

		return err
	}

	cfg.Active = true
	if err := m.store.SaveConfig(ctx, cfg); err != nil {
		m.logger.Error("failed to persist active config", zap.String("user_id", userID), zap.Error(err))
	}

	return nil
}

// StopBotForUser stops and deregisters the user's engine and marks the
// config inactive. An unregistered user is a trivial success.
func (m *Manager) StopBotForUser(ctx context.Context, userID string) error {
	engine, ok := m.registry.Get(userID)
	if !ok {
		m.logger.Info("no bot registered, nothing to stop", zap.String("user_id", userID))

		return nil
	}

	if err := engine.Stop(ctx); err != nil {
		return err
	}

	m.registry.Delete(userID)

	if err := m.store.SetConfigActive(ctx, userID, false); err != nil && !errors.HasCode(err, errors.ErrCodeRecordNotFound) {
		m.logger.Error("failed to persist inactive config", zap.String("user_id", userID), zap.Error(err))
	}

	return nil
}

// RestoreFromStorage starts a bot for every config marked active. This
// is what makes bots survive a process restart. Individual failures are
// logged and skipped so one broken config cannot block the rest.
func (m *Manager) RestoreFromStorage(ctx context.Context) error {
	configs, err := m.store.ActiveConfigs(ctx)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if err := m.StartBotForUser(ctx, cfg.UserID, cfg); err != nil {
			m.logger.Error("failed to restore bot", zap.String("user_id", cfg.UserID), zap.Error(err))

			continue
		}

		m.logger.Info("bot restored", zap.String("user_id", cfg.UserID))
	}

	return nil
}

// ShutdownAll stops every registered bot before process exit. Configs
// stay marked active so the next process restores them.
func (m *Manager) ShutdownAll(ctx context.Context) {
	for userID, engine := range m.registry.Snapshot() {
		if err := engine.Stop(ctx); err != nil {
			m.logger.Error("failed to stop bot on shutdown", zap.String("user_id", userID), zap.Error(err))
		}

		m.registry.Delete(userID)
	}
}

// Engine exposes a user's registered engine, if any.
func (m *Manager) Engine(userID string) (*Engine, bool) {
	return m.registry.Get(userID)
}

// Revive restarts a registered engine that reports not-running. Used by
// the health monitor; never starts a bot no user action registered.
func (m *Manager) Revive(ctx context.Context, userID string) error {
	engine, ok := m.registry.Get(userID)
	if !ok {
		return errors.Newf(errors.ErrCodeBotNotRegistered, "no bot registered for user %s", userID)
	}

	if engine.IsRunning() {
		return nil
	}

	m.logger.Warn("restarting crashed bot", zap.String("user_id", userID))

	return engine.Start(ctx)
}

// LivenessReport maps every registered user to their engine's running
// state.
func (m *Manager) LivenessReport() map[string]bool {
	report := make(map[string]bool)
	for userID, engine := range m.registry.Snapshot() {
		report[userID] = engine.IsRunning()
	}

	return report
}
