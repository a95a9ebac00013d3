// Package control is the operator-facing surface: bot lifecycle,
// status, history, and diagnostic transactions. It is transport
// agnostic; cmd wires it to a CLI today and an API can reuse it as is.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradewind-lab/tradewind/internal/bot"
	"github.com/tradewind-lab/tradewind/internal/storage"
	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

// Service exposes the control operations over a manager and its store.
type Service struct {
	manager *bot.Manager
	store   storage.Store
	chain   bot.OrderSubmitter
	logger  *logger.Logger
}

func NewService(manager *bot.Manager, store storage.Store, chain bot.OrderSubmitter, l *logger.Logger) *Service {
	return &Service{
		manager: manager,
		store:   store,
		chain:   chain,
		logger:  l.Named("control"),
	}
}

// SaveConfig validates and persists a user's bot configuration. A bot
// that is already running keeps its old configuration until restarted.
func (s *Service) SaveConfig(ctx context.Context, cfg types.BotConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, exists := s.manager.Engine(cfg.UserID); exists {
		s.logger.Warn("config saved while bot is running, restart to apply",
			zap.String("user_id", cfg.UserID))
	}

	return s.store.SaveConfig(ctx, cfg)
}

// StartBot starts the user's bot from their stored configuration.
func (s *Service) StartBot(ctx context.Context, userID string) error {
	cfg, err := s.store.Config(ctx, userID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeRecordNotFound) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration,
				"no configuration saved for user %s", userID)
		}

		return err
	}

	return s.manager.StartBotForUser(ctx, userID, cfg)
}

// StopBot stops the user's bot. Stopping a bot that is not running is a
// trivial success.
func (s *Service) StopBot(ctx context.Context, userID string) error {
	return s.manager.StopBotForUser(ctx, userID)
}

// GetStatus returns the live status for a registered bot, falling back
// to the last persisted status for one that is not in memory.
func (s *Service) GetStatus(ctx context.Context, userID string) (types.BotStatus, error) {
	if engine, ok := s.manager.Engine(userID); ok {
		return engine.Status(), nil
	}

	status, err := s.store.Status(ctx, userID)
	if err != nil {
		return types.BotStatus{}, err
	}

	// A bot that is not registered cannot be running, whatever the
	// stale record says.
	status.IsRunning = false

	return status, nil
}

// GetLogs returns the user's log entries, newest first.
func (s *Service) GetLogs(ctx context.Context, userID string, limit int) ([]types.LogEntry, error) {
	return s.store.Logs(ctx, userID, limit)
}

// GetTradeHistory returns the user's trade records, newest first.
func (s *Service) GetTradeHistory(ctx context.Context, userID string, limit int) ([]types.TradeRecord, error) {
	return s.store.Trades(ctx, userID, limit)
}

// TestTransaction pushes one order through the venue chain outside the
// signal path: no consensus, no cooldown, no auto-trade gate. The
// attempt is recorded in the trade history flagged as a test.
func (s *Service) TestTransaction(ctx context.Context, userID string, side types.Side, amount float64) (types.ExecutionResult, error) {
	cfg, err := s.store.Config(ctx, userID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeRecordNotFound) {
			return types.ExecutionResult{}, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"no configuration saved for user %s", userID)
		}

		return types.ExecutionResult{}, err
	}

	inAsset, outAsset := cfg.QuoteAsset, cfg.BaseAsset
	if side == types.SideSell {
		inAsset, outAsset = cfg.BaseAsset, cfg.QuoteAsset
	}

	req := types.OrderRequest{
		ID:          uuid.NewString(),
		Side:        side,
		InputAsset:  inAsset,
		OutputAsset: outAsset,
		Amount:      amount,
		SlippageBps: cfg.SlippageBps,
	}

	result, submitErr := s.chain.SubmitOrder(ctx, req)

	record := types.TradeRecord{
		ID:          req.ID,
		UserID:      userID,
		Time:        time.Now().UTC(),
		Side:        side,
		Venue:       result.Venue,
		Requested:   amount,
		FilledIn:    result.FilledIn,
		FilledOut:   result.FilledOut,
		Price:       result.Price,
		Fee:         result.Fee,
		Status:      result.Status,
		ExternalRef: result.ExternalRef,
		Reason:      "test transaction",
	}

	if submitErr != nil {
		record.Reason = fmt.Sprintf("test transaction; failed: %v", submitErr)
	}

	if err := s.store.AppendTrade(ctx, record); err != nil {
		s.logger.Error("test trade persist failed", zap.String("user_id", userID), zap.Error(err))
	}

	return result, submitErr
}
