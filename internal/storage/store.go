// Package storage persists the engine's externally visible state: bot
// configurations, trade records, log entries, market snapshots, and the
// status projection dashboards read.
package storage

import (
	"context"

	"github.com/tradewind-lab/tradewind/internal/types"
)

// Store is the engine's persistence boundary. Implementations must be
// safe for concurrent use; every running bot writes through the same
// store.
type Store interface {
	// SaveConfig inserts or replaces a user's bot configuration.
	SaveConfig(ctx context.Context, cfg types.BotConfig) error
	// Config returns a user's configuration, or RecordNotFound.
	Config(ctx context.Context, userID string) (types.BotConfig, error)
	// ActiveConfigs returns every configuration marked active.
	ActiveConfigs(ctx context.Context) ([]types.BotConfig, error)
	// SetConfigActive flips the active flag without touching the rest
	// of the configuration.
	SetConfigActive(ctx context.Context, userID string, active bool) error

	// AppendTrade records one execution attempt. Records are immutable.
	AppendTrade(ctx context.Context, rec types.TradeRecord) error
	// Trades returns a user's trade history, newest first.
	Trades(ctx context.Context, userID string, limit int) ([]types.TradeRecord, error)

	// AppendLog records one engine event. Entries are immutable.
	AppendLog(ctx context.Context, entry types.LogEntry) error
	// Logs returns a user's engine events, newest first.
	Logs(ctx context.Context, userID string, limit int) ([]types.LogEntry, error)

	// SaveSnapshot records one polling cycle's market view.
	SaveSnapshot(ctx context.Context, snap types.MarketSnapshot) error
	// Snapshots returns a user's market history, newest first.
	Snapshots(ctx context.Context, userID string, limit int) ([]types.MarketSnapshot, error)

	// SaveStatus upserts the dashboard status projection.
	SaveStatus(ctx context.Context, status types.BotStatus) error
	// Status returns a user's last written projection, or RecordNotFound.
	Status(ctx context.Context, userID string) (types.BotStatus, error)

	Close() error
}
