package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu        sync.RWMutex
	configs   map[string]types.BotConfig
	trades    []types.TradeRecord
	logs      []types.LogEntry
	snapshots []types.MarketSnapshot
	statuses  map[string]types.BotStatus
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs:  make(map[string]types.BotConfig),
		statuses: make(map[string]types.BotStatus),
	}
}

func (m *MemoryStore) SaveConfig(_ context.Context, cfg types.BotConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs[cfg.UserID] = cfg

	return nil
}

func (m *MemoryStore) Config(_ context.Context, userID string) (types.BotConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.configs[userID]
	if !ok {
		return types.BotConfig{}, errors.Newf(errors.ErrCodeRecordNotFound, "no bot config for user %s", userID)
	}

	return cfg, nil
}

func (m *MemoryStore) ActiveConfigs(_ context.Context) ([]types.BotConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var configs []types.BotConfig

	for _, cfg := range m.configs {
		if cfg.Active {
			configs = append(configs, cfg)
		}
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].UserID < configs[j].UserID })

	return configs, nil
}

func (m *MemoryStore) SetConfigActive(_ context.Context, userID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[userID]
	if !ok {
		return errors.Newf(errors.ErrCodeRecordNotFound, "no bot config for user %s", userID)
	}

	cfg.Active = active
	m.configs[userID] = cfg

	return nil
}

func (m *MemoryStore) AppendTrade(_ context.Context, rec types.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades = append(m.trades, rec)

	return nil
}

func (m *MemoryStore) Trades(_ context.Context, userID string, limit int) ([]types.TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var trades []types.TradeRecord

	for i := len(m.trades) - 1; i >= 0 && len(trades) < normalizeLimit(limit); i-- {
		if m.trades[i].UserID == userID {
			trades = append(trades, m.trades[i])
		}
	}

	return trades, nil
}

func (m *MemoryStore) AppendLog(_ context.Context, entry types.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs = append(m.logs, entry)

	return nil
}

func (m *MemoryStore) Logs(_ context.Context, userID string, limit int) ([]types.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []types.LogEntry

	for i := len(m.logs) - 1; i >= 0 && len(entries) < normalizeLimit(limit); i-- {
		if m.logs[i].UserID == userID {
			entries = append(entries, m.logs[i])
		}
	}

	return entries, nil
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, snap types.MarketSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots = append(m.snapshots, snap)

	return nil
}

func (m *MemoryStore) Snapshots(_ context.Context, userID string, limit int) ([]types.MarketSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var snaps []types.MarketSnapshot

	for i := len(m.snapshots) - 1; i >= 0 && len(snaps) < normalizeLimit(limit); i-- {
		if m.snapshots[i].UserID == userID {
			snaps = append(snaps, m.snapshots[i])
		}
	}

	return snaps, nil
}

func (m *MemoryStore) SaveStatus(_ context.Context, status types.BotStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statuses[status.UserID] = status

	return nil
}

func (m *MemoryStore) Status(_ context.Context, userID string) (types.BotStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[userID]
	if !ok {
		return types.BotStatus{}, errors.Newf(errors.ErrCodeRecordNotFound, "no status for user %s", userID)
	}

	return status, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
