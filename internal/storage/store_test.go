package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// StoreTestSuite runs the same contract checks against every Store
// implementation.
type StoreTestSuite struct {
	suite.Suite

	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func TestSQLiteStoreTestSuite(t *testing.T) {
	suite.Run(t, &StoreTestSuite{
		newStore: func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tradewind.db"))
			if err != nil {
				t.Fatalf("open sqlite store: %v", err)
			}

			return s
		},
	})
}

func TestMemoryStoreTestSuite(t *testing.T) {
	suite.Run(t, &StoreTestSuite{
		newStore: func(*testing.T) Store { return NewMemoryStore() },
	})
}

func (s *StoreTestSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *StoreTestSuite) TestConfigRoundTrip() {
	cfg := types.DefaultBotConfig("user-1")
	cfg.CredentialRef = "cred-1"
	cfg.Active = true

	s.Require().NoError(s.store.SaveConfig(s.ctx, cfg))

	got, err := s.store.Config(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(cfg, got)
}

func (s *StoreTestSuite) TestConfigNotFound() {
	_, err := s.store.Config(s.ctx, "ghost")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeRecordNotFound))
}

func (s *StoreTestSuite) TestActiveConfigs() {
	for _, user := range []string{"a", "b", "c"} {
		cfg := types.DefaultBotConfig(user)
		cfg.CredentialRef = "cred"
		cfg.Active = user != "b"
		s.Require().NoError(s.store.SaveConfig(s.ctx, cfg))
	}

	active, err := s.store.ActiveConfigs(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal("a", active[0].UserID)
	s.Equal("c", active[1].UserID)
}

func (s *StoreTestSuite) TestSetConfigActive() {
	cfg := types.DefaultBotConfig("user-1")
	cfg.CredentialRef = "cred"
	s.Require().NoError(s.store.SaveConfig(s.ctx, cfg))

	s.Require().NoError(s.store.SetConfigActive(s.ctx, "user-1", true))

	got, err := s.store.Config(s.ctx, "user-1")
	s.Require().NoError(err)
	s.True(got.Active)

	err = s.store.SetConfigActive(s.ctx, "ghost", true)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeRecordNotFound))
}

func (s *StoreTestSuite) TestTradesNewestFirst() {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := types.TradeRecord{
			ID:        uuid.NewString(),
			UserID:    "user-1",
			Time:      base.Add(time.Duration(i) * time.Minute),
			Side:      types.SideBuy,
			Venue:     "direct",
			Requested: float64(i + 1),
			Status:    types.ExecutionStatusSuccess,
		}
		s.Require().NoError(s.store.AppendTrade(s.ctx, rec))
	}

	s.Require().NoError(s.store.AppendTrade(s.ctx, types.TradeRecord{
		ID:     uuid.NewString(),
		UserID: "other",
		Time:   base,
		Side:   types.SideSell,
		Status: types.ExecutionStatusFailed,
	}))

	trades, err := s.store.Trades(s.ctx, "user-1", 10)
	s.Require().NoError(err)
	s.Require().Len(trades, 3)
	s.Equal(3.0, trades[0].Requested)
	s.Equal(1.0, trades[2].Requested)

	limited, err := s.store.Trades(s.ctx, "user-1", 2)
	s.Require().NoError(err)
	s.Len(limited, 2)
}

func (s *StoreTestSuite) TestLogsNewestFirst() {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, level := range []types.LogLevel{types.LogLevelInfo, types.LogLevelTrade, types.LogLevelError} {
		entry := types.LogEntry{
			UserID:  "user-1",
			Time:    base.Add(time.Duration(i) * time.Second),
			Level:   level,
			Message: string(level),
			Fields:  map[string]string{"cycle": "1"},
		}
		s.Require().NoError(s.store.AppendLog(s.ctx, entry))
	}

	logs, err := s.store.Logs(s.ctx, "user-1", 10)
	s.Require().NoError(err)
	s.Require().Len(logs, 3)
	s.Equal(types.LogLevelError, logs[0].Level)
	s.Equal(types.LogLevelInfo, logs[2].Level)
	s.Equal(map[string]string{"cycle": "1"}, logs[0].Fields)
}

func (s *StoreTestSuite) TestSnapshotsNewestFirst() {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		snap := types.MarketSnapshot{
			UserID: "user-1",
			Time:   base.Add(time.Duration(i) * time.Minute),
			Price:  150 + float64(i),
			Source: types.SeriesSourceLive,
			Votes: map[types.IndicatorType]types.Direction{
				types.IndicatorTypeSupertrend: types.DirectionBuy,
			},
			Direction:  types.DirectionHold,
			Confidence: 33,
		}
		s.Require().NoError(s.store.SaveSnapshot(s.ctx, snap))
	}

	snaps, err := s.store.Snapshots(s.ctx, "user-1", 10)
	s.Require().NoError(err)
	s.Require().Len(snaps, 2)
	s.Equal(151.0, snaps[0].Price)
	s.Equal(types.DirectionBuy, snaps[0].Votes[types.IndicatorTypeSupertrend])
}

func (s *StoreTestSuite) TestStatusUpsert() {
	status := types.BotStatus{
		UserID:        "user-1",
		IsRunning:     true,
		BaseBalance:   2,
		QuoteBalance:  100,
		CurrentPrice:  150,
		LastSignal:    types.DirectionBuy,
		Confidence:    100,
		Trend:         types.DirectionBuy,
		LastTradeTime: time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
		LastUpdate:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.SaveStatus(s.ctx, status))

	status.IsRunning = false
	status.CurrentPrice = 149
	s.Require().NoError(s.store.SaveStatus(s.ctx, status))

	got, err := s.store.Status(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(status, got)

	_, err = s.store.Status(s.ctx, "ghost")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeRecordNotFound))
}
