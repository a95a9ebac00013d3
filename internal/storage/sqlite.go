package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"
	"gopkg.in/yaml.v3"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// SQLiteStore persists engine state to a single SQLite database. WAL
// mode lets the control surface read history while bots write.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "open sqlite", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "set WAL mode", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bot_configs (
			user_id TEXT PRIMARY KEY,
			active  INTEGER NOT NULL DEFAULT 0,
			config  TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS trade_records (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			ts           INTEGER NOT NULL,
			side         TEXT NOT NULL,
			venue        TEXT,
			requested    REAL NOT NULL,
			filled_in    REAL,
			filled_out   REAL,
			price        REAL,
			fee          REAL,
			status       TEXT NOT NULL,
			external_ref TEXT,
			reason       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_user_ts ON trade_records(user_id, ts)`,

		`CREATE TABLE IF NOT EXISTS bot_logs (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			ts      INTEGER NOT NULL,
			level   TEXT NOT NULL,
			message TEXT NOT NULL,
			fields  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_user_ts ON bot_logs(user_id, ts)`,

		`CREATE TABLE IF NOT EXISTS market_snapshots (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			ts         INTEGER NOT NULL,
			price      REAL NOT NULL,
			source     TEXT NOT NULL,
			votes      TEXT,
			direction  TEXT NOT NULL,
			confidence INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_user_ts ON market_snapshots(user_id, ts)`,

		`CREATE TABLE IF NOT EXISTS bot_status (
			user_id        TEXT PRIMARY KEY,
			is_running     INTEGER NOT NULL,
			base_balance   REAL,
			quote_balance  REAL,
			current_price  REAL,
			last_signal    TEXT,
			confidence     INTEGER,
			trend          TEXT,
			last_trade_ts  INTEGER,
			last_update_ts INTEGER
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeStorageFailure, "migrate", err)
		}
	}

	return nil
}

func (s *SQLiteStore) SaveConfig(ctx context.Context, cfg types.BotConfig) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "marshal bot config", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bot_configs (user_id, active, config) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET active = excluded.active, config = excluded.config`,
		cfg.UserID, boolToInt(cfg.Active), string(raw))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "save bot config", err)
	}

	return nil
}

func (s *SQLiteStore) Config(ctx context.Context, userID string) (types.BotConfig, error) {
	var (
		raw    string
		active int
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT config, active FROM bot_configs WHERE user_id = ?`, userID).Scan(&raw, &active)
	if err == sql.ErrNoRows {
		return types.BotConfig{}, errors.Newf(errors.ErrCodeRecordNotFound, "no bot config for user %s", userID)
	}

	if err != nil {
		return types.BotConfig{}, errors.Wrap(errors.ErrCodeStorageFailure, "load bot config", err)
	}

	return decodeConfig(raw, active)
}

func (s *SQLiteStore) ActiveConfigs(ctx context.Context) ([]types.BotConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT config, active FROM bot_configs WHERE active = 1 ORDER BY user_id`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "load active configs", err)
	}
	defer rows.Close()

	var configs []types.BotConfig

	for rows.Next() {
		var (
			raw    string
			active int
		)

		if err := rows.Scan(&raw, &active); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailure, "scan bot config", err)
		}

		cfg, err := decodeConfig(raw, active)
		if err != nil {
			return nil, err
		}

		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "iterate active configs", err)
	}

	return configs, nil
}

func (s *SQLiteStore) SetConfigActive(ctx context.Context, userID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bot_configs SET active = ? WHERE user_id = ?`, boolToInt(active), userID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "update active flag", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "update active flag", err)
	}

	if affected == 0 {
		return errors.Newf(errors.ErrCodeRecordNotFound, "no bot config for user %s", userID)
	}

	return nil
}

func (s *SQLiteStore) AppendTrade(ctx context.Context, rec types.TradeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trade_records
		 (id, user_id, ts, side, venue, requested, filled_in, filled_out, price, fee, status, external_ref, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Time.UnixMilli(), string(rec.Side), rec.Venue,
		rec.Requested, rec.FilledIn, rec.FilledOut, rec.Price, rec.Fee,
		string(rec.Status), rec.ExternalRef, rec.Reason)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "append trade record", err)
	}

	return nil
}

func (s *SQLiteStore) Trades(ctx context.Context, userID string, limit int) ([]types.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, ts, side, venue, requested, filled_in, filled_out, price, fee, status, external_ref, reason
		 FROM trade_records WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "load trade records", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord

	for rows.Next() {
		var (
			rec  types.TradeRecord
			ts   int64
			side string
			st   string
		)

		err := rows.Scan(&rec.ID, &rec.UserID, &ts, &side, &rec.Venue,
			&rec.Requested, &rec.FilledIn, &rec.FilledOut, &rec.Price, &rec.Fee,
			&st, &rec.ExternalRef, &rec.Reason)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailure, "scan trade record", err)
		}

		rec.Time = fromMillis(ts)
		rec.Side = types.Side(side)
		rec.Status = types.ExecutionStatus(st)
		trades = append(trades, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "iterate trade records", err)
	}

	return trades, nil
}

func (s *SQLiteStore) AppendLog(ctx context.Context, entry types.LogEntry) error {
	fields, err := json.Marshal(entry.Fields)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "marshal log fields", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bot_logs (user_id, ts, level, message, fields) VALUES (?, ?, ?, ?, ?)`,
		entry.UserID, entry.Time.UnixMilli(), string(entry.Level), entry.Message, string(fields))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "append log entry", err)
	}

	return nil
}

func (s *SQLiteStore) Logs(ctx context.Context, userID string, limit int) ([]types.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, ts, level, message, fields
		 FROM bot_logs WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "load log entries", err)
	}
	defer rows.Close()

	var entries []types.LogEntry

	for rows.Next() {
		var (
			entry  types.LogEntry
			ts     int64
			level  string
			fields string
		)

		if err := rows.Scan(&entry.UserID, &ts, &level, &entry.Message, &fields); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailure, "scan log entry", err)
		}

		entry.Time = fromMillis(ts)
		entry.Level = types.LogLevel(level)

		if fields != "" && fields != "null" {
			if err := json.Unmarshal([]byte(fields), &entry.Fields); err != nil {
				return nil, errors.Wrap(errors.ErrCodeStorageFailure, "unmarshal log fields", err)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "iterate log entries", err)
	}

	return entries, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap types.MarketSnapshot) error {
	votes, err := json.Marshal(snap.Votes)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "marshal snapshot votes", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO market_snapshots (user_id, ts, price, source, votes, direction, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.UserID, snap.Time.UnixMilli(), snap.Price, string(snap.Source),
		string(votes), string(snap.Direction), snap.Confidence)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "save market snapshot", err)
	}

	return nil
}

func (s *SQLiteStore) Snapshots(ctx context.Context, userID string, limit int) ([]types.MarketSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, ts, price, source, votes, direction, confidence
		 FROM market_snapshots WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "load market snapshots", err)
	}
	defer rows.Close()

	var snaps []types.MarketSnapshot

	for rows.Next() {
		var (
			snap      types.MarketSnapshot
			ts        int64
			source    string
			votes     string
			direction string
		)

		if err := rows.Scan(&snap.UserID, &ts, &snap.Price, &source, &votes, &direction, &snap.Confidence); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailure, "scan market snapshot", err)
		}

		snap.Time = fromMillis(ts)
		snap.Source = types.SeriesSource(source)
		snap.Direction = types.Direction(direction)

		if votes != "" && votes != "null" {
			if err := json.Unmarshal([]byte(votes), &snap.Votes); err != nil {
				return nil, errors.Wrap(errors.ErrCodeStorageFailure, "unmarshal snapshot votes", err)
			}
		}

		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailure, "iterate market snapshots", err)
	}

	return snaps, nil
}

func (s *SQLiteStore) SaveStatus(ctx context.Context, status types.BotStatus) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_status
		 (user_id, is_running, base_balance, quote_balance, current_price, last_signal, confidence, trend, last_trade_ts, last_update_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			is_running = excluded.is_running,
			base_balance = excluded.base_balance,
			quote_balance = excluded.quote_balance,
			current_price = excluded.current_price,
			last_signal = excluded.last_signal,
			confidence = excluded.confidence,
			trend = excluded.trend,
			last_trade_ts = excluded.last_trade_ts,
			last_update_ts = excluded.last_update_ts`,
		status.UserID, boolToInt(status.IsRunning), status.BaseBalance, status.QuoteBalance,
		status.CurrentPrice, string(status.LastSignal), status.Confidence, string(status.Trend),
		status.LastTradeTime.UnixMilli(), status.LastUpdate.UnixMilli())
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "save bot status", err)
	}

	return nil
}

func (s *SQLiteStore) Status(ctx context.Context, userID string) (types.BotStatus, error) {
	var (
		status       types.BotStatus
		running      int
		lastSignal   string
		trend        string
		lastTradeTs  int64
		lastUpdateTs int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, is_running, base_balance, quote_balance, current_price, last_signal, confidence, trend, last_trade_ts, last_update_ts
		 FROM bot_status WHERE user_id = ?`, userID).
		Scan(&status.UserID, &running, &status.BaseBalance, &status.QuoteBalance,
			&status.CurrentPrice, &lastSignal, &status.Confidence, &trend, &lastTradeTs, &lastUpdateTs)
	if err == sql.ErrNoRows {
		return types.BotStatus{}, errors.Newf(errors.ErrCodeRecordNotFound, "no status for user %s", userID)
	}

	if err != nil {
		return types.BotStatus{}, errors.Wrap(errors.ErrCodeStorageFailure, "load bot status", err)
	}

	status.IsRunning = running != 0
	status.LastSignal = types.Direction(lastSignal)
	status.Trend = types.Direction(trend)
	status.LastTradeTime = fromMillis(lastTradeTs)
	status.LastUpdate = fromMillis(lastUpdateTs)

	return status, nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailure, "close sqlite", err)
	}

	return nil
}

func decodeConfig(raw string, active int) (types.BotConfig, error) {
	var cfg types.BotConfig
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		return types.BotConfig{}, errors.Wrap(errors.ErrCodeStorageFailure, "unmarshal bot config", err)
	}

	// The column is authoritative; SetConfigActive does not rewrite the blob.
	cfg.Active = active != 0

	return cfg, nil
}

func fromMillis(ts int64) time.Time {
	return time.UnixMilli(ts).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}

	return limit
}
