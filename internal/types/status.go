package types

import "time"

// BotStatus is the summarized projection of a bot's in-memory state written
// for dashboard reads. It is derived, never authoritative.
type BotStatus struct {
	UserID        string    `yaml:"user_id" json:"user_id"`
	IsRunning     bool      `yaml:"is_running" json:"is_running"`
	BaseBalance   float64   `yaml:"base_balance" json:"base_balance"`
	QuoteBalance  float64   `yaml:"quote_balance" json:"quote_balance"`
	CurrentPrice  float64   `yaml:"current_price" json:"current_price"`
	LastSignal    Direction `yaml:"last_signal" json:"last_signal"`
	Confidence    int       `yaml:"confidence" json:"confidence"`
	Trend         Direction `yaml:"trend" json:"trend"`
	LastTradeTime time.Time `yaml:"last_trade_time" json:"last_trade_time"`
	LastUpdate    time.Time `yaml:"last_update" json:"last_update"`
}

// MarketSnapshot is the per-cycle market view persisted for history display.
type MarketSnapshot struct {
	UserID     string                      `yaml:"user_id" json:"user_id"`
	Time       time.Time                   `yaml:"time" json:"time"`
	Price      float64                     `yaml:"price" json:"price"`
	Source     SeriesSource                `yaml:"source" json:"source"`
	Votes      map[IndicatorType]Direction `yaml:"votes" json:"votes"`
	Direction  Direction                   `yaml:"direction" json:"direction"`
	Confidence int                         `yaml:"confidence" json:"confidence"`
}
