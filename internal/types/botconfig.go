package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// IndicatorParams holds the tunables for the three built-in indicators.
type IndicatorParams struct {
	SupertrendPeriod     int     `yaml:"supertrend_period" json:"supertrend_period" validate:"required,gt=0"`
	SupertrendMultiplier float64 `yaml:"supertrend_multiplier" json:"supertrend_multiplier" validate:"required,gt=0"`
	MACDFast             int     `yaml:"macd_fast" json:"macd_fast" validate:"required,gt=0"`
	MACDSlow             int     `yaml:"macd_slow" json:"macd_slow" validate:"required,gtfield=MACDFast"`
	MACDSignal           int     `yaml:"macd_signal" json:"macd_signal" validate:"required,gt=0"`
	VMAPeriod            int     `yaml:"vma_period" json:"vma_period" validate:"required,gt=0"`
}

// ConsensusParams lets operators tune the combiner vote thresholds. The
// default asymmetry (harder bar to buy than to sell) is a deliberate
// risk-bias policy.
type ConsensusParams struct {
	BuyVotes  int `yaml:"buy_votes" json:"buy_votes" validate:"required,min=1,max=3"`
	SellVotes int `yaml:"sell_votes" json:"sell_votes" validate:"required,min=1,max=3"`
}

// BotConfig is the durable per-user configuration. Created on first save,
// updated by the user, never deleted, only deactivated.
type BotConfig struct {
	UserID string `yaml:"user_id" json:"user_id" validate:"required"`
	// CredentialRef names the stored credential set used for signing.
	CredentialRef string `yaml:"credential_ref" json:"credential_ref" validate:"required"`

	BaseAsset  string `yaml:"base_asset" json:"base_asset" validate:"required"`
	QuoteAsset string `yaml:"quote_asset" json:"quote_asset" validate:"required"`

	// CandleInterval is the indicator timeframe.
	CandleInterval string `yaml:"candle_interval" json:"candle_interval" validate:"required,oneof=1m 5m 15m 30m 1h 4h 1d"`
	// PollInterval is the cycle cadence; anything below a minute hammers
	// the data providers for no benefit.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" validate:"required,min=60s"`
	// MinTimeBetweenTrades is the execution cooldown.
	MinTimeBetweenTrades time.Duration `yaml:"min_time_between_trades" json:"min_time_between_trades" validate:"required,gt=0"`

	Indicators IndicatorParams `yaml:"indicators" json:"indicators" validate:"required"`
	Consensus  ConsensusParams `yaml:"consensus" json:"consensus" validate:"required"`

	// BuyPercentage is the share of the quote balance spent on a buy.
	BuyPercentage float64 `yaml:"buy_percentage" json:"buy_percentage" validate:"required,gt=0,lte=100"`
	// SellPercentage is the share of the base balance sold on a sell.
	SellPercentage float64 `yaml:"sell_percentage" json:"sell_percentage" validate:"required,gt=0,lte=100"`
	// FeeReservePercentage is subtracted from the computed size to leave
	// room for venue fees and gas.
	FeeReservePercentage float64 `yaml:"fee_reserve_percentage" json:"fee_reserve_percentage" validate:"gte=0,lt=100"`
	// MinOrderSize is the venue minimum in base units.
	MinOrderSize float64 `yaml:"min_order_size" json:"min_order_size" validate:"gte=0"`
	// MinNotional is the venue minimum order value in quote units.
	MinNotional float64 `yaml:"min_notional" json:"min_notional" validate:"gte=0"`

	SlippageBps int `yaml:"slippage_bps" json:"slippage_bps" validate:"gte=0,lte=10000"`

	// AutoTrade gates execution; with it off, signals are logged only.
	AutoTrade bool `yaml:"auto_trade" json:"auto_trade"`
	// Active marks whether the bot should be running. Used by
	// RestoreFromStorage after a process restart.
	Active bool `yaml:"active" json:"active"`
}

// Validate validates the BotConfig struct.
func (c *BotConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid bot config", err)
	}

	return nil
}

// DefaultBotConfig returns a BotConfig with the stock policy constants for
// the given user. Callers fill in the credential reference.
func DefaultBotConfig(userID string) BotConfig {
	return BotConfig{
		UserID:               userID,
		CredentialRef:        "",
		BaseAsset:            "SOL",
		QuoteAsset:           "USDT",
		CandleInterval:       "15m",
		PollInterval:         15 * time.Minute,
		MinTimeBetweenTrades: 15 * time.Minute,
		Indicators: IndicatorParams{
			SupertrendPeriod:     10,
			SupertrendMultiplier: 3.0,
			MACDFast:             12,
			MACDSlow:             26,
			MACDSignal:           9,
			VMAPeriod:            14,
		},
		Consensus: ConsensusParams{
			BuyVotes:  3,
			SellVotes: 2,
		},
		BuyPercentage:        50,
		SellPercentage:       100,
		FeeReservePercentage: 0.5,
		MinOrderSize:         0.1,
		MinNotional:          15,
		SlippageBps:          50,
		AutoTrade:            false,
		Active:               false,
	}
}
