// Package bot contains the per-user polling engine, the lifecycle
// manager, and the health monitor that keeps registered bots alive.
package bot

import (
	"github.com/shopspring/decimal"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// TradeSize computes the input-asset amount for an order: the
// configured percentage of the relevant balance with the fee reserve
// subtracted, then checked against the venue floors. Buys spend the
// quote asset, sells spend the base asset. The decimal arithmetic keeps
// sizing exact; float rounding must never flip a floor check.
func TradeSize(cfg types.BotConfig, side types.Side, baseBalance, quoteBalance, price float64) (float64, error) {
	if price <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidParameter, "trade sizing needs a positive price")
	}

	hundred := decimal.NewFromInt(100)
	reserve := hundred.Sub(decimal.NewFromFloat(cfg.FeeReservePercentage)).Div(hundred)

	var (
		available decimal.Decimal
		pct       decimal.Decimal
	)

	if side == types.SideBuy {
		available = decimal.NewFromFloat(quoteBalance)
		pct = decimal.NewFromFloat(cfg.BuyPercentage)
	} else {
		available = decimal.NewFromFloat(baseBalance)
		pct = decimal.NewFromFloat(cfg.SellPercentage)
	}

	size := available.Mul(pct).Div(hundred).Mul(reserve)
	if !size.IsPositive() {
		return 0, errors.Newf(errors.ErrCodeInsufficientBalance,
			"%s balance %s sizes to nothing", side, available)
	}

	p := decimal.NewFromFloat(price)

	// Express the venue floors in input-asset units for the comparison.
	baseAmount := size
	notional := size.Mul(p)

	if side == types.SideBuy {
		baseAmount = size.Div(p)
		notional = size
	}

	if notional.LessThan(decimal.NewFromFloat(cfg.MinNotional)) {
		return 0, errors.Newf(errors.ErrCodeInsufficientBalance,
			"sized %s order worth %s is below the %v minimum notional",
			side, notional, cfg.MinNotional)
	}

	if baseAmount.LessThan(decimal.NewFromFloat(cfg.MinOrderSize)) {
		return 0, errors.Newf(errors.ErrCodeInsufficientBalance,
			"sized %s order of %s %s is below the %v minimum order size",
			side, baseAmount, cfg.BaseAsset, cfg.MinOrderSize)
	}

	f, _ := size.Float64()

	return f, nil
}
