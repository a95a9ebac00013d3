package venue

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tradewind-lab/tradewind/pkg/errors"
)

type mintInfo struct {
	address  string
	decimals int32
}

// solanaMints maps ticker symbols to on-chain mint addresses for the
// assets the aggregator venues can route.
var solanaMints = map[string]mintInfo{
	"SOL":  {address: "So11111111111111111111111111111111111111112", decimals: 9},
	"USDT": {address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", decimals: 6},
	"USDC": {address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", decimals: 6},
}

func mintFor(asset string) (mintInfo, error) {
	info, ok := solanaMints[strings.ToUpper(asset)]
	if !ok {
		return mintInfo{}, errors.Newf(errors.ErrCodeInvalidParameter, "no mint known for asset %q", asset)
	}

	return info, nil
}

// toAtomic converts a human-readable amount to the mint's atomic units,
// truncating sub-atomic dust.
func toAtomic(amount float64, decimals int32) string {
	return decimal.NewFromFloat(amount).Shift(decimals).Truncate(0).String()
}

// fromAtomic converts an atomic-unit string back to a human amount.
func fromAtomic(raw string, decimals int32) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "atomic amount %q", raw)
	}

	f, _ := d.Shift(-decimals).Float64()

	return f, nil
}
