// Package marketdata fetches prices and candle history from an ordered
// list of providers, with retry, short-lived caching, and a synthetic
// fallback series for degraded operation.
package marketdata

import (
	"context"

	"github.com/tradewind-lab/tradewind/internal/types"
)

// Provider is a single upstream data source. Implementations must be
// safe for concurrent use; the gateway calls them from multiple bot
// cycles at once.
type Provider interface {
	Name() string

	// CurrentPrice returns the latest trade price for the pair.
	CurrentPrice(ctx context.Context, base, quote string) (float64, error)

	// Candles returns up to limit candles for the pair at the given
	// interval, ascending by time, the most recent candle last.
	Candles(ctx context.Context, base, quote, interval string, limit int) ([]types.Candle, error)
}
