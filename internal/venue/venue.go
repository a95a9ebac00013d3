// Package venue turns an order request into a fill by walking a
// prioritized chain of trading back-ends. Each venue exposes the same
// five-step pipeline so the chain can treat an aggregator, an exchange,
// and a local simulation uniformly.
package venue

import (
	"context"

	"github.com/tradewind-lab/tradewind/internal/types"
)

// Quote is a venue's priced answer to an order request.
type Quote struct {
	Venue     string
	InAmount  float64
	OutAmount float64
	Price     float64
	Fee       float64
	// Payload carries venue-specific quote state needed by Build,
	// e.g. an aggregator's raw route response.
	Payload []byte
}

// UnsignedOrder is a venue-specific order ready for signing.
type UnsignedOrder struct {
	Venue   string
	Payload []byte
}

// SignedOrder is an order with its credential proof attached.
type SignedOrder struct {
	Venue     string
	Payload   []byte
	Signature string
}

// ExecutionVenue is one back-end in the execution chain.
type ExecutionVenue interface {
	Name() string
	// Quote prices the request without side effects.
	Quote(ctx context.Context, req types.OrderRequest) (Quote, error)
	// Build assembles an unsigned order from an accepted quote.
	Build(ctx context.Context, req types.OrderRequest, q Quote) (UnsignedOrder, error)
	// Sign attaches the configured credential to the order.
	Sign(ctx context.Context, order UnsignedOrder) (SignedOrder, error)
	// Submit sends the signed order and returns an external reference.
	Submit(ctx context.Context, order SignedOrder) (string, error)
	// Confirm reports the order's settlement state. A pending status
	// means the caller should poll again.
	Confirm(ctx context.Context, ref string) (types.ExecutionResult, error)
}

// BalanceSource reports spendable balances per asset. The bot engine
// checks balances before invoking the chain, never inside it.
type BalanceSource interface {
	Balance(ctx context.Context, asset string) (float64, error)
}
