package venue

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// PriceSource supplies the reference price for a pair. The market data
// gateway's LastKnownPrice satisfies it.
type PriceSource func(base, quote string) (float64, bool)

// DirectVenue is the last resort in the chain: a local fill simulation
// with a wallet held in memory. It fills at the reference price shaded
// by half the allowed slippage, which keeps simulated results slightly
// pessimistic. Settlement is immediate and all fills are final.
type DirectVenue struct {
	price  PriceSource
	signer TransactionSigner

	mu       sync.Mutex
	balances map[string]float64
	fills    map[string]types.ExecutionResult
}

func NewDirectVenue(price PriceSource, signer TransactionSigner, initialBalances map[string]float64) *DirectVenue {
	balances := make(map[string]float64, len(initialBalances))
	for asset, amount := range initialBalances {
		balances[asset] = amount
	}

	return &DirectVenue{
		price:    price,
		signer:   signer,
		balances: balances,
		fills:    make(map[string]types.ExecutionResult),
	}
}

func (v *DirectVenue) Name() string {
	return "direct"
}

func (v *DirectVenue) Quote(_ context.Context, req types.OrderRequest) (Quote, error) {
	base, quote := req.OutputAsset, req.InputAsset
	if req.Side == types.SideSell {
		base, quote = req.InputAsset, req.OutputAsset
	}

	ref, ok := v.price(base, quote)
	if !ok {
		return Quote{}, errors.New(errors.ErrCodeNoDataAvailable, "direct venue has no reference price")
	}

	// Shade the reference price by half the slippage allowance.
	shade := float64(req.SlippageBps) / 10000 / 2

	price := ref * (1 + shade)
	out := req.Amount / price

	if req.Side == types.SideSell {
		price = ref * (1 - shade)
		out = req.Amount * price
	}

	return Quote{
		Venue:     v.Name(),
		InAmount:  req.Amount,
		OutAmount: out,
		Price:     price,
	}, nil
}

type directOrder struct {
	ID          string     `json:"id"`
	Side        types.Side `json:"side"`
	InputAsset  string     `json:"input_asset"`
	OutputAsset string     `json:"output_asset"`
	InAmount    float64    `json:"in_amount"`
	OutAmount   float64    `json:"out_amount"`
	Price       float64    `json:"price"`
}

func (v *DirectVenue) Build(_ context.Context, req types.OrderRequest, q Quote) (UnsignedOrder, error) {
	payload, err := json.Marshal(directOrder{
		ID:          req.ID,
		Side:        req.Side,
		InputAsset:  req.InputAsset,
		OutputAsset: req.OutputAsset,
		InAmount:    q.InAmount,
		OutAmount:   q.OutAmount,
		Price:       q.Price,
	})
	if err != nil {
		return UnsignedOrder{}, errors.Wrap(errors.ErrCodeInvalidOrder, "marshal direct order", err)
	}

	return UnsignedOrder{Venue: v.Name(), Payload: payload}, nil
}

func (v *DirectVenue) Sign(_ context.Context, order UnsignedOrder) (SignedOrder, error) {
	sig, err := v.signer.Sign(order.Payload)
	if err != nil {
		return SignedOrder{}, err
	}

	return SignedOrder{Venue: order.Venue, Payload: order.Payload, Signature: sig}, nil
}

func (v *DirectVenue) Submit(_ context.Context, signed SignedOrder) (string, error) {
	var order directOrder
	if err := json.Unmarshal(signed.Payload, &order); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidOrder, "unmarshal direct order", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.balances[order.InputAsset] < order.InAmount {
		return "", errors.Newf(errors.ErrCodeVenueRejected,
			"direct wallet holds %.8f %s, order needs %.8f",
			v.balances[order.InputAsset], order.InputAsset, order.InAmount)
	}

	v.balances[order.InputAsset] -= order.InAmount
	v.balances[order.OutputAsset] += order.OutAmount

	ref := uuid.NewString()
	v.fills[ref] = types.ExecutionResult{
		Status:      types.ExecutionStatusSuccess,
		Venue:       v.Name(),
		FilledIn:    order.InAmount,
		FilledOut:   order.OutAmount,
		Price:       order.Price,
		ExternalRef: ref,
	}

	return ref, nil
}

func (v *DirectVenue) Confirm(_ context.Context, ref string) (types.ExecutionResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fill, ok := v.fills[ref]
	if !ok {
		return types.ExecutionResult{}, errors.Newf(errors.ErrCodeConfirmationFailed, "unknown direct fill %q", ref)
	}

	return fill, nil
}

// Balance implements BalanceSource against the simulated wallet.
func (v *DirectVenue) Balance(_ context.Context, asset string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.balances[asset], nil
}
