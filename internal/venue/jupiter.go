package venue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

const defaultJupiterBaseURL = "https://quote-api.jup.ag/v6"

// JupiterVenue routes orders through the Jupiter swap aggregator and
// broadcasts the returned transaction over Solana RPC.
type JupiterVenue struct {
	api    *resty.Client
	rpc    *solanaRPC
	signer TransactionSigner
}

func NewJupiterVenue(apiURL, rpcURL string, signer TransactionSigner) *JupiterVenue {
	if apiURL == "" {
		apiURL = defaultJupiterBaseURL
	}

	return &JupiterVenue{
		api: resty.New().
			SetBaseURL(apiURL).
			SetTimeout(15 * time.Second),
		rpc:    newSolanaRPC(rpcURL),
		signer: signer,
	}
}

func (v *JupiterVenue) Name() string {
	return "jupiter"
}

type jupiterQuoteResponse struct {
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
}

func (v *JupiterVenue) Quote(ctx context.Context, req types.OrderRequest) (Quote, error) {
	in, err := mintFor(req.InputAsset)
	if err != nil {
		return Quote{}, err
	}

	out, err := mintFor(req.OutputAsset)
	if err != nil {
		return Quote{}, err
	}

	resp, err := v.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   in.address,
			"outputMint":  out.address,
			"amount":      toAtomic(req.Amount, in.decimals),
			"slippageBps": strconv.Itoa(req.SlippageBps),
		}).
		Get("/quote")
	if err != nil {
		return Quote{}, errors.Wrap(errors.ErrCodeNetworkError, "jupiter quote request", err)
	}

	if resp.IsError() {
		return Quote{}, classifyHTTPStatus(v.Name(), "quote", resp.StatusCode())
	}

	var quote jupiterQuoteResponse
	if err := json.Unmarshal(resp.Body(), &quote); err != nil {
		return Quote{}, errors.Wrap(errors.ErrCodeDataParseFailed, "jupiter quote response", err)
	}

	inAmount, err := fromAtomic(quote.InAmount, in.decimals)
	if err != nil {
		return Quote{}, err
	}

	outAmount, err := fromAtomic(quote.OutAmount, out.decimals)
	if err != nil {
		return Quote{}, err
	}

	if inAmount <= 0 || outAmount <= 0 {
		return Quote{}, errors.Newf(errors.ErrCodeVenueRejected, "jupiter quoted a zero fill for %s", req.ID)
	}

	return Quote{
		Venue:     v.Name(),
		InAmount:  inAmount,
		OutAmount: outAmount,
		Price:     quotePrice(req.Side, inAmount, outAmount),
		Payload:   resp.Body(),
	}, nil
}

type jupiterSwapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

func (v *JupiterVenue) Build(ctx context.Context, req types.OrderRequest, q Quote) (UnsignedOrder, error) {
	body := map[string]any{
		"quoteResponse":             json.RawMessage(q.Payload),
		"userPublicKey":             v.signer.PublicIdentity(),
		"wrapAndUnwrapSol":          true,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": "auto",
	}

	var swap jupiterSwapResponse

	resp, err := v.api.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&swap).
		Post("/swap")
	if err != nil {
		return UnsignedOrder{}, errors.Wrap(errors.ErrCodeNetworkError, "jupiter swap request", err)
	}

	if resp.IsError() {
		return UnsignedOrder{}, classifyHTTPStatus(v.Name(), "swap", resp.StatusCode())
	}

	if swap.SwapTransaction == "" {
		return UnsignedOrder{}, errors.New(errors.ErrCodeVenueRejected, "jupiter returned an empty transaction")
	}

	return UnsignedOrder{Venue: v.Name(), Payload: []byte(swap.SwapTransaction)}, nil
}

func (v *JupiterVenue) Sign(_ context.Context, order UnsignedOrder) (SignedOrder, error) {
	sig, err := v.signer.Sign(order.Payload)
	if err != nil {
		return SignedOrder{}, err
	}

	return SignedOrder{Venue: order.Venue, Payload: order.Payload, Signature: sig}, nil
}

func (v *JupiterVenue) Submit(ctx context.Context, order SignedOrder) (string, error) {
	ref, err := v.rpc.SendTransaction(ctx, string(order.Payload))
	if err != nil {
		return "", err
	}

	return ref, nil
}

func (v *JupiterVenue) Confirm(ctx context.Context, ref string) (types.ExecutionResult, error) {
	confirmed, failed, err := v.rpc.SignatureStatus(ctx, ref)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	result := types.ExecutionResult{
		Venue:       v.Name(),
		ExternalRef: ref,
		Status:      types.ExecutionStatusPending,
	}

	switch {
	case failed:
		result.Status = types.ExecutionStatusFailed
	case confirmed:
		result.Status = types.ExecutionStatusSuccess
	}

	return result, nil
}

// quotePrice expresses the quote as a base-asset price in quote-asset
// terms, regardless of swap direction.
func quotePrice(side types.Side, inAmount, outAmount float64) float64 {
	if side == types.SideBuy {
		// Buying base with quote: price = quote spent / base received.
		if outAmount == 0 {
			return 0
		}

		return inAmount / outAmount
	}

	if inAmount == 0 {
		return 0
	}

	return outAmount / inAmount
}

// classifyHTTPStatus maps an aggregator HTTP failure to the retry
// semantics the chain expects: 4xx is a definitive rejection, anything
// else is transient.
func classifyHTTPStatus(venue, step string, code int) error {
	if code >= 400 && code < 500 {
		return errors.Newf(errors.ErrCodeVenueRejected, "%s %s rejected with HTTP %d", venue, step, code)
	}

	return errors.Newf(errors.ErrCodeNetworkError, "%s %s failed with HTTP %d", venue, step, code)
}
