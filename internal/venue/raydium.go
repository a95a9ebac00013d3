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

const defaultRaydiumBaseURL = "https://transaction-v1.raydium.io"

// RaydiumVenue is the second aggregator in the chain. Its trade API
// splits routing into a compute step and a transaction-build step.
type RaydiumVenue struct {
	api    *resty.Client
	rpc    *solanaRPC
	signer TransactionSigner
}

func NewRaydiumVenue(apiURL, rpcURL string, signer TransactionSigner) *RaydiumVenue {
	if apiURL == "" {
		apiURL = defaultRaydiumBaseURL
	}

	return &RaydiumVenue{
		api: resty.New().
			SetBaseURL(apiURL).
			SetTimeout(15 * time.Second),
		rpc:    newSolanaRPC(rpcURL),
		signer: signer,
	}
}

func (v *RaydiumVenue) Name() string {
	return "raydium"
}

type raydiumComputeResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    struct {
		InputAmount  string `json:"inputAmount"`
		OutputAmount string `json:"outputAmount"`
	} `json:"data"`
}

func (v *RaydiumVenue) Quote(ctx context.Context, req types.OrderRequest) (Quote, error) {
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
			"txVersion":   "V0",
		}).
		Get("/compute/swap-base-in")
	if err != nil {
		return Quote{}, errors.Wrap(errors.ErrCodeNetworkError, "raydium compute request", err)
	}

	if resp.IsError() {
		return Quote{}, classifyHTTPStatus(v.Name(), "compute", resp.StatusCode())
	}

	var compute raydiumComputeResponse
	if err := json.Unmarshal(resp.Body(), &compute); err != nil {
		return Quote{}, errors.Wrap(errors.ErrCodeDataParseFailed, "raydium compute response", err)
	}

	if !compute.Success {
		return Quote{}, errors.Newf(errors.ErrCodeVenueRejected, "raydium declined route: %s", compute.Msg)
	}

	inAmount, err := fromAtomic(compute.Data.InputAmount, in.decimals)
	if err != nil {
		return Quote{}, err
	}

	outAmount, err := fromAtomic(compute.Data.OutputAmount, out.decimals)
	if err != nil {
		return Quote{}, err
	}

	if inAmount <= 0 || outAmount <= 0 {
		return Quote{}, errors.Newf(errors.ErrCodeVenueRejected, "raydium quoted a zero fill for %s", req.ID)
	}

	return Quote{
		Venue:     v.Name(),
		InAmount:  inAmount,
		OutAmount: outAmount,
		Price:     quotePrice(req.Side, inAmount, outAmount),
		Payload:   resp.Body(),
	}, nil
}

type raydiumSwapResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Transaction string `json:"transaction"`
	} `json:"data"`
}

func (v *RaydiumVenue) Build(ctx context.Context, req types.OrderRequest, q Quote) (UnsignedOrder, error) {
	body := map[string]any{
		"swapResponse":  json.RawMessage(q.Payload),
		"wallet":        v.signer.PublicIdentity(),
		"txVersion":     "V0",
		"wrapSol":       req.Side == types.SideBuy,
		"unwrapSol":     req.Side == types.SideSell,
		"computeUnitPriceMicroLamports": "auto",
	}

	var swap raydiumSwapResponse

	resp, err := v.api.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&swap).
		Post("/transaction/swap-base-in")
	if err != nil {
		return UnsignedOrder{}, errors.Wrap(errors.ErrCodeNetworkError, "raydium transaction request", err)
	}

	if resp.IsError() {
		return UnsignedOrder{}, classifyHTTPStatus(v.Name(), "transaction", resp.StatusCode())
	}

	if !swap.Success || len(swap.Data) == 0 || swap.Data[0].Transaction == "" {
		return UnsignedOrder{}, errors.New(errors.ErrCodeVenueRejected, "raydium returned no transaction")
	}

	return UnsignedOrder{Venue: v.Name(), Payload: []byte(swap.Data[0].Transaction)}, nil
}

func (v *RaydiumVenue) Sign(_ context.Context, order UnsignedOrder) (SignedOrder, error) {
	sig, err := v.signer.Sign(order.Payload)
	if err != nil {
		return SignedOrder{}, err
	}

	return SignedOrder{Venue: order.Venue, Payload: order.Payload, Signature: sig}, nil
}

func (v *RaydiumVenue) Submit(ctx context.Context, order SignedOrder) (string, error) {
	return v.rpc.SendTransaction(ctx, string(order.Payload))
}

func (v *RaydiumVenue) Confirm(ctx context.Context, ref string) (types.ExecutionResult, error) {
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
