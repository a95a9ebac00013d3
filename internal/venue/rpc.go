package venue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// solanaRPC is the minimal JSON-RPC surface the aggregator venues need:
// broadcast a signed transaction and poll its signature status.
type solanaRPC struct {
	client *resty.Client
}

func newSolanaRPC(endpoint string) *solanaRPC {
	return &solanaRPC{
		client: resty.New().
			SetBaseURL(endpoint).
			SetTimeout(15 * time.Second),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (r *solanaRPC) call(ctx context.Context, method string, params []any, out any) error {
	var body rpcResponse

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}).
		SetResult(&body).
		Post("/")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeNetworkError, err, "rpc %s", method)
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeNetworkError, "rpc %s: %s", method, resp.Status())
	}

	if body.Error != nil {
		return errors.Newf(errors.ErrCodeVenueRejected, "rpc %s: %s (%d)", method, body.Error.Message, body.Error.Code)
	}

	if out != nil {
		if err := json.Unmarshal(body.Result, out); err != nil {
			return errors.Wrapf(errors.ErrCodeDataParseFailed, err, "rpc %s result", method)
		}
	}

	return nil
}

// SendTransaction broadcasts a base64-encoded signed transaction and
// returns its signature.
func (r *solanaRPC) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	var signature string

	err := r.call(ctx, "sendTransaction", []any{
		txBase64,
		map[string]any{"encoding": "base64", "skipPreflight": false},
	}, &signature)
	if err != nil {
		return "", err
	}

	return signature, nil
}

type signatureStatus struct {
	ConfirmationStatus string  `json:"confirmationStatus"`
	Err                any     `json:"err"`
	Slot               uint64  `json:"slot"`
	Confirmations      *uint64 `json:"confirmations"`
}

type signatureStatusResult struct {
	Value []*signatureStatus `json:"value"`
}

// SignatureStatus reports whether a transaction landed. The bool is
// true once the cluster reports a terminal confirmation level.
func (r *solanaRPC) SignatureStatus(ctx context.Context, signature string) (confirmed bool, failed bool, err error) {
	var result signatureStatusResult

	err = r.call(ctx, "getSignatureStatuses", []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}, &result)
	if err != nil {
		return false, false, err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return false, false, nil
	}

	status := result.Value[0]
	if status.Err != nil {
		return false, true, nil
	}

	switch status.ConfirmationStatus {
	case "confirmed", "finalized":
		return true, false, nil
	default:
		return false, false, nil
	}
}
