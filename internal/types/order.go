package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/tradewind-lab/tradewind/pkg/errors"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ExecutionStatus tracks the lifecycle of an execution attempt.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "pending"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// OrderRequest describes one swap the venue chain should attempt.
type OrderRequest struct {
	ID          string  `yaml:"id" json:"id" validate:"required,uuid"`
	Side        Side    `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	InputAsset  string  `yaml:"input_asset" json:"input_asset" validate:"required"`
	OutputAsset string  `yaml:"output_asset" json:"output_asset" validate:"required"`
	// Amount is denominated in the input asset.
	Amount      float64 `yaml:"amount" json:"amount" validate:"required,gt=0"`
	SlippageBps int     `yaml:"slippage_bps" json:"slippage_bps" validate:"gte=0,lte=10000"`
	// LimitPrice caps the acceptable execution price for venues that
	// support limit semantics. Venues without it ignore the option.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	return nil
}

// ExecutionResult is the terminal outcome of one pass through the venue
// chain. On failure no partial side effects may be assumed: callers must not
// credit balances unless Status is success.
type ExecutionResult struct {
	Status ExecutionStatus `yaml:"status" json:"status"`
	// Venue names the back-end that filled (or finally failed) the order.
	Venue string `yaml:"venue" json:"venue"`
	// FilledIn is how much of the input asset was consumed.
	FilledIn float64 `yaml:"filled_in" json:"filled_in"`
	// FilledOut is how much of the output asset was received.
	FilledOut float64 `yaml:"filled_out" json:"filled_out"`
	// Price is the effective execution price in quote units per base unit.
	Price float64 `yaml:"price" json:"price"`
	// Fee is the venue fee in quote units.
	Fee float64 `yaml:"fee" json:"fee"`
	// ExternalRef is the venue's transaction reference, if any.
	ExternalRef string `yaml:"external_ref" json:"external_ref"`
}
