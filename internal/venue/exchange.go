package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// ExchangeVenue trades on Binance spot. It tries a limit order at the
// quoted price first and falls back to a market order when the limit
// attempt is rejected, so a moving book does not strand the signal.
type ExchangeVenue struct {
	client *binance.Client
	signer TransactionSigner
}

func NewExchangeVenue(apiKey, secretKey string, signer TransactionSigner) (*ExchangeVenue, error) {
	if apiKey == "" || secretKey == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "exchange venue requires api credentials")
	}

	return &ExchangeVenue{
		client: binance.NewClient(apiKey, secretKey),
		signer: signer,
	}, nil
}

func (v *ExchangeVenue) Name() string {
	return "exchange"
}

// exchangeOrder is the venue's serialized order between Build and Submit.
type exchangeOrder struct {
	Symbol        string     `json:"symbol"`
	Side          types.Side `json:"side"`
	BaseQuantity  string     `json:"base_quantity,omitempty"`
	QuoteQuantity string     `json:"quote_quantity,omitempty"`
	LimitPrice    string     `json:"limit_price,omitempty"`
}

func (v *ExchangeVenue) Quote(ctx context.Context, req types.OrderRequest) (Quote, error) {
	symbol := v.symbol(req)

	prices, err := v.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return Quote{}, errors.Wrapf(errors.ErrCodeNetworkError, err, "exchange price for %s", symbol)
	}

	if len(prices) == 0 {
		return Quote{}, errors.Newf(errors.ErrCodeVenueRejected, "exchange lists no price for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil || price <= 0 {
		return Quote{}, errors.Newf(errors.ErrCodeDataParseFailed, "exchange price %q for %s", prices[0].Price, symbol)
	}

	out := req.Amount * price
	if req.Side == types.SideBuy {
		out = req.Amount / price
	}

	return Quote{
		Venue:     v.Name(),
		InAmount:  req.Amount,
		OutAmount: out,
		Price:     price,
	}, nil
}

func (v *ExchangeVenue) Build(_ context.Context, req types.OrderRequest, q Quote) (UnsignedOrder, error) {
	order := exchangeOrder{
		Symbol: v.symbol(req),
		Side:   req.Side,
	}

	limit := req.LimitPrice.TakeOr(q.Price)
	order.LimitPrice = decimal.NewFromFloat(limit).Round(4).String()

	if req.Side == types.SideBuy {
		// Amount is denominated in the quote asset on buys.
		order.QuoteQuantity = decimal.NewFromFloat(req.Amount).Round(4).String()
		order.BaseQuantity = decimal.NewFromFloat(q.OutAmount).Round(4).String()
	} else {
		order.BaseQuantity = decimal.NewFromFloat(req.Amount).Round(4).String()
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return UnsignedOrder{}, errors.Wrap(errors.ErrCodeInvalidOrder, "marshal exchange order", err)
	}

	return UnsignedOrder{Venue: v.Name(), Payload: payload}, nil
}

// Sign attaches a local signature when a signer is configured. The
// exchange itself authenticates with api keys, so the signer is
// optional here and the signature is an audit artifact only.
func (v *ExchangeVenue) Sign(_ context.Context, order UnsignedOrder) (SignedOrder, error) {
	signed := SignedOrder{Venue: order.Venue, Payload: order.Payload}

	if v.signer == nil {
		return signed, nil
	}

	sig, err := v.signer.Sign(order.Payload)
	if err != nil {
		return SignedOrder{}, err
	}

	signed.Signature = sig

	return signed, nil
}

func (v *ExchangeVenue) Submit(ctx context.Context, signed SignedOrder) (string, error) {
	var order exchangeOrder
	if err := json.Unmarshal(signed.Payload, &order); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidOrder, "unmarshal exchange order", err)
	}

	side := binance.SideTypeSell
	if order.Side == types.SideBuy {
		side = binance.SideTypeBuy
	}

	resp, err := v.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeIOC).
		Quantity(order.BaseQuantity).
		Price(order.LimitPrice).
		Do(ctx)
	if err == nil {
		return orderRef(order.Symbol, resp.OrderID), nil
	}

	// Limit attempt refused; take whatever the book offers instead.
	svc := v.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket)

	if order.Side == types.SideBuy {
		svc = svc.QuoteOrderQty(order.QuoteQuantity)
	} else {
		svc = svc.Quantity(order.BaseQuantity)
	}

	resp, marketErr := svc.Do(ctx)
	if marketErr != nil {
		return "", errors.Wrapf(errors.ErrCodeVenueRejected, marketErr,
			"exchange refused both limit (%v) and market order", err)
	}

	return orderRef(order.Symbol, resp.OrderID), nil
}

func (v *ExchangeVenue) Confirm(ctx context.Context, ref string) (types.ExecutionResult, error) {
	symbol, orderID, err := parseOrderRef(ref)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	order, err := v.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return types.ExecutionResult{}, errors.Wrapf(errors.ErrCodeNetworkError, err, "exchange order status %s", ref)
	}

	result := types.ExecutionResult{
		Venue:       v.Name(),
		ExternalRef: ref,
		Status:      types.ExecutionStatusPending,
	}

	executed, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	quoteFilled, _ := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)

	switch order.Status {
	case binance.OrderStatusTypeFilled:
		result.Status = types.ExecutionStatusSuccess
		result.FilledOut = executed
		result.FilledIn = quoteFilled

		if order.Side == binance.SideTypeSell {
			result.FilledIn, result.FilledOut = executed, quoteFilled
		}

		if executed > 0 {
			result.Price = quoteFilled / executed
		}
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired:
		result.Status = types.ExecutionStatusFailed
	}

	return result, nil
}

// Balance implements BalanceSource against the spot account.
func (v *ExchangeVenue) Balance(ctx context.Context, asset string) (float64, error) {
	account, err := v.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeNetworkError, "exchange account lookup", err)
	}

	asset = strings.ToUpper(asset)
	for _, b := range account.Balances {
		if b.Asset == asset {
			free, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "exchange balance %q", b.Free)
			}

			return free, nil
		}
	}

	return 0, nil
}

func (v *ExchangeVenue) symbol(req types.OrderRequest) string {
	if req.Side == types.SideBuy {
		// Buy SOL with USDT: input is quote, output is base.
		return strings.ToUpper(req.OutputAsset + req.InputAsset)
	}

	return strings.ToUpper(req.InputAsset + req.OutputAsset)
}

func orderRef(symbol string, orderID int64) string {
	return fmt.Sprintf("%s:%d", symbol, orderID)
}

func parseOrderRef(ref string) (string, int64, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return "", 0, errors.Newf(errors.ErrCodeInvalidParameter, "malformed order reference %q", ref)
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "order reference %q", ref)
	}

	return parts[0], id, nil
}
