package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// coingeckoIDs maps ticker symbols to CoinGecko asset identifiers for
// the assets the engine trades. Unknown symbols are rejected before any
// network call.
var coingeckoIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"BNB":  "binancecoin",
	"USDT": "tether",
	"USDC": "usd-coin",
}

// CoinGeckoProvider is the secondary data source. Its OHLC endpoint
// picks candle granularity from the requested window, so candle
// intervals are approximate; it mainly backs up the price feed.
type CoinGeckoProvider struct {
	client *resty.Client
}

func NewCoinGeckoProvider() *CoinGeckoProvider {
	return &CoinGeckoProvider{
		client: resty.New().
			SetBaseURL(coingeckoBaseURL).
			SetTimeout(10 * time.Second),
	}
}

func (p *CoinGeckoProvider) Name() string {
	return "coingecko"
}

func (p *CoinGeckoProvider) CurrentPrice(ctx context.Context, base, quote string) (float64, error) {
	id, vs, err := coingeckoPair(base, quote)
	if err != nil {
		return 0, err
	}

	var result map[string]map[string]float64

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           id,
			"vs_currencies": vs,
		}).
		SetResult(&result).
		Get("/simple/price")
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeNetworkError, err, "coingecko price request for %s", id)
	}

	if resp.IsError() {
		return 0, errors.Newf(errors.ErrCodeDataSourceFailure, "coingecko price request for %s: %s", id, resp.Status())
	}

	price, ok := result[id][vs]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeDataParseFailed, "coingecko response missing %s/%s", id, vs)
	}

	return price, nil
}

func (p *CoinGeckoProvider) Candles(ctx context.Context, base, quote, interval string, limit int) ([]types.Candle, error) {
	id, vs, err := coingeckoPair(base, quote)
	if err != nil {
		return nil, err
	}

	step, err := intervalDuration(interval)
	if err != nil {
		return nil, err
	}

	days := coingeckoDays(step, limit)

	var rows [][]float64

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency": vs,
			"days":        days,
		}).
		SetResult(&rows).
		Get("/coins/" + id + "/ohlc")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNetworkError, err, "coingecko ohlc request for %s", id)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeDataSourceFailure, "coingecko ohlc request for %s: %s", id, resp.Status())
	}

	candles := make([]types.Candle, 0, len(rows))

	for _, row := range rows {
		if len(row) < 5 {
			return nil, errors.Newf(errors.ErrCodeDataParseFailed, "coingecko ohlc row has %d fields", len(row))
		}

		candles = append(candles, types.Candle{
			Time:   time.UnixMilli(int64(row[0])).UTC(),
			Open:   row[1],
			High:   row[2],
			Low:    row[3],
			Close:  row[4],
			Volume: 0,
		})
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

func coingeckoPair(base, quote string) (id, vs string, err error) {
	id, ok := coingeckoIDs[strings.ToUpper(base)]
	if !ok {
		return "", "", errors.Newf(errors.ErrCodeInvalidParameter, "no coingecko id for asset %q", base)
	}

	vs = strings.ToLower(quote)
	if vs == "usdt" || vs == "usdc" {
		vs = "usd"
	}

	return id, vs, nil
}

// coingeckoDays picks the smallest supported window covering the
// requested span.
func coingeckoDays(step time.Duration, limit int) string {
	span := step * time.Duration(limit)

	switch {
	case span <= 24*time.Hour:
		return "1"
	case span <= 7*24*time.Hour:
		return "7"
	case span <= 14*24*time.Hour:
		return "14"
	case span <= 30*24*time.Hour:
		return "30"
	default:
		return "90"
	}
}
