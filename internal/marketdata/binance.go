package marketdata

import (
	"context"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// BinanceProvider reads spot prices and klines. Public market data
// endpoints work without credentials.
type BinanceProvider struct {
	client *binance.Client
}

func NewBinanceProvider(apiKey, secretKey string) *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient(apiKey, secretKey),
	}
}

func (p *BinanceProvider) Name() string {
	return "binance"
}

func (p *BinanceProvider) CurrentPrice(ctx context.Context, base, quote string) (float64, error) {
	symbol := binanceSymbol(base, quote)

	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeDataSourceFailure, err, "binance price lookup for %s", symbol)
	}

	if len(prices) == 0 {
		return 0, errors.Newf(errors.ErrCodeDataSourceFailure, "binance returned no price for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "binance price %q", prices[0].Price)
	}

	return price, nil
}

func (p *BinanceProvider) Candles(ctx context.Context, base, quote, interval string, limit int) ([]types.Candle, error) {
	symbol := binanceSymbol(base, quote)

	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceFailure, err, "binance klines for %s", symbol)
	}

	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		candle, err := klineToCandle(k)
		if err != nil {
			return nil, err
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

func klineToCandle(k *binance.Kline) (types.Candle, error) {
	fields := map[string]string{
		"open":   k.Open,
		"high":   k.High,
		"low":    k.Low,
		"close":  k.Close,
		"volume": k.Volume,
	}

	parsed := make(map[string]float64, len(fields))

	for name, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Candle{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "binance kline %s %q", name, raw)
		}

		parsed[name] = v
	}

	return types.Candle{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   parsed["open"],
		High:   parsed["high"],
		Low:    parsed["low"],
		Close:  parsed["close"],
		Volume: parsed["volume"],
	}, nil
}

func binanceSymbol(base, quote string) string {
	return strings.ToUpper(base + quote)
}
