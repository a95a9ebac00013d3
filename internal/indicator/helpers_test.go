package indicator

import (
	"time"

	"github.com/tradewind-lab/tradewind/internal/types"
)

// ascendingCandles builds a strictly increasing daily series starting at
// start, advancing step per candle, with a fixed intra-candle range.
func ascendingCandles(n int, start, step float64) []types.Candle {
	candles := make([]types.Candle, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range candles {
		p := start + float64(i)*step
		candles[i] = types.Candle{
			Time:   base.AddDate(0, 0, i),
			Open:   p - step/4,
			High:   p + 1,
			Low:    p - 1,
			Close:  p + 0.5,
			Volume: 1000,
		}
	}

	return candles
}

// descendingCandles builds a strictly decreasing daily series.
func descendingCandles(n int, start, step float64) []types.Candle {
	candles := make([]types.Candle, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range candles {
		p := start - float64(i)*step
		candles[i] = types.Candle{
			Time:   base.AddDate(0, 0, i),
			Open:   p + step/4,
			High:   p + 1,
			Low:    p - 1,
			Close:  p - 0.5,
			Volume: 1000,
		}
	}

	return candles
}

// flatCandles builds a series with identical closes.
func flatCandles(n int, price float64) []types.Candle {
	candles := make([]types.Candle, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range candles {
		candles[i] = types.Candle{
			Time:   base.AddDate(0, 0, i),
			Open:   price,
			High:   price + 0.5,
			Low:    price - 0.5,
			Close:  price,
			Volume: 1000,
		}
	}

	return candles
}
