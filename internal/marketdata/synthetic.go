package marketdata

import (
	"math"
	"math/rand"
	"time"

	"github.com/tradewind-lab/tradewind/internal/types"
)

// syntheticStepPct bounds each random-walk step to ±0.5% of the
// previous close, roughly matching short-interval spot volatility.
const syntheticStepPct = 0.005

// SyntheticSeries generates a deterministic random-walk candle series
// seeded from the last known price. Two calls with the same seed price
// and shape produce identical candles, so degraded-mode behavior is
// reproducible. The series is tagged so consumers can tell it apart
// from live data.
func SyntheticSeries(seedPrice float64, count int, interval time.Duration, end time.Time) types.CandleSeries {
	rng := rand.New(rand.NewSource(int64(math.Float64bits(seedPrice))))

	candles := make([]types.Candle, count)
	price := seedPrice

	start := end.Add(-time.Duration(count-1) * interval)
	for i := range candles {
		step := (rng.Float64()*2 - 1) * syntheticStepPct * price
		open := price
		close := price + step

		high := math.Max(open, close) * (1 + rng.Float64()*syntheticStepPct/2)
		low := math.Min(open, close) * (1 - rng.Float64()*syntheticStepPct/2)

		candles[i] = types.Candle{
			Time:   start.Add(time.Duration(i) * interval),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: 0,
		}

		price = close
	}

	return types.CandleSeries{
		Source:  types.SeriesSourceSynthetic,
		Candles: candles,
	}
}
