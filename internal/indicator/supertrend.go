package indicator

import (
	"fmt"
	"math"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// Supertrend is the trend-following indicator. It derives an average true
// range from the rolling max of three range estimates, builds bands around
// the candle midpoint scaled by a multiplier, and tracks which band is
// active: price closing through a band flips the trend. The per-candle
// direction is the current trend state; a flip between two consecutive
// candles is additionally reported via the "flipped" raw value.
type Supertrend struct {
	period     int
	multiplier float64
}

// NewSupertrend creates a Supertrend indicator with the given ATR period and
// band multiplier.
func NewSupertrend(period int, multiplier float64) (*Supertrend, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "supertrend period must be positive, got %d", period)
	}

	if multiplier <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidMultiplier, "supertrend multiplier must be positive, got %f", multiplier)
	}

	return &Supertrend{period: period, multiplier: multiplier}, nil
}

// Name returns the name of the indicator.
func (s *Supertrend) Name() types.IndicatorType {
	return types.IndicatorTypeSupertrend
}

// MinCandles returns the warm-up window: one candle to seed the true range
// plus a full ATR period.
func (s *Supertrend) MinCandles() int {
	return s.period + 1
}

// Compute returns one signal per candle from the first seeded candle onward.
func (s *Supertrend) Compute(candles []types.Candle) ([]types.IndicatorSignal, error) {
	if err := checkWarmup(s.Name(), candles, s.MinCandles()); err != nil {
		return nil, err
	}

	// True range needs the previous close, so the series starts at index 1.
	tr := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i-1] = math.Max(hl, math.Max(hc, lc))
	}

	atr := wilderSeries(tr, s.period)

	// Bands and trend are defined from candle index period onward.
	start := s.period

	signals := make([]types.IndicatorSignal, 0, len(candles)-start)

	var (
		finalUpper, finalLower float64
		prevClose              float64
		trendUp                = true
		seeded                 = false
		prevTrendUp            = true
	)

	for i := start; i < len(candles); i++ {
		c := candles[i]
		mid := (c.High + c.Low) / 2
		band := s.multiplier * atr[i-1]
		basicUpper := mid + band
		basicLower := mid - band

		if !seeded {
			finalUpper = basicUpper
			finalLower = basicLower
			trendUp = c.Close >= mid
			prevTrendUp = trendUp
			seeded = true
		} else {
			// Bands only tighten unless price closed through them.
			if basicUpper < finalUpper || prevClose > finalUpper {
				finalUpper = basicUpper
			}

			if basicLower > finalLower || prevClose < finalLower {
				finalLower = basicLower
			}

			prevTrendUp = trendUp
			if trendUp && c.Close < finalLower {
				trendUp = false
			} else if !trendUp && c.Close > finalUpper {
				trendUp = true
			}
		}

		prevClose = c.Close

		direction := types.DirectionSell
		trendValue := finalUpper
		reason := fmt.Sprintf("downtrend, active band %.4f", finalUpper)

		if trendUp {
			direction = types.DirectionBuy
			trendValue = finalLower
			reason = fmt.Sprintf("uptrend, active band %.4f", finalLower)
		}

		flipped := 0.0
		if trendUp != prevTrendUp {
			flipped = 1.0
			reason = fmt.Sprintf("trend flipped to %s at %.4f", direction, c.Close)
		}

		signals = append(signals, types.IndicatorSignal{
			Time:      c.Time,
			Indicator: s.Name(),
			Direction: direction,
			Reason:    reason,
			RawValue: map[string]float64{
				"trend":      trendValue,
				"upper_band": finalUpper,
				"lower_band": finalLower,
				"atr":        atr[i-1],
				"flipped":    flipped,
			},
		})
	}

	return signals, nil
}
