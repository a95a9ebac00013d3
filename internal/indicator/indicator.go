// Package indicator implements the technical indicators that feed the signal
// combiner. Every indicator is a pure function of the full candle history:
// nothing is carried between cycles, so a missed update can never drift the
// state.
package indicator

import (
	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// Indicator turns an ascending candle series into one signal per candle once
// the warm-up window is met.
type Indicator interface {
	// Name returns the name of the indicator.
	Name() types.IndicatorType
	// MinCandles returns the warm-up window. Compute fails with
	// InsufficientData for any shorter series.
	MinCandles() int
	// Compute returns one IndicatorSignal per candle starting at the
	// first candle for which the calculation is seeded.
	Compute(candles []types.Candle) ([]types.IndicatorSignal, error)
}

// Latest returns the newest signal of a computed series.
func Latest(signals []types.IndicatorSignal) types.IndicatorSignal {
	if len(signals) == 0 {
		return types.IndicatorSignal{Direction: types.DirectionHold}
	}

	return signals[len(signals)-1]
}

// checkWarmup validates the series length against an indicator's window.
func checkWarmup(name types.IndicatorType, candles []types.Candle, required int) error {
	if len(candles) < required {
		return errors.NewInsufficientDataErrorf(required, len(candles), "",
			"%s needs %d candles, have %d", name, required, len(candles))
	}

	return nil
}

// emaSeries computes an exponential moving average over values, seeded with
// the simple average of the first period values. Entries before index
// period-1 are zero and must not be read.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}

	out[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}

	return out
}

// wilderSeries computes a Wilder-smoothed average over values, the
// exponential smoothing used for true-range and directional movement.
func wilderSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}

	out[period-1] = sum / float64(period)

	for i := period; i < len(values); i++ {
		out[i] = (out[i-1]*float64(period-1) + values[i]) / float64(period)
	}

	return out
}
