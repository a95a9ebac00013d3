package indicator

import (
	"fmt"
	"math"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// VMA is the adaptive trend-strength moving average. A smoothed ratio of
// up-moves to down-moves (bounded 0-1) weights how far the variable moving
// average leans toward the latest close versus its own previous value: in a
// strong trend it hugs price, in chop it barely moves. Price above the VMA
// is bullish, below is bearish.
type VMA struct {
	period int
}

// NewVMA creates a VMA indicator with the given strength period.
func NewVMA(period int) (*VMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "vma period must be positive, got %d", period)
	}

	return &VMA{period: period}, nil
}

// Name returns the name of the indicator.
func (v *VMA) Name() types.IndicatorType {
	return types.IndicatorTypeVMA
}

// MinCandles returns the warm-up window: one candle to seed the move series
// plus a full smoothing period.
func (v *VMA) MinCandles() int {
	return v.period + 1
}

// Compute returns one signal per candle from the first seeded candle onward.
func (v *VMA) Compute(candles []types.Candle) ([]types.IndicatorSignal, error) {
	if err := checkWarmup(v.Name(), candles, v.MinCandles()); err != nil {
		return nil, err
	}

	closes := types.Closes(candles)

	ups := make([]float64, len(closes)-1)
	downs := make([]float64, len(closes)-1)

	for i := 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			ups[i-1] = diff
		} else {
			downs[i-1] = -diff
		}
	}

	upAvg := wilderSeries(ups, v.period)
	downAvg := wilderSeries(downs, v.period)

	start := v.period
	signals := make([]types.IndicatorSignal, 0, len(candles)-start)

	k := 2.0 / float64(v.period+1)
	vma := closes[start-1]

	for i := start; i < len(candles); i++ {
		up := upAvg[i-1]
		down := downAvg[i-1]

		// Directional strength: 0 in perfect chop, 1 in a one-way move.
		strength := 0.0
		if up+down > 0 {
			strength = math.Abs(up-down) / (up + down)
		}

		vma += k * strength * (closes[i] - vma)

		direction := types.DirectionHold
		reason := "price on the adaptive average"

		switch {
		case closes[i] > vma:
			direction = types.DirectionBuy
			reason = fmt.Sprintf("close %.4f above adaptive average %.4f", closes[i], vma)
		case closes[i] < vma:
			direction = types.DirectionSell
			reason = fmt.Sprintf("close %.4f below adaptive average %.4f", closes[i], vma)
		}

		signals = append(signals, types.IndicatorSignal{
			Time:      candles[i].Time,
			Indicator: v.Name(),
			Direction: direction,
			Reason:    reason,
			RawValue: map[string]float64{
				"vma":      vma,
				"strength": strength,
			},
		})
	}

	return signals, nil
}
