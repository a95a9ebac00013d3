package indicator

import (
	"fmt"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// MACD is the dual-EMA momentum indicator: the momentum line is the fast EMA
// of closes minus the slow EMA, the signal line is an EMA of the momentum
// line, and the sign of the histogram (momentum minus signal) is the
// bullish/bearish state.
type MACD struct {
	fast      int
	slow      int
	signalLen int
}

// NewMACD creates a MACD indicator with the given fast, slow and signal
// periods.
func NewMACD(fast, slow, signalLen int) (*MACD, error) {
	if fast <= 0 || slow <= 0 || signalLen <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"macd periods must be positive, got fast=%d slow=%d signal=%d", fast, slow, signalLen)
	}

	if fast >= slow {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"macd fast period %d must be shorter than slow period %d", fast, slow)
	}

	return &MACD{fast: fast, slow: slow, signalLen: signalLen}, nil
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// MinCandles returns the warm-up window.
func (m *MACD) MinCandles() int {
	return m.fast + m.slow + m.signalLen
}

// Compute returns one signal per candle once both the momentum and signal
// lines are seeded.
func (m *MACD) Compute(candles []types.Candle) ([]types.IndicatorSignal, error) {
	if err := checkWarmup(m.Name(), candles, m.MinCandles()); err != nil {
		return nil, err
	}

	closes := types.Closes(candles)
	fastEMA := emaSeries(closes, m.fast)
	slowEMA := emaSeries(closes, m.slow)

	// The momentum line is only defined once the slow EMA is seeded.
	momentum := make([]float64, len(closes)-(m.slow-1))
	for i := range momentum {
		idx := i + m.slow - 1
		momentum[i] = fastEMA[idx] - slowEMA[idx]
	}

	signalLine := emaSeries(momentum, m.signalLen)

	// First candle with both lines seeded.
	start := m.slow - 1 + m.signalLen - 1
	signals := make([]types.IndicatorSignal, 0, len(candles)-start)

	for i := start; i < len(candles); i++ {
		mom := momentum[i-(m.slow-1)]
		sig := signalLine[i-(m.slow-1)]
		hist := mom - sig

		direction := types.DirectionHold
		reason := "momentum and signal lines are equal"

		switch {
		case hist > 0:
			direction = types.DirectionBuy
			reason = fmt.Sprintf("momentum %.6f above signal %.6f", mom, sig)
		case hist < 0:
			direction = types.DirectionSell
			reason = fmt.Sprintf("momentum %.6f below signal %.6f", mom, sig)
		}

		signals = append(signals, types.IndicatorSignal{
			Time:      candles[i].Time,
			Indicator: m.Name(),
			Direction: direction,
			Reason:    reason,
			RawValue: map[string]float64{
				"momentum":  mom,
				"signal":    sig,
				"histogram": hist,
			},
		})
	}

	return signals, nil
}
