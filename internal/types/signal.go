package types

import "time"

// Direction is the tagged outcome of an indicator or the combiner.
type Direction string

const (
	// DirectionBuy tells the engine the indicator reads bullish.
	DirectionBuy Direction = "buy"
	// DirectionSell tells the engine the indicator reads bearish.
	DirectionSell Direction = "sell"
	// DirectionHold tells the engine to take no action.
	DirectionHold Direction = "hold"
)

// IndicatorType identifies one of the built-in indicators.
type IndicatorType string

const (
	IndicatorTypeSupertrend IndicatorType = "supertrend"
	IndicatorTypeMACD       IndicatorType = "macd"
	IndicatorTypeVMA        IndicatorType = "vma"
)

// IndicatorSignal is one indicator's read of one candle. Produced fresh every
// cycle and never mutated, only superseded by the next cycle's value.
type IndicatorSignal struct {
	// Time is the candle time the signal was derived from.
	Time time.Time
	// Indicator is the indicator that produced the signal.
	Indicator IndicatorType
	// Direction is the tagged buy/sell/hold outcome.
	Direction Direction
	// Reason is a human-readable explanation for the direction.
	Reason string
	// RawValue carries the numeric state that produced the direction
	// (trend value, bands, histogram and so on).
	RawValue map[string]float64
}

// CombinedSignal is the consensus of all indicators for one cycle, derived
// deterministically from that cycle's IndicatorSignals.
type CombinedSignal struct {
	// Time is the time of the newest contributing signal.
	Time time.Time
	// Votes maps indicator name to its direction this cycle.
	Votes map[IndicatorType]Direction
	// Direction is the consensus outcome.
	Direction Direction
	// Confidence is 0-100. For hold it is the bullish vote share and is
	// informational only.
	Confidence int
}
