package types

import "time"

// Candle is one OHLCV bucket of market history. A candle is immutable once
// produced; indicators consume an ascending-by-time slice of them.
type Candle struct {
	Time   time.Time `yaml:"time" json:"time"`
	Open   float64   `yaml:"open" json:"open"`
	High   float64   `yaml:"high" json:"high"`
	Low    float64   `yaml:"low" json:"low"`
	Close  float64   `yaml:"close" json:"close"`
	Volume float64   `yaml:"volume" json:"volume"`
}

// SeriesSource tags where a candle series came from so degraded-mode data is
// never silently mixed with live data.
type SeriesSource string

const (
	SeriesSourceLive      SeriesSource = "live"
	SeriesSourceSynthetic SeriesSource = "synthetic"
)

// CandleSeries is a candle slice together with its provenance.
type CandleSeries struct {
	Source  SeriesSource
	Candles []Candle
}

// IsSynthetic reports whether the series was generated as a fallback rather
// than fetched from a real provider.
func (s CandleSeries) IsSynthetic() bool {
	return s.Source == SeriesSourceSynthetic
}

// Closes returns the close prices of the series in order.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	return closes
}
