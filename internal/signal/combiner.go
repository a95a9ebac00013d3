// Package signal merges per-indicator directions into a single trade
// decision with a confidence score.
package signal

import (
	"fmt"
	"time"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

// Combiner applies a vote-counting consensus rule over the latest signal
// from each indicator. The bar to buy is deliberately higher than the bar
// to sell: entering a position requires broader agreement than exiting one.
type Combiner struct {
	params types.ConsensusParams
}

func NewCombiner(params types.ConsensusParams) (*Combiner, error) {
	if params.BuyVotes < 1 || params.SellVotes < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"consensus vote thresholds must be at least 1")
	}

	return &Combiner{params: params}, nil
}

// Combine counts bullish and bearish votes across the given signals.
// It emits buy only when at least BuyVotes indicators are bullish,
// sell when at least SellVotes are bearish (buy wins if both thresholds
// are met), and hold otherwise. Confidence is the winning vote share as
// a percentage; for hold it reports the bullish share, informational only.
func (c *Combiner) Combine(at time.Time, signals []types.IndicatorSignal) types.CombinedSignal {
	votes := make(map[types.IndicatorType]types.Direction, len(signals))

	bullish, bearish := 0, 0
	for _, sig := range signals {
		votes[sig.Indicator] = sig.Direction

		switch sig.Direction {
		case types.DirectionBuy:
			bullish++
		case types.DirectionSell:
			bearish++
		}
	}

	total := len(signals)
	combined := types.CombinedSignal{
		Time:  at,
		Votes: votes,
	}

	switch {
	case total == 0:
		combined.Direction = types.DirectionHold
		combined.Confidence = 0
	case bullish >= c.params.BuyVotes:
		combined.Direction = types.DirectionBuy
		combined.Confidence = voteShare(bullish, total)
	case bearish >= c.params.SellVotes:
		combined.Direction = types.DirectionSell
		combined.Confidence = voteShare(bearish, total)
	default:
		combined.Direction = types.DirectionHold
		combined.Confidence = voteShare(bullish, total)
	}

	return combined
}

// Describe renders a short human-readable summary for log entries.
func Describe(sig types.CombinedSignal) string {
	return fmt.Sprintf("%s (confidence %d%%, %d indicators)", sig.Direction, sig.Confidence, len(sig.Votes))
}

// voteShare converts a vote count to a rounded percentage, so two of
// three votes reports 67 rather than truncating to 66.
func voteShare(n, total int) int {
	return (n*100 + total/2) / total
}
