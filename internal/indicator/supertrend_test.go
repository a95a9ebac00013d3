package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/internal/types"
)

type SupertrendTestSuite struct {
	suite.Suite
}

func TestSupertrendTestSuite(t *testing.T) {
	suite.Run(t, new(SupertrendTestSuite))
}

func (s *SupertrendTestSuite) TestNewSupertrendInvalidParams() {
	_, err := NewSupertrend(0, 3.0)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = NewSupertrend(10, 0)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidMultiplier))

	_, err = NewSupertrend(10, -1.5)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidMultiplier))
}

func (s *SupertrendTestSuite) TestInsufficientCandles() {
	st, err := NewSupertrend(10, 3.0)
	s.Require().NoError(err)

	_, err = st.Compute(ascendingCandles(10, 100, 2))
	s.Require().Error(err)
	s.True(errors.IsInsufficientDataError(err))

	var insufficient *errors.InsufficientDataError
	s.Require().ErrorAs(err, &insufficient)
	s.Equal(11, insufficient.Required)
	s.Equal(10, insufficient.Actual)
}

func (s *SupertrendTestSuite) TestAscendingSeriesReportsUp() {
	st, err := NewSupertrend(10, 3.0)
	s.Require().NoError(err)

	candles := ascendingCandles(30, 100, 2)
	signals, err := st.Compute(candles)
	s.Require().NoError(err)
	s.Require().NotEmpty(signals)

	last := signals[len(signals)-1]
	s.Equal(types.DirectionBuy, last.Direction)
	s.Equal(types.IndicatorTypeSupertrend, last.Indicator)
	s.Greater(last.RawValue["atr"], 0.0)
	s.Equal(last.RawValue["lower_band"], last.RawValue["trend"])
	s.Less(last.RawValue["trend"], candles[len(candles)-1].Close)
}

func (s *SupertrendTestSuite) TestAscendingSeriesNeverFlipsDown() {
	st, err := NewSupertrend(10, 3.0)
	s.Require().NoError(err)

	signals, err := st.Compute(ascendingCandles(120, 100, 2))
	s.Require().NoError(err)

	for _, sig := range signals {
		s.Equal(types.DirectionBuy, sig.Direction)
		s.Equal(0.0, sig.RawValue["flipped"])
	}
}

func (s *SupertrendTestSuite) TestDescendingSeriesReportsDown() {
	st, err := NewSupertrend(10, 3.0)
	s.Require().NoError(err)

	signals, err := st.Compute(descendingCandles(60, 500, 2))
	s.Require().NoError(err)
	s.Require().NotEmpty(signals)

	last := signals[len(signals)-1]
	s.Equal(types.DirectionSell, last.Direction)
}

func (s *SupertrendTestSuite) TestReversalFlipsTrend() {
	st, err := NewSupertrend(10, 3.0)
	s.Require().NoError(err)

	// Long rally followed by a sharp collapse well below the lower band.
	candles := ascendingCandles(40, 100, 2)
	crash := descendingCandles(30, 50, 2)
	for i := range crash {
		crash[i].Time = candles[len(candles)-1].Time.AddDate(0, 0, i+1)
	}
	candles = append(candles, crash...)

	signals, err := st.Compute(candles)
	s.Require().NoError(err)
	s.Require().NotEmpty(signals)

	last := signals[len(signals)-1]
	s.Equal(types.DirectionSell, last.Direction)

	flipped := false
	for _, sig := range signals {
		if sig.RawValue["flipped"] == 1.0 {
			flipped = true
		}
	}
	s.True(flipped)
}

func (s *SupertrendTestSuite) TestMinCandles() {
	st, err := NewSupertrend(10, 3.0)
	s.Require().NoError(err)
	s.Equal(11, st.MinCandles())
	s.Equal(types.IndicatorTypeSupertrend, st.Name())
}
