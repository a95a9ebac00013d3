package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/internal/types"
)

type MACDTestSuite struct {
	suite.Suite
}

func TestMACDTestSuite(t *testing.T) {
	suite.Run(t, new(MACDTestSuite))
}

func (s *MACDTestSuite) TestNewMACDInvalidParams() {
	_, err := NewMACD(0, 26, 9)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = NewMACD(12, 26, 0)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	// Fast period must be strictly shorter than slow.
	_, err = NewMACD(26, 26, 9)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = NewMACD(30, 26, 9)
	s.Require().Error(err)
}

func (s *MACDTestSuite) TestInsufficientCandles() {
	m, err := NewMACD(12, 26, 9)
	s.Require().NoError(err)
	s.Equal(47, m.MinCandles())

	_, err = m.Compute(ascendingCandles(46, 100, 1))
	s.Require().Error(err)
	s.True(errors.IsInsufficientDataError(err))
}

func (s *MACDTestSuite) TestAscendingSeriesIsBullish() {
	m, err := NewMACD(12, 26, 9)
	s.Require().NoError(err)

	signals, err := m.Compute(ascendingCandles(80, 100, 1))
	s.Require().NoError(err)
	s.Require().NotEmpty(signals)

	last := signals[len(signals)-1]
	s.Equal(types.IndicatorTypeMACD, last.Indicator)
	s.Equal(types.DirectionBuy, last.Direction)
	s.Greater(last.RawValue["momentum"], 0.0)
	s.Greater(last.RawValue["histogram"], 0.0)
}

func (s *MACDTestSuite) TestDescendingSeriesIsBearish() {
	m, err := NewMACD(12, 26, 9)
	s.Require().NoError(err)

	signals, err := m.Compute(descendingCandles(80, 500, 1))
	s.Require().NoError(err)
	s.Require().NotEmpty(signals)

	last := signals[len(signals)-1]
	s.Equal(types.DirectionSell, last.Direction)
	s.Less(last.RawValue["histogram"], 0.0)
}

func (s *MACDTestSuite) TestFlatSeriesHolds() {
	m, err := NewMACD(12, 26, 9)
	s.Require().NoError(err)

	signals, err := m.Compute(flatCandles(80, 100))
	s.Require().NoError(err)
	s.Require().NotEmpty(signals)

	last := signals[len(signals)-1]
	s.Equal(types.DirectionHold, last.Direction)
	s.Equal(0.0, last.RawValue["histogram"])
}

func (s *MACDTestSuite) TestName() {
	m, err := NewMACD(12, 26, 9)
	s.Require().NoError(err)
	s.Equal(types.IndicatorTypeMACD, m.Name())
}
