package bot

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

type TradeSizeTestSuite struct {
	suite.Suite

	cfg types.BotConfig
}

func TestTradeSizeTestSuite(t *testing.T) {
	suite.Run(t, new(TradeSizeTestSuite))
}

func (s *TradeSizeTestSuite) SetupTest() {
	s.cfg = types.DefaultBotConfig("user-1")
	s.cfg.MinOrderSize = 0
	s.cfg.MinNotional = 0.001
}

func (s *TradeSizeTestSuite) TestBuySpendsHalfQuoteMinusReserve() {
	amount, err := TradeSize(s.cfg, types.SideBuy, 0, 10, 150)
	s.Require().NoError(err)

	// 50% of 10 quote units, minus the 0.5% fee reserve.
	s.InDelta(4.975, amount, 1e-9)
}

func (s *TradeSizeTestSuite) TestBuyBelowNotionalFloor() {
	_, err := TradeSize(s.cfg, types.SideBuy, 0, 0.0005, 150)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientBalance))
}

func (s *TradeSizeTestSuite) TestZeroBalance() {
	_, err := TradeSize(s.cfg, types.SideBuy, 0, 0, 150)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientBalance))
}

func (s *TradeSizeTestSuite) TestSellSpendsBaseBalance() {
	amount, err := TradeSize(s.cfg, types.SideSell, 2, 0, 150)
	s.Require().NoError(err)

	// 100% of 2 base units, minus the 0.5% fee reserve.
	s.InDelta(1.99, amount, 1e-9)
}

func (s *TradeSizeTestSuite) TestSellBelowMinOrderSize() {
	s.cfg.MinOrderSize = 0.1

	_, err := TradeSize(s.cfg, types.SideSell, 0.05, 0, 150)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientBalance))
}

func (s *TradeSizeTestSuite) TestSellBelowNotionalFloor() {
	s.cfg.MinNotional = 15

	// 0.05 base at price 100 is worth 5 quote units, under the floor.
	_, err := TradeSize(s.cfg, types.SideSell, 0.05, 0, 100)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientBalance))
}

func (s *TradeSizeTestSuite) TestBuyMinOrderSizeInBaseUnits() {
	s.cfg.MinOrderSize = 0.1

	// 4.975 quote at price 150 buys about 0.033 base, under the floor.
	_, err := TradeSize(s.cfg, types.SideBuy, 0, 10, 150)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientBalance))
}

func (s *TradeSizeTestSuite) TestNonPositivePrice() {
	_, err := TradeSize(s.cfg, types.SideBuy, 0, 10, 0)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (s *TradeSizeTestSuite) TestNoReserveUsesFullPercentage() {
	s.cfg.FeeReservePercentage = 0

	amount, err := TradeSize(s.cfg, types.SideBuy, 0, 10, 150)
	s.Require().NoError(err)
	s.InDelta(5, amount, 1e-9)
}
