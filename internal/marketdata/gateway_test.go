package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/suite"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

type fakeProvider struct {
	name string

	priceCalls  int
	priceFn     func(call int) (float64, error)
	candleCalls int
	candlesFn   func(call int) ([]types.Candle, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CurrentPrice(_ context.Context, _, _ string) (float64, error) {
	f.priceCalls++
	return f.priceFn(f.priceCalls)
}

func (f *fakeProvider) Candles(_ context.Context, _, _, _ string, _ int) ([]types.Candle, error) {
	f.candleCalls++
	return f.candlesFn(f.candleCalls)
}

func alwaysPrice(p float64) func(int) (float64, error) {
	return func(int) (float64, error) { return p, nil }
}

func alwaysPriceErr(err error) func(int) (float64, error) {
	return func(int) (float64, error) { return 0, err }
}

func alwaysCandlesErr(err error) func(int) ([]types.Candle, error) {
	return func(int) ([]types.Candle, error) { return nil, err }
}

type GatewayTestSuite struct {
	suite.Suite

	now time.Time
}

func TestGatewayTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}

func (s *GatewayTestSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *GatewayTestSuite) newGateway(providers ...Provider) *Gateway {
	g, err := NewGateway(providers, logger.NewTestLogger(),
		WithClock(func() time.Time { return s.now }),
		WithBackOffFactory(func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		}),
	)
	s.Require().NoError(err)

	return g
}

func (s *GatewayTestSuite) TestNewGatewayRequiresProviders() {
	_, err := NewGateway(nil, logger.NewTestLogger())
	s.Error(err)
}

func (s *GatewayTestSuite) TestCurrentPriceFromFirstProvider() {
	p1 := &fakeProvider{name: "one", priceFn: alwaysPrice(150.5)}
	p2 := &fakeProvider{name: "two", priceFn: alwaysPrice(151)}

	g := s.newGateway(p1, p2)

	price, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)
	s.Equal(150.5, price)
	s.Equal(1, p1.priceCalls)
	s.Zero(p2.priceCalls)
}

func (s *GatewayTestSuite) TestCurrentPriceFallsBackToNextProvider() {
	boom := errors.New(errors.ErrCodeDataSourceFailure, "down")
	p1 := &fakeProvider{name: "one", priceFn: alwaysPriceErr(boom)}
	p2 := &fakeProvider{name: "two", priceFn: alwaysPrice(151)}

	g := s.newGateway(p1, p2)

	price, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)
	s.Equal(151.0, price)
	s.Equal(3, p1.priceCalls, "first provider retried before advancing")
}

func (s *GatewayTestSuite) TestCurrentPriceRetriesTransientFailures() {
	boom := errors.New(errors.ErrCodeDataSourceFailure, "flaky")
	p1 := &fakeProvider{name: "one", priceFn: func(call int) (float64, error) {
		if call < 3 {
			return 0, boom
		}
		return 149, nil
	}}

	g := s.newGateway(p1)

	price, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)
	s.Equal(149.0, price)
	s.Equal(3, p1.priceCalls)
}

func (s *GatewayTestSuite) TestCurrentPriceServedFromFreshCache() {
	p1 := &fakeProvider{name: "one", priceFn: alwaysPrice(150)}
	g := s.newGateway(p1)

	_, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)

	s.now = s.now.Add(10 * time.Second)

	price, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)
	s.Equal(150.0, price)
	s.Equal(1, p1.priceCalls, "fresh cache entry must short-circuit providers")
}

func (s *GatewayTestSuite) TestPriceCacheIsPerPair() {
	prices := map[int]float64{1: 150, 2: 65000}
	p1 := &fakeProvider{name: "one", priceFn: func(call int) (float64, error) {
		return prices[call], nil
	}}

	g := s.newGateway(p1)

	sol, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)
	s.Equal(150.0, sol)

	// A different pair must miss the cache and fetch its own price.
	btc, err := g.CurrentPrice(context.Background(), "BTC", "USDT")
	s.Require().NoError(err)
	s.Equal(65000.0, btc)
	s.Equal(2, p1.priceCalls)

	cached, ok := g.LastKnownPrice("SOL", "USDT")
	s.True(ok)
	s.Equal(150.0, cached)

	_, ok = g.LastKnownPrice("ETH", "USDT")
	s.False(ok)
}

func (s *GatewayTestSuite) TestCurrentPriceStaleCacheServedWhenProvidersFail() {
	boom := errors.New(errors.ErrCodeDataSourceFailure, "down")
	call := 0
	p1 := &fakeProvider{name: "one", priceFn: func(int) (float64, error) {
		call++
		if call == 1 {
			return 150, nil
		}
		return 0, boom
	}}

	g := s.newGateway(p1)

	_, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)

	// Past the TTL, so the gateway must hit the provider again; when
	// that fails it falls back to the stale entry.
	s.now = s.now.Add(time.Minute)

	price, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)
	s.Equal(150.0, price)
}

func (s *GatewayTestSuite) TestCurrentPriceNoDataEver() {
	boom := errors.New(errors.ErrCodeDataSourceFailure, "down")
	g := s.newGateway(&fakeProvider{name: "one", priceFn: alwaysPriceErr(boom)})

	_, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeNoDataAvailable))
}

func (s *GatewayTestSuite) TestCandlesLiveFromSecondProvider() {
	boom := errors.New(errors.ErrCodeDataSourceFailure, "down")
	live := []types.Candle{{Time: s.now, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}}

	p1 := &fakeProvider{name: "one", candlesFn: alwaysCandlesErr(boom)}
	p2 := &fakeProvider{name: "two", candlesFn: func(int) ([]types.Candle, error) { return live, nil }}

	g := s.newGateway(p1, p2)

	series, err := g.Candles(context.Background(), "SOL", "USDT", "15m", 1)
	s.Require().NoError(err)
	s.Equal(types.SeriesSourceLive, series.Source)
	s.False(series.IsSynthetic())
	s.Equal(live, series.Candles)
}

func (s *GatewayTestSuite) TestCandlesSyntheticFallback() {
	boom := errors.New(errors.ErrCodeDataSourceFailure, "down")
	p1 := &fakeProvider{
		name:      "one",
		priceFn:   alwaysPrice(150),
		candlesFn: alwaysCandlesErr(boom),
	}

	g := s.newGateway(p1)

	// Seed the price cache so the synthetic walk has an anchor.
	_, err := g.CurrentPrice(context.Background(), "SOL", "USDT")
	s.Require().NoError(err)

	series, err := g.Candles(context.Background(), "SOL", "USDT", "15m", 50)
	s.Require().NoError(err)
	s.True(series.IsSynthetic())
	s.Len(series.Candles, 50)
	s.Equal(150.0, series.Candles[0].Open)

	// Deterministic for the same seed.
	again, err := g.Candles(context.Background(), "SOL", "USDT", "15m", 50)
	s.Require().NoError(err)
	s.Equal(series.Candles, again.Candles)
}

func (s *GatewayTestSuite) TestCandlesNoDataAndNoSeed() {
	boom := errors.New(errors.ErrCodeDataSourceFailure, "down")
	g := s.newGateway(&fakeProvider{name: "one", candlesFn: alwaysCandlesErr(boom)})

	_, err := g.Candles(context.Background(), "SOL", "USDT", "15m", 50)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeNoDataAvailable))
}

func (s *GatewayTestSuite) TestCandlesRejectsUnknownInterval() {
	g := s.newGateway(&fakeProvider{name: "one"})

	_, err := g.Candles(context.Background(), "SOL", "USDT", "2h", 50)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (s *GatewayTestSuite) TestSyntheticSeriesShape() {
	series := SyntheticSeries(100, 30, 15*time.Minute, s.now)

	s.Len(series.Candles, 30)
	s.Equal(types.SeriesSourceSynthetic, series.Source)
	s.Equal(s.now, series.Candles[len(series.Candles)-1].Time)

	for i, c := range series.Candles {
		s.GreaterOrEqual(c.High, c.Open)
		s.GreaterOrEqual(c.High, c.Close)
		s.LessOrEqual(c.Low, c.Open)
		s.LessOrEqual(c.Low, c.Close)

		if i > 0 {
			s.Equal(series.Candles[i-1].Close, c.Open, "walk must be continuous")
			s.True(c.Time.After(series.Candles[i-1].Time))
		}
	}
}
