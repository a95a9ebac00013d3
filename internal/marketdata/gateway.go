package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

const (
	defaultPriceTTL     = 30 * time.Second
	defaultMaxAttempts  = 3
	defaultInitialDelay = time.Second
	defaultMaxDelay     = 8 * time.Second
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithPriceTTL overrides how long a fetched price is served from cache.
func WithPriceTTL(ttl time.Duration) Option {
	return func(g *Gateway) { g.priceTTL = ttl }
}

// WithBackOffFactory overrides the per-provider retry policy. Tests use
// this to avoid real sleeps.
func WithBackOffFactory(f func() backoff.BackOff) Option {
	return func(g *Gateway) { g.newBackOff = f }
}

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

type cachedQuote struct {
	price     float64
	fetchedAt time.Time
}

// priceCache holds the last fetched price per trading pair.
type priceCache struct {
	mu      sync.RWMutex
	entries map[string]cachedQuote
}

// Gateway fans price and candle requests out across providers in
// priority order. Each provider gets a bounded retry with exponential
// backoff before the gateway advances to the next one. Prices are
// cached briefly; a stale cache still beats no data at all, so the
// gateway only reports NoDataAvailable when it has never succeeded.
type Gateway struct {
	providers  []Provider
	logger     *logger.Logger
	priceTTL   time.Duration
	newBackOff func() backoff.BackOff
	now        func() time.Time

	cache priceCache
}

func NewGateway(providers []Provider, l *logger.Logger, opts ...Option) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "market data gateway needs at least one provider")
	}

	g := &Gateway{
		providers: providers,
		logger:    l.Named("marketdata"),
		priceTTL:  defaultPriceTTL,
		now:       time.Now,
	}
	g.cache.entries = make(map[string]cachedQuote)
	g.newBackOff = defaultBackOff

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defaultInitialDelay
	bo.Multiplier = 2
	bo.MaxInterval = defaultMaxDelay
	bo.RandomizationFactor = 0

	return backoff.WithMaxRetries(bo, defaultMaxAttempts-1)
}

// CurrentPrice returns the pair price, preferring a fresh cache entry,
// then live providers, then a stale cache entry as a last resort.
func (g *Gateway) CurrentPrice(ctx context.Context, base, quote string) (float64, error) {
	if price, ok := g.cachedPrice(base, quote, false); ok {
		return price, nil
	}

	price, err := g.fetchPrice(ctx, base, quote)
	if err == nil {
		g.storePrice(base, quote, price)
		return price, nil
	}

	if price, ok := g.cachedPrice(base, quote, true); ok {
		g.logger.Warn("all providers failed, serving stale cached price",
			zap.String("base", base),
			zap.String("quote", quote),
			zap.Float64("price", price),
			zap.Error(err))

		return price, nil
	}

	return 0, errors.Wrapf(errors.ErrCodeNoDataAvailable, err, "no price ever obtained for %s/%s", base, quote)
}

// Candles returns live candles when any provider can serve them, and
// otherwise a synthetic random-walk series seeded from the last known
// price. Callers must check the series source before trusting it.
func (g *Gateway) Candles(ctx context.Context, base, quote, interval string, limit int) (types.CandleSeries, error) {
	step, err := intervalDuration(interval)
	if err != nil {
		return types.CandleSeries{}, err
	}

	var fetchErr error

	for _, p := range g.providers {
		candles, err := g.withRetry(ctx, p.Name(), func() ([]types.Candle, error) {
			return p.Candles(ctx, base, quote, interval, limit)
		})
		if err == nil && len(candles) > 0 {
			return types.CandleSeries{Source: types.SeriesSourceLive, Candles: candles}, nil
		}

		if err != nil {
			fetchErr = err
			g.logger.Warn("candle fetch failed, trying next provider",
				zap.String("provider", p.Name()),
				zap.Error(err))
		}
	}

	seed, ok := g.cachedPrice(base, quote, true)
	if !ok {
		return types.CandleSeries{}, errors.Wrapf(errors.ErrCodeNoDataAvailable, fetchErr,
			"no candles and no seed price for %s/%s", base, quote)
	}

	g.logger.Warn("all candle providers failed, generating synthetic series",
		zap.String("base", base),
		zap.String("quote", quote),
		zap.Float64("seed_price", seed),
		zap.Int("count", limit))

	return SyntheticSeries(seed, limit, step, g.now()), nil
}

// LastKnownPrice exposes the cached pair price regardless of age.
func (g *Gateway) LastKnownPrice(base, quote string) (float64, bool) {
	return g.cachedPrice(base, quote, true)
}

func (g *Gateway) fetchPrice(ctx context.Context, base, quote string) (float64, error) {
	var lastErr error

	for _, p := range g.providers {
		price, err := g.withRetryPrice(ctx, p.Name(), func() (float64, error) {
			return p.CurrentPrice(ctx, base, quote)
		})
		if err == nil {
			return price, nil
		}

		lastErr = err
		g.logger.Warn("price fetch failed, trying next provider",
			zap.String("provider", p.Name()),
			zap.Error(err))
	}

	return 0, errors.Wrap(errors.ErrCodeDataSourceFailure, "all price providers failed", lastErr)
}

func (g *Gateway) withRetryPrice(ctx context.Context, provider string, fetch func() (float64, error)) (float64, error) {
	var price float64

	op := func() error {
		var err error
		price, err = fetch()

		return retryableErr(err)
	}

	if err := backoff.Retry(op, backoff.WithContext(g.newBackOff(), ctx)); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeDataSourceFailure, err, "provider %s exhausted retries", provider)
	}

	return price, nil
}

func (g *Gateway) withRetry(ctx context.Context, provider string, fetch func() ([]types.Candle, error)) ([]types.Candle, error) {
	var candles []types.Candle

	op := func() error {
		var err error
		candles, err = fetch()

		return retryableErr(err)
	}

	if err := backoff.Retry(op, backoff.WithContext(g.newBackOff(), ctx)); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceFailure, err, "provider %s exhausted retries", provider)
	}

	return candles, nil
}

// retryableErr marks definitive provider errors permanent so the
// backoff loop stops early instead of hammering a rejecting upstream.
func retryableErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.HasCode(err, errors.ErrCodeInvalidParameter) || errors.HasCode(err, errors.ErrCodeDataParseFailed) {
		return backoff.Permanent(err)
	}

	return err
}

func pairKey(base, quote string) string {
	return base + "/" + quote
}

func (g *Gateway) cachedPrice(base, quote string, allowStale bool) (float64, bool) {
	g.cache.mu.RLock()
	defer g.cache.mu.RUnlock()

	entry, ok := g.cache.entries[pairKey(base, quote)]
	if !ok {
		return 0, false
	}

	if !allowStale && g.now().Sub(entry.fetchedAt) > g.priceTTL {
		return 0, false
	}

	return entry.price, true
}

func (g *Gateway) storePrice(base, quote string, price float64) {
	g.cache.mu.Lock()
	defer g.cache.mu.Unlock()

	g.cache.entries[pairKey(base, quote)] = cachedQuote{price: price, fetchedAt: g.now()}
}

func intervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported candle interval %q", interval)
	}
}
