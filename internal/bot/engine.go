package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradewind-lab/tradewind/internal/indicator"
	"github.com/tradewind-lab/tradewind/internal/signal"
	"github.com/tradewind-lab/tradewind/internal/storage"
	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/internal/venue"
	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

// extraCandles fetched beyond the longest warm-up window so EMAs have
// settled before the first signal the engine acts on.
const extraCandles = 50

// MarketData is the slice of the gateway the engine consumes.
type MarketData interface {
	CurrentPrice(ctx context.Context, base, quote string) (float64, error)
	Candles(ctx context.Context, base, quote, interval string, limit int) (types.CandleSeries, error)
}

// OrderSubmitter is the slice of the venue chain the engine consumes.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req types.OrderRequest) (types.ExecutionResult, error)
}

// botState is the engine-owned mutable view of the market. Only the
// engine that created it may mutate it.
type botState struct {
	mu sync.RWMutex

	lastDirection types.Direction
	lastSignal    types.CombinedSignal
	baseBalance   float64
	quoteBalance  float64
	lastPrice     float64
	lastUpdate    time.Time
}

// Engine is one user's trading loop: fetch, compute, decide, execute,
// persist. It moves between exactly two states, Stopped and Running.
type Engine struct {
	cfg        types.BotConfig
	market     MarketData
	chain      OrderSubmitter
	balances   venue.BalanceSource
	store      storage.Store
	logger     *logger.Logger
	combiner   *signal.Combiner
	indicators []indicator.Indicator
	now        func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc

	// lastTradeNano advances monotonically via compare-and-swap so
	// overlapping cycles can never both pass the cooldown gate.
	lastTradeNano atomic.Int64

	state botState
}

// NewEngine builds a Stopped engine for the given configuration.
func NewEngine(
	cfg types.BotConfig,
	market MarketData,
	chain OrderSubmitter,
	balances venue.BalanceSource,
	store storage.Store,
	l *logger.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := indicator.NewSupertrend(cfg.Indicators.SupertrendPeriod, cfg.Indicators.SupertrendMultiplier)
	if err != nil {
		return nil, err
	}

	macd, err := indicator.NewMACD(cfg.Indicators.MACDFast, cfg.Indicators.MACDSlow, cfg.Indicators.MACDSignal)
	if err != nil {
		return nil, err
	}

	vma, err := indicator.NewVMA(cfg.Indicators.VMAPeriod)
	if err != nil {
		return nil, err
	}

	combiner, err := signal.NewCombiner(cfg.Consensus)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		market:     market,
		chain:      chain,
		balances:   balances,
		store:      store,
		logger:     l.Named("bot").With(zap.String("user_id", cfg.UserID)),
		combiner:   combiner,
		indicators: []indicator.Indicator{st, macd, vma},
		now:        time.Now,
	}
	e.state.lastDirection = types.DirectionHold

	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() types.BotConfig {
	return e.cfg
}

// IsRunning reports the engine's lifecycle state.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// Start transitions Stopped to Running, schedules the recurring cycle,
// and fires one immediate cycle. Starting a running engine is a no-op
// with a warning.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()

	if e.running {
		e.mu.Unlock()
		e.appendLog(ctx, types.LogLevelWarning, "start ignored, bot already running", nil)

		return nil
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.running = true
	e.cancel = cancel
	e.mu.Unlock()

	e.appendLog(ctx, types.LogLevelInfo, "bot started", map[string]string{
		"poll_interval": e.cfg.PollInterval.String(),
		"pair":          e.cfg.BaseAsset + "/" + e.cfg.QuoteAsset,
	})
	e.persistStatus(ctx)

	go e.loop(loopCtx)

	return nil
}

// Stop cancels future ticks and transitions to Stopped. An in-flight
// cycle runs to completion. Stopping a stopped engine is a no-op with a
// warning.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()

	if !e.running {
		e.mu.Unlock()
		e.appendLog(ctx, types.LogLevelWarning, "stop ignored, bot not running", nil)

		return nil
	}

	e.running = false
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.appendLog(ctx, types.LogLevelInfo, "bot stopped", nil)
	e.persistStatus(ctx)

	return nil
}

// loop fires cycles on the poll interval. Each cycle runs in its own
// goroutine: a slow cycle never delays the next tick, so cycles may
// overlap and the state they touch must tolerate that.
func (e *Engine) loop(ctx context.Context) {
	go e.cycle(ctx)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go e.cycle(ctx)
		}
	}
}

// cycle is one pass of the loop. Every exit path writes exactly one
// LogEntry describing the outcome, and no failure stops the timer.
func (e *Engine) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("cycle panicked", zap.Any("panic", r))
			e.appendLog(ctx, types.LogLevelError, fmt.Sprintf("cycle aborted: %v", r), nil)
		}
	}()

	now := e.now()

	price, err := e.market.CurrentPrice(ctx, e.cfg.BaseAsset, e.cfg.QuoteAsset)
	if err != nil {
		e.appendLog(ctx, types.LogLevelError, "cycle skipped, no price available", map[string]string{"error": err.Error()})

		return
	}

	series, err := e.market.Candles(ctx, e.cfg.BaseAsset, e.cfg.QuoteAsset, e.cfg.CandleInterval, e.candleCount())
	if err != nil {
		e.appendLog(ctx, types.LogLevelError, "cycle skipped, no candles available", map[string]string{"error": err.Error()})

		return
	}

	if series.IsSynthetic() {
		e.logger.Warn("running on synthetic candles, degraded mode")
	}

	latest := make([]types.IndicatorSignal, 0, len(e.indicators))

	for _, ind := range e.indicators {
		signals, err := ind.Compute(series.Candles)
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				e.appendLog(ctx, types.LogLevelWarning, "cycle skipped, indicators warming up", map[string]string{
					"indicator": string(ind.Name()),
					"error":     err.Error(),
				})

				return
			}

			e.appendLog(ctx, types.LogLevelError, "indicator computation failed", map[string]string{
				"indicator": string(ind.Name()),
				"error":     err.Error(),
			})

			return
		}

		latest = append(latest, indicator.Latest(signals))
	}

	combined := e.combiner.Combine(now, latest)

	e.refreshBalances(ctx)

	prev := e.observeSignal(combined, price, now)

	if err := e.store.SaveSnapshot(ctx, types.MarketSnapshot{
		UserID:     e.cfg.UserID,
		Time:       now,
		Price:      price,
		Source:     series.Source,
		Votes:      combined.Votes,
		Direction:  combined.Direction,
		Confidence: combined.Confidence,
	}); err != nil {
		e.logger.Error("snapshot persist failed", zap.Error(err))
	}

	e.persistStatus(ctx)
	e.decide(ctx, combined, prev, price, now)
}

// decide routes one combined signal to exactly one outcome branch.
func (e *Engine) decide(ctx context.Context, combined types.CombinedSignal, prev types.Direction, price float64, now time.Time) {
	fields := map[string]string{
		"signal":     string(combined.Direction),
		"confidence": fmt.Sprintf("%d", combined.Confidence),
		"price":      fmt.Sprintf("%.4f", price),
	}

	if combined.Direction == types.DirectionHold || combined.Direction == prev {
		e.appendLog(ctx, types.LogLevelInfo, "signal "+signal.Describe(combined)+", no action", fields)

		return
	}

	if !e.cfg.AutoTrade {
		e.appendLog(ctx, types.LogLevelInfo, "signal detected but auto-trade is disabled", fields)

		return
	}

	if !e.claimCooldown(now) {
		fields["cooldown"] = e.cfg.MinTimeBetweenTrades.String()
		e.appendLog(ctx, types.LogLevelInfo, "trade skipped, cooldown active", fields)

		return
	}

	e.executeTrade(ctx, combined, price, now, fields)
}

// claimCooldown advances the last-trade timestamp if and only if the
// cooldown has elapsed. Compare-and-swap means two overlapping cycles
// can never both claim the same window.
func (e *Engine) claimCooldown(now time.Time) bool {
	for {
		last := e.lastTradeNano.Load()
		if last != 0 && now.Sub(time.Unix(0, last)) < e.cfg.MinTimeBetweenTrades {
			return false
		}

		if now.UnixNano() <= last {
			return false
		}

		if e.lastTradeNano.CompareAndSwap(last, now.UnixNano()) {
			return true
		}
	}
}

func (e *Engine) executeTrade(ctx context.Context, combined types.CombinedSignal, price float64, now time.Time, fields map[string]string) {
	side := types.SideBuy
	inAsset, outAsset := e.cfg.QuoteAsset, e.cfg.BaseAsset

	if combined.Direction == types.DirectionSell {
		side = types.SideSell
		inAsset, outAsset = e.cfg.BaseAsset, e.cfg.QuoteAsset
	}

	base, quote := e.currentBalances()

	amount, err := TradeSize(e.cfg, side, base, quote, price)
	if err != nil {
		fields["error"] = err.Error()
		e.appendLog(ctx, types.LogLevelWarning, "trade skipped, balance below floor", fields)

		return
	}

	req := types.OrderRequest{
		ID:          uuid.NewString(),
		Side:        side,
		InputAsset:  inAsset,
		OutputAsset: outAsset,
		Amount:      amount,
		SlippageBps: e.cfg.SlippageBps,
	}

	reason := fmt.Sprintf("signal flipped to %s with confidence %d%%", combined.Direction, combined.Confidence)

	result, err := e.chain.SubmitOrder(ctx, req)

	record := types.TradeRecord{
		ID:          req.ID,
		UserID:      e.cfg.UserID,
		Time:        now,
		Side:        side,
		Venue:       result.Venue,
		Requested:   amount,
		FilledIn:    result.FilledIn,
		FilledOut:   result.FilledOut,
		Price:       result.Price,
		Fee:         result.Fee,
		Status:      result.Status,
		ExternalRef: result.ExternalRef,
		Reason:      reason,
	}

	if err != nil {
		record.Reason = fmt.Sprintf("%s; failed: %v", reason, err)
	}

	if storeErr := e.store.AppendTrade(ctx, record); storeErr != nil {
		e.logger.Error("trade record persist failed", zap.Error(storeErr))
	}

	if err != nil {
		fields["error"] = err.Error()
		e.appendLog(ctx, types.LogLevelError, "trade failed on every venue", fields)

		return
	}

	e.refreshBalances(ctx)
	e.persistStatus(ctx)

	fields["venue"] = result.Venue
	fields["amount"] = fmt.Sprintf("%.8f", amount)
	fields["fill_price"] = fmt.Sprintf("%.4f", result.Price)
	fields["ref"] = result.ExternalRef
	e.appendLog(ctx, types.LogLevelTrade, fmt.Sprintf("executed %s of %.8f %s on %s", side, amount, inAsset, result.Venue), fields)
}

// observeSignal folds the cycle's market view into the engine state and
// returns the previous combined direction for the flip comparison.
func (e *Engine) observeSignal(combined types.CombinedSignal, price float64, now time.Time) types.Direction {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	prev := e.state.lastDirection
	e.state.lastDirection = combined.Direction
	e.state.lastSignal = combined
	e.state.lastPrice = price
	e.state.lastUpdate = now

	return prev
}

func (e *Engine) refreshBalances(ctx context.Context) {
	base, err := e.balances.Balance(ctx, e.cfg.BaseAsset)
	if err != nil {
		e.logger.Warn("base balance refresh failed", zap.Error(err))

		return
	}

	quote, err := e.balances.Balance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		e.logger.Warn("quote balance refresh failed", zap.Error(err))

		return
	}

	e.state.mu.Lock()
	e.state.baseBalance = base
	e.state.quoteBalance = quote
	e.state.mu.Unlock()
}

func (e *Engine) currentBalances() (base, quote float64) {
	e.state.mu.RLock()
	defer e.state.mu.RUnlock()

	return e.state.baseBalance, e.state.quoteBalance
}

// Status projects the in-memory state into the durable dashboard record.
func (e *Engine) Status() types.BotStatus {
	e.state.mu.RLock()
	defer e.state.mu.RUnlock()

	trend := types.DirectionHold
	if v, ok := e.state.lastSignal.Votes[types.IndicatorTypeSupertrend]; ok {
		trend = v
	}

	var lastTrade time.Time
	if nano := e.lastTradeNano.Load(); nano != 0 {
		lastTrade = time.Unix(0, nano).UTC()
	}

	return types.BotStatus{
		UserID:        e.cfg.UserID,
		IsRunning:     e.IsRunning(),
		BaseBalance:   e.state.baseBalance,
		QuoteBalance:  e.state.quoteBalance,
		CurrentPrice:  e.state.lastPrice,
		LastSignal:    e.state.lastSignal.Direction,
		Confidence:    e.state.lastSignal.Confidence,
		Trend:         trend,
		LastTradeTime: lastTrade,
		LastUpdate:    e.state.lastUpdate,
	}
}

func (e *Engine) persistStatus(ctx context.Context) {
	if err := e.store.SaveStatus(ctx, e.Status()); err != nil {
		e.logger.Error("status persist failed", zap.Error(err))
	}
}

func (e *Engine) candleCount() int {
	warmup := 0
	for _, ind := range e.indicators {
		if ind.MinCandles() > warmup {
			warmup = ind.MinCandles()
		}
	}

	return warmup + extraCandles
}

func (e *Engine) appendLog(ctx context.Context, level types.LogLevel, message string, fields map[string]string) {
	entry := types.LogEntry{
		UserID:  e.cfg.UserID,
		Time:    e.now(),
		Level:   level,
		Message: message,
		Fields:  fields,
	}

	if err := e.store.AppendLog(ctx, entry); err != nil {
		e.logger.Error("log persist failed", zap.Error(err))
	}

	e.logger.Info(message, zap.String("level", string(level)), zap.Any("fields", fields))
}
