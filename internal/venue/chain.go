package venue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

const (
	defaultStepTimeout     = 10 * time.Second
	defaultStepAttempts    = 3
	defaultStepDelay       = time.Second
	defaultStepMaxDelay    = 8 * time.Second
	defaultConfirmAttempts = 20
	defaultConfirmInterval = 10 * time.Second
)

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithStepTimeout bounds each venue pipeline step.
func WithStepTimeout(d time.Duration) ChainOption {
	return func(c *Chain) { c.stepTimeout = d }
}

// WithConfirmPolicy bounds the settlement polling loop.
func WithConfirmPolicy(attempts int, interval time.Duration) ChainOption {
	return func(c *Chain) {
		c.confirmAttempts = attempts
		c.confirmInterval = interval
	}
}

// WithChainBackOffFactory overrides the per-step retry policy. Tests
// use this to avoid real sleeps.
func WithChainBackOffFactory(f func() backoff.BackOff) ChainOption {
	return func(c *Chain) { c.newBackOff = f }
}

// Chain walks venues in priority order until one fills the order.
// A definitive rejection advances to the next venue immediately; a
// timeout or network error is retried on the same venue a bounded
// number of times before advancing. When every venue fails the result
// is terminal: no partial side effects may be assumed by the caller.
type Chain struct {
	venues          []ExecutionVenue
	logger          *logger.Logger
	stepTimeout     time.Duration
	confirmAttempts int
	confirmInterval time.Duration
	newBackOff      func() backoff.BackOff
}

func NewChain(venues []ExecutionVenue, l *logger.Logger, opts ...ChainOption) (*Chain, error) {
	if len(venues) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "execution chain needs at least one venue")
	}

	c := &Chain{
		venues:          venues,
		logger:          l.Named("venue"),
		stepTimeout:     defaultStepTimeout,
		confirmAttempts: defaultConfirmAttempts,
		confirmInterval: defaultConfirmInterval,
	}
	c.newBackOff = defaultChainBackOff

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func defaultChainBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defaultStepDelay
	bo.Multiplier = 2
	bo.MaxInterval = defaultStepMaxDelay
	bo.RandomizationFactor = 0

	return backoff.WithMaxRetries(bo, defaultStepAttempts-1)
}

// SubmitOrder runs the request through the chain. The returned result
// always names the venue that filled it; on total failure the status is
// failed and the error carries AllVenuesFailed.
func (c *Chain) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.ExecutionResult, error) {
	if err := req.Validate(); err != nil {
		return types.ExecutionResult{Status: types.ExecutionStatusFailed}, err
	}

	var lastErr error

	for _, v := range c.venues {
		result, err := c.tryVenue(ctx, v, req)
		if err == nil {
			c.logger.Info("order filled",
				zap.String("order_id", req.ID),
				zap.String("venue", v.Name()),
				zap.Float64("filled_in", result.FilledIn),
				zap.Float64("filled_out", result.FilledOut),
				zap.Float64("price", result.Price))

			return result, nil
		}

		lastErr = err
		c.logger.Warn("venue failed, advancing",
			zap.String("order_id", req.ID),
			zap.String("venue", v.Name()),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	return types.ExecutionResult{Status: types.ExecutionStatusFailed},
		errors.Wrapf(errors.ErrCodeAllVenuesFailed, lastErr, "order %s failed on all %d venues", req.ID, len(c.venues))
}

// tryVenue runs the five-step pipeline on one venue. Each step gets its
// own timeout and transient-error retry; rejections abort the venue at
// once. Retrying per step rather than per pipeline means a submitted
// order is never submitted twice.
func (c *Chain) tryVenue(ctx context.Context, v ExecutionVenue, req types.OrderRequest) (types.ExecutionResult, error) {
	var quote Quote

	err := c.runStep(ctx, func(stepCtx context.Context) error {
		var err error
		quote, err = v.Quote(stepCtx, req)

		return err
	})
	if err != nil {
		return types.ExecutionResult{}, errors.Wrapf(errors.GetCode(err), err, "%s quote", v.Name())
	}

	var unsigned UnsignedOrder

	err = c.runStep(ctx, func(stepCtx context.Context) error {
		var err error
		unsigned, err = v.Build(stepCtx, req, quote)

		return err
	})
	if err != nil {
		return types.ExecutionResult{}, errors.Wrapf(errors.GetCode(err), err, "%s build", v.Name())
	}

	signed, err := v.Sign(ctx, unsigned)
	if err != nil {
		return types.ExecutionResult{}, errors.Wrapf(errors.ErrCodeSigningFailed, err, "%s sign", v.Name())
	}

	var ref string

	err = c.runStep(ctx, func(stepCtx context.Context) error {
		var err error
		ref, err = v.Submit(stepCtx, signed)

		return err
	})
	if err != nil {
		return types.ExecutionResult{}, errors.Wrapf(errors.GetCode(err), err, "%s submit", v.Name())
	}

	result, err := c.awaitConfirmation(ctx, v, ref)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	return mergeQuote(result, quote), nil
}

// runStep executes one pipeline step with a timeout, retrying transient
// failures and giving up immediately on anything definitive.
func (c *Chain) runStep(ctx context.Context, step func(context.Context) error) error {
	op := func() error {
		stepCtx, cancel := context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()

		err := step(stepCtx)
		if err == nil {
			return nil
		}

		if stepCtx.Err() == context.DeadlineExceeded {
			err = errors.Wrap(errors.ErrCodeVenueTimeout, "step timed out", err)
		}

		if !errors.IsTransient(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	return backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
}

// awaitConfirmation polls the venue until settlement is terminal or the
// attempt budget runs out.
func (c *Chain) awaitConfirmation(ctx context.Context, v ExecutionVenue, ref string) (types.ExecutionResult, error) {
	var result types.ExecutionResult

	for attempt := 0; attempt < c.confirmAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return types.ExecutionResult{}, errors.Wrapf(errors.ErrCodeConfirmationFailed, ctx.Err(), "%s confirm %s", v.Name(), ref)
			case <-time.After(c.confirmInterval):
			}
		}

		err := c.runStep(ctx, func(stepCtx context.Context) error {
			var err error
			result, err = v.Confirm(stepCtx, ref)

			return err
		})
		if err != nil {
			return types.ExecutionResult{}, errors.Wrapf(errors.GetCode(err), err, "%s confirm %s", v.Name(), ref)
		}

		switch result.Status {
		case types.ExecutionStatusSuccess:
			return result, nil
		case types.ExecutionStatusFailed:
			return types.ExecutionResult{}, errors.Newf(errors.ErrCodeVenueRejected, "%s reported %s as failed", v.Name(), ref)
		}
	}

	return types.ExecutionResult{}, errors.Newf(errors.ErrCodeConfirmationFailed,
		"%s did not settle %s within %d polls", v.Name(), ref, c.confirmAttempts)
}

// mergeQuote backfills fill details the venue's settlement report left
// out with the accepted quote's numbers.
func mergeQuote(result types.ExecutionResult, q Quote) types.ExecutionResult {
	if result.FilledIn == 0 {
		result.FilledIn = q.InAmount
	}

	if result.FilledOut == 0 {
		result.FilledOut = q.OutAmount
	}

	if result.Price == 0 {
		result.Price = q.Price
	}

	if result.Fee == 0 {
		result.Fee = q.Fee
	}

	return result
}
