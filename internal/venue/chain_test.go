package venue

import (
	"context"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
	"github.com/tradewind-lab/tradewind/pkg/logger"
)

type fakeVenue struct {
	name string

	quoteErr  error
	buildErr  error
	signErr   error
	submitErr error

	confirmSeq []types.ExecutionResult
	confirmErr error

	quoteCalls   int
	submitCalls  int
	confirmCalls int
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) Quote(_ context.Context, req types.OrderRequest) (Quote, error) {
	f.quoteCalls++
	if f.quoteErr != nil {
		return Quote{}, f.quoteErr
	}

	return Quote{
		Venue:     f.name,
		InAmount:  req.Amount,
		OutAmount: req.Amount / 150,
		Price:     150,
	}, nil
}

func (f *fakeVenue) Build(_ context.Context, _ types.OrderRequest, q Quote) (UnsignedOrder, error) {
	if f.buildErr != nil {
		return UnsignedOrder{}, f.buildErr
	}

	return UnsignedOrder{Venue: f.name, Payload: []byte("order")}, nil
}

func (f *fakeVenue) Sign(_ context.Context, order UnsignedOrder) (SignedOrder, error) {
	if f.signErr != nil {
		return SignedOrder{}, f.signErr
	}

	return SignedOrder{Venue: f.name, Payload: order.Payload, Signature: "sig"}, nil
}

func (f *fakeVenue) Submit(_ context.Context, _ SignedOrder) (string, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return "", f.submitErr
	}

	return "ref-" + f.name, nil
}

func (f *fakeVenue) Confirm(_ context.Context, ref string) (types.ExecutionResult, error) {
	f.confirmCalls++
	if f.confirmErr != nil {
		return types.ExecutionResult{}, f.confirmErr
	}

	if len(f.confirmSeq) > 0 {
		next := f.confirmSeq[0]
		if len(f.confirmSeq) > 1 {
			f.confirmSeq = f.confirmSeq[1:]
		}

		next.Venue = f.name
		next.ExternalRef = ref

		return next, nil
	}

	return types.ExecutionResult{
		Status:      types.ExecutionStatusSuccess,
		Venue:       f.name,
		ExternalRef: ref,
	}, nil
}

type ChainTestSuite struct {
	suite.Suite
}

func TestChainTestSuite(t *testing.T) {
	suite.Run(t, new(ChainTestSuite))
}

func (s *ChainTestSuite) newChain(venues ...ExecutionVenue) *Chain {
	c, err := NewChain(venues, logger.NewTestLogger(),
		WithConfirmPolicy(3, 0),
		WithChainBackOffFactory(func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		}),
	)
	s.Require().NoError(err)

	return c
}

func (s *ChainTestSuite) request() types.OrderRequest {
	return types.OrderRequest{
		ID:          uuid.NewString(),
		Side:        types.SideBuy,
		InputAsset:  "USDT",
		OutputAsset: "SOL",
		Amount:      5,
		SlippageBps: 50,
	}
}

func (s *ChainTestSuite) TestNewChainRequiresVenues() {
	_, err := NewChain(nil, logger.NewTestLogger())
	s.Error(err)
}

func (s *ChainTestSuite) TestFirstVenueFills() {
	v1 := &fakeVenue{name: "one"}
	v2 := &fakeVenue{name: "two"}

	result, err := s.newChain(v1, v2).SubmitOrder(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(types.ExecutionStatusSuccess, result.Status)
	s.Equal("one", result.Venue)
	s.Zero(v2.quoteCalls)

	// Settlement details missing from the venue report come from the quote.
	s.Equal(5.0, result.FilledIn)
	s.InDelta(5.0/150, result.FilledOut, 1e-12)
	s.Equal(150.0, result.Price)
	s.Equal("ref-one", result.ExternalRef)
}

func (s *ChainTestSuite) TestTimeoutFallsThroughToNextVenue() {
	v1 := &fakeVenue{name: "one", submitErr: errors.New(errors.ErrCodeVenueTimeout, "no answer")}
	v2 := &fakeVenue{name: "two"}

	result, err := s.newChain(v1, v2).SubmitOrder(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal("two", result.Venue)
	s.Equal(types.ExecutionStatusSuccess, result.Status)
	s.Equal(3, v1.submitCalls, "transient failures retry before advancing")
	s.Equal(1, v2.submitCalls)
}

func (s *ChainTestSuite) TestRejectionAdvancesWithoutRetry() {
	v1 := &fakeVenue{name: "one", quoteErr: errors.New(errors.ErrCodeVenueRejected, "bad pair")}
	v2 := &fakeVenue{name: "two"}

	result, err := s.newChain(v1, v2).SubmitOrder(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal("two", result.Venue)
	s.Equal(1, v1.quoteCalls, "definitive rejections are not retried")
}

func (s *ChainTestSuite) TestAllVenuesFailed() {
	v1 := &fakeVenue{name: "one", quoteErr: errors.New(errors.ErrCodeVenueRejected, "no route")}
	v2 := &fakeVenue{name: "two", submitErr: errors.New(errors.ErrCodeNetworkError, "down")}

	result, err := s.newChain(v1, v2).SubmitOrder(context.Background(), s.request())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeAllVenuesFailed))
	s.Equal(types.ExecutionStatusFailed, result.Status)
	s.Empty(result.Venue)
	s.Zero(result.FilledIn)
	s.Zero(result.FilledOut)
}

func (s *ChainTestSuite) TestPendingConfirmationPollsUntilSettled() {
	v1 := &fakeVenue{name: "one", confirmSeq: []types.ExecutionResult{
		{Status: types.ExecutionStatusPending},
		{Status: types.ExecutionStatusPending},
		{Status: types.ExecutionStatusSuccess, FilledIn: 5, FilledOut: 0.0331, Price: 151},
	}}

	result, err := s.newChain(v1).SubmitOrder(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(3, v1.confirmCalls)
	s.Equal(151.0, result.Price, "venue-reported fill wins over the quote")
}

func (s *ChainTestSuite) TestConfirmationBudgetExhausted() {
	v1 := &fakeVenue{name: "one", confirmSeq: []types.ExecutionResult{
		{Status: types.ExecutionStatusPending},
	}}
	v2 := &fakeVenue{name: "two"}

	result, err := s.newChain(v1, v2).SubmitOrder(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal("two", result.Venue)
	s.Equal(3, v1.confirmCalls, "polls stop at the confirm budget")
}

func (s *ChainTestSuite) TestFailedSettlementAdvances() {
	v1 := &fakeVenue{name: "one", confirmSeq: []types.ExecutionResult{
		{Status: types.ExecutionStatusFailed},
	}}
	v2 := &fakeVenue{name: "two"}

	result, err := s.newChain(v1, v2).SubmitOrder(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal("two", result.Venue)
}

func (s *ChainTestSuite) TestInvalidRequestNeverReachesVenues() {
	v1 := &fakeVenue{name: "one"}

	req := s.request()
	req.Amount = 0

	result, err := s.newChain(v1).SubmitOrder(context.Background(), req)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
	s.Equal(types.ExecutionStatusFailed, result.Status)
	s.Zero(v1.quoteCalls)
}
