package venue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tradewind-lab/tradewind/internal/types"
	"github.com/tradewind-lab/tradewind/pkg/errors"
)

type DirectVenueTestSuite struct {
	suite.Suite

	venue *DirectVenue
}

func TestDirectVenueTestSuite(t *testing.T) {
	suite.Run(t, new(DirectVenueTestSuite))
}

func (s *DirectVenueTestSuite) SetupTest() {
	signer, err := NewLocalSigner("wallet-1", "secret")
	s.Require().NoError(err)

	s.venue = NewDirectVenue(
		func(string, string) (float64, bool) { return 150, true },
		signer,
		map[string]float64{"USDT": 100, "SOL": 2},
	)
}

func (s *DirectVenueTestSuite) execute(req types.OrderRequest) (types.ExecutionResult, error) {
	ctx := context.Background()

	q, err := s.venue.Quote(ctx, req)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	unsigned, err := s.venue.Build(ctx, req, q)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	signed, err := s.venue.Sign(ctx, unsigned)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	ref, err := s.venue.Submit(ctx, signed)
	if err != nil {
		return types.ExecutionResult{}, err
	}

	return s.venue.Confirm(ctx, ref)
}

func (s *DirectVenueTestSuite) TestBuyFillsAboveReference() {
	req := types.OrderRequest{
		ID:          "7b0ce50e-58a4-40d1-a587-22b0d4e4f5a7",
		Side:        types.SideBuy,
		InputAsset:  "USDT",
		OutputAsset: "SOL",
		Amount:      30,
		SlippageBps: 100,
	}

	result, err := s.execute(req)
	s.Require().NoError(err)
	s.Equal(types.ExecutionStatusSuccess, result.Status)
	s.Equal("direct", result.Venue)
	s.NotEmpty(result.ExternalRef)

	// Half of 100bps shading: fills at 150.75, slightly worse than spot.
	s.InDelta(150.75, result.Price, 1e-9)
	s.Equal(30.0, result.FilledIn)
	s.InDelta(30/150.75, result.FilledOut, 1e-9)

	usdt, err := s.venue.Balance(context.Background(), "USDT")
	s.Require().NoError(err)
	s.InDelta(70, usdt, 1e-9)

	sol, err := s.venue.Balance(context.Background(), "SOL")
	s.Require().NoError(err)
	s.InDelta(2+30/150.75, sol, 1e-9)
}

func (s *DirectVenueTestSuite) TestSellFillsBelowReference() {
	req := types.OrderRequest{
		ID:          "8e5be7bc-4296-4f5c-b0ac-3cc8e4b16f3d",
		Side:        types.SideSell,
		InputAsset:  "SOL",
		OutputAsset: "USDT",
		Amount:      1,
		SlippageBps: 100,
	}

	result, err := s.execute(req)
	s.Require().NoError(err)
	s.InDelta(149.25, result.Price, 1e-9)
	s.InDelta(149.25, result.FilledOut, 1e-9)
}

func (s *DirectVenueTestSuite) TestRejectsOverdraft() {
	req := types.OrderRequest{
		ID:          "d5a5b9fa-2c13-4430-8c39-0a2f757cce5b",
		Side:        types.SideBuy,
		InputAsset:  "USDT",
		OutputAsset: "SOL",
		Amount:      500,
		SlippageBps: 50,
	}

	_, err := s.execute(req)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeVenueRejected))

	// A rejected order must leave the wallet untouched.
	usdt, err := s.venue.Balance(context.Background(), "USDT")
	s.Require().NoError(err)
	s.Equal(100.0, usdt)
}

func (s *DirectVenueTestSuite) TestConfirmUnknownRef() {
	_, err := s.venue.Confirm(context.Background(), "nope")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeConfirmationFailed))
}

func (s *DirectVenueTestSuite) TestQuoteWithoutReferencePrice() {
	signer, err := NewLocalSigner("wallet-1", "secret")
	s.Require().NoError(err)

	dark := NewDirectVenue(func(string, string) (float64, bool) { return 0, false }, signer, nil)

	_, err = dark.Quote(context.Background(), types.OrderRequest{
		ID:          "0b6ffcf5-9f6e-4f3e-8e63-5b45c27587b1",
		Side:        types.SideBuy,
		InputAsset:  "USDT",
		OutputAsset: "SOL",
		Amount:      10,
	})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeNoDataAvailable))
}

func (s *DirectVenueTestSuite) TestSignerAttachesSignature() {
	signer, err := NewLocalSigner("wallet-1", "secret")
	s.Require().NoError(err)

	sigA, err := signer.Sign([]byte("payload"))
	s.Require().NoError(err)

	sigB, err := signer.Sign([]byte("payload"))
	s.Require().NoError(err)
	s.Equal(sigA, sigB, "signing is deterministic for the same payload")

	sigC, err := signer.Sign([]byte("other"))
	s.Require().NoError(err)
	s.NotEqual(sigA, sigC)

	s.Equal("wallet-1", signer.PublicIdentity())

	_, err = NewLocalSigner("", "secret")
	s.Error(err)
}
