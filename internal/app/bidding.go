package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/bid"
	"gavel-auction-engine/internal/domain/shared"
	"gavel-auction-engine/internal/ports/inbound"
	"gavel-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultMaxCommitRetries = 3

// BiddingEngine implements the bid placement use case. Each attempt runs a
// read-validate-write cycle; a lost optimistic-concurrency race is retried a
// bounded number of times before the conflict is surfaced.
type BiddingEngine struct {
	auctionRepo outbound.AuctionRepository
	ledger      outbound.BidLedger
	userRepo    outbound.UserRepository
	broadcaster outbound.Broadcaster
	clock       shared.Clock
	increment   bid.IncrementPolicy
	maxRetries  int
	logger      zerolog.Logger
}

type BiddingEngineParams struct {
	AuctionRepo outbound.AuctionRepository
	Ledger      outbound.BidLedger
	UserRepo    outbound.UserRepository
	Broadcaster outbound.Broadcaster
	Clock       shared.Clock
	Increment   bid.IncrementPolicy
	MaxRetries  int
	Logger      zerolog.Logger
}

// NewBiddingEngine creates a new bidding engine
func NewBiddingEngine(params BiddingEngineParams) *BiddingEngine {
	retries := params.MaxRetries
	if retries <= 0 {
		retries = defaultMaxCommitRetries
	}
	clock := params.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &BiddingEngine{
		auctionRepo: params.AuctionRepo,
		ledger:      params.Ledger,
		userRepo:    params.UserRepo,
		broadcaster: params.Broadcaster,
		clock:       clock,
		increment:   params.Increment,
		maxRetries:  retries,
		logger:      params.Logger.With().Str("component", "bidding_engine").Logger(),
	}
}

// PlaceBid runs one bid attempt to its final outcome. Business rejections
// (too low, closed, self-bid, bad amount) are appended to the ledger and
// returned as results; only infrastructural failures return an error, and
// those are never recorded since no attempt was durably received.
func (e *BiddingEngine) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*inbound.PlaceBidResult, error) {
	now := req.Now
	if now.IsZero() {
		now = e.clock.Now()
	}

	e.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Int64("amount_minor", req.Amount.AmountMinor()).
		Str("currency", req.Amount.Currency()).
		Msg("Attempting to place bid")

	if _, err := e.userRepo.GetByID(ctx, req.BidderID); err != nil {
		e.logger.Error().Err(err).Str("bidder_id", req.BidderID.String()).Msg("Bidder not found")
		return nil, shared.ErrUserNotFound
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		result, err := e.tryPlaceBid(ctx, req, now)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
		e.logger.Debug().
			Str("auction_id", req.AuctionID.String()).
			Int("attempt", attempt+1).
			Msg("Lost bid commit race, retrying")
	}

	e.logger.Warn().
		Str("auction_id", req.AuctionID.String()).
		Int("retries", e.maxRetries).
		Msg("Bid commit retries exhausted")
	return nil, lastErr
}

// tryPlaceBid runs a single read-validate-write cycle.
func (e *BiddingEngine) tryPlaceBid(ctx context.Context, req inbound.PlaceBidRequest, now time.Time) (*inbound.PlaceBidResult, error) {
	a, err := e.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		e.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Auction not found")
		return nil, err
	}

	attempt := &bid.Attempt{
		ID:          uuid.New(),
		AuctionID:   req.AuctionID,
		BidderID:    req.BidderID,
		Amount:      req.Amount,
		SubmittedAt: now,
	}

	if outcome := e.validate(a, req, now); outcome != bid.OutcomeAccepted {
		return e.recordRejection(ctx, attempt, outcome)
	}

	attempt.Outcome = bid.OutcomeAccepted
	expected := a.Version
	updated := *a
	updated.ApplyAcceptedBid(req.BidderID, req.Amount, now)

	if err := e.ledger.CommitAccepted(ctx, attempt, &updated, expected); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		e.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Failed to commit accepted bid")
		return nil, fmt.Errorf("commit accepted bid: %w", err)
	}

	newPrice := updated.CurrentPrice()
	e.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bid_id", attempt.ID.String()).
		Int64("new_price_minor", newPrice.AmountMinor()).
		Msg("Bid accepted")

	e.publishAccepted(ctx, attempt)

	return &inbound.PlaceBidResult{
		Outcome:  bid.OutcomeAccepted,
		Attempt:  attempt,
		NewPrice: &newPrice,
	}, nil
}

// validate applies the bid constraints in order and returns the outcome the
// attempt earns at the given instant.
func (e *BiddingEngine) validate(a *auction.Auction, req inbound.PlaceBidRequest, now time.Time) bid.Outcome {
	if !req.Amount.IsPositive() || !req.Amount.SameCurrency(a.StartingPrice) {
		return bid.OutcomeRejectedInvalidAmount
	}
	if req.BidderID == a.SellerID {
		return bid.OutcomeRejectedSelfBid
	}
	if !a.AcceptingBidsAt(now) {
		return bid.OutcomeRejectedAuctionClosed
	}

	minimum := a.StartingPrice
	if a.CurrentBid != nil {
		next, err := e.increment.MinimumNextBid(*a.CurrentBid)
		if err != nil {
			// Increment policy can only fail on a currency mismatch, which
			// the amount check above already rules out for the bid itself.
			e.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Increment policy failed")
			return bid.OutcomeRejectedInvalidAmount
		}
		minimum = next
	}

	cmp, err := req.Amount.Cmp(minimum)
	if err != nil || cmp < 0 {
		return bid.OutcomeRejectedTooLow
	}
	return bid.OutcomeAccepted
}

// recordRejection appends the rejected attempt so the audit trail stays
// complete, then hands the outcome back to the caller.
func (e *BiddingEngine) recordRejection(ctx context.Context, attempt *bid.Attempt, outcome bid.Outcome) (*inbound.PlaceBidResult, error) {
	attempt.Outcome = outcome
	if err := e.ledger.Append(ctx, attempt); err != nil {
		e.logger.Error().Err(err).
			Str("auction_id", attempt.AuctionID.String()).
			Str("outcome", string(outcome)).
			Msg("Failed to record rejected bid attempt")
		return nil, fmt.Errorf("record rejected attempt: %w", err)
	}

	e.logger.Info().
		Str("auction_id", attempt.AuctionID.String()).
		Str("bidder_id", attempt.BidderID.String()).
		Str("outcome", string(outcome)).
		Int64("amount_minor", attempt.Amount.AmountMinor()).
		Msg("Bid rejected")

	return &inbound.PlaceBidResult{Outcome: outcome, Attempt: attempt}, nil
}

func (e *BiddingEngine) publishAccepted(ctx context.Context, attempt *bid.Attempt) {
	if e.broadcaster == nil {
		return
	}
	event := outbound.Event{
		Type:      outbound.EventTypeBidAccepted,
		AuctionID: attempt.AuctionID,
		Data: map[string]interface{}{
			"bid_id":       attempt.ID,
			"bidder_id":    attempt.BidderID,
			"amount_minor": attempt.Amount.AmountMinor(),
			"currency":     attempt.Amount.Currency(),
			"sequence":     attempt.Sequence,
		},
		Timestamp: attempt.SubmittedAt.Unix(),
	}
	if err := e.broadcaster.Publish(ctx, attempt.AuctionID, event); err != nil {
		// Delivery is best effort, the bid itself already committed.
		e.logger.Error().Err(err).Str("bid_id", attempt.ID.String()).Msg("Failed to broadcast bid event")
	}
}

// BidHistory returns the full ordered ledger for an auction.
func (e *BiddingEngine) BidHistory(ctx context.Context, auctionID uuid.UUID) ([]*bid.Attempt, error) {
	return e.ledger.History(ctx, auctionID)
}

// HighestBid returns the latest accepted attempt for an auction.
func (e *BiddingEngine) HighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Attempt, error) {
	return e.ledger.LatestAccepted(ctx, auctionID)
}
