package app

import (
	"context"
	"errors"
	"time"

	"gavel-auction-engine/internal/domain/shared"
	"gavel-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettlementEngine finalizes auctions after bidding closes. It owns no
// timers: settlement is triggered externally, by the sweeper or by an
// on-demand call, and stays correct when invoked late.
type SettlementEngine struct {
	auctionRepo outbound.AuctionRepository
	broadcaster outbound.Broadcaster
	clock       shared.Clock
	maxRetries  int
	logger      zerolog.Logger
}

type SettlementEngineParams struct {
	AuctionRepo outbound.AuctionRepository
	Broadcaster outbound.Broadcaster
	Clock       shared.Clock
	MaxRetries  int
	Logger      zerolog.Logger
}

// NewSettlementEngine creates a new settlement engine
func NewSettlementEngine(params SettlementEngineParams) *SettlementEngine {
	retries := params.MaxRetries
	if retries <= 0 {
		retries = defaultMaxCommitRetries
	}
	clock := params.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &SettlementEngine{
		auctionRepo: params.AuctionRepo,
		broadcaster: params.Broadcaster,
		clock:       clock,
		maxRetries:  retries,
		logger:      params.Logger.With().Str("component", "settlement_engine").Logger(),
	}
}

// Settle finalizes the auction's winner and price. Idempotent: an
// already-settled auction returns the recorded settlement unchanged, so the
// sweeper and on-demand callers can race each other safely.
func (e *SettlementEngine) Settle(ctx context.Context, auctionID uuid.UUID, now time.Time) (*shared.Settlement, error) {
	if now.IsZero() {
		now = e.clock.Now()
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		a, err := e.auctionRepo.GetByID(ctx, auctionID)
		if err != nil {
			e.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to load auction for settlement")
			return nil, err
		}

		if settlement := a.Settlement(); settlement != nil {
			e.logger.Debug().Str("auction_id", auctionID.String()).Msg("Auction already settled")
			return settlement, nil
		}

		expected := a.Version
		if err := a.Settle(now); err != nil {
			e.logger.Warn().Err(err).Str("auction_id", auctionID.String()).Msg("Auction not ready for settlement")
			return nil, err
		}

		if err := e.auctionRepo.Update(ctx, a, expected); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			e.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to persist settlement")
			return nil, err
		}

		settlement := a.Settlement()
		e.logSettled(settlement)
		e.publishSettled(ctx, settlement)
		return settlement, nil
	}

	return nil, lastErr
}

// SettleDue settles an auction on behalf of the sweeper, stamping the
// settlement with the engine's clock.
func (e *SettlementEngine) SettleDue(ctx context.Context, auctionID uuid.UUID) (*shared.Settlement, error) {
	return e.Settle(ctx, auctionID, e.clock.Now())
}

// Close ends an Open auction's bidding window at the given instant. The
// auction becomes Closed immediately and settles through the normal path; a
// settlement sweep scheduled for the original end time finds it already due.
func (e *SettlementEngine) Close(ctx context.Context, auctionID uuid.UUID, now time.Time) error {
	if now.IsZero() {
		now = e.clock.Now()
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		a, err := e.auctionRepo.GetByID(ctx, auctionID)
		if err != nil {
			return err
		}

		expected := a.Version
		if err := a.CloseEarly(now); err != nil {
			e.logger.Warn().Err(err).
				Str("auction_id", auctionID.String()).
				Str("state", string(a.StateAt(now))).
				Msg("Early close rejected")
			return err
		}

		if err := e.auctionRepo.Update(ctx, a, expected); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return err
		}

		e.logger.Info().Str("auction_id", auctionID.String()).Time("closed_at", now).Msg("Auction closed early")
		return nil
	}

	return lastErr
}

// Cancel moves a Scheduled or Open auction to the Cancelled terminal. Closed
// or settled auctions cannot be cancelled.
func (e *SettlementEngine) Cancel(ctx context.Context, auctionID uuid.UUID, now time.Time) error {
	if now.IsZero() {
		now = e.clock.Now()
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		a, err := e.auctionRepo.GetByID(ctx, auctionID)
		if err != nil {
			return err
		}

		expected := a.Version
		if err := a.Cancel(now); err != nil {
			e.logger.Warn().Err(err).
				Str("auction_id", auctionID.String()).
				Str("state", string(a.StateAt(now))).
				Msg("Cancellation rejected")
			return err
		}

		if err := e.auctionRepo.Update(ctx, a, expected); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return err
		}

		e.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction cancelled")
		e.publishCancelled(ctx, auctionID, now)
		return nil
	}

	return lastErr
}

func (e *SettlementEngine) logSettled(s *shared.Settlement) {
	logger := e.logger.Info().Str("auction_id", s.AuctionID.String())
	if s.WinnerID != nil {
		logger = logger.Str("winner_id", s.WinnerID.String())
	}
	if s.FinalPrice != nil {
		logger = logger.Int64("final_price_minor", s.FinalPrice.AmountMinor())
	}
	if s.Sold() {
		logger.Msg("Auction settled with winner")
	} else {
		logger.Msg("Auction settled unsold")
	}
}

func (e *SettlementEngine) publishSettled(ctx context.Context, s *shared.Settlement) {
	if e.broadcaster == nil {
		return
	}
	data := map[string]interface{}{
		"auction_id": s.AuctionID.String(),
		"sold":       s.Sold(),
	}
	if s.WinnerID != nil {
		data["winner_id"] = s.WinnerID.String()
	}
	if s.FinalPrice != nil {
		data["final_price_minor"] = s.FinalPrice.AmountMinor()
		data["currency"] = s.FinalPrice.Currency()
	}
	event := outbound.Event{
		Type:      outbound.EventTypeAuctionSettled,
		AuctionID: s.AuctionID,
		Data:      data,
		Timestamp: s.SettledAt.Unix(),
	}
	if err := e.broadcaster.Publish(ctx, s.AuctionID, event); err != nil {
		e.logger.Error().Err(err).Str("auction_id", s.AuctionID.String()).Msg("Failed to broadcast settlement event")
	}
}

func (e *SettlementEngine) publishCancelled(ctx context.Context, auctionID uuid.UUID, at time.Time) {
	if e.broadcaster == nil {
		return
	}
	event := outbound.Event{
		Type:      outbound.EventTypeAuctionCancelled,
		AuctionID: auctionID,
		Data:      map[string]interface{}{"auction_id": auctionID.String()},
		Timestamp: at.Unix(),
	}
	if err := e.broadcaster.Publish(ctx, auctionID, event); err != nil {
		e.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to broadcast cancellation event")
	}
}
