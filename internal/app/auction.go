package app

import (
	"context"
	"time"

	"gavel-auction-engine/internal/adapters/scheduler"
	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/shared"
	"gavel-auction-engine/internal/ports/inbound"
	"gavel-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuctionService implements the auction CRUD surface around the engines.
type AuctionService struct {
	auctionRepo outbound.AuctionRepository
	itemRepo    outbound.ItemRepository
	userRepo    outbound.UserRepository
	broadcaster outbound.Broadcaster
	sweeper     *scheduler.SettlementSweeper
	clock       shared.Clock
	logger      zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo outbound.AuctionRepository
	ItemRepo    outbound.ItemRepository
	UserRepo    outbound.UserRepository
	Broadcaster outbound.Broadcaster
	Sweeper     *scheduler.SettlementSweeper
	Clock       shared.Clock
	Logger      zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	clock := params.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &AuctionService{
		auctionRepo: params.AuctionRepo,
		itemRepo:    params.ItemRepo,
		userRepo:    params.UserRepo,
		broadcaster: params.Broadcaster,
		sweeper:     params.Sweeper,
		clock:       clock,
		logger:      params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// CreateAuction creates and schedules a new auction.
func (s *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	s.logger.Info().
		Str("item_id", req.ItemID.String()).
		Str("seller_id", req.SellerID.String()).
		Str("start_time", req.StartTime).
		Str("end_time", req.EndTime).
		Int64("starting_price_minor", req.StartingPrice.AmountMinor()).
		Msg("Attempting to create auction")

	item, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		s.logger.Error().Err(err).Str("item_id", req.ItemID.String()).Msg("Item not found")
		return nil, shared.ErrItemNotFound
	}

	seller, err := s.userRepo.GetByID(ctx, req.SellerID)
	if err != nil {
		s.logger.Error().Err(err).Str("seller_id", req.SellerID.String()).Msg("Seller not found")
		return nil, shared.ErrUserNotFound
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		s.logger.Error().Err(err).Str("start_time", req.StartTime).Msg("Invalid start time format")
		return nil, shared.ErrInvalidTimeFormat
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		s.logger.Error().Err(err).Str("end_time", req.EndTime).Msg("Invalid end time format")
		return nil, shared.ErrInvalidTimeFormat
	}

	now := s.clock.Now()
	if startTime.Before(now) {
		s.logger.Warn().Time("start_time", startTime).Time("now", now).Msg("Start time cannot be in the past")
		return nil, shared.ErrInvalidStartTime
	}
	if !endTime.After(startTime) {
		s.logger.Warn().Time("start_time", startTime).Time("end_time", endTime).Msg("End time must be after start time")
		return nil, shared.ErrInvalidEndTime
	}
	if !req.StartingPrice.IsPositive() {
		s.logger.Warn().Int64("starting_price_minor", req.StartingPrice.AmountMinor()).Msg("Starting price must be greater than 0")
		return nil, shared.ErrInvalidStartingPrice
	}

	live, err := s.auctionRepo.GetLiveByItemID(ctx, req.ItemID, now)
	if err != nil {
		s.logger.Error().Err(err).Str("item_id", req.ItemID.String()).Msg("Failed to check for live auctions")
		return nil, err
	}
	if len(live) > 0 {
		s.logger.Warn().Str("item_id", req.ItemID.String()).Int("live_auctions", len(live)).Msg("Item is already on an active auction")
		return nil, shared.ErrItemAlreadyOnAuction
	}

	a := &auction.Auction{
		ID:            uuid.New(),
		ItemID:        item.ID,
		SellerID:      seller.ID,
		StartTime:     startTime,
		EndTime:       endTime,
		StartingPrice: req.StartingPrice,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.auctionRepo.Create(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to save auction")
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("item_id", a.ItemID.String()).
		Time("start_time", a.StartTime).
		Time("end_time", a.EndTime).
		Msg("Auction created")

	if s.sweeper != nil {
		if err := s.sweeper.ScheduleSettlement(a.ID, a.EndTime); err != nil {
			// Settlement stays correct when invoked late; the periodic sweep
			// will pick the auction up even if scheduling failed here.
			s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to schedule settlement")
		}
	}

	s.publishCreated(ctx, a)
	return a, nil
}

// GetAuction retrieves an auction by ID
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to retrieve auction")
		return nil, err
	}
	return a, nil
}

// GetAuctionState computes an auction's effective state at an instant. A zero
// now means the service's clock decides.
func (s *AuctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID, now time.Time) (auction.State, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return "", err
	}
	if now.IsZero() {
		now = s.clock.Now()
	}
	return a.StateAt(now), nil
}

// ListAuctions retrieves a page of auctions, optionally filtered by effective
// state.
func (s *AuctionService) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest) ([]*auction.Auction, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}

	auctions, err := s.auctionRepo.List(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}
	if req.State == nil {
		return auctions, nil
	}

	now := req.Now
	if now.IsZero() {
		now = s.clock.Now()
	}
	filtered := make([]*auction.Auction, 0, len(auctions))
	for _, a := range auctions {
		if a.StateAt(now) == *req.State {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// LiveAuctionsForItem returns the item's auctions that are neither terminal
// nor past their end time at the given instant. A zero now means the
// service's clock decides.
func (s *AuctionService) LiveAuctionsForItem(ctx context.Context, itemID uuid.UUID, now time.Time) ([]*auction.Auction, error) {
	if now.IsZero() {
		now = s.clock.Now()
	}
	return s.auctionRepo.GetLiveByItemID(ctx, itemID, now)
}

// SetSweeper sets the settlement sweeper
func (s *AuctionService) SetSweeper(sweeper *scheduler.SettlementSweeper) {
	s.sweeper = sweeper
}

func (s *AuctionService) publishCreated(ctx context.Context, a *auction.Auction) {
	if s.broadcaster == nil {
		return
	}
	event := outbound.Event{
		Type:      outbound.EventTypeAuctionCreated,
		AuctionID: a.ID,
		Data: map[string]interface{}{
			"item_id":              a.ItemID.String(),
			"seller_id":            a.SellerID.String(),
			"starting_price_minor": a.StartingPrice.AmountMinor(),
			"currency":             a.StartingPrice.Currency(),
			"start_time":           a.StartTime.Format(time.RFC3339),
			"end_time":             a.EndTime.Format(time.RFC3339),
		},
		Timestamp: a.CreatedAt.Unix(),
	}
	if err := s.broadcaster.Publish(ctx, a.ID, event); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to broadcast auction created event")
	}
}
