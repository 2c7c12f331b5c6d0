package app

import (
	"context"

	"gavel-auction-engine/internal/domain/shared"
	"gavel-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WatchlistService manages per-user watch entries. Watching an item has no
// lifecycle coupling to the auctions held for it; watchers simply receive the
// broadcast events for those auctions.
type WatchlistService struct {
	watchRepo outbound.WatchlistRepository
	itemRepo  outbound.ItemRepository
	userRepo  outbound.UserRepository
	clock     shared.Clock
	logger    zerolog.Logger
}

type WatchlistServiceParams struct {
	WatchRepo outbound.WatchlistRepository
	ItemRepo  outbound.ItemRepository
	UserRepo  outbound.UserRepository
	Clock     shared.Clock
	Logger    zerolog.Logger
}

// NewWatchlistService creates a new watchlist service
func NewWatchlistService(params WatchlistServiceParams) *WatchlistService {
	clock := params.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &WatchlistService{
		watchRepo: params.WatchRepo,
		itemRepo:  params.ItemRepo,
		userRepo:  params.UserRepo,
		clock:     clock,
		logger:    params.Logger.With().Str("component", "watchlist_service").Logger(),
	}
}

// Watch adds an item to a user's watchlist.
func (s *WatchlistService) Watch(ctx context.Context, userID, itemID uuid.UUID) (*shared.WatchEntry, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("User not found")
		return nil, shared.ErrUserNotFound
	}
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		s.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("Item not found")
		return nil, shared.ErrItemNotFound
	}

	entry := &shared.WatchEntry{
		UserID:    userID,
		ItemID:    itemID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.watchRepo.Add(ctx, entry); err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("item_id", itemID.String()).
			Msg("Failed to add watch entry")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("item_id", itemID.String()).
		Msg("Item added to watchlist")
	return entry, nil
}

// Unwatch removes an item from a user's watchlist.
func (s *WatchlistService) Unwatch(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.watchRepo.Remove(ctx, userID, itemID); err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("item_id", itemID.String()).
			Msg("Failed to remove watch entry")
		return err
	}
	s.logger.Info().
		Str("user_id", userID.String()).
		Str("item_id", itemID.String()).
		Msg("Item removed from watchlist")
	return nil
}

// Watchlist returns a user's watch entries in insertion order.
func (s *WatchlistService) Watchlist(ctx context.Context, userID uuid.UUID) ([]*shared.WatchEntry, error) {
	return s.watchRepo.ListByUser(ctx, userID)
}

// WatchersForItem returns the users watching an item.
func (s *WatchlistService) WatchersForItem(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	return s.watchRepo.WatchersForItem(ctx, itemID)
}
