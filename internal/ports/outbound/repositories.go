package outbound

import (
	"context"
	"time"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/bid"
	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionRepository defines durable storage for auction aggregates. Writes
// use optimistic concurrency: Update only succeeds when the stored version
// still equals expectedVersion, and bumps the version on success.
type AuctionRepository interface {
	// Create persists a new auction
	Create(ctx context.Context, a *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// List retrieves auctions ordered by creation time, newest first
	List(ctx context.Context, page, pageSize int) ([]*auction.Auction, error)

	// GetLiveByItemID retrieves auctions for an item that are neither
	// terminal nor past their end time at the given instant
	GetLiveByItemID(ctx context.Context, itemID uuid.UUID, now time.Time) ([]*auction.Auction, error)

	// Update writes the auction if the stored version equals expectedVersion,
	// returning shared.ErrConcurrencyConflict otherwise
	Update(ctx context.Context, a *auction.Auction, expectedVersion uint64) error
}

// BidLedger is the append-only per-auction log of bid attempts. Entries are
// never mutated or deleted.
type BidLedger interface {
	// Append records a bid attempt and assigns its ledger sequence
	Append(ctx context.Context, attempt *bid.Attempt) error

	// CommitAccepted persists an accepted attempt and the new auction state
	// as a single atomic unit, using the auction's expectedVersion to detect
	// a lost race (shared.ErrConcurrencyConflict)
	CommitAccepted(ctx context.Context, attempt *bid.Attempt, a *auction.Auction, expectedVersion uint64) error

	// History returns all attempts for an auction ordered by submission time,
	// then sequence
	History(ctx context.Context, auctionID uuid.UUID) ([]*bid.Attempt, error)

	// LatestAccepted returns the most recent accepted attempt for an auction,
	// or shared.ErrNoBidsFound
	LatestAccepted(ctx context.Context, auctionID uuid.UUID) (*bid.Attempt, error)
}

// ItemRepository defines the interface for item data operations
type ItemRepository interface {
	// Create persists a new item
	Create(ctx context.Context, item *shared.Item) error

	// GetByID retrieves an item by ID
	GetByID(ctx context.Context, id uuid.UUID) (*shared.Item, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error)

	// Create persists a new user
	Create(ctx context.Context, user *shared.User) error
}

// WatchlistRepository stores which users watch which items. Entries are
// unique per (user, item) and insertion-ordered per user.
type WatchlistRepository interface {
	// Add records a watch entry, failing with shared.ErrAlreadyWatching on
	// duplicates
	Add(ctx context.Context, entry *shared.WatchEntry) error

	// Remove deletes a watch entry, failing with shared.ErrWatchEntryNotFound
	// if it does not exist
	Remove(ctx context.Context, userID, itemID uuid.UUID) error

	// ListByUser returns a user's watch entries in insertion order
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*shared.WatchEntry, error)

	// WatchersForItem returns the IDs of users watching an item
	WatchersForItem(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error)
}
