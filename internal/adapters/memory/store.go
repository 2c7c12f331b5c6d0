// Package memory provides in-memory implementations of the outbound storage
// ports. It backs the engine tests and is usable as a development store; the
// versioned auction writes give it the same optimistic-concurrency semantics
// as the Postgres adapters.
package memory

import (
	"sync"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/bid"
	"gavel-auction-engine/internal/domain/shared"
	"gavel-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
)

// Store holds all in-memory tables behind one lock.
type Store struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*auction.Auction
	attempts map[uuid.UUID][]*bid.Attempt
	items    map[uuid.UUID]*shared.Item
	users    map[uuid.UUID]*shared.User
	watch    map[uuid.UUID][]*shared.WatchEntry
	seq      uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		auctions: make(map[uuid.UUID]*auction.Auction),
		attempts: make(map[uuid.UUID][]*bid.Attempt),
		items:    make(map[uuid.UUID]*shared.Item),
		users:    make(map[uuid.UUID]*shared.User),
		watch:    make(map[uuid.UUID][]*shared.WatchEntry),
	}
}

// Auctions returns the auction repository view of the store.
func (s *Store) Auctions() outbound.AuctionRepository {
	return &auctionRepository{store: s}
}

// Ledger returns the bid ledger view of the store.
func (s *Store) Ledger() outbound.BidLedger {
	return &ledger{store: s}
}

// Items returns the item repository view of the store.
func (s *Store) Items() outbound.ItemRepository {
	return &itemRepository{store: s}
}

// Users returns the user repository view of the store.
func (s *Store) Users() outbound.UserRepository {
	return &userRepository{store: s}
}

// Watchlist returns the watchlist repository view of the store.
func (s *Store) Watchlist() outbound.WatchlistRepository {
	return &watchlistRepository{store: s}
}

// cloneAuction copies the aggregate so callers never alias stored state.
func cloneAuction(a *auction.Auction) *auction.Auction {
	c := *a
	if a.CurrentBid != nil {
		m := *a.CurrentBid
		c.CurrentBid = &m
	}
	if a.CurrentBidderID != nil {
		id := *a.CurrentBidderID
		c.CurrentBidderID = &id
	}
	if a.WinnerID != nil {
		id := *a.WinnerID
		c.WinnerID = &id
	}
	if a.FinalPrice != nil {
		m := *a.FinalPrice
		c.FinalPrice = &m
	}
	if a.SettledAt != nil {
		t := *a.SettledAt
		c.SettledAt = &t
	}
	if a.CancelledAt != nil {
		t := *a.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
