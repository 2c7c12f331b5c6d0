package db

import (
	"gavel-auction-engine/internal/ports/outbound"
)

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetAuctionRepository returns the auction repository
func (f *RepositoryFactory) GetAuctionRepository() outbound.AuctionRepository {
	return NewAuctionRepository(f.conn)
}

// GetBidLedger returns the bid ledger
func (f *RepositoryFactory) GetBidLedger() outbound.BidLedger {
	return NewLedgerRepository(f.conn)
}

// GetItemRepository returns the item repository
func (f *RepositoryFactory) GetItemRepository() outbound.ItemRepository {
	return NewItemRepository(f.conn)
}

// GetUserRepository returns the user repository
func (f *RepositoryFactory) GetUserRepository() outbound.UserRepository {
	return NewUserRepository(f.conn)
}

// GetWatchlistRepository returns the watchlist repository
func (f *RepositoryFactory) GetWatchlistRepository() outbound.WatchlistRepository {
	return NewWatchlistRepository(f.conn)
}
