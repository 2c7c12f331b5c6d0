package inbound

import (
	"context"
	"time"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/bid"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// BiddingEngine validates and applies bids against an auction's current
// state. The read-validate-write cycle per auction is atomic with respect to
// other bids on the same auction; bids on different auctions proceed
// independently.
type BiddingEngine interface {
	// PlaceBid runs one bid attempt to its final outcome. Business rejections
	// come back as a result, not an error; only infrastructural failures
	// return an error.
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*PlaceBidResult, error)

	// BidHistory returns the full ordered ledger for an auction
	BidHistory(ctx context.Context, auctionID uuid.UUID) ([]*bid.Attempt, error)

	// HighestBid returns the latest accepted attempt for an auction
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Attempt, error)
}

// SettlementEngine finalizes auctions after bidding closes.
type SettlementEngine interface {
	// Settle finalizes the auction's winner and price. Idempotent: settling
	// an already-settled auction returns the recorded settlement unchanged.
	Settle(ctx context.Context, auctionID uuid.UUID, now time.Time) (*shared.Settlement, error)

	// Close ends an Open auction's bidding window early; it then settles
	// through the normal path
	Close(ctx context.Context, auctionID uuid.UUID, now time.Time) error

	// Cancel moves a Scheduled or Open auction to the Cancelled terminal
	Cancel(ctx context.Context, auctionID uuid.UUID, now time.Time) error
}

// AuctionService covers the auction CRUD surface around the engines.
type AuctionService interface {
	// CreateAuction creates a new auction
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)

	// GetAuctionState computes an auction's effective state at an instant
	GetAuctionState(ctx context.Context, auctionID uuid.UUID, now time.Time) (auction.State, error)

	// ListAuctions retrieves a list of auctions
	ListAuctions(ctx context.Context, req ListAuctionsRequest) ([]*auction.Auction, error)

	// LiveAuctionsForItem returns the item's auctions still accepting or
	// awaiting bids at an instant
	LiveAuctionsForItem(ctx context.Context, itemID uuid.UUID, now time.Time) ([]*auction.Auction, error)
}

// WatchlistService manages per-user watch entries.
type WatchlistService interface {
	Watch(ctx context.Context, userID, itemID uuid.UUID) (*shared.WatchEntry, error)
	Unwatch(ctx context.Context, userID, itemID uuid.UUID) error
	Watchlist(ctx context.Context, userID uuid.UUID) ([]*shared.WatchEntry, error)

	// WatchersForItem returns the users watching an item, for notifying them
	// when a new auction opens on it.
	WatchersForItem(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error)
}

// PlaceBidRequest carries one bid attempt. Now is the submission instant; a
// zero Now means the engine stamps it from its own clock.
type PlaceBidRequest struct {
	AuctionID uuid.UUID   `json:"auction_id"`
	BidderID  uuid.UUID   `json:"bidder_id"`
	ClientID  string      `json:"client_id,omitempty"`
	Amount    money.Money `json:"amount"`
	Now       time.Time   `json:"-"`
}

// PlaceBidResult is the final verdict on a bid attempt. NewPrice is set only
// when the bid was accepted.
type PlaceBidResult struct {
	Outcome  bid.Outcome  `json:"outcome"`
	Attempt  *bid.Attempt `json:"attempt"`
	NewPrice *money.Money `json:"new_price,omitempty"`
}

// Accepted reports whether the bid won.
func (r *PlaceBidResult) Accepted() bool {
	return r.Outcome.IsAccepted()
}

// CreateAuctionRequest carries the inputs for a new auction. Times arrive as
// RFC3339 strings from the transport layer.
type CreateAuctionRequest struct {
	ItemID        uuid.UUID   `json:"item_id"`
	SellerID      uuid.UUID   `json:"seller_id"`
	StartTime     string      `json:"start_time"`
	EndTime       string      `json:"end_time"`
	StartingPrice money.Money `json:"starting_price"`
}

// ListAuctionsRequest filters the auction listing. A nil State returns all
// auctions; a non-nil State filters by effective state at Now.
type ListAuctionsRequest struct {
	State    *auction.State `json:"state,omitempty"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Now      time.Time      `json:"-"`
}
