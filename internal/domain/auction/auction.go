package auction

import (
	"time"

	"github.com/google/uuid"

	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"
)

// State represents the lifecycle state of an auction.
//
// Scheduled, Open and Closed are derived lazily from the stored timestamps;
// Settled and Cancelled are persisted terminal flags that override the
// time-derived state. States only move forward:
// Scheduled -> Open -> Closed -> Settled, or Scheduled|Open -> Cancelled.
type State string

const (
	StateScheduled State = "scheduled"
	StateOpen      State = "open"
	StateClosed    State = "closed"
	StateSettled   State = "settled"
	StateCancelled State = "cancelled"
)

// Auction is the bidding aggregate. It is mutated only through the engine's
// transitions, never directly; Version backs the optimistic-concurrency write
// discipline on the repository.
type Auction struct {
	ID              uuid.UUID    `json:"id"`
	ItemID          uuid.UUID    `json:"item_id"`
	SellerID        uuid.UUID    `json:"seller_id"`
	StartTime       time.Time    `json:"start_time"`
	EndTime         time.Time    `json:"end_time"`
	StartingPrice   money.Money  `json:"starting_price"`
	CurrentBid      *money.Money `json:"current_bid,omitempty"`
	CurrentBidderID *uuid.UUID   `json:"current_bidder_id,omitempty"`
	WinnerID        *uuid.UUID   `json:"winner_id,omitempty"`
	FinalPrice      *money.Money `json:"final_price,omitempty"`
	SettledAt       *time.Time   `json:"settled_at,omitempty"`
	CancelledAt     *time.Time   `json:"cancelled_at,omitempty"`
	Version         uint64       `json:"version"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// StateAt computes the effective state at the given instant. The terminal
// flags are sticky: a settled or cancelled auction stays that way regardless
// of the clock.
func (a *Auction) StateAt(now time.Time) State {
	if a.CancelledAt != nil {
		return StateCancelled
	}
	if a.SettledAt != nil {
		return StateSettled
	}
	switch {
	case now.Before(a.StartTime):
		return StateScheduled
	case now.Before(a.EndTime):
		return StateOpen
	default:
		return StateClosed
	}
}

// AcceptingBidsAt reports whether a bid placed at the given instant can be
// considered at all.
func (a *Auction) AcceptingBidsAt(now time.Time) bool {
	return a.StateAt(now) == StateOpen
}

// CurrentPrice returns the standing price: the highest accepted bid, or the
// starting price when no bid has been accepted yet.
func (a *Auction) CurrentPrice() money.Money {
	if a.CurrentBid != nil {
		return *a.CurrentBid
	}
	return a.StartingPrice
}

// ApplyAcceptedBid records a newly accepted bid on the aggregate. The caller
// has already validated the amount against the standing price; persistence of
// the change goes through the versioned repository write.
func (a *Auction) ApplyAcceptedBid(bidderID uuid.UUID, amount money.Money, at time.Time) {
	a.CurrentBid = &amount
	a.CurrentBidderID = &bidderID
	a.UpdatedAt = at
}

// Settle transitions the auction from Closed to Settled, recording winner and
// final price. Fails if the auction is not yet closed or was cancelled.
// Calling Settle on an already-settled auction is a no-op; idempotency of the
// operation is handled by the settlement engine, which returns the recorded
// settlement instead of re-applying it.
func (a *Auction) Settle(at time.Time) error {
	switch a.StateAt(at) {
	case StateSettled:
		return nil
	case StateCancelled:
		return shared.ErrInvalidTransition
	case StateScheduled, StateOpen:
		return shared.ErrAuctionStillOpen
	}
	a.WinnerID = a.CurrentBidderID
	a.FinalPrice = a.CurrentBid
	settledAt := at
	a.SettledAt = &settledAt
	a.UpdatedAt = at
	return nil
}

// CloseEarly ends the bidding window at the given instant, ahead of the
// stored end time. Only an Open auction can be closed early; it then settles
// through the normal path.
func (a *Auction) CloseEarly(at time.Time) error {
	if a.StateAt(at) != StateOpen {
		return shared.ErrInvalidTransition
	}
	a.EndTime = at
	a.UpdatedAt = at
	return nil
}

// Cancel transitions the auction to Cancelled. Only Scheduled and Open
// auctions can be cancelled; anything past its end time has to run through
// settlement instead.
func (a *Auction) Cancel(at time.Time) error {
	switch a.StateAt(at) {
	case StateScheduled, StateOpen:
	default:
		return shared.ErrInvalidTransition
	}
	cancelledAt := at
	a.CancelledAt = &cancelledAt
	a.UpdatedAt = at
	return nil
}

// Settlement returns the recorded settlement, or nil if the auction has not
// been settled.
func (a *Auction) Settlement() *shared.Settlement {
	if a.SettledAt == nil {
		return nil
	}
	return &shared.Settlement{
		AuctionID:  a.ID,
		WinnerID:   a.WinnerID,
		FinalPrice: a.FinalPrice,
		SettledAt:  *a.SettledAt,
	}
}
