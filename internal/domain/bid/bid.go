package bid

import (
	"time"

	"github.com/google/uuid"

	"gavel-auction-engine/internal/domain/money"
)

// Outcome is the final verdict on a bid attempt. Exactly one outcome is
// assigned per submitted bid and it never changes afterwards.
type Outcome string

const (
	OutcomeAccepted              Outcome = "accepted"
	OutcomeRejectedTooLow        Outcome = "rejected_too_low"
	OutcomeRejectedAuctionClosed Outcome = "rejected_auction_closed"
	OutcomeRejectedSelfBid       Outcome = "rejected_self_bid"
	OutcomeRejectedInvalidAmount Outcome = "rejected_invalid_amount"
)

// IsAccepted reports whether the attempt won its validation.
func (o Outcome) IsAccepted() bool {
	return o == OutcomeAccepted
}

// Attempt is one entry in the append-only bid ledger. Attempts are immutable
// once appended; corrections are new entries, never edits. Sequence is a
// monotonic counter assigned by the ledger on append and breaks submission
// time ties deterministically.
type Attempt struct {
	ID          uuid.UUID   `json:"id"`
	AuctionID   uuid.UUID   `json:"auction_id"`
	BidderID    uuid.UUID   `json:"bidder_id"`
	Amount      money.Money `json:"amount"`
	Outcome     Outcome     `json:"outcome"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Sequence    uint64      `json:"sequence"`
}

// IncrementPolicy decides the minimum acceptable amount for the next bid once
// a highest bid exists. Kept as a policy because production semantics may want
// percentage-based or tiered increments instead of a fixed step.
type IncrementPolicy interface {
	MinimumNextBid(current money.Money) (money.Money, error)
}

// FixedIncrement requires each bid to top the standing price by a fixed
// number of minor units.
type FixedIncrement struct {
	StepMinor int64
}

func (p FixedIncrement) MinimumNextBid(current money.Money) (money.Money, error) {
	step, err := money.New(p.StepMinor, current.Currency())
	if err != nil {
		return money.Money{}, err
	}
	return current.Add(step)
}
