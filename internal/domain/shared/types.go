package shared

import (
	"time"

	"github.com/google/uuid"

	"gavel-auction-engine/internal/domain/money"
)

// Settlement is the recorded outcome of a finished auction. WinnerID and
// FinalPrice are nil when the auction closed without an accepted bid.
type Settlement struct {
	AuctionID  uuid.UUID
	WinnerID   *uuid.UUID
	FinalPrice *money.Money
	SettledAt  time.Time
}

// Sold reports whether the auction found a winner.
func (s *Settlement) Sold() bool {
	return s.WinnerID != nil
}
