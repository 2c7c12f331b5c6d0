package shared

import (
	"time"

	"github.com/google/uuid"

	"gavel-auction-engine/internal/domain/money"
)

// User represents an authenticated user in the system. Identity itself is
// delegated to an external provider; the engine only sees opaque user IDs.
type User struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Item is the reference data an auction is held for. Immutable once listed;
// bidding never mutates it.
type Item struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	StartingPrice money.Money `json:"starting_price"`
	ImageRef      string      `json:"image_ref"`
	CreatedAt     time.Time   `json:"created_at"`
}

// WatchEntry marks that a user is watching an item. Unique per (user, item),
// insertion-ordered per user. Watch entries have no lifecycle coupling to
// auction state.
type WatchEntry struct {
	UserID    uuid.UUID `json:"user_id"`
	ItemID    uuid.UUID `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}
