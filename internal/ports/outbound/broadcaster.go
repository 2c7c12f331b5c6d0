package outbound

import (
	"context"

	"github.com/google/uuid"
)

// EventType represents the type of event being broadcasted
type EventType string

const (
	EventTypeAuctionCreated   EventType = "auction.created"
	EventTypeBidAccepted      EventType = "bid.accepted"
	EventTypeAuctionSettled   EventType = "auction.settled"
	EventTypeAuctionCancelled EventType = "auction.cancelled"
	EventTypeError            EventType = "error"
)

// Event is a broadcast notification about an auction. Money amounts travel
// in Data as integer minor units plus a currency code, never as floats.
type Event struct {
	Type      EventType              `json:"type"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Broadcaster defines the interface for delivering auction events to
// interested consumers. The engines only publish; delivery to watchlist and
// live subscribers is the broadcaster's concern.
type Broadcaster interface {
	// Subscribe subscribes a client to events for a specific auction.
	// When a client subscribes to multiple auctions, all events are delivered
	// to the same channel
	Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan Event) error

	// Unsubscribe unsubscribes a client from events for a specific auction
	Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error

	// UnsubscribeAll removes every subscription a client holds. Called when
	// the client disconnects
	UnsubscribeAll(ctx context.Context, clientID string) error

	// Publish publishes an event to all subscribers of an auction
	Publish(ctx context.Context, auctionID uuid.UUID, event Event) error

	// IsSubscribed checks if a client is subscribed to an auction
	IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool
}
