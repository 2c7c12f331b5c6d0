package broadcaster

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel-auction-engine/internal/ports/outbound"
)

// seedSubscription wires the bookkeeping a Subscribe call would leave behind,
// without a live Redis connection.
func seedSubscription(b *RedisBroadcaster, clientID string, eventChan chan outbound.Event, auctionIDs ...uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[clientID] = eventChan
	b.clientsToAuction[clientID] = make(map[string]bool)
	for _, id := range auctionIDs {
		b.clientsToAuction[clientID][id.String()] = true
	}
}

func TestRedisBroadcaster_UnsubscribeAll(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(RedisBroadcasterParams{Logger: zerolog.Nop()})

	clientID := uuid.New().String()
	first, second := uuid.New(), uuid.New()
	eventChan := make(chan outbound.Event, 1)
	seedSubscription(b, clientID, eventChan, first, second)

	require.True(t, b.IsSubscribed(ctx, first, clientID))
	require.True(t, b.IsSubscribed(ctx, second, clientID))

	require.NoError(t, b.UnsubscribeAll(ctx, clientID))

	assert.False(t, b.IsSubscribed(ctx, first, clientID))
	assert.False(t, b.IsSubscribed(ctx, second, clientID))

	b.mu.RLock()
	_, hasSubscriber := b.subscribers[clientID]
	_, hasAuctions := b.clientsToAuction[clientID]
	_, hasPubsub := b.pubsubs[clientID]
	b.mu.RUnlock()
	assert.False(t, hasSubscriber)
	assert.False(t, hasAuctions)
	assert.False(t, hasPubsub)

	// The event channel belongs to the caller; it must still be usable.
	select {
	case eventChan <- outbound.Event{}:
	default:
		t.Fatal("event channel no longer accepts sends")
	}
}

func TestRedisBroadcaster_UnsubscribeAllUnknownClient(t *testing.T) {
	b := NewBroadcaster(RedisBroadcasterParams{Logger: zerolog.Nop()})
	assert.NoError(t, b.UnsubscribeAll(context.Background(), uuid.New().String()))
}

// Dropping the last auction subscription releases the client's bookkeeping
// but leaves the event channel open for its owner to close.
func TestRedisBroadcaster_UnsubscribeLastAuctionKeepsChannelOpen(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(RedisBroadcasterParams{Logger: zerolog.Nop()})

	clientID := uuid.New().String()
	auctionID := uuid.New()
	eventChan := make(chan outbound.Event, 1)
	seedSubscription(b, clientID, eventChan, auctionID)

	require.NoError(t, b.Unsubscribe(ctx, auctionID, clientID))
	assert.False(t, b.IsSubscribed(ctx, auctionID, clientID))

	select {
	case eventChan <- outbound.Event{}:
	default:
		t.Fatal("event channel no longer accepts sends")
	}
}
