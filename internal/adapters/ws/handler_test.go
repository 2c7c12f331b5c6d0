package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"
	"gavel-auction-engine/internal/ports/outbound"
)

type recordingBroadcaster struct {
	mu              sync.Mutex
	subscribed      map[string][]uuid.UUID
	unsubscribedAll []string
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{subscribed: make(map[string][]uuid.UUID)}
}

func (b *recordingBroadcaster) Subscribe(_ context.Context, auctionID uuid.UUID, clientID string, _ chan outbound.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed[clientID] = append(b.subscribed[clientID], auctionID)
	return nil
}

func (b *recordingBroadcaster) Unsubscribe(_ context.Context, auctionID uuid.UUID, clientID string) error {
	return nil
}

func (b *recordingBroadcaster) UnsubscribeAll(_ context.Context, clientID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribedAll = append(b.unsubscribedAll, clientID)
	return nil
}

func (b *recordingBroadcaster) Publish(_ context.Context, _ uuid.UUID, _ outbound.Event) error {
	return nil
}

func (b *recordingBroadcaster) IsSubscribed(_ context.Context, _ uuid.UUID, _ string) bool {
	return false
}

// A disconnecting client must release its broadcaster subscriptions, or the
// pubsub connection and the subscription maps leak for every departed client.
func TestHandler_UnregisterReleasesBroadcaster(t *testing.T) {
	broadcaster := newRecordingBroadcaster()
	handler := NewHandler(HandlerParams{
		Broadcaster: broadcaster,
		Logger:      zerolog.Nop(),
	})

	client := dialTestClient(t)
	handler.registerClient(client)
	handler.createEventChannel(client.id)

	assert.Equal(t, 1, handler.ConnectedClients())
	assert.NotNil(t, handler.getEventChannel(client.id))

	handler.unregisterClient(client)

	assert.Equal(t, 0, handler.ConnectedClients())
	assert.Nil(t, handler.getEventChannel(client.id))

	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	assert.Equal(t, []string{client.id}, broadcaster.unsubscribedAll)
}

type stubWatchlist struct {
	watchers map[uuid.UUID][]uuid.UUID
}

func (s *stubWatchlist) Watch(_ context.Context, _, _ uuid.UUID) (*shared.WatchEntry, error) {
	return nil, nil
}

func (s *stubWatchlist) Unwatch(_ context.Context, _, _ uuid.UUID) error {
	return nil
}

func (s *stubWatchlist) Watchlist(_ context.Context, _ uuid.UUID) ([]*shared.WatchEntry, error) {
	return nil, nil
}

func (s *stubWatchlist) WatchersForItem(_ context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	return s.watchers[itemID], nil
}

func TestHandler_NotifyWatchers(t *testing.T) {
	watcher := dialTestClient(t)
	origin := dialTestClient(t)
	bystander := dialTestClient(t)

	itemID := uuid.New()
	handler := NewHandler(HandlerParams{
		Broadcaster: newRecordingBroadcaster(),
		Watchlist:   &stubWatchlist{watchers: map[uuid.UUID][]uuid.UUID{itemID: {watcher.userID, origin.userID}}},
		Logger:      zerolog.Nop(),
	})
	for _, c := range []*Client{watcher, origin, bystander} {
		handler.registerClient(c)
	}

	start := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	a := &auction.Auction{
		ID:            uuid.New(),
		ItemID:        itemID,
		SellerID:      origin.userID,
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		StartingPrice: money.MustNew(5000, "GBP"),
		Version:       1,
	}

	handler.notifyWatchers(a, origin.id)

	// The clients are not started, so queued messages stay in their send
	// channels for inspection.
	select {
	case msg := <-watcher.sendChan:
		require.Equal(t, MessageTypeAuctionCreated, msg.Type)
		assert.Equal(t, a.ID, *msg.AuctionID)
	default:
		t.Fatal("watcher did not receive the auction created message")
	}

	assert.Empty(t, origin.sendChan, "creator is notified by the create response, not the watcher push")
	assert.Empty(t, bystander.sendChan)
}
