package scheduler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel-auction-engine/internal/adapters/memory"
	"gavel-auction-engine/internal/adapters/scheduler"
	"gavel-auction-engine/internal/app"
	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"
)

func TestUnschedulable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "cancelled auction rejects the transition", err: shared.ErrInvalidTransition, want: true},
		{name: "auction deleted", err: shared.ErrAuctionNotFound, want: true},
		{name: "wrapped terminal error", err: fmt.Errorf("settle: %w", shared.ErrInvalidTransition), want: true},
		{name: "still open is worth retrying", err: shared.ErrAuctionStillOpen, want: false},
		{name: "storage outage is worth retrying", err: shared.ErrStorageUnavailable, want: false},
		{name: "contention is worth retrying", err: shared.ErrConcurrencyConflict, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scheduler.Unschedulable(tt.err))
		})
	}
}

// A cancelled auction stays cancelled, so every sweep of its schedule entry
// would fail identically. The engine's error for that case must classify as
// permanent or the entry leaks.
func TestUnschedulable_CancelledAuction(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	store := memory.NewStore()
	a := &auction.Auction{
		ID:            uuid.New(),
		ItemID:        uuid.New(),
		SellerID:      uuid.New(),
		StartTime:     start,
		EndTime:       end,
		StartingPrice: money.MustNew(5000, "GBP"),
		Version:       1,
	}
	require.NoError(t, store.Auctions().Create(ctx, a))

	engine := app.NewSettlementEngine(app.SettlementEngineParams{
		AuctionRepo: store.Auctions(),
		Clock:       shared.FixedClock{Instant: end.Add(time.Second)},
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, engine.Cancel(ctx, a.ID, start.Add(time.Minute)))

	_, err := engine.SettleDue(ctx, a.ID)
	require.Error(t, err)
	assert.True(t, scheduler.Unschedulable(err))

	_, err = engine.SettleDue(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, scheduler.Unschedulable(err))
}
