package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel-auction-engine/internal/adapters/memory"
	"gavel-auction-engine/internal/app"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"
)

func newWatchlistFixture(t *testing.T) (*app.WatchlistService, *shared.User, *shared.Item) {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	user := &shared.User{ID: uuid.New(), Name: "watcher"}
	require.NoError(t, store.Users().Create(ctx, user))

	item := &shared.Item{
		ID:            uuid.New(),
		Title:         "vintage watch",
		StartingPrice: money.MustNew(5000, "GBP"),
		CreatedAt:     now,
	}
	require.NoError(t, store.Items().Create(ctx, item))

	service := app.NewWatchlistService(app.WatchlistServiceParams{
		WatchRepo: store.Watchlist(),
		ItemRepo:  store.Items(),
		UserRepo:  store.Users(),
		Clock:     shared.FixedClock{Instant: now},
		Logger:    zerolog.Nop(),
	})
	return service, user, item
}

func TestWatchlistService_Watch(t *testing.T) {
	t.Run("adds an entry", func(t *testing.T) {
		service, user, item := newWatchlistFixture(t)
		ctx := context.Background()

		entry, err := service.Watch(ctx, user.ID, item.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, entry.UserID)
		assert.Equal(t, item.ID, entry.ItemID)

		list, err := service.Watchlist(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, item.ID, list[0].ItemID)
	})

	t.Run("duplicate watch", func(t *testing.T) {
		service, user, item := newWatchlistFixture(t)
		ctx := context.Background()

		_, err := service.Watch(ctx, user.ID, item.ID)
		require.NoError(t, err)

		_, err = service.Watch(ctx, user.ID, item.ID)
		assert.ErrorIs(t, err, shared.ErrAlreadyWatching)
	})

	t.Run("unknown user", func(t *testing.T) {
		service, _, item := newWatchlistFixture(t)

		_, err := service.Watch(context.Background(), uuid.New(), item.ID)
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
	})

	t.Run("unknown item", func(t *testing.T) {
		service, user, _ := newWatchlistFixture(t)

		_, err := service.Watch(context.Background(), user.ID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrItemNotFound)
	})
}

func TestWatchlistService_Unwatch(t *testing.T) {
	service, user, item := newWatchlistFixture(t)
	ctx := context.Background()

	_, err := service.Watch(ctx, user.ID, item.ID)
	require.NoError(t, err)

	require.NoError(t, service.Unwatch(ctx, user.ID, item.ID))

	list, err := service.Watchlist(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = service.Unwatch(ctx, user.ID, item.ID)
	assert.ErrorIs(t, err, shared.ErrWatchEntryNotFound)
}

func TestWatchlistService_WatchersForItem(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	item := &shared.Item{
		ID:            uuid.New(),
		Title:         "vintage watch",
		StartingPrice: money.MustNew(5000, "GBP"),
		CreatedAt:     now,
	}
	require.NoError(t, store.Items().Create(ctx, item))

	first := &shared.User{ID: uuid.New(), Name: "first watcher"}
	second := &shared.User{ID: uuid.New(), Name: "second watcher"}
	bystander := &shared.User{ID: uuid.New(), Name: "bystander"}
	for _, u := range []*shared.User{first, second, bystander} {
		require.NoError(t, store.Users().Create(ctx, u))
	}

	service := app.NewWatchlistService(app.WatchlistServiceParams{
		WatchRepo: store.Watchlist(),
		ItemRepo:  store.Items(),
		UserRepo:  store.Users(),
		Clock:     shared.FixedClock{Instant: now},
		Logger:    zerolog.Nop(),
	})

	_, err := service.Watch(ctx, first.ID, item.ID)
	require.NoError(t, err)
	_, err = service.Watch(ctx, second.ID, item.ID)
	require.NoError(t, err)

	watchers, err := service.WatchersForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, watchers)

	watchers, err = service.WatchersForItem(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, watchers)
}
