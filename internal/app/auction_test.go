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
	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"
	"gavel-auction-engine/internal/ports/inbound"
)

type auctionServiceFixture struct {
	store   *memory.Store
	service *app.AuctionService
	seller  *shared.User
	item    *shared.Item
	now     time.Time
}

func newAuctionServiceFixture(t *testing.T) *auctionServiceFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	seller := &shared.User{ID: uuid.New(), Name: "seller"}
	require.NoError(t, store.Users().Create(ctx, seller))

	item := &shared.Item{
		ID:            uuid.New(),
		Title:         "vintage watch",
		StartingPrice: money.MustNew(5000, "GBP"),
		CreatedAt:     now,
	}
	require.NoError(t, store.Items().Create(ctx, item))

	service := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: store.Auctions(),
		ItemRepo:    store.Items(),
		UserRepo:    store.Users(),
		Clock:       shared.FixedClock{Instant: now},
		Logger:      zerolog.Nop(),
	})

	return &auctionServiceFixture{
		store:   store,
		service: service,
		seller:  seller,
		item:    item,
		now:     now,
	}
}

func (f *auctionServiceFixture) createRequest() inbound.CreateAuctionRequest {
	return inbound.CreateAuctionRequest{
		ItemID:        f.item.ID,
		SellerID:      f.seller.ID,
		StartTime:     f.now.Add(time.Hour).Format(time.RFC3339),
		EndTime:       f.now.Add(2 * time.Hour).Format(time.RFC3339),
		StartingPrice: money.MustNew(5000, "GBP"),
	}
}

func TestAuctionService_CreateAuction(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		f := newAuctionServiceFixture(t)

		a, err := f.service.CreateAuction(context.Background(), f.createRequest())
		require.NoError(t, err)

		assert.Equal(t, f.item.ID, a.ItemID)
		assert.Equal(t, f.seller.ID, a.SellerID)
		assert.Equal(t, uint64(1), a.Version)
		assert.Equal(t, auction.StateScheduled, a.StateAt(f.now))
		assert.Nil(t, a.CurrentBid)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newAuctionServiceFixture(t)
		req := f.createRequest()
		req.ItemID = uuid.New()

		_, err := f.service.CreateAuction(context.Background(), req)
		assert.ErrorIs(t, err, shared.ErrItemNotFound)
	})

	t.Run("unknown seller", func(t *testing.T) {
		f := newAuctionServiceFixture(t)
		req := f.createRequest()
		req.SellerID = uuid.New()

		_, err := f.service.CreateAuction(context.Background(), req)
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
	})

	t.Run("malformed time", func(t *testing.T) {
		f := newAuctionServiceFixture(t)
		req := f.createRequest()
		req.StartTime = "tomorrow at noon"

		_, err := f.service.CreateAuction(context.Background(), req)
		assert.ErrorIs(t, err, shared.ErrInvalidTimeFormat)
	})

	t.Run("start time in the past", func(t *testing.T) {
		f := newAuctionServiceFixture(t)
		req := f.createRequest()
		req.StartTime = f.now.Add(-time.Hour).Format(time.RFC3339)

		_, err := f.service.CreateAuction(context.Background(), req)
		assert.ErrorIs(t, err, shared.ErrInvalidStartTime)
	})

	t.Run("end not after start", func(t *testing.T) {
		f := newAuctionServiceFixture(t)
		req := f.createRequest()
		req.EndTime = req.StartTime

		_, err := f.service.CreateAuction(context.Background(), req)
		assert.ErrorIs(t, err, shared.ErrInvalidEndTime)
	})

	t.Run("non positive starting price", func(t *testing.T) {
		f := newAuctionServiceFixture(t)
		req := f.createRequest()
		req.StartingPrice = money.MustNew(0, "GBP")

		_, err := f.service.CreateAuction(context.Background(), req)
		assert.ErrorIs(t, err, shared.ErrInvalidStartingPrice)
	})

	t.Run("item already on a live auction", func(t *testing.T) {
		f := newAuctionServiceFixture(t)
		ctx := context.Background()

		_, err := f.service.CreateAuction(ctx, f.createRequest())
		require.NoError(t, err)

		_, err = f.service.CreateAuction(ctx, f.createRequest())
		assert.ErrorIs(t, err, shared.ErrItemAlreadyOnAuction)
	})
}

func TestAuctionService_GetAuctionState(t *testing.T) {
	f := newAuctionServiceFixture(t)
	ctx := context.Background()

	a, err := f.service.CreateAuction(ctx, f.createRequest())
	require.NoError(t, err)

	state, err := f.service.GetAuctionState(ctx, a.ID, f.now)
	require.NoError(t, err)
	assert.Equal(t, auction.StateScheduled, state)

	state, err = f.service.GetAuctionState(ctx, a.ID, a.StartTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, auction.StateOpen, state)

	state, err = f.service.GetAuctionState(ctx, a.ID, a.EndTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, auction.StateClosed, state)

	// Zero instant means the service clock decides.
	state, err = f.service.GetAuctionState(ctx, a.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, auction.StateScheduled, state)

	_, err = f.service.GetAuctionState(ctx, uuid.New(), f.now)
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestAuctionService_LiveAuctionsForItem(t *testing.T) {
	f := newAuctionServiceFixture(t)
	ctx := context.Background()

	a, err := f.service.CreateAuction(ctx, f.createRequest())
	require.NoError(t, err)

	live, err := f.service.LiveAuctionsForItem(ctx, f.item.ID, f.now)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, a.ID, live[0].ID)

	// Zero instant falls back to the service clock.
	live, err = f.service.LiveAuctionsForItem(ctx, f.item.ID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, live, 1)

	live, err = f.service.LiveAuctionsForItem(ctx, f.item.ID, a.EndTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, live)

	live, err = f.service.LiveAuctionsForItem(ctx, uuid.New(), f.now)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestAuctionService_ListAuctions(t *testing.T) {
	f := newAuctionServiceFixture(t)
	ctx := context.Background()

	secondItem := &shared.Item{
		ID:            uuid.New(),
		Title:         "oil painting",
		StartingPrice: money.MustNew(20000, "GBP"),
		CreatedAt:     f.now,
	}
	require.NoError(t, f.store.Items().Create(ctx, secondItem))

	first, err := f.service.CreateAuction(ctx, f.createRequest())
	require.NoError(t, err)

	secondReq := f.createRequest()
	secondReq.ItemID = secondItem.ID
	secondReq.StartTime = f.now.Add(10 * time.Minute).Format(time.RFC3339)
	secondReq.EndTime = f.now.Add(30 * time.Minute).Format(time.RFC3339)
	second, err := f.service.CreateAuction(ctx, secondReq)
	require.NoError(t, err)

	t.Run("unfiltered", func(t *testing.T) {
		all, err := f.service.ListAuctions(ctx, inbound.ListAuctionsRequest{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("filtered by effective state", func(t *testing.T) {
		open := auction.StateOpen
		at := f.now.Add(15 * time.Minute)

		listed, err := f.service.ListAuctions(ctx, inbound.ListAuctionsRequest{State: &open, Now: at})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, second.ID, listed[0].ID)

		scheduled := auction.StateScheduled
		listed, err = f.service.ListAuctions(ctx, inbound.ListAuctionsRequest{State: &scheduled, Now: at})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, first.ID, listed[0].ID)
	})

	t.Run("paged", func(t *testing.T) {
		page, err := f.service.ListAuctions(ctx, inbound.ListAuctionsRequest{Page: 1, PageSize: 1})
		require.NoError(t, err)
		assert.Len(t, page, 1)

		page, err = f.service.ListAuctions(ctx, inbound.ListAuctionsRequest{Page: 3, PageSize: 1})
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}
