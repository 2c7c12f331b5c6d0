package auction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"
)

var (
	baseStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	baseEnd   = baseStart.Add(time.Hour)
)

func newAuction() *auction.Auction {
	return &auction.Auction{
		ID:            uuid.New(),
		ItemID:        uuid.New(),
		SellerID:      uuid.New(),
		StartTime:     baseStart,
		EndTime:       baseEnd,
		StartingPrice: money.MustNew(5000, "GBP"),
		Version:       1,
	}
}

func TestAuction_StateAt(t *testing.T) {
	a := newAuction()

	tests := []struct {
		name string
		now  time.Time
		want auction.State
	}{
		{name: "before start", now: baseStart.Add(-time.Minute), want: auction.StateScheduled},
		{name: "at start", now: baseStart, want: auction.StateOpen},
		{name: "mid window", now: baseStart.Add(30 * time.Minute), want: auction.StateOpen},
		{name: "at end", now: baseEnd, want: auction.StateClosed},
		{name: "after end", now: baseEnd.Add(time.Minute), want: auction.StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.StateAt(tt.now))
		})
	}
}

func TestAuction_StateAt_TerminalFlagsAreSticky(t *testing.T) {
	t.Run("settled overrides the clock", func(t *testing.T) {
		a := newAuction()
		settledAt := baseEnd.Add(time.Minute)
		a.SettledAt = &settledAt

		assert.Equal(t, auction.StateSettled, a.StateAt(baseStart.Add(-time.Hour)))
		assert.Equal(t, auction.StateSettled, a.StateAt(baseEnd.Add(time.Hour)))
	})

	t.Run("cancelled overrides settled", func(t *testing.T) {
		a := newAuction()
		at := baseStart.Add(time.Minute)
		a.CancelledAt = &at

		assert.Equal(t, auction.StateCancelled, a.StateAt(baseEnd.Add(time.Hour)))
	})
}

func TestAuction_AcceptingBidsAt(t *testing.T) {
	a := newAuction()

	assert.False(t, a.AcceptingBidsAt(baseStart.Add(-time.Second)))
	assert.True(t, a.AcceptingBidsAt(baseStart.Add(time.Second)))
	assert.False(t, a.AcceptingBidsAt(baseEnd))
}

func TestAuction_CurrentPrice(t *testing.T) {
	a := newAuction()
	assert.Equal(t, money.MustNew(5000, "GBP"), a.CurrentPrice())

	bidAmount := money.MustNew(5001, "GBP")
	a.ApplyAcceptedBid(uuid.New(), bidAmount, baseStart.Add(time.Minute))
	assert.Equal(t, bidAmount, a.CurrentPrice())
}

func TestAuction_Settle(t *testing.T) {
	t.Run("closed auction with bids settles to winner", func(t *testing.T) {
		a := newAuction()
		winner := uuid.New()
		a.ApplyAcceptedBid(winner, money.MustNew(5001, "GBP"), baseStart.Add(time.Minute))

		require.NoError(t, a.Settle(baseEnd.Add(time.Second)))

		s := a.Settlement()
		require.NotNil(t, s)
		assert.True(t, s.Sold())
		assert.Equal(t, winner, *s.WinnerID)
		assert.Equal(t, money.MustNew(5001, "GBP"), *s.FinalPrice)
		assert.Equal(t, auction.StateSettled, a.StateAt(baseEnd.Add(time.Hour)))
	})

	t.Run("closed auction without bids settles unsold", func(t *testing.T) {
		a := newAuction()
		require.NoError(t, a.Settle(baseEnd.Add(time.Second)))

		s := a.Settlement()
		require.NotNil(t, s)
		assert.False(t, s.Sold())
		assert.Nil(t, s.WinnerID)
		assert.Nil(t, s.FinalPrice)
	})

	t.Run("open auction cannot settle", func(t *testing.T) {
		a := newAuction()
		err := a.Settle(baseStart.Add(time.Minute))
		assert.ErrorIs(t, err, shared.ErrAuctionStillOpen)
		assert.Nil(t, a.Settlement())
	})

	t.Run("scheduled auction cannot settle", func(t *testing.T) {
		a := newAuction()
		err := a.Settle(baseStart.Add(-time.Minute))
		assert.ErrorIs(t, err, shared.ErrAuctionStillOpen)
	})

	t.Run("cancelled auction cannot settle", func(t *testing.T) {
		a := newAuction()
		require.NoError(t, a.Cancel(baseStart.Add(time.Minute)))

		err := a.Settle(baseEnd.Add(time.Second))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})

	t.Run("settling twice keeps the first settlement", func(t *testing.T) {
		a := newAuction()
		first := baseEnd.Add(time.Second)
		require.NoError(t, a.Settle(first))
		require.NoError(t, a.Settle(baseEnd.Add(time.Hour)))

		assert.Equal(t, first, a.Settlement().SettledAt)
	})
}

func TestAuction_CloseEarly(t *testing.T) {
	t.Run("open auction closes at the given instant", func(t *testing.T) {
		a := newAuction()
		at := baseStart.Add(10 * time.Minute)

		require.NoError(t, a.CloseEarly(at))
		assert.Equal(t, at, a.EndTime)
		assert.Equal(t, auction.StateClosed, a.StateAt(at))
		require.NoError(t, a.Settle(at))
	})

	t.Run("scheduled auction cannot close early", func(t *testing.T) {
		a := newAuction()
		err := a.CloseEarly(baseStart.Add(-time.Minute))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})

	t.Run("closed auction cannot close again", func(t *testing.T) {
		a := newAuction()
		err := a.CloseEarly(baseEnd.Add(time.Minute))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})
}

func TestAuction_Cancel(t *testing.T) {
	t.Run("scheduled", func(t *testing.T) {
		a := newAuction()
		require.NoError(t, a.Cancel(baseStart.Add(-time.Minute)))
		assert.Equal(t, auction.StateCancelled, a.StateAt(baseStart.Add(time.Minute)))
	})

	t.Run("open", func(t *testing.T) {
		a := newAuction()
		require.NoError(t, a.Cancel(baseStart.Add(time.Minute)))
	})

	t.Run("closed auction cannot be cancelled", func(t *testing.T) {
		a := newAuction()
		err := a.Cancel(baseEnd.Add(time.Minute))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})

	t.Run("settled auction cannot be cancelled", func(t *testing.T) {
		a := newAuction()
		require.NoError(t, a.Settle(baseEnd.Add(time.Second)))

		err := a.Cancel(baseEnd.Add(time.Minute))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})
}
