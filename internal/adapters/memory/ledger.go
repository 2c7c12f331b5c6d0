package memory

import (
	"context"
	"sort"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/bid"
	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

type ledger struct {
	store *Store
}

func (l *ledger) Append(ctx context.Context, attempt *bid.Attempt) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.appendLocked(attempt)
	return nil
}

// appendLocked assigns the next sequence and stores a copy of the attempt.
// Caller holds the write lock.
func (l *ledger) appendLocked(attempt *bid.Attempt) {
	l.store.seq++
	attempt.Sequence = l.store.seq
	copied := *attempt
	l.store.attempts[attempt.AuctionID] = append(l.store.attempts[attempt.AuctionID], &copied)
}

func (l *ledger) CommitAccepted(ctx context.Context, attempt *bid.Attempt, a *auction.Auction, expectedVersion uint64) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	stored, ok := l.store.auctions[a.ID]
	if !ok {
		return shared.ErrAuctionNotFound
	}
	if stored.Version != expectedVersion {
		return shared.ErrConcurrencyConflict
	}

	updated := cloneAuction(a)
	updated.Version = expectedVersion + 1
	l.store.auctions[a.ID] = updated
	a.Version = updated.Version

	l.appendLocked(attempt)
	return nil
}

func (l *ledger) History(ctx context.Context, auctionID uuid.UUID) ([]*bid.Attempt, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()

	stored := l.store.attempts[auctionID]
	history := make([]*bid.Attempt, 0, len(stored))
	for _, attempt := range stored {
		copied := *attempt
		history = append(history, &copied)
	}
	sort.SliceStable(history, func(i, j int) bool {
		if !history[i].SubmittedAt.Equal(history[j].SubmittedAt) {
			return history[i].SubmittedAt.Before(history[j].SubmittedAt)
		}
		return history[i].Sequence < history[j].Sequence
	})
	return history, nil
}

func (l *ledger) LatestAccepted(ctx context.Context, auctionID uuid.UUID) (*bid.Attempt, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()

	stored := l.store.attempts[auctionID]
	for i := len(stored) - 1; i >= 0; i-- {
		if stored[i].Outcome.IsAccepted() {
			copied := *stored[i]
			return &copied, nil
		}
	}
	return nil, shared.ErrNoBidsFound
}
