package memory

import (
	"context"
	"sort"
	"time"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

type auctionRepository struct {
	store *Store
}

func (r *auctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.auctions[a.ID] = cloneAuction(a)
	return nil
}

func (r *auctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

func (r *auctionRepository) List(ctx context.Context, page, pageSize int) ([]*auction.Auction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := make([]*auction.Auction, 0, len(r.store.auctions))
	for _, a := range r.store.auctions {
		all = append(all, cloneAuction(a))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *auctionRepository) GetLiveByItemID(ctx context.Context, itemID uuid.UUID, now time.Time) ([]*auction.Auction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var live []*auction.Auction
	for _, a := range r.store.auctions {
		if a.ItemID != itemID {
			continue
		}
		if a.SettledAt != nil || a.CancelledAt != nil || !a.EndTime.After(now) {
			continue
		}
		live = append(live, cloneAuction(a))
	}
	return live, nil
}

func (r *auctionRepository) Update(ctx context.Context, a *auction.Auction, expectedVersion uint64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.auctions[a.ID]
	if !ok {
		return shared.ErrAuctionNotFound
	}
	if stored.Version != expectedVersion {
		return shared.ErrConcurrencyConflict
	}

	updated := cloneAuction(a)
	updated.Version = expectedVersion + 1
	r.store.auctions[a.ID] = updated
	a.Version = updated.Version
	return nil
}
