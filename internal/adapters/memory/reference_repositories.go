package memory

import (
	"context"

	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

type itemRepository struct {
	store *Store
}

func (r *itemRepository) Create(ctx context.Context, item *shared.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *item
	r.store.items[item.ID] = &copied
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.items[id]
	if !ok {
		return nil, shared.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

type userRepository struct {
	store *Store
}

func (r *userRepository) Create(ctx context.Context, user *shared.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

type watchlistRepository struct {
	store *Store
}

func (r *watchlistRepository) Add(ctx context.Context, entry *shared.WatchEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.watch[entry.UserID] {
		if existing.ItemID == entry.ItemID {
			return shared.ErrAlreadyWatching
		}
	}
	copied := *entry
	r.store.watch[entry.UserID] = append(r.store.watch[entry.UserID], &copied)
	return nil
}

func (r *watchlistRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entries := r.store.watch[userID]
	for i, entry := range entries {
		if entry.ItemID == itemID {
			r.store.watch[userID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return shared.ErrWatchEntryNotFound
}

func (r *watchlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*shared.WatchEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := r.store.watch[userID]
	out := make([]*shared.WatchEntry, 0, len(entries))
	for _, entry := range entries {
		copied := *entry
		out = append(out, &copied)
	}
	return out, nil
}

func (r *watchlistRepository) WatchersForItem(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var watchers []uuid.UUID
	for userID, entries := range r.store.watch {
		for _, entry := range entries {
			if entry.ItemID == itemID {
				watchers = append(watchers, userID)
				break
			}
		}
	}
	return watchers, nil
}
