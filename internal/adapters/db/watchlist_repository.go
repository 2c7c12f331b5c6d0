package db

import (
	"context"

	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WatchlistRepository implements the watchlist repository interface. The
// (user_id, item_id) primary key enforces uniqueness; per-user ordering
// follows insertion time.
type WatchlistRepository struct {
	conn *Connection
}

// NewWatchlistRepository creates a new watchlist repository
func NewWatchlistRepository(conn *Connection) *WatchlistRepository {
	return &WatchlistRepository{conn: conn}
}

func (r *WatchlistRepository) Add(ctx context.Context, entry *shared.WatchEntry) error {
	query := `
		INSERT INTO watchlist (user_id, item_id, created_at)
		VALUES ($1, $2, $3)
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	_, err := r.conn.GetDB().ExecContext(ctx, query, entry.UserID, entry.ItemID, entry.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return shared.ErrAlreadyWatching
		}
		return mapStorageErr("failed to add watch entry", err)
	}
	return nil
}

func (r *WatchlistRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	query := `DELETE FROM watchlist WHERE user_id = $1 AND item_id = $2`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	result, err := r.conn.GetDB().ExecContext(ctx, query, userID, itemID)
	if err != nil {
		return mapStorageErr("failed to remove watch entry", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return mapStorageErr("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return shared.ErrWatchEntryNotFound
	}
	return nil
}

func (r *WatchlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*shared.WatchEntry, error) {
	query := `
		SELECT user_id, item_id, created_at
		FROM watchlist
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	rows, err := r.conn.GetDB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapStorageErr("failed to list watch entries", err)
	}
	defer rows.Close()

	var entries []*shared.WatchEntry
	for rows.Next() {
		var entry shared.WatchEntry
		if err := rows.Scan(&entry.UserID, &entry.ItemID, &entry.CreatedAt); err != nil {
			return nil, mapStorageErr("failed to scan watch entry", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("error iterating watch entries", err)
	}
	return entries, nil
}

func (r *WatchlistRepository) WatchersForItem(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM watchlist WHERE item_id = $1 ORDER BY created_at ASC`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	rows, err := r.conn.GetDB().QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, mapStorageErr("failed to list watchers", err)
	}
	defer rows.Close()

	var watchers []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, mapStorageErr("failed to scan watcher", err)
		}
		watchers = append(watchers, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("error iterating watchers", err)
	}
	return watchers, nil
}
