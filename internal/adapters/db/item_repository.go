package db

import (
	"context"
	"database/sql"

	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// ItemRepository implements the item repository interface
type ItemRepository struct {
	conn *Connection
}

// NewItemRepository creates a new item repository
func NewItemRepository(conn *Connection) *ItemRepository {
	return &ItemRepository{conn: conn}
}

func (r *ItemRepository) Create(ctx context.Context, item *shared.Item) error {
	query := `
		INSERT INTO items (id, title, description, starting_price_minor, currency, image_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		item.ID,
		item.Title,
		item.Description,
		item.StartingPrice.AmountMinor(),
		item.StartingPrice.Currency(),
		item.ImageRef,
		item.CreatedAt,
	)
	if err != nil {
		return mapStorageErr("failed to create item", err)
	}
	return nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.Item, error) {
	query := `
		SELECT id, title, description, starting_price_minor, currency, image_ref, created_at
		FROM items
		WHERE id = $1
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	var (
		item        shared.Item
		amountMinor int64
		currency    string
	)
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Title,
		&item.Description,
		&amountMinor,
		&currency,
		&item.ImageRef,
		&item.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrItemNotFound
		}
		return nil, mapStorageErr("failed to get item", err)
	}

	price, err := money.New(amountMinor, currency)
	if err != nil {
		return nil, err
	}
	item.StartingPrice = price
	return &item, nil
}
