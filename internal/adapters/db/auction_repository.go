package db

import (
	"context"
	"database/sql"
	"time"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionRepository implements the auction repository interface over the
// versioned auctions table.
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

const auctionColumns = `
	id, item_id, seller_id, start_time, end_time,
	starting_price_minor, currency, current_bid_minor, current_bidder_id,
	winner_id, final_price_minor, settled_at, cancelled_at,
	version, created_at, updated_at
`

func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		a.ID,
		a.ItemID,
		a.SellerID,
		a.StartTime,
		a.EndTime,
		a.StartingPrice.AmountMinor(),
		a.StartingPrice.Currency(),
		nullableAmount(a.CurrentBid),
		a.CurrentBidderID,
		a.WinnerID,
		nullableAmount(a.FinalPrice),
		a.SettledAt,
		a.CancelledAt,
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return mapStorageErr("failed to create auction", err)
	}
	return nil
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	row := r.conn.GetDB().QueryRowContext(ctx, query, id)
	a, err := scanAuction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, mapStorageErr("failed to get auction", err)
	}
	return a, nil
}

// List retrieves auctions ordered by creation time, newest first.
func (r *AuctionRepository) List(ctx context.Context, page, pageSize int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	rows, err := r.conn.GetDB().QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, mapStorageErr("failed to list auctions", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, mapStorageErr("failed to scan auction", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("error iterating auctions", err)
	}
	return auctions, nil
}

// GetLiveByItemID retrieves auctions for an item that are neither terminal
// nor past their end time at the given instant.
func (r *AuctionRepository) GetLiveByItemID(ctx context.Context, itemID uuid.UUID, now time.Time) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE item_id = $1
		  AND settled_at IS NULL
		  AND cancelled_at IS NULL
		  AND end_time > $2
		ORDER BY created_at DESC
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	rows, err := r.conn.GetDB().QueryContext(ctx, query, itemID, now)
	if err != nil {
		return nil, mapStorageErr("failed to get live auctions", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, mapStorageErr("failed to scan auction", err)
		}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("error iterating auctions", err)
	}
	return auctions, nil
}

// Update writes the auction only if the stored version still equals
// expectedVersion, bumping the version on success. A zero row count means
// another writer got there first.
func (r *AuctionRepository) Update(ctx context.Context, a *auction.Auction, expectedVersion uint64) error {
	query := `
		UPDATE auctions
		SET current_bid_minor = $2,
		    current_bidder_id = $3,
		    winner_id = $4,
		    final_price_minor = $5,
		    settled_at = $6,
		    cancelled_at = $7,
		    version = version + 1,
		    updated_at = $8
		WHERE id = $1 AND version = $9
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	result, err := r.conn.GetDB().ExecContext(ctx, query,
		a.ID,
		nullableAmount(a.CurrentBid),
		a.CurrentBidderID,
		a.WinnerID,
		nullableAmount(a.FinalPrice),
		a.SettledAt,
		a.CancelledAt,
		a.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return mapStorageErr("failed to update auction", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return mapStorageErr("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	a.Version = expectedVersion + 1
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*auction.Auction, error) {
	var (
		a               auction.Auction
		startingMinor   int64
		currency        string
		currentBidMinor sql.NullInt64
		finalPriceMinor sql.NullInt64
		currentBidder   uuid.NullUUID
		winner          uuid.NullUUID
		settledAt       sql.NullTime
		cancelledAt     sql.NullTime
	)

	err := row.Scan(
		&a.ID,
		&a.ItemID,
		&a.SellerID,
		&a.StartTime,
		&a.EndTime,
		&startingMinor,
		&currency,
		&currentBidMinor,
		&currentBidder,
		&winner,
		&finalPriceMinor,
		&settledAt,
		&cancelledAt,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentBidder.Valid {
		id := currentBidder.UUID
		a.CurrentBidderID = &id
	}
	if winner.Valid {
		id := winner.UUID
		a.WinnerID = &id
	}
	if settledAt.Valid {
		t := settledAt.Time
		a.SettledAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		a.CancelledAt = &t
	}

	starting, err := money.New(startingMinor, currency)
	if err != nil {
		return nil, err
	}
	a.StartingPrice = starting

	if currentBidMinor.Valid {
		m, err := money.New(currentBidMinor.Int64, currency)
		if err != nil {
			return nil, err
		}
		a.CurrentBid = &m
	}
	if finalPriceMinor.Valid {
		m, err := money.New(finalPriceMinor.Int64, currency)
		if err != nil {
			return nil, err
		}
		a.FinalPrice = &m
	}
	return &a, nil
}

func nullableAmount(m *money.Money) interface{} {
	if m == nil {
		return nil
	}
	return m.AmountMinor()
}
