package db

import (
	"context"
	"database/sql"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/bid"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// LedgerRepository implements the append-only bid ledger over the
// bid_attempts table. The sequence column is a BIGSERIAL: monotonic across
// the table, so it breaks submission-time ties deterministically per auction.
// Rows are never updated or deleted.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// Append records a bid attempt and reads back its assigned sequence.
func (r *LedgerRepository) Append(ctx context.Context, attempt *bid.Attempt) error {
	query := `
		INSERT INTO bid_attempts (id, auction_id, bidder_id, amount_minor, currency, outcome, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING sequence
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	err := r.conn.GetDB().QueryRowContext(ctx, query,
		attempt.ID,
		attempt.AuctionID,
		attempt.BidderID,
		attempt.Amount.AmountMinor(),
		attempt.Amount.Currency(),
		attempt.Outcome,
		attempt.SubmittedAt,
	).Scan(&attempt.Sequence)
	if err != nil {
		return mapStorageErr("failed to append bid attempt", err)
	}
	return nil
}

// CommitAccepted persists the accepted attempt and the new auction state in
// one transaction. The versioned UPDATE on the auction row is the
// serialization point: two bids racing on the same auction cannot both pass
// it, and bids on different auctions never contend.
func (r *LedgerRepository) CommitAccepted(ctx context.Context, attempt *bid.Attempt, a *auction.Auction, expectedVersion uint64) error {
	return r.conn.ExecuteTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		updateQuery := `
			UPDATE auctions
			SET current_bid_minor = $2,
			    current_bidder_id = $3,
			    version = version + 1,
			    updated_at = $4
			WHERE id = $1 AND version = $5
		`

		result, err := tx.ExecContext(ctx, updateQuery,
			a.ID,
			nullableAmount(a.CurrentBid),
			a.CurrentBidderID,
			a.UpdatedAt,
			expectedVersion,
		)
		if err != nil {
			return mapStorageErr("failed to update auction price", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return mapStorageErr("failed to get rows affected", err)
		}
		if rowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		insertQuery := `
			INSERT INTO bid_attempts (id, auction_id, bidder_id, amount_minor, currency, outcome, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING sequence
		`

		err = tx.QueryRowContext(ctx, insertQuery,
			attempt.ID,
			attempt.AuctionID,
			attempt.BidderID,
			attempt.Amount.AmountMinor(),
			attempt.Amount.Currency(),
			attempt.Outcome,
			attempt.SubmittedAt,
		).Scan(&attempt.Sequence)
		if err != nil {
			return mapStorageErr("failed to insert accepted bid attempt", err)
		}

		a.Version = expectedVersion + 1
		return nil
	})
}

// History returns all attempts for an auction ordered by submission time,
// then sequence.
func (r *LedgerRepository) History(ctx context.Context, auctionID uuid.UUID) ([]*bid.Attempt, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount_minor, currency, outcome, submitted_at, sequence
		FROM bid_attempts
		WHERE auction_id = $1
		ORDER BY submitted_at ASC, sequence ASC
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, mapStorageErr("failed to load bid history", err)
	}
	defer rows.Close()

	var attempts []*bid.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, mapStorageErr("failed to scan bid attempt", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr("error iterating bid attempts", err)
	}
	return attempts, nil
}

// LatestAccepted returns the most recent accepted attempt for an auction.
func (r *LedgerRepository) LatestAccepted(ctx context.Context, auctionID uuid.UUID) (*bid.Attempt, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount_minor, currency, outcome, submitted_at, sequence
		FROM bid_attempts
		WHERE auction_id = $1 AND outcome = $2
		ORDER BY sequence DESC
		LIMIT 1
	`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	row := r.conn.GetDB().QueryRowContext(ctx, query, auctionID, bid.OutcomeAccepted)
	attempt, err := scanAttempt(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, mapStorageErr("failed to get latest accepted bid", err)
	}
	return attempt, nil
}

func scanAttempt(row rowScanner) (*bid.Attempt, error) {
	var (
		attempt     bid.Attempt
		amountMinor int64
		currency    string
	)
	err := row.Scan(
		&attempt.ID,
		&attempt.AuctionID,
		&attempt.BidderID,
		&amountMinor,
		&currency,
		&attempt.Outcome,
		&attempt.SubmittedAt,
		&attempt.Sequence,
	)
	if err != nil {
		return nil, err
	}

	amount, err := money.New(amountMinor, currency)
	if err != nil {
		return nil, err
	}
	attempt.Amount = amount
	return &attempt, nil
}
