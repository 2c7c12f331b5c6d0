package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gavel-auction-engine/internal/config"
	"gavel-auction-engine/internal/domain/shared"

	_ "github.com/lib/pq"
)

// Connection wraps the database handle and the storage timeout discipline:
// every repository call runs under a bounded deadline, and a blown deadline
// surfaces as shared.ErrStorageUnavailable rather than hanging a bid.
type Connection struct {
	db      *sql.DB
	timeout time.Duration
}

// NewConnection creates a new database connection
func NewConnection(cfg *config.Config) (*Connection, error) {
	db, err := sql.Open("postgres", cfg.Database.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	timeout := cfg.Database.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Connection{db: db, timeout: timeout}, nil
}

// GetDB returns the underlying sql.DB instance
func (c *Connection) GetDB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.db.Close()
}

// WithTimeout derives a bounded context for one storage call.
func (c *Connection) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// ExecuteTransaction executes a function within a transaction under the
// connection's deadline.
func (c *Connection) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := c.WithTimeout(ctx)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return mapStorageErr("failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx failed: %v, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapStorageErr("failed to commit transaction", err)
	}
	return nil
}

// mapStorageErr folds timeouts and dead connections into the storage
// unavailability sentinel so callers can match with errors.Is.
func mapStorageErr(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %v", msg, shared.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
