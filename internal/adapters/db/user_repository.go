package db

import (
	"context"
	"database/sql"

	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// UserRepository implements the user repository interface. Identity lives
// with the external provider; this table only mirrors the opaque IDs and
// display names the engine needs.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new user repository
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	query := `SELECT id, name FROM users WHERE id = $1`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	var user shared.User
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrUserNotFound
		}
		return nil, mapStorageErr("failed to get user", err)
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *shared.User) error {
	query := `INSERT INTO users (id, name) VALUES ($1, $2)`

	ctx, cancel := r.conn.WithTimeout(ctx)
	defer cancel()

	_, err := r.conn.GetDB().ExecContext(ctx, query, user.ID, user.Name)
	if err != nil {
		return mapStorageErr("failed to create user", err)
	}
	return nil
}
