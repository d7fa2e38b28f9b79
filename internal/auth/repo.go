package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByKeyID(ctx context.Context, keyID string) (*APIKey, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByKeyID fetches an API key record by its public identifier.
func (r *PGRepository) FindByKeyID(ctx context.Context, keyID string) (*APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx,
		`SELECT key_id, secret_hash, label, can_write, disabled, created_at
		   FROM api_keys WHERE key_id = $1`,
		keyID,
	).Scan(&key.KeyID, &key.SecretHash, &key.Label, &key.CanWrite, &key.Disabled, &key.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: api key", httpx.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find api key: %w", err)
	}
	return &key, nil
}

var _ Repository = (*PGRepository)(nil)
