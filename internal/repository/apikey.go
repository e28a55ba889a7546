package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/warden/warden/internal/model"
)

const apiKeyColumns = `id, user_id, key_hash, key_prefix, name, is_active, expires_at, created_at`

// CreateAPIKey inserts a new API key into the database.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, key_hash, key_prefix, name, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		key.ID,
		key.UserID,
		key.KeyHash,
		key.KeyPrefix,
		key.Name,
		key.IsActive,
		key.ExpiresAt,
		key.CreatedAt,
	)

	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintAPIKeysHash {
			return ErrAPIKeyExists
		}
		if foreignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create API key: %w", err)
	}

	return nil
}

// GetAPIKeyByID retrieves an API key by its ID.
func (r *Repository) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	key, err := scanAPIKey(r.pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, ErrAPIKeyNotFound) {
		return nil, fmt.Errorf("failed to get API key by ID: %w", err)
	}
	return key, err
}

// GetAPIKeyByHash retrieves the API key whose digest equals hash.
// Used during authentication.
func (r *Repository) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`

	key, err := scanAPIKey(r.pool.QueryRow(ctx, query, hash))
	if err != nil && !errors.Is(err, ErrAPIKeyNotFound) {
		return nil, fmt.Errorf("failed to get API key by hash: %w", err)
	}
	return key, err
}

// ListAPIKeysByUserID retrieves one page of a user's API keys, newest first.
func (r *Repository) ListAPIKeysByUserID(ctx context.Context, q model.APIKeyQuery) ([]*model.APIKey, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE user_id = $1`, q.UserID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count API keys: %w", err)
	}

	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, q.UserID, q.PageSize, model.Offset(q.Page, q.PageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*model.APIKey, 0, q.PageSize)
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, total, nil
}

// UpdateAPIKey writes the mutable columns of key.
func (r *Repository) UpdateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		UPDATE api_keys
		SET name = $2, is_active = $3, expires_at = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, key.ID, key.Name, key.IsActive, key.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update API key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// DeleteAPIKey removes an API key.
func (r *Repository) DeleteAPIKey(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// scanAPIKey scans a single row into an APIKey model.
func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var key model.APIKey

	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.Name,
		&key.IsActive,
		&key.ExpiresAt,
		&key.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}

	return &key, nil
}
