package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"go.uber.org/zap"
)

const uniqueViolationCode = "23505"

type APIKeyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAPIKeyRepository(db *pgxpool.Pool, logger *zap.Logger) *APIKeyRepository {
	return &APIKeyRepository{
		db:     db,
		logger: logger.Named("APIKeyRepository"),
	}
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

const apiKeyColumns = `id, key_hash, key_prefix, name, scopes, rate_limit_per_minute, rate_limit_per_day,
		is_active, last_used_at, expires_at, created_at`

func scanAPIKey(row pgx.Row) (*apikey.APIKey, error) {
	var key apikey.APIKey
	err := row.Scan(
		&key.ID,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.Name,
		&key.Scopes,
		&key.RateLimitPerMinute,
		&key.RateLimitPerDay,
		&key.IsActive,
		&key.LastUsedAt,
		&key.ExpiresAt,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) FindByHashAndPrefix(ctx context.Context, keyHash, keyPrefix string) (*apikey.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE key_hash = $1 AND key_prefix = $2
	`
	key, err := scanAPIKey(r.db.QueryRow(ctx, query, keyHash, keyPrefix))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("API key not found by hash and prefix", zap.String("prefix", keyPrefix))
			return nil, apikey.ErrAPIKeyNotFound
		}
		r.logger.Error("Failed to find api key by hash and prefix", zap.String("prefix", keyPrefix), zap.Error(err))
		return nil, fmt.Errorf("db error finding api key: %w", err)
	}

	return key, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	query := `
		INSERT INTO api_keys (key_hash, key_prefix, name, scopes, rate_limit_per_minute, rate_limit_per_day, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query,
		key.KeyHash,
		key.KeyPrefix,
		key.Name,
		key.Scopes,
		key.RateLimitPerMinute,
		key.RateLimitPerDay,
		key.IsActive,
		key.ExpiresAt,
	).Scan(&insertedID, &key.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			r.logger.Warn("Failed to create API key due to unique constraint violation",
				zap.String("constraint", pgErr.ConstraintName),
				zap.String("prefix", key.KeyPrefix),
			)
			return uuid.Nil, fmt.Errorf("api key constraint violation (%s)", pgErr.ConstraintName)
		}
		r.logger.Error("Failed to create api key in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("db error creating api key: %w", err)
	}

	key.ID = insertedID
	r.logger.Info("API key created successfully", zap.String("id", insertedID.String()), zap.String("prefix", key.KeyPrefix))
	return insertedID, nil
}

func (r *APIKeyRepository) List(ctx context.Context) ([]*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list api keys", zap.Error(err))
		return nil, fmt.Errorf("db error listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []*apikey.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			r.logger.Error("Failed to scan api key row", zap.Error(err))
			return nil, fmt.Errorf("db error scanning api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error iterating api keys: %w", err)
	}

	return keys, nil
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error {
	query := `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, query, lastUsed, id)
	if err != nil {
		r.logger.Error("Failed to update api key last_used_at", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("db error updating last used time: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("API key not found when updating last_used_at", zap.String("id", id.String()))
	}
	return nil
}
