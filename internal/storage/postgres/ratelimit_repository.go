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
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"go.uber.org/zap"
)

type RateLimitRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRateLimitRepository(db *pgxpool.Pool, logger *zap.Logger) *RateLimitRepository {
	return &RateLimitRepository{
		db:     db,
		logger: logger.Named("RateLimitRepository"),
	}
}

var _ ratelimit.Repository = (*RateLimitRepository)(nil)

func (r *RateLimitRepository) Increment(ctx context.Context, apiKeyID uuid.UUID, windowStart time.Time, windowType ratelimit.WindowType) (int, error) {
	query := `
		UPDATE api_rate_limits
		SET request_count = request_count + 1
		WHERE api_key_id = $1 AND window_start = $2 AND window_type = $3
		RETURNING request_count
	`
	var count int
	err := r.db.QueryRow(ctx, query, apiKeyID, windowStart, string(windowType)).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ratelimit.ErrWindowNotFound
		}
		return 0, fmt.Errorf("db error incrementing %s window: %w", windowType, err)
	}
	return count, nil
}

func (r *RateLimitRepository) Create(ctx context.Context, w *ratelimit.Window) error {
	query := `
		INSERT INTO api_rate_limits (api_key_id, window_start, window_type, request_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, w.APIKeyID, w.WindowStart, string(w.WindowType), w.RequestCount).Scan(&w.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			r.logger.Debug("Concurrent creation of rate limit window",
				zap.String("api_key_id", w.APIKeyID.String()),
				zap.String("window_type", string(w.WindowType)),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return ratelimit.ErrWindowExists
		}
		return fmt.Errorf("db error creating %s window: %w", w.WindowType, err)
	}
	return nil
}

func (r *RateLimitRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM api_rate_limits WHERE window_start < $1`, cutoff)
	if err != nil {
		r.logger.Error("Failed to delete stale rate limit windows", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("db error deleting stale windows: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
