package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWindowNotFound = errors.New("rate limit window not found")
	ErrWindowExists   = errors.New("rate limit window already exists")
)

type Repository interface {
	// Increment atomically adds one to an existing window and returns the new
	// count. It returns ErrWindowNotFound when no row exists yet.
	Increment(ctx context.Context, apiKeyID uuid.UUID, windowStart time.Time, windowType WindowType) (int, error)
	// Create inserts a fresh window. A uniqueness violation on the
	// (api_key_id, window_start, window_type) triple is reported as ErrWindowExists.
	Create(ctx context.Context, w *Window) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
