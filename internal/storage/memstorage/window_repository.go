package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
)

type windowKey struct {
	apiKeyID    uuid.UUID
	windowStart int64
	windowType  ratelimit.WindowType
}

// WindowRepository keeps rate limit windows in a map guarded by a mutex. Err,
// when set, is returned from every operation.
type WindowRepository struct {
	mu      sync.Mutex
	windows map[windowKey]*ratelimit.Window

	Err error
}

var _ ratelimit.Repository = (*WindowRepository)(nil)

func NewWindowRepository() *WindowRepository {
	return &WindowRepository{
		windows: make(map[windowKey]*ratelimit.Window),
	}
}

func keyFor(apiKeyID uuid.UUID, windowStart time.Time, windowType ratelimit.WindowType) windowKey {
	return windowKey{apiKeyID: apiKeyID, windowStart: windowStart.UnixNano(), windowType: windowType}
}

func (r *WindowRepository) Increment(ctx context.Context, apiKeyID uuid.UUID, windowStart time.Time, windowType ratelimit.WindowType) (int, error) {
	if r.Err != nil {
		return 0, r.Err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[keyFor(apiKeyID, windowStart, windowType)]
	if !ok {
		return 0, ratelimit.ErrWindowNotFound
	}
	w.RequestCount++
	return w.RequestCount, nil
}

func (r *WindowRepository) Create(ctx context.Context, w *ratelimit.Window) error {
	if r.Err != nil {
		return r.Err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyFor(w.APIKeyID, w.WindowStart, w.WindowType)
	if _, exists := r.windows[k]; exists {
		return ratelimit.ErrWindowExists
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	windowCopy := *w
	r.windows[k] = &windowCopy
	return nil
}

func (r *WindowRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.Err != nil {
		return 0, r.Err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for k, w := range r.windows {
		if w.WindowStart.Before(cutoff) {
			delete(r.windows, k)
			deleted++
		}
	}
	return deleted, nil
}

// Count returns the stored request count for a window, or 0 when absent.
func (r *WindowRepository) Count(apiKeyID uuid.UUID, windowStart time.Time, windowType ratelimit.WindowType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.windows[keyFor(apiKeyID, windowStart, windowType)]; ok {
		return w.RequestCount
	}
	return 0
}

// Len returns the number of stored windows.
func (r *WindowRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}
