package ratelimit

import (
	"time"

	"github.com/google/uuid"
)

type WindowType string

const (
	WindowMinute WindowType = "minute"
	WindowDay    WindowType = "day"
)

// Duration returns the length of one window of this kind.
func (t WindowType) Duration() time.Duration {
	if t == WindowDay {
		return 24 * time.Hour
	}
	return time.Minute
}

// Window is one fixed-window request counter. At most one exists per
// (APIKeyID, WindowStart, WindowType).
type Window struct {
	ID           uuid.UUID  `db:"id"`
	APIKeyID     uuid.UUID  `db:"api_key_id"`
	WindowStart  time.Time  `db:"window_start"`
	WindowType   WindowType `db:"window_type"`
	RequestCount int        `db:"request_count"`
}

// Quota is the per-minute allowance reported back to API clients.
type Quota struct {
	Limit     int
	Remaining int
	Reset     int64
}
