package service

import (
	"context"
	"fmt"
	"time"

	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type RateLimitResult struct {
	Allowed bool
	Info    ratelimit.Quota
}

// RateLimiter enforces the per-minute and per-day fixed windows of a key.
type RateLimiter struct {
	counter  *WindowCounter
	metrics  *metrics.Metrics
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

func NewRateLimiter(counter *WindowCounter, location *time.Location, m *metrics.Metrics, logger *zap.Logger) *RateLimiter {
	if location == nil {
		location = time.Local
	}
	return &RateLimiter{
		counter:  counter,
		metrics:  m,
		logger:   logger.Named("RateLimiter"),
		location: location,
		now:      time.Now,
	}
}

func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// MinuteWindowStart zeroes seconds and sub-seconds.
func MinuteWindowStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// DayWindowStart returns midnight of t's calendar day in t's location.
func DayWindowStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Check counts the request against both windows and decides whether it may
// proceed. Denied requests still consume quota. Store failures fail open.
func (l *RateLimiter) Check(ctx context.Context, key *apikey.APIKey) RateLimitResult {
	now := l.now().In(l.location)
	minuteStart := MinuteWindowStart(now)
	dayStart := DayWindowStart(now)

	var minuteCount, dayCount int
	var g errgroup.Group
	g.Go(func() error {
		n, err := l.counter.Bump(ctx, key.ID, minuteStart, ratelimit.WindowMinute)
		if err != nil {
			l.metrics.RecordRateLimitStoreFailure(string(ratelimit.WindowMinute))
			return fmt.Errorf("minute window: %w", err)
		}
		minuteCount = n
		return nil
	})
	g.Go(func() error {
		n, err := l.counter.Bump(ctx, key.ID, dayStart, ratelimit.WindowDay)
		if err != nil {
			l.metrics.RecordRateLimitStoreFailure(string(ratelimit.WindowDay))
			return fmt.Errorf("day window: %w", err)
		}
		dayCount = n
		return nil
	})

	if err := g.Wait(); err != nil {
		l.logger.Error("Rate limit check failed, allowing request",
			zap.String("key_id", key.ID.String()),
			zap.Error(err),
		)
		return RateLimitResult{
			Allowed: true,
			Info: ratelimit.Quota{
				Limit:     key.RateLimitPerMinute,
				Remaining: key.RateLimitPerMinute,
				Reset:     now.Unix() + 60,
			},
		}
	}

	info := ratelimit.Quota{
		Limit:     key.RateLimitPerMinute,
		Remaining: max(0, key.RateLimitPerMinute-minuteCount),
		Reset:     minuteStart.Add(time.Minute).Unix(),
	}

	minuteExceeded := minuteCount > key.RateLimitPerMinute
	dayExceeded := dayCount > key.RateLimitPerDay
	if minuteExceeded || dayExceeded {
		l.logger.Info("Rate limit exceeded",
			zap.String("key_id", key.ID.String()),
			zap.Int("minute_count", minuteCount),
			zap.Int("day_count", dayCount),
			zap.Bool("minute_exceeded", minuteExceeded),
			zap.Bool("day_exceeded", dayExceeded),
		)
		return RateLimitResult{Allowed: false, Info: info}
	}

	return RateLimitResult{Allowed: true, Info: info}
}
