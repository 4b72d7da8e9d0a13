package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const windowKeyPrefix = "ratelimit:window:"

// incrementIfExists keeps INCR from implicitly creating a window, so creation
// always goes through SETNX and its uniqueness signal.
var incrementIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("INCR", KEYS[1])
end
return -1
`)

// WindowRepository stores one integer per window under
// ratelimit:window:<api_key_id>:<window_type>:<window_start_unix>.
type WindowRepository struct {
	client    *redis.Client
	retention time.Duration
	logger    *zap.Logger
}

func NewWindowRepository(client *redis.Client, retention time.Duration, logger *zap.Logger) *WindowRepository {
	return &WindowRepository{
		client:    client,
		retention: retention,
		logger:    logger.Named("RedisWindowRepository"),
	}
}

var _ ratelimit.Repository = (*WindowRepository)(nil)

func windowKey(apiKeyID uuid.UUID, windowStart time.Time, windowType ratelimit.WindowType) string {
	return fmt.Sprintf("%s%s:%s:%d", windowKeyPrefix, apiKeyID, windowType, windowStart.Unix())
}

func (r *WindowRepository) Increment(ctx context.Context, apiKeyID uuid.UUID, windowStart time.Time, windowType ratelimit.WindowType) (int, error) {
	count, err := incrementIfExists.Run(ctx, r.client, []string{windowKey(apiKeyID, windowStart, windowType)}).Int()
	if err != nil {
		return 0, fmt.Errorf("redis error incrementing %s window: %w", windowType, err)
	}
	if count < 0 {
		return 0, ratelimit.ErrWindowNotFound
	}
	return count, nil
}

func (r *WindowRepository) Create(ctx context.Context, w *ratelimit.Window) error {
	ttl := w.WindowType.Duration() + r.retention
	created, err := r.client.SetNX(ctx, windowKey(w.APIKeyID, w.WindowStart, w.WindowType), w.RequestCount, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis error creating %s window: %w", w.WindowType, err)
	}
	if !created {
		return ratelimit.ErrWindowExists
	}
	return nil
}

// DeleteOlderThan removes windows whose start precedes cutoff. Keys also carry a
// TTL, so this mostly catches windows written with a longer retention.
func (r *WindowRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	iter := r.client.Scan(ctx, 0, windowKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		idx := strings.LastIndexByte(key, ':')
		if idx < 0 {
			continue
		}
		startUnix, err := strconv.ParseInt(key[idx+1:], 10, 64)
		if err != nil {
			r.logger.Warn("Skipping malformed rate limit window key", zap.String("key", key))
			continue
		}
		if !time.Unix(startUnix, 0).Before(cutoff) {
			continue
		}
		n, err := r.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis error deleting window %s: %w", key, err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis error scanning windows: %w", err)
	}
	return deleted, nil
}
