package apikey

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
)

type APIKey struct {
	ID                 uuid.UUID  `db:"id"`
	KeyHash            string     `db:"key_hash"`
	KeyPrefix          string     `db:"key_prefix"`
	Name               string     `db:"name"`
	Scopes             []string   `db:"scopes"`
	RateLimitPerMinute int        `db:"rate_limit_per_minute"`
	RateLimitPerDay    int        `db:"rate_limit_per_day"`
	IsActive           bool       `db:"is_active"`
	LastUsedAt         *time.Time `db:"last_used_at"`
	ExpiresAt          *time.Time `db:"expires_at"`
	CreatedAt          time.Time  `db:"created_at"`
}

// HasScope reports whether the key was issued with the given capability.
func (k *APIKey) HasScope(scope Scope) bool {
	return slices.Contains(k.Scopes, string(scope))
}

// IsExpired reports whether expires_at lies strictly before now.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

const (
	APIKeyLiteralPrefix = "spw_live_"
	APIKeyPrefixLength  = 12
	APIKeySecretLength  = 32

	DefaultRateLimitPerMinute = 60
	DefaultRateLimitPerDay    = 10000
)

var DefaultScopes = []string{string(ScopeRead), string(ScopeWrite)}
