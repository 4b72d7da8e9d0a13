package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

// Repository is the key store. Lookups return inactive and expired keys too;
// the authenticator decides what to do with them.
type Repository interface {
	// FindByHashAndPrefix returns ErrAPIKeyNotFound when no key matches both.
	FindByHashAndPrefix(ctx context.Context, keyHash, keyPrefix string) (*APIKey, error)
	Create(ctx context.Context, key *APIKey) (uuid.UUID, error)
	List(ctx context.Context) ([]*APIKey, error)
	// UpdateLastUsed is best effort; callers log failures and move on.
	UpdateLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error
}
