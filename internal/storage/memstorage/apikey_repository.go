package memstorage

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
)

// APIKeyRepository is an in-process key store used by tests and local runs.
// FindErr and UpdateLastUsedErr simulate an unreachable store.
type APIKeyRepository struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*apikey.APIKey

	FindErr           error
	UpdateLastUsedErr error

	lookups atomic.Int64
}

var _ apikey.Repository = (*APIKeyRepository)(nil)

func NewAPIKeyRepository() *APIKeyRepository {
	return &APIKeyRepository{
		keys: make(map[uuid.UUID]*apikey.APIKey),
	}
}

// Lookups returns how many times FindByHashAndPrefix reached the store.
func (r *APIKeyRepository) Lookups() int64 {
	return r.lookups.Load()
}

func (r *APIKeyRepository) FindByHashAndPrefix(ctx context.Context, keyHash, keyPrefix string) (*apikey.APIKey, error) {
	r.lookups.Add(1)
	if r.FindErr != nil {
		return nil, r.FindErr
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, k := range r.keys {
		if k.KeyHash == keyHash && k.KeyPrefix == keyPrefix {
			keyCopy := *k
			return &keyCopy, nil
		}
	}
	return nil, apikey.ErrAPIKeyNotFound
}

func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.APIKey) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	keyCopy := *key
	r.keys[key.ID] = &keyCopy
	return key.ID, nil
}

func (r *APIKeyRepository) List(ctx context.Context) ([]*apikey.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]*apikey.APIKey, 0, len(r.keys))
	for _, k := range r.keys {
		keyCopy := *k
		keys = append(keys, &keyCopy)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID, lastUsed time.Time) error {
	if r.UpdateLastUsedErr != nil {
		return r.UpdateLastUsedErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if k, ok := r.keys[id]; ok {
		k.LastUsedAt = &lastUsed
	}
	return nil
}

// Get returns a copy of the stored key, or nil.
func (r *APIKeyRepository) Get(id uuid.UUID) *apikey.APIKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.keys[id]
	if !ok {
		return nil
	}
	keyCopy := *k
	return &keyCopy
}
