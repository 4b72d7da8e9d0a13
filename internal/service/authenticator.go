package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"github.com/makkenzo/spendwise-api/internal/util"
	"go.uber.org/zap"
)

const lastUsedUpdateTimeout = 5 * time.Second

// Authenticator validates presented API keys against the key store. Every
// denial is returned as one of the ierr API key sentinels.
type Authenticator struct {
	repo    apikey.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewAuthenticator(repo apikey.Repository, m *metrics.Metrics, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		repo:    repo,
		metrics: m,
		logger:  logger.Named("Authenticator"),
		now:     time.Now,
	}
}

// WithClock replaces the time source used for expiry checks.
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// Authenticate resolves credential to an active key holding requiredScope.
// An empty requiredScope skips the scope check.
func (a *Authenticator) Authenticate(ctx context.Context, credential string, requiredScope apikey.Scope) (*apikey.APIKey, error) {
	if credential == "" {
		a.logger.Debug("API key is missing")
		return nil, ierr.ErrMissingCredential
	}

	if !util.HasValidFormat(credential) {
		a.logger.Debug("Invalid API key format received")
		return nil, ierr.ErrInvalidFormat
	}

	keyHash := util.HashAPIKey(credential)
	prefix := util.APIKeyPrefix(credential)

	key, err := a.repo.FindByHashAndPrefix(ctx, keyHash, prefix)
	if err != nil {
		if errors.Is(err, apikey.ErrAPIKeyNotFound) {
			a.logger.Warn("API key not found", zap.String("prefix", prefix))
		} else {
			a.logger.Error("Failed to query API key repository, denying", zap.String("prefix", prefix), zap.Error(err))
		}
		return nil, ierr.ErrInvalidCredential
	}

	if subtle.ConstantTimeCompare([]byte(keyHash), []byte(key.KeyHash)) != 1 {
		a.logger.Warn("API key hash mismatch", zap.String("prefix", prefix), zap.String("key_id", key.ID.String()))
		return nil, ierr.ErrInvalidCredential
	}

	if !key.IsActive {
		a.logger.Info("Disabled API key presented", zap.String("key_id", key.ID.String()))
		return nil, ierr.ErrKeyDisabled
	}

	now := a.now()
	if key.IsExpired(now) {
		a.logger.Info("Expired API key presented", zap.String("key_id", key.ID.String()), zap.Timep("expires_at", key.ExpiresAt))
		return nil, ierr.ErrKeyExpired
	}

	if requiredScope != "" && !key.HasScope(requiredScope) {
		a.logger.Info("API key lacks required scope",
			zap.String("key_id", key.ID.String()),
			zap.String("required_scope", string(requiredScope)),
			zap.Strings("scopes", key.Scopes),
		)
		return nil, &ierr.ScopeError{Scope: string(requiredScope)}
	}

	go a.touchLastUsed(key.ID, now.UTC())

	a.logger.Debug("API key validated successfully", zap.String("prefix", prefix), zap.String("key_id", key.ID.String()))
	return key, nil
}

func (a *Authenticator) touchLastUsed(id uuid.UUID, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), lastUsedUpdateTimeout)
	defer cancel()

	if err := a.repo.UpdateLastUsed(ctx, id, at); err != nil {
		a.metrics.RecordLastUsedFailure()
		a.logger.Error("Failed to update API key last used time asynchronously", zap.String("key_id", id.String()), zap.Error(err))
	}
}
