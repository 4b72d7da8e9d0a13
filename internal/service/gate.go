package service

import (
	"context"
	"errors"

	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"github.com/makkenzo/spendwise-api/internal/metrics"
	"go.uber.org/zap"
)

// Admission is what a protected route receives once the gate lets a request
// through. On a rate limit denial it is returned alongside the error so the
// quota can still be reported.
type Admission struct {
	Key   *apikey.APIKey
	Quota ratelimit.Quota
}

// Gate authenticates a request and then charges it against the key's windows.
type Gate struct {
	auth    *Authenticator
	limiter *RateLimiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewGate(auth *Authenticator, limiter *RateLimiter, m *metrics.Metrics, logger *zap.Logger) *Gate {
	return &Gate{
		auth:    auth,
		limiter: limiter,
		metrics: m,
		logger:  logger.Named("Gate"),
	}
}

func (g *Gate) Admit(ctx context.Context, credential string, scope apikey.Scope) (*Admission, error) {
	key, err := g.auth.Authenticate(ctx, credential, scope)
	if err != nil {
		g.metrics.RecordGateDecision(DenialCode(err))
		return nil, err
	}

	result := g.limiter.Check(ctx, key)
	admission := &Admission{Key: key, Quota: result.Info}
	if !result.Allowed {
		g.metrics.RecordGateDecision(DenialCode(ierr.ErrRateLimitExceeded))
		return admission, ierr.ErrRateLimitExceeded
	}

	g.metrics.RecordGateDecision("allowed")
	return admission, nil
}

// DenialCode names a gate denial for logs and metrics.
func DenialCode(err error) string {
	switch {
	case errors.Is(err, ierr.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ierr.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, ierr.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ierr.ErrKeyDisabled):
		return "key_disabled"
	case errors.Is(err, ierr.ErrKeyExpired):
		return "key_expired"
	case errors.Is(err, ierr.ErrInsufficientScope):
		return "insufficient_scope"
	case errors.Is(err, ierr.ErrRateLimitExceeded):
		return "rate_limit_exceeded"
	default:
		return "error"
	}
}
