package service

import (
	"context"
	"fmt"
	"time"

	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"github.com/makkenzo/spendwise-api/internal/util"
	"go.uber.org/zap"
)

// IssueParams describes a key to issue. Zero limits fall back to the service
// defaults, an empty scope list to read+write.
type IssueParams struct {
	Name               string
	Scopes             []string
	RateLimitPerMinute int
	RateLimitPerDay    int
	ExpiresAt          *time.Time
}

type APIKeyService struct {
	repo             apikey.Repository
	defaultPerMinute int
	defaultPerDay    int
	logger           *zap.Logger
}

func NewAPIKeyService(repo apikey.Repository, defaultPerMinute, defaultPerDay int, logger *zap.Logger) *APIKeyService {
	if defaultPerMinute <= 0 {
		defaultPerMinute = apikey.DefaultRateLimitPerMinute
	}
	if defaultPerDay <= 0 {
		defaultPerDay = apikey.DefaultRateLimitPerDay
	}
	return &APIKeyService{
		repo:             repo,
		defaultPerMinute: defaultPerMinute,
		defaultPerDay:    defaultPerDay,
		logger:           logger.Named("APIKeyService"),
	}
}

func (s *APIKeyService) CreateAPIKey(ctx context.Context, params IssueParams) (*dto.CreateAPIKeyResponse, error) {
	s.logger.Info("Generating new API key", zap.String("name", params.Name))

	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ierr.ErrValidation)
	}
	for _, scope := range params.Scopes {
		if scope != string(apikey.ScopeRead) && scope != string(apikey.ScopeWrite) {
			return nil, fmt.Errorf("%w: unknown scope %q", ierr.ErrValidation, scope)
		}
	}

	fullKey, prefix, keyHash, err := util.GenerateAPIKey()
	if err != nil {
		s.logger.Error("Failed to generate api key components", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating key: %v", ierr.ErrInternalServer, err)
	}

	newKey := &apikey.APIKey{
		KeyHash:            keyHash,
		KeyPrefix:          prefix,
		Name:               params.Name,
		Scopes:             params.Scopes,
		RateLimitPerMinute: params.RateLimitPerMinute,
		RateLimitPerDay:    params.RateLimitPerDay,
		IsActive:           true,
		ExpiresAt:          params.ExpiresAt,
	}
	if len(newKey.Scopes) == 0 {
		newKey.Scopes = append([]string(nil), apikey.DefaultScopes...)
	}
	if newKey.RateLimitPerMinute <= 0 {
		newKey.RateLimitPerMinute = s.defaultPerMinute
	}
	if newKey.RateLimitPerDay <= 0 {
		newKey.RateLimitPerDay = s.defaultPerDay
	}

	insertedID, err := s.repo.Create(ctx, newKey)
	if err != nil {
		s.logger.Error("Failed to save new api key", zap.Error(err))
		return nil, fmt.Errorf("repository error creating api key: %w", err)
	}
	newKey.ID = insertedID

	s.logger.Info("API key created successfully", zap.String("id", insertedID.String()), zap.String("prefix", prefix))

	return &dto.CreateAPIKeyResponse{
		APIKeyResponse: *dto.NewAPIKeyResponse(newKey),
		FullKey:        fullKey,
	}, nil
}

func (s *APIKeyService) ListAPIKeys(ctx context.Context) ([]*dto.APIKeyResponse, error) {
	s.logger.Debug("Listing API keys")
	keys, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list api keys from repository", zap.Error(err))
		return nil, fmt.Errorf("repository error listing api keys: %w", err)
	}

	responses := make([]*dto.APIKeyResponse, len(keys))
	for i, key := range keys {
		responses[i] = dto.NewAPIKeyResponse(key)
	}
	s.logger.Info("API keys listed successfully", zap.Int("count", len(responses)))
	return responses, nil
}
