package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
	"github.com/makkenzo/spendwise-api/internal/domain/ratelimit"
)

type CreateAPIKeyRequest struct {
	Name               string     `json:"name" binding:"required,max=100"`
	Scopes             []string   `json:"scopes,omitempty" binding:"omitempty,dive,oneof=read write"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute,omitempty" binding:"omitempty,gt=0"`
	RateLimitPerDay    int        `json:"rate_limit_per_day,omitempty" binding:"omitempty,gt=0"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

type APIKeyResponse struct {
	ID                 uuid.UUID  `json:"id"`
	KeyPrefix          string     `json:"key_prefix"`
	Name               string     `json:"name"`
	Scopes             []string   `json:"scopes"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	RateLimitPerDay    int        `json:"rate_limit_per_day"`
	IsActive           bool       `json:"is_active"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type CreateAPIKeyResponse struct {
	APIKeyResponse
	FullKey string `json:"full_key"`
}

type QuotaResponse struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

type CurrentKeyResponse struct {
	Key   *APIKeyResponse `json:"key"`
	Quota QuotaResponse   `json:"quota"`
}

func NewAPIKeyResponse(key *apikey.APIKey) *APIKeyResponse {
	return &APIKeyResponse{
		ID:                 key.ID,
		KeyPrefix:          key.KeyPrefix,
		Name:               key.Name,
		Scopes:             key.Scopes,
		RateLimitPerMinute: key.RateLimitPerMinute,
		RateLimitPerDay:    key.RateLimitPerDay,
		IsActive:           key.IsActive,
		LastUsedAt:         key.LastUsedAt,
		ExpiresAt:          key.ExpiresAt,
		CreatedAt:          key.CreatedAt,
	}
}

func NewQuotaResponse(q ratelimit.Quota) QuotaResponse {
	return QuotaResponse{Limit: q.Limit, Remaining: q.Remaining, Reset: q.Reset}
}
