package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/makkenzo/spendwise-api/internal/domain/apikey"
)

const bearerPrefix = "Bearer "

func generateRandomHex(length int) (string, error) {
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:length], nil
}

// GenerateAPIKey issues a new secret together with the values that are stored
// for it. The secret itself must only ever be shown to the requester once.
func GenerateAPIKey() (fullKey string, prefix string, keyHash string, err error) {
	secret, err := generateRandomHex(apikey.APIKeySecretLength)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate secret: %w", err)
	}

	fullKey = apikey.APIKeyLiteralPrefix + secret
	return fullKey, APIKeyPrefix(fullKey), HashAPIKey(fullKey), nil
}

func HashAPIKey(fullKey string) string {
	hashBytes := sha256.Sum256([]byte(fullKey))
	return hex.EncodeToString(hashBytes[:])
}

// APIKeyPrefix returns the non-secret lookup prefix of a presented key.
func APIKeyPrefix(fullKey string) string {
	if len(fullKey) <= apikey.APIKeyPrefixLength {
		return fullKey
	}
	return fullKey[:apikey.APIKeyPrefixLength]
}

func HasValidFormat(fullKey string) bool {
	return strings.HasPrefix(fullKey, apikey.APIKeyLiteralPrefix) && len(fullKey) > len(apikey.APIKeyLiteralPrefix)
}

// ExtractAPIKey picks the credential from a bearer Authorization header, falling
// back to the X-API-Key header value.
func ExtractAPIKey(authorization, xAPIKey string) string {
	if strings.HasPrefix(authorization, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	}
	return strings.TrimSpace(xAPIKey)
}
