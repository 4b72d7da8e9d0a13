package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAPIKey_Deterministic(t *testing.T) {
	key := "spw_live_0123456789abcdef0123456789abcdef"

	first := HashAPIKey(key)
	second := HashAPIKey(key)
	require.Equal(t, first, second)
	require.Len(t, first, 64)
	require.NotContains(t, first, key)

	require.NotEqual(t, first, HashAPIKey(key+"0"))
}

func TestAPIKeyPrefix(t *testing.T) {
	require.Equal(t, "spw_live_012", APIKeyPrefix("spw_live_0123456789"))
	require.Equal(t, "spw_", APIKeyPrefix("spw_"))
	require.Equal(t, APIKeyPrefix("spw_live_abc"), APIKeyPrefix("spw_live_abcdef"))
}

func TestHasValidFormat(t *testing.T) {
	cases := map[string]bool{
		"spw_live_abc":   true,
		"spw_live_":      false,
		"spw_test_abc":   false,
		"lm_abc_def":     false,
		"":               false,
		" spw_live_abc":  false,
		"SPW_LIVE_abcde": false,
	}
	for key, want := range cases {
		require.Equal(t, want, HasValidFormat(key), "key %q", key)
	}
}

func TestExtractAPIKey(t *testing.T) {
	require.Equal(t, "spw_live_a", ExtractAPIKey("Bearer spw_live_a", "spw_live_b"))
	require.Equal(t, "spw_live_b", ExtractAPIKey("", "spw_live_b"))
	require.Equal(t, "spw_live_b", ExtractAPIKey("Basic Zm9vOmJhcg==", "spw_live_b"))
	require.Equal(t, "", ExtractAPIKey("Bearer ", ""))
	require.Equal(t, "", ExtractAPIKey("", ""))
}

func TestGenerateAPIKey(t *testing.T) {
	fullKey, prefix, keyHash, err := GenerateAPIKey()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(fullKey, "spw_live_"))
	require.Len(t, fullKey, len("spw_live_")+32)
	require.True(t, HasValidFormat(fullKey))
	require.Equal(t, APIKeyPrefix(fullKey), prefix)
	require.Equal(t, HashAPIKey(fullKey), keyHash)

	other, _, otherHash, err := GenerateAPIKey()
	require.NoError(t, err)
	require.NotEqual(t, fullKey, other)
	require.NotEqual(t, keyHash, otherHash)
}
