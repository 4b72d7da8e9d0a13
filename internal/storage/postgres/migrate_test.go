package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "001_api_access.sql", names[0])

	body, err := migrationFiles.ReadFile("migrations/" + names[0])
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "UNIQUE (api_key_id, window_start, window_type)"))
}
