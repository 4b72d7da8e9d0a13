package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewZapLogger(t *testing.T) {
	l, err := NewZapLogger("debug", FormatJSON)
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewZapLogger("bogus", "")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = NewZapLogger("info", "xml")
	require.Error(t, err)
}
