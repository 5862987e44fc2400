package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewHonoursLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_ENCODING", "console")

	l, err := New("analyzer")
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zap.InfoLevel))
	require.True(t, l.Core().Enabled(zap.WarnLevel))
}

func TestNewDefaultsToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "bogus")

	l, err := New("")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zap.InfoLevel))
	require.False(t, l.Core().Enabled(zap.DebugLevel))
}
