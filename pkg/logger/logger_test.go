package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_BuildsForBothEnvironments(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		log, err := New("debug", env)
		require.NoError(t, err)
		require.NotNil(t, log)
		assert.NotNil(t, log.Zap())
		assert.True(t, log.Zap().Core().Enabled(zapcore.DebugLevel))
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New("loud", "production")
	require.NoError(t, err)

	assert.True(t, log.Zap().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Zap().Core().Enabled(zapcore.DebugLevel))
}

func TestWith_AttachesFields(t *testing.T) {
	log, err := New("info", "production")
	require.NoError(t, err)

	child := log.With("component", "test")
	assert.NotNil(t, child)
	assert.NotSame(t, log, child)
}
