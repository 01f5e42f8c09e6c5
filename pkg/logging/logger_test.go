package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZapLoggerLevels(t *testing.T) {
	for _, level := range []string{"DEBUG", "info", "WARN", "error", "FATAL", "bogus"} {
		logger, err := NewZapLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestWithFieldReturnsNewLogger(t *testing.T) {
	base := NewNop()
	child := base.WithField("component", "test")
	assert.NotNil(t, child)
	assert.NotSame(t, base, child)

	grandchild := child.WithFields(map[string]interface{}{"a": 1, "b": 2})
	assert.NotNil(t, grandchild)
}
