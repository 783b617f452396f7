package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestStringToLevelNamedLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		level, err := StringToLevel(tt.value, zapcore.InfoLevel)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, level)
	}
}

func TestStringToLevelNumericLevels(t *testing.T) {
	t.Parallel()

	level, err := StringToLevel("3", zapcore.InfoLevel)
	require.NoError(t, err)
	assert.Equal(t, zapcore.Level(-3), level)
}

func TestStringToLevelInvalid(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"", "verbose", "-1", "0"} {
		_, err := StringToLevel(value, zapcore.InfoLevel)
		assert.Error(t, err, "value %q", value)
	}
}
