package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_Development(t *testing.T) {
	logger := NewLogger("development")
	require.NotNil(t, logger)

	logger.Info("test message")
}

func TestNewLogger_Production(t *testing.T) {
	logger := NewLogger("production")
	require.NotNil(t, logger)

	logger.Info("test message")
}

func TestNewLogger_WithLogLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "warn")
	defer os.Unsetenv("LOG_LEVEL")

	logger := NewLogger("development")
	require.NotNil(t, logger)
}

func TestNewLogger_WithInvalidLogLevel(t *testing.T) {
	// 無効なLOG_LEVELでもデフォルト設定で動作する
	os.Setenv("LOG_LEVEL", "loudest")
	defer os.Unsetenv("LOG_LEVEL")

	logger := NewLogger("development")
	require.NotNil(t, logger)
}

func TestSetAndGet(t *testing.T) {
	original := Get()
	defer Set(original)

	nop := zap.NewNop()
	Set(nop)

	assert.Equal(t, nop, Get())
}

func TestPackageLevelFuncs(t *testing.T) {
	original := Get()
	defer Set(original)
	Set(zap.NewNop())

	assert.NotPanics(t, func() {
		Debug("debug message")
		Info("info message", zap.String("departure_id", "dep-1"))
		Warn("warn message", zap.Int("pax", 2))
		Error("error message", zap.Error(assert.AnError))
		_ = Sync()
	})
}

func TestWith(t *testing.T) {
	logger := With(zap.String("component", "ledger"))
	require.NotNil(t, logger)
}
