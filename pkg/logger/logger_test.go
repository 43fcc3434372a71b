package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLoggerBeforeInitialize(t *testing.T) {
	log = nil

	assert.NotNil(t, Logger())
	assert.NoError(t, Sync())
}

func TestInitialize(t *testing.T) {
	t.Cleanup(func() { log = nil })

	assert.Error(t, Initialize("loud"))

	assert.NoError(t, Initialize("debug"))
	assert.True(t, Logger().Core().Enabled(zapcore.DebugLevel))
}
