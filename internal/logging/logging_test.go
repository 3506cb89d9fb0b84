package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewRespectsDebugFlag(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown", zap.String("id", "233393"))
	_ = logger.Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"id": "233393"`)

	buf.Reset()
	logger = New(&buf, true)
	logger.Debug("visible")
	_ = logger.Sync()
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "visible")
}
