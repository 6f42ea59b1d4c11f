package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatText, Output: &buf})

		logger.Info("test message", "key", "value")
		assert.Contains(t, buf.String(), "test message")
		assert.Contains(t, buf.String(), "key=value")
	})

	t.Run("json with service attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{
			Level:          LogLevelInfo,
			Format:         LogFormatJSON,
			Output:         &buf,
			ServiceName:    "tutora",
			ServiceVersion: "1.2.3",
		})

		logger.Info("test message", "key", "value")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "test message", entry["msg"])
		assert.Equal(t, "value", entry["key"])
		assert.Equal(t, "tutora", entry["service"])
		assert.Equal(t, "1.2.3", entry["version"])
	})

	t.Run("pretty without terminal has no color codes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatPretty, Output: &buf})

		logger.Error("charge failed", Err(errors.New("declined")))
		out := buf.String()
		assert.Contains(t, out, "charge failed")
		assert.Contains(t, out, "declined")
		assert.NotContains(t, out, "\x1b[")
	})

	t.Run("respects level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelWarn, Format: LogFormatText, Output: &buf})

		logger.Info("hidden")
		logger.Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestLogger_AddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: LogFormatJSON, Output: &buf})

	ctx := WithUserID(WithCorrelationID(context.Background(), "corr-1"), "u1")
	logger.InfoContext(ctx, "status checked")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "corr-1", entry[CorrelationIDKey])
	assert.Equal(t, "u1", entry[UserIDKey])
}

func TestLogConfigFor(t *testing.T) {
	dev := LogConfigFor("development", "", "")
	assert.Equal(t, LogFormatPretty, dev.Format)
	assert.Equal(t, LogLevelInfo, dev.Level)

	prod := LogConfigFor("production", "debug", "")
	assert.Equal(t, LogFormatJSON, prod.Format)
	assert.Equal(t, LogLevelDebug, prod.Level)

	override := LogConfigFor("production", "", "text")
	assert.Equal(t, LogFormatText, override.Format)
}

func TestWithCorrelationID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "")
	assert.Len(t, CorrelationIDFromContext(ctx), 36)
	assert.Equal(t, "", UserIDFromContext(context.Background()))
}
