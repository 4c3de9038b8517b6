package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseLogLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.Info("event delivered")

	entry := parseLogLine(t, &buf)
	assert.Equal(t, "event delivered", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("suppressed")
	assert.Zero(t, buf.Len())

	logger.Warn("emitted")
	assert.NotZero(t, buf.Len())
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	logger.WithField("tier", "rpc").
		WithField("event_type", "download").
		Error("delivery failed")

	entry := parseLogLine(t, &buf)
	assert.Equal(t, "rpc", entry["tier"])
	assert.Equal(t, "download", entry["event_type"])
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(assert.AnError).Warn("tier failed")

	entry := parseLogLine(t, &buf)
	assert.Equal(t, assert.AnError.Error(), entry["error"])

	// nil errors add nothing
	assert.Same(t, logger, logger.WithError(nil))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warn"))
	assert.Equal(t, ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, InfoLevel, ParseLogLevel(""))
	assert.Equal(t, InfoLevel, ParseLogLevel("bogus"))
}

func TestSessionIDContext(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess-7")
	assert.Equal(t, "sess-7", GetSessionID(ctx))
	assert.Empty(t, GetSessionID(context.Background()))
}

func TestFromContextCarriesSessionID(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), base)
	ctx = WithSessionID(ctx, "sess-42")

	FromContext(ctx).Info("tracked")

	entry := parseLogLine(t, &buf)
	assert.Equal(t, "sess-42", entry["session_id"])
}
