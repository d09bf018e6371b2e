package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log
	log = newLogger(&buf)
	t.Cleanup(func() { log = prev })
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestFromContext_CarriesTraceID(t *testing.T) {
	buf := capture(t)

	ctx := WithTraceID(context.Background(), "trace-123")
	FromContext(ctx).Info("scored")

	entry := decode(t, buf)
	assert.Equal(t, "scored", entry["message"])
	assert.Equal(t, "trace-123", entry["trace_id"])
}

func TestFromContext_WithoutTraceID(t *testing.T) {
	buf := capture(t)

	FromContext(context.Background()).Info("plain")

	entry := decode(t, buf)
	assert.NotContains(t, entry, "trace_id")
	assert.Empty(t, TraceIDFromContext(nil))
}

func TestWithEvent(t *testing.T) {
	buf := capture(t)

	WithEvent("evt-9").Warn("low prediction")

	entry := decode(t, buf)
	assert.Equal(t, "evt-9", entry["event_id"])
	assert.Equal(t, "warning", entry["level"])
}

func TestSetup(t *testing.T) {
	capture(t)

	tests := []struct {
		level string
		mode  string
		want  logrus.Level
		text  bool
	}{
		{"debug", "production", logrus.DebugLevel, false},
		{"warn", "development", logrus.WarnLevel, true},
		{"nonsense", "production", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.mode, func(t *testing.T) {
			Setup(tt.level, tt.mode)

			assert.Equal(t, tt.want, log.GetLevel())
			_, isText := log.Formatter.(*logrus.TextFormatter)
			assert.Equal(t, tt.text, isText)
		})
	}
}
