package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"api_key", "AIza-secret", "topic", "Loops", "dangling"})
	require.Len(t, out, 5)
	assert.Equal(t, "[REDACTED]", out[1])
	assert.Equal(t, "Loops", out[3])
	assert.Equal(t, "dangling", out[4])
}

func TestSanitizeKVsTruncatesDataURI(t *testing.T) {
	uri := "data:image/png;base64," + strings.Repeat("A", 200)
	out := sanitizeKVs([]interface{}{"image", uri})
	s, ok := out[1].(string)
	require.True(t, ok)
	assert.Less(t, len(s), len(uri))
	assert.Contains(t, s, "bytes")
}

func TestLoggerWritesRedactedFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.With("session", "s1").Warn("flow failed", "flow", "lesson", "token", "abc")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "lesson", fields["flow"])
	assert.Equal(t, "[REDACTED]", fields["token"])
	assert.Equal(t, "s1", fields["session"])
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "polytutor.log")
	l, err := New("prod", path)
	require.NoError(t, err)

	l.Info("started", "view", "lessons")
	l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("ignored", "k", "v")
}
