package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Config{ServiceName: "test", HMACKey: "k"})

	l.Info(EventGeneral, "hello", Fields("token", "abc", "user_id", "u1"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "[REDACTED]", entries[0].Details["token"])
	assert.Equal(t, "u1", entries[0].Details["user_id"])
	assert.Equal(t, "test", entries[0].Service)
	assert.Equal(t, LevelInfo, entries[0].Level)
}

func TestLoggerMasksEmails(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Config{ServiceName: "test"})

	l.Warn(EventGeneral, "reminder for jane.doe@example.com", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "reminder for ja***@example.com", entries[0].Message)
}

func TestLoggerStripsStackTracesInProduction(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Config{ServiceName: "test", Environment: "production"})

	l.Error(EventGeneral, "boom\ngoroutine 1 [running]:\n\truntime/debug.Stack()", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].Message)
}

func TestVerifyDetectsTampering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, Config{ServiceName: "test", HMACKey: "secret-key"})

	l.Security(EventAccessDenied, "denied", Fields("ip", "10.0.0.1"))
	line := bytes.TrimSpace(buf.Bytes())
	assert.True(t, l.Verify(line))

	tampered := bytes.Replace(line, []byte(`"denied"`), []byte(`"allowed"`), 1)
	assert.False(t, l.Verify(tampered))

	other := NewWithWriter(&bytes.Buffer{}, Config{ServiceName: "test", HMACKey: "other-key"})
	assert.False(t, other.Verify(line))
}

func TestFieldsSkipsNonStringKeys(t *testing.T) {
	f := Fields("a", 1, 2, "b", "dangling")
	assert.Equal(t, map[string]interface{}{"a": 1}, f)
}

func TestSetOutputRestoresPrevious(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf, Config{ServiceName: "swap"})
	Info(EventGeneral, "captured", nil)
	restore()

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "swap", entries[0].Service)
}
