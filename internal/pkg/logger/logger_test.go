package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
		SetRedactPII(true)
	})
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]string {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]string
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestLog_RedactsEmailFields(t *testing.T) {
	buf := capture(t)

	Info("webhook reconciled", "email", "ada@example.com", "contact_name", "Ada")

	entry := lastEntry(t, buf)
	assert.Equal(t, "ad***@example.com", entry["email"])
	// contact_* fields are treated as PII wholesale
	assert.Equal(t, "***@***", entry["contact_name"])
	assert.Equal(t, "webhook reconciled", entry["msg"])
}

func TestLog_RedactsEmbeddedEmails(t *testing.T) {
	buf := capture(t)

	Error("delivery failed", "error", `duplicate key ada@example.com already exists`)

	entry := lastEntry(t, buf)
	assert.NotContains(t, entry["error"], "ada@example.com")
	assert.Contains(t, entry["error"], "ad***@example.com")
}

func TestLog_RedactionCanBeDisabled(t *testing.T) {
	buf := capture(t)
	SetRedactPII(false)

	Info("export", "email", "ada@example.com")

	entry := lastEntry(t, buf)
	assert.Equal(t, "ada@example.com", entry["email"])
}

func TestLog_LevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	Info("too quiet")
	Warn("loud enough")

	entry := lastEntry(t, buf)
	assert.Equal(t, "loud enough", entry["msg"])
	assert.NotContains(t, buf.String(), "too quiet")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}
