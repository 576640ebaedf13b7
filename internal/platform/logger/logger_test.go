package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeValue(t *testing.T) {
	assert.Equal(t, "[REDACTED]", sanitizeValue("store_dsn", "postgres://u:p@h/db"))
	assert.Equal(t, 3, sanitizeValue("steps", 3))

	hashed, ok := sanitizeValue("session_id", "abc").(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(hashed, "hash:"))
	assert.Len(t, hashed, len("hash:")+12)
	assert.Equal(t, hashed, sanitizeValue("session_id", "abc"))
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"test", "development", "production"} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		l.With("component", "logger_test").Debug("hello", "session_id", "s-1")
	}
}
