package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWritesFile(t *testing.T) {
	Dir = t.TempDir()
	t.Cleanup(func() { Dir = "logs" })

	log, err := InitLogger("test")
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()

	entries, err := os.ReadDir(Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "test_"))
}

func TestInitAuditLoggerAppends(t *testing.T) {
	Dir = t.TempDir()
	t.Cleanup(func() { Dir = "logs" })

	log, err := InitAuditLogger()
	require.NoError(t, err)
	log.Info("booking.proposed")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(Dir, "booking_audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"booking.proposed"`)
	assert.Contains(t, string(b), `"logger":"audit"`)
}
