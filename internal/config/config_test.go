package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":9000\"\npendingStore: pebble\neditWindow: 5m\n"), 0o644))

	t.Setenv("COMU_PENDING_STORE", "memory")
	t.Setenv("COMU_TYPING_TTL", "10s")

	cfg := LoadFile(path)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.PendingStore)
	assert.Equal(t, 5*time.Minute, cfg.EditWindow)
	assert.Equal(t, 10*time.Second, cfg.TypingTTL)
	assert.Equal(t, "mongodb", cfg.DocumentStore)
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg := LoadFile(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Equal(t, 3*time.Minute, cfg.EditWindow)
	assert.Equal(t, 3*time.Second, cfg.TypingTTL)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitCSV(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitCSV(""))
}
