package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexgraph/kernel/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	assert.Equal(t, 30*time.Second, cfg.Engine.QueryTimeout)
	assert.Equal(t, 1000, cfg.Engine.MaxQueuedQueries)
	assert.Equal(t, 1000, cfg.Engine.IndexBatchSize)
	assert.Equal(t, "flush-resize", cfg.Engine.MatrixSyncPolicy)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("CORTEXGRAPH_QUERY_TIMEOUT", "5s")
	t.Setenv("CORTEXGRAPH_MAX_QUEUED_QUERIES", "42")
	t.Setenv("CORTEXGRAPH_MATRIX_SYNC_POLICY", "nop")

	cfg := LoadFromEnv()
	assert.Equal(t, 5*time.Second, cfg.Engine.QueryTimeout)
	assert.Equal(t, 42, cfg.Engine.MaxQueuedQueries)
	assert.Equal(t, "nop", cfg.Engine.MatrixSyncPolicy)

	policy, err := cfg.SyncPolicy()
	require.NoError(t, err)
	assert.Equal(t, graph.SyncNOP, policy)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	dir := t.TempDir()
	path := filepath.Join(dir, "cortexgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  thread_pool_size: 4\n"), 0o644))

	require.NoError(t, LoadFile(path, cfg))
	assert.Equal(t, 4, cfg.Engine.ThreadPoolSize)
	// Untouched by the file, still the env/default value.
	assert.Equal(t, 1000, cfg.Engine.MaxQueuedQueries)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := LoadFromEnv()
	err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), cfg)
	assert.NoError(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Engine.MatrixSyncPolicy = "bogus"
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Engine.ThreadPoolSize = 0
	assert.Error(t, cfg.Validate())
}
