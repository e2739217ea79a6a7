// Package config loads the engine's runtime knobs from environment
// variables first, then overlays an optional YAML file on top, matching the
// teacher's config-loading shape (environment-first, struct-field
// documented, a Validate method called once at startup).
//
// Environment Variables:
//
//	CORTEXGRAPH_QUERY_TIMEOUT=30s
//	CORTEXGRAPH_MAX_QUEUED_QUERIES=1000
//	CORTEXGRAPH_THREAD_POOL_SIZE=8
//	CORTEXGRAPH_MATRIX_SYNC_POLICY=flush-resize
//	CORTEXGRAPH_INDEX_BATCH_SIZE=1000
//	CORTEXGRAPH_LOG_LEVEL=INFO
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every engine knob spec.md §6 names.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig controls query scheduling and storage sync behavior.
type EngineConfig struct {
	// QueryTimeout bounds how long a single plan may run before its root
	// consume loop is cancelled.
	QueryTimeout time.Duration `yaml:"query_timeout"`
	// MaxQueuedQueries bounds the host's query queue depth.
	MaxQueuedQueries int `yaml:"max_queued_queries"`
	// ThreadPoolSize is the number of worker goroutines executing queued
	// plans concurrently. Defaults to GOMAXPROCS.
	ThreadPoolSize int `yaml:"thread_pool_size"`
	// MatrixSyncPolicy is one of "nop", "resize", "flush-resize"
	// (pkg/graph.SyncPolicy, spec §3).
	MatrixSyncPolicy string `yaml:"matrix_sync_policy"`
	// IndexBatchSize is the default batch size new index populators use
	// (pkg/index.DefaultBatchSize, spec §4.5).
	IndexBatchSize int `yaml:"index_batch_size"`
}

// LoggingConfig controls the engine's plain log.Logger output.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `yaml:"level"`
	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output"`
}

// LoadFromEnv returns a Config populated from environment variables, using
// sensible defaults where a variable is unset.
func LoadFromEnv() *Config {
	cfg := &Config{}
	cfg.Engine.QueryTimeout = getEnvDuration("CORTEXGRAPH_QUERY_TIMEOUT", 30*time.Second)
	cfg.Engine.MaxQueuedQueries = getEnvInt("CORTEXGRAPH_MAX_QUEUED_QUERIES", 1000)
	cfg.Engine.ThreadPoolSize = getEnvInt("CORTEXGRAPH_THREAD_POOL_SIZE", runtime.GOMAXPROCS(0))
	cfg.Engine.MatrixSyncPolicy = getEnv("CORTEXGRAPH_MATRIX_SYNC_POLICY", "flush-resize")
	cfg.Engine.IndexBatchSize = getEnvInt("CORTEXGRAPH_INDEX_BATCH_SIZE", 1000)

	cfg.Logging.Level = getEnv("CORTEXGRAPH_LOG_LEVEL", "INFO")
	cfg.Logging.Output = getEnv("CORTEXGRAPH_LOG_OUTPUT", "stderr")
	return cfg
}

// LoadFile overlays path's YAML content onto cfg. Fields absent from the
// file keep whatever LoadFromEnv already set. A missing file is not an
// error — YAML is optional, environment variables alone are sufficient
// (teacher: "no config files (environment-only by design)" taken one step
// further here since the spec calls for an optional file on top).
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.Engine.QueryTimeout <= 0 {
		return fmt.Errorf("config: query timeout must be positive, got %s", c.Engine.QueryTimeout)
	}
	if c.Engine.MaxQueuedQueries <= 0 {
		return fmt.Errorf("config: max queued queries must be positive, got %d", c.Engine.MaxQueuedQueries)
	}
	if c.Engine.ThreadPoolSize <= 0 {
		return fmt.Errorf("config: thread pool size must be positive, got %d", c.Engine.ThreadPoolSize)
	}
	if c.Engine.IndexBatchSize <= 0 {
		return fmt.Errorf("config: index batch size must be positive, got %d", c.Engine.IndexBatchSize)
	}
	switch strings.ToLower(c.Engine.MatrixSyncPolicy) {
	case "nop", "resize", "flush-resize":
	default:
		return fmt.Errorf("config: unknown matrix sync policy %q", c.Engine.MatrixSyncPolicy)
	}
	return nil
}

// String returns a log-safe summary of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{QueryTimeout: %s, MaxQueuedQueries: %d, ThreadPoolSize: %d, MatrixSyncPolicy: %s, IndexBatchSize: %d}",
		c.Engine.QueryTimeout, c.Engine.MaxQueuedQueries, c.Engine.ThreadPoolSize,
		c.Engine.MatrixSyncPolicy, c.Engine.IndexBatchSize,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
