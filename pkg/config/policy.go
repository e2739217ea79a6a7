package config

import (
	"fmt"
	"strings"

	"github.com/cortexgraph/kernel/pkg/graph"
)

// SyncPolicy resolves the configured matrix sync policy string into the
// pkg/graph enum, for callers wiring a freshly loaded Config into a Graph.
func (c *Config) SyncPolicy() (graph.SyncPolicy, error) {
	switch strings.ToLower(c.Engine.MatrixSyncPolicy) {
	case "nop":
		return graph.SyncNOP, nil
	case "resize":
		return graph.SyncResize, nil
	case "flush-resize", "":
		return graph.SyncFlushResize, nil
	default:
		return 0, fmt.Errorf("config: unknown matrix sync policy %q", c.Engine.MatrixSyncPolicy)
	}
}
