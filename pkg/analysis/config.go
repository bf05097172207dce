package analysis

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls which metrics are computed and how long each may run.
type Config struct {
	Damping   float64
	Tolerance float64

	PageRankTimeout    time.Duration
	BetweennessTimeout time.Duration

	// SkipBetweenness leaves betweenness at zero. SkipReason explains why.
	SkipBetweenness bool
	SkipReason      string

	// MaxBetweennessNodes skips betweenness above this many nodes. Zero
	// means no limit.
	MaxBetweennessNodes int
}

// DefaultConfig returns the standard damping, tolerance and timeouts.
func DefaultConfig() Config {
	return ApplyEnvOverrides(Config{
		Damping:             0.85,
		Tolerance:           1e-6,
		PageRankTimeout:     2 * time.Second,
		BetweennessTimeout:  2 * time.Second,
		MaxBetweennessNodes: 5000,
	})
}

// ConfigForSize returns a configuration suited to the graph size.
// Betweenness is O(V*E), so it gets less time as graphs grow and is skipped
// for large dense graphs.
//
// Size tiers:
//   - Small (<500 nodes): generous timeouts
//   - Medium (500-2000 nodes): standard timeouts
//   - Large (>2000 nodes): short timeouts, betweenness only when sparse
func ConfigForSize(nodeCount, edgeCount int) Config {
	density := 0.0
	if nodeCount > 1 {
		density = float64(edgeCount) / float64(nodeCount*(nodeCount-1))
	}

	cfg := Config{
		Damping:             0.85,
		Tolerance:           1e-6,
		MaxBetweennessNodes: 5000,
	}
	switch {
	case nodeCount < 500:
		cfg.PageRankTimeout = 2 * time.Second
		cfg.BetweennessTimeout = 2 * time.Second
	case nodeCount < 2000:
		cfg.PageRankTimeout = 500 * time.Millisecond
		cfg.BetweennessTimeout = time.Second
	default:
		cfg.PageRankTimeout = 300 * time.Millisecond
		cfg.BetweennessTimeout = 500 * time.Millisecond
		if density >= 0.01 {
			cfg.SkipBetweenness = true
			cfg.SkipReason = "graph too large and dense"
		}
	}
	return ApplyEnvOverrides(cfg)
}

func (c Config) skipReason(nodes int) string {
	if c.SkipReason != "" {
		return c.SkipReason
	}
	if c.MaxBetweennessNodes > 0 && nodes > c.MaxBetweennessNodes {
		return fmt.Sprintf("more than %d nodes", c.MaxBetweennessNodes)
	}
	return "disabled"
}

const (
	// EnvSkipBetweenness disables betweenness centrality.
	EnvSkipBetweenness = "THREATMAP_SKIP_BETWEENNESS"
	// EnvCentralityTimeoutSeconds overrides both timeouts when set (>0).
	EnvCentralityTimeoutSeconds = "THREATMAP_CENTRALITY_TIMEOUT_S"
)

// ApplyEnvOverrides applies environment-variable tunables to the config.
//
// Supported:
//   - THREATMAP_SKIP_BETWEENNESS=1: skip betweenness.
//   - THREATMAP_CENTRALITY_TIMEOUT_S=N: set both timeouts to N seconds (must be >0).
func ApplyEnvOverrides(cfg Config) Config {
	if envBool(EnvSkipBetweenness) {
		cfg.SkipBetweenness = true
		cfg.SkipReason = EnvSkipBetweenness + " set"
	}
	if seconds, ok := envPositiveInt(EnvCentralityTimeoutSeconds); ok {
		timeout := time.Duration(seconds) * time.Second
		cfg.PageRankTimeout = timeout
		cfg.BetweennessTimeout = timeout
	}
	return cfg
}

func envPositiveInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
