package server

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds server_init's parameters (spec.md §6) plus the ambient
// settings a real deployment needs: listen address, document root, and
// optional CPU affinity for the worker pool.
type Config struct {
	NumThreads   int    `toml:"num_threads"`
	MaxRequests  int    `toml:"max_requests"`
	MaxCacheSize int    `toml:"max_cache_size"`
	ListenAddr   string `toml:"listen_addr"`
	DocRoot      string `toml:"doc_root"`
	CPUAffinity  []int  `toml:"cpu_affinity"`
}

// DefaultConfig returns conservative defaults, matching the teacher's
// DefaultConfig-per-subsystem pattern.
func DefaultConfig() Config {
	return Config{
		NumThreads:   4,
		MaxRequests:  16,
		MaxCacheSize: 64 * 1024 * 1024,
		ListenAddr:   ":8080",
		DocRoot:      ".",
	}
}

// Validate rejects configurations that would violate spec.md §3/§4's
// invariants (positive thread count, positive bounded-queue capacity).
func (c Config) Validate() error {
	if c.NumThreads <= 0 {
		return NewError("Validate", ErrCodeInvalidConfig, "num_threads must be positive")
	}
	if c.MaxRequests <= 0 {
		return NewError("Validate", ErrCodeInvalidConfig, "max_requests must be positive")
	}
	if c.MaxCacheSize < 0 {
		return NewError("Validate", ErrCodeInvalidConfig, "max_cache_size must be non-negative")
	}
	return nil
}

// LoadConfig reads a TOML file via BurntSushi/toml and overlays its
// fields onto DefaultConfig(), the way the teacher's CLI layers argv
// over compiled-in defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("server: loading config %s: %w", path, err)
	}
	return cfg, nil
}
