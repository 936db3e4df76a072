package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the m2d node configuration.
type Config struct {
	Node        Node        `toml:"node"`
	RPC         RPC         `toml:"rpc"`
	Log         Log         `toml:"log"`
	Marketplace Marketplace `toml:"marketplace"`
}

// Node holds storage and identity settings.
type Node struct {
	// DataDir is where the node keeps its database and keystore.
	DataDir string `toml:"data_dir"`
}

// RPC holds the JSON-RPC server settings.
type RPC struct {
	Listen string `toml:"listen"`
	// AuthToken, when set, is required as a bearer token on every request.
	AuthToken string `toml:"auth_token"`
	// MaxRequestsPerMinute throttles each remote address; zero disables.
	MaxRequestsPerMinute uint32 `toml:"max_requests_per_minute"`
}

// Log holds the structured-logging settings.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// Format is json or text.
	Format string `toml:"format"`
	// File, when set, routes output through a size-rotated log file.
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Marketplace holds engine-level operator settings.
type Marketplace struct {
	// Paused blocks new exposure (listings, bids, deposits, settlement)
	// while leaving cancels and withdrawals open.
	Paused bool `toml:"paused"`
}

// Default returns the configuration a fresh node starts from.
func Default() Config {
	return Config{
		Node: Node{DataDir: "./data"},
		RPC: RPC{
			Listen:               "127.0.0.1:8645",
			MaxRequestsPerMinute: 600,
		},
		Log: Log{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the TOML config at path. When the file does not exist, the
// default config is written there and returned, so a first run leaves an
// editable file behind.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return cfg, fmt.Errorf("config: write default: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
