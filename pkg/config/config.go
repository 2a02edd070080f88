// Package config loads the process configuration a deployment would
// tune the engine with: page size, bucket capacity, log buffer size
// and flush timeout, whether strict 2PL is enforced, and whether the
// lock manager runs Wait-Die deadlock avoidance. A .env file can seed
// the process environment before it's read, via
// github.com/joho/godotenv.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the tunables a deployment can set.
type Config struct {
	PageSize       int           // bytes per buffer-pool frame
	BucketSize     int           // extendible hash bucket capacity
	LogBufferSize  int           // WAL in-memory buffer capacity, bytes
	LogTimeout     time.Duration // WAL background flush interval
	Strict2PL      bool          // lock manager: reject Unlock for GROWING txns
	LogPath        string        // WAL file path
	WaitDieEnabled bool          // lock manager: Wait-Die deadlock avoidance vs. plain blocking
}

// Default returns the engine's out-of-the-box configuration: 4096-byte
// pages, non-strict 2PL, Wait-Die enabled.
func Default() *Config {
	return &Config{
		PageSize:       4096,
		BucketSize:     64,
		LogBufferSize:  4096 * 16,
		LogTimeout:     3 * time.Second,
		Strict2PL:      false,
		LogPath:        "storagecore.wal",
		WaitDieEnabled: true,
	}
}

// Load reads configuration from the process environment, optionally
// seeded from a .env file at envPath (a missing file is not an error —
// it just means nothing gets seeded).
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := Default()

	if v := os.Getenv("STORAGECORE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
	if v := os.Getenv("STORAGECORE_BUCKET_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BucketSize = n
		}
	}
	if v := os.Getenv("STORAGECORE_LOG_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LogBufferSize = n
		}
	}
	if v := os.Getenv("STORAGECORE_LOG_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LogTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("STORAGECORE_STRICT_2PL"); v != "" {
		cfg.Strict2PL = v == "1" || v == "true"
	}
	if v := os.Getenv("STORAGECORE_LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv("STORAGECORE_WAIT_DIE_ENABLED"); v != "" {
		cfg.WaitDieEnabled = v == "1" || v == "true"
	}

	return cfg, nil
}
