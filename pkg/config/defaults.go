// Package config loads planact settings and holds their defaults

package config

import (
	"os"
	"path/filepath"
	"time"
)

// ===== Network =====

const (
	// DefaultGatewayHost binds the websocket gateway to loopback
	DefaultGatewayHost = "127.0.0.1"

	// DefaultGatewayPort is the standard port for the websocket gateway
	DefaultGatewayPort = 55003

	// DefaultLLMTimeoutSec bounds response headers from the model API
	DefaultLLMTimeoutSec = 60
)

// ===== Paths =====

// DefaultDataDir returns the data directory (<binary-dir>/data)
func DefaultDataDir() string {
	if d := os.Getenv("PLANACT_DATA_DIR"); d != "" {
		return d
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "data")
}

// DefaultMemoryDir returns where daily experience files live
func DefaultMemoryDir(dataDir string) string {
	return filepath.Join(dataDir, "memory")
}

// DefaultKVDir returns the badger directory for the tool cache
func DefaultKVDir(dataDir string) string {
	return filepath.Join(dataDir, "kv")
}

// ===== Agent =====

const (
	DefaultMaxSteps      = 10
	DefaultSameCallLimit = 3

	// Prompt size that triggers a warning
	DefaultContextTokens = 8192

	DefaultLanguage = "Japanese"
)

// ===== Tools =====

const (
	DefaultDifyUser = "abc"
	DefaultCacheTTL = 10 * time.Minute
)
