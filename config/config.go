// Package config handles application configuration.
//
// Settings come from three layers, later ones winning:
//   - Network defaults (mainnet or testnet token, data directory)
//   - The claim.conf file in the data directory
//   - Command-line flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// StoreKind selects the signature store backend.
type StoreKind string

const (
	StoreKV       StoreKind = "kv"       // Badger under <datadir>/<network>/signatures
	StorePostgres StoreKind = "postgres" // PostgreSQL via claim.dsn
)

// Config holds the toolkit's runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Snapshot source
	Snapshot SnapshotConfig

	// Tree output
	Tree TreeConfig

	// Airdrop rules
	Airdrop AirdropConfig

	// Signature collection
	Claim ClaimConfig

	// Logging
	Log LogConfig
}

// SnapshotConfig holds state store scan settings.
type SnapshotConfig struct {
	DBPath   string `conf:"snapshot.db"`       // Directory holding the state store
	TokenID  string `conf:"snapshot.tokenid"`  // 8-byte hex token ID
	PageSize int    `conf:"snapshot.pagesize"` // Range query page size
}

// TreeConfig holds artifact output settings.
type TreeConfig struct {
	Output string `conf:"tree.output"` // Directory for tree artifacts
}

// AirdropConfig holds airdrop derivation settings. Amounts are LSK strings
// with up to 8 decimals.
type AirdropConfig struct {
	CutOff   string `conf:"airdrop.cutoff"`
	WhaleCap string `conf:"airdrop.whalecap"`
	Percent  uint64 `conf:"airdrop.percent"`
	Excluded string `conf:"airdrop.excluded"` // Path to excluded addresses file
}

// ClaimConfig holds signature collection settings.
type ClaimConfig struct {
	Tree        string    `conf:"claim.tree"`        // Detailed tree artifact
	AirdropTree string    `conf:"claim.airdroptree"` // Detailed airdrop tree artifact
	Store       StoreKind `conf:"claim.store"`
	DSN         string    `conf:"claim.dsn"` // PostgreSQL connection string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.claimtool
//	macOS:   ~/Library/Application Support/ClaimTool
//	Windows: %APPDATA%\ClaimTool
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claimtool"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "ClaimTool")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "ClaimTool")
		}
		return filepath.Join(home, "AppData", "Roaming", "ClaimTool")
	default:
		return filepath.Join(home, ".claimtool")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// OutputDir returns the tree artifact directory, defaulting to
// <datadir>/<network>/tree.
func (c *Config) OutputDir() string {
	if c.Tree.Output != "" {
		return c.Tree.Output
	}
	return filepath.Join(c.NetworkDataDir(), "tree")
}

// ExampleDir returns the example data directory.
func (c *Config) ExampleDir() string {
	return filepath.Join(c.NetworkDataDir(), "example")
}

// SignaturesDir returns the Badger signature store directory.
func (c *Config) SignaturesDir() string {
	return filepath.Join(c.NetworkDataDir(), "signatures")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "claim.conf")
}
