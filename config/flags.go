package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Flags holds parsed global command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Snapshot
	DBPath   string
	TokenID  string
	PageSize int

	// Output
	Output string

	// Claim
	Tree        string
	AirdropTree string
	Store       string
	DSN         string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args: the subcommand and its flags.
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetLogJSON bool
}

// ParseFlags parses global flags from args. Parsing stops at the first
// non-flag argument, which starts the subcommand.
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("claimtool", flag.ContinueOnError)
	fs.SetOutput(output)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	testnet := fs.Bool("testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Snapshot
	fs.StringVar(&f.DBPath, "db", "", "State store directory")
	fs.StringVar(&f.TokenID, "token-id", "", "Token ID to snapshot (8-byte hex)")
	fs.IntVar(&f.PageSize, "page-size", 0, "Range query page size")

	// Output
	fs.StringVar(&f.Output, "output", "", "Tree artifact output directory")

	// Claim
	fs.StringVar(&f.Tree, "tree", "", "Detailed tree artifact for claim queries")
	fs.StringVar(&f.AirdropTree, "airdrop-tree", "", "Detailed airdrop tree artifact")
	fs.StringVar(&f.Store, "store", "", "Signature store: kv or postgres")
	fs.StringVar(&f.DSN, "dsn", "", "PostgreSQL connection string")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		PrintUsage(output)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *testnet {
		f.Network = string(Testnet)
	}
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Snapshot
	if f.DBPath != "" {
		cfg.Snapshot.DBPath = f.DBPath
	}
	if f.TokenID != "" {
		cfg.Snapshot.TokenID = f.TokenID
	}
	if f.PageSize != 0 {
		cfg.Snapshot.PageSize = f.PageSize
	}

	// Output
	if f.Output != "" {
		cfg.Tree.Output = f.Output
	}

	// Claim
	if f.Tree != "" {
		cfg.Claim.Tree = f.Tree
	}
	if f.AirdropTree != "" {
		cfg.Claim.AirdropTree = f.AirdropTree
	}
	if f.Store != "" {
		cfg.Claim.Store = StoreKind(strings.ToLower(f.Store))
	}
	if f.DSN != "" {
		cfg.Claim.DSN = f.DSN
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the global usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `claimtool - token migration snapshot, merkle tree and claim signature toolkit

Usage:
  claimtool [global options] <command> [command options]

Global Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.claimtool)
  --config, -c    Config file path (default: <datadir>/claim.conf)
  --db            State store directory (snapshot, build --from-db, airdrop)
  --token-id      Token ID, 8-byte hex (mainnet: 0000000000000000)
  --page-size     Range query page size (default: 100000)
  --output        Tree artifact directory (default: <datadir>/<network>/tree)
  --tree          Detailed tree artifact for check and submit
  --airdrop-tree  Detailed airdrop tree artifact for check
  --store         Signature store: kv (default) or postgres
  --dsn           PostgreSQL connection string
  --log-level     Log level: trace, debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Commands:
  snapshot           Scan the state store and write accounts.json
  build              Build the claim tree from accounts.json or the state store
  airdrop            Apply airdrop rules to a snapshot and build the airdrop tree
  verify             Re-verify every proof of a detailed tree artifact
  example-keys       Derive example key pairs
  example-accounts   Create example accounts from key pairs
  example-sign       Sign every leaf of an example tree
  check <address>    Show eligibility and collected signatures
  submit             Record one multisig signature
  reset-signatures   Delete every collected signature (requires --yes)

Run 'claimtool <command> --help' for command options.
`)
}

// Load builds configuration with the following precedence:
// 1. Network defaults
// 2. Config file (created with defaults on first run)
// 3. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	network := Mainnet
	if strings.ToLower(flags.Network) == string(Testnet) {
		network = Testnet
	}
	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	defaultToken := cfg.Snapshot.TokenID
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	// A network picked by the config file brings its own token unless one
	// was set explicitly.
	if cfg.Network != network && cfg.Snapshot.TokenID == defaultToken {
		cfg.Snapshot.TokenID = Default(cfg.Network).Snapshot.TokenID
	}
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
