package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	DataDir string
	Config  string

	// Identity
	KeypairPath  string
	ProtocolName string
	Mnemonic     string

	// Listen / Bootstrap
	ListenAddrs    string
	BootstrapPeers string

	// Swarm / DHT
	DialConcurrency int
	DHTMode         string

	// Discovery
	NoMDNS bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetNoMDNS  bool
	SetLogJSON bool
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("netabase", flag.ContinueOnError)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Identity
	fs.StringVar(&f.KeypairPath, "keypair", "", "Node identity key file path")
	fs.StringVar(&f.ProtocolName, "protocol", "", "Rendezvous/advertising protocol name")
	fs.StringVar(&f.Mnemonic, "mnemonic", "", "Derive node identity from a BIP-39 mnemonic")

	// Listen / Bootstrap
	fs.StringVar(&f.ListenAddrs, "listen", "", "Comma-separated listen multiaddrs")
	fs.StringVar(&f.BootstrapPeers, "bootstrap", "", "Comma-separated bootstrap peer multiaddrs")

	// Swarm / DHT
	fs.IntVar(&f.DialConcurrency, "dial-concurrency", 0, "Maximum concurrent outbound dials")
	fs.StringVar(&f.DHTMode, "dht-mode", "", "DHT mode: server, client, or auto")

	// Discovery
	fs.BoolVar(&f.NoMDNS, "no-mdns", false, "Disable local mDNS peer discovery")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	// Custom usage
	fs.Usage = func() {
		printUsage()
	}

	// Parse
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	f.SetNoMDNS = isFlagSet(fs, "no-mdns")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// Detect unparsed flags caused by positional arguments stopping the parser.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			fmt.Fprintf(os.Stderr, "Error: flag %q was not parsed (positional argument stopped parsing)\n", arg)
			os.Exit(1)
		}
	}

	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Identity
	if f.KeypairPath != "" {
		cfg.Identity.KeypairPath = f.KeypairPath
	}
	if f.ProtocolName != "" {
		cfg.Identity.ProtocolName = f.ProtocolName
	}
	if f.Mnemonic != "" {
		cfg.Identity.Mnemonic = f.Mnemonic
	}

	// Listen / Bootstrap
	if f.ListenAddrs != "" {
		cfg.Listen.Addrs = parseStringList(f.ListenAddrs)
	}
	if f.BootstrapPeers != "" {
		cfg.Bootstrap.Peers = parseStringList(f.BootstrapPeers)
	}

	// Swarm / DHT
	if f.DialConcurrency != 0 {
		cfg.Swarm.DialConcurrency = f.DialConcurrency
	}
	if f.DHTMode != "" {
		cfg.DHT.Mode = f.DHTMode
	}

	// Discovery
	if f.SetNoMDNS {
		cfg.Discovery.EnableMDNS = !f.NoMDNS
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

func printUsage() {
	usage := `Netabase - distributed content-addressed key-value store

Usage:
  netabased [options]
  netabased --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --datadir       Data directory (default: ~/.netabase)
  --config, -c    Config file path (default: <datadir>/netabase.conf)

Identity Options:
  --keypair       Node identity key file path
  --protocol      Rendezvous/advertising protocol name
  --mnemonic      Derive node identity from a BIP-39 mnemonic

Listen / Bootstrap Options:
  --listen        Comma-separated listen multiaddrs
  --bootstrap     Comma-separated bootstrap peer multiaddrs

Swarm / DHT Options:
  --dial-concurrency  Maximum concurrent outbound dials
  --dht-mode          DHT mode: server, client, or auto

Discovery Options:
  --no-mdns       Disable local mDNS peer discovery

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: <datadir>/logs/netabased.log)
  --log-json      Output logs as JSON

Examples:
  # Start a node with defaults
  netabased

  # Join a network via a known bootstrap peer
  netabased --bootstrap=/ip4/203.0.113.1/tcp/4001/p2p/12D3KooW...

  # Start with custom data directory
  netabased --datadir=/path/to/data

Note:
  Data directories are created automatically on first start.
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	// Handle help/version
	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("netabased version 0.1.0")
		os.Exit(0)
	}

	// Start with defaults
	cfg := DefaultConfig()

	// Override datadir if specified
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	// Auto-create data directories and default config on first start.
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	// Determine config file path
	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	// Load config file
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}

	// Apply file config
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	// Apply flags (highest precedence)
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// LoadFromFile loads config from defaults + conf file only (no CLI flags).
func LoadFromFile(dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}
	fileValues, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. This is idempotent, safe to call on
// every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.DiscoveryStoreDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	// Create default config if it doesn't exist.
	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
