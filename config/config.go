// Package config handles Netabase's node configuration: identity, listen
// and bootstrap addresses, swarm and DHT tuning, and the ambient logging
// and storage settings every deployment needs, mirroring a chain node's
// layered-sections config struct and env/flag/file override pipeline.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds a node's full runtime configuration.
type Config struct {
	DataDir string `conf:"datadir"`

	Identity  IdentityConfig
	Listen    ListenConfig
	Bootstrap BootstrapConfig
	Swarm     SwarmConfig
	DHT       DHTConfig
	Identify  IdentifyConfig
	Discovery DiscoveryConfig
	Log       LogConfig
	Storage   StorageConfig
}

// IdentityConfig controls how the node's libp2p keypair is obtained.
type IdentityConfig struct {
	// KeypairPath is where the node's identity key is persisted. Empty
	// uses DataDir's default location.
	KeypairPath string `conf:"identity.keypair_path"`
	// KeypairPassphraseEnv names an environment variable holding the
	// passphrase used to encrypt/decrypt KeypairPath. Empty means the
	// keypair file is stored unencrypted.
	KeypairPassphraseEnv string `conf:"identity.keypair_passphrase_env"`
	// ProtocolName namespaces this deployment's rendezvous/advertising
	// string, so unrelated Netabase networks never discover each other.
	ProtocolName string `conf:"identity.protocol_name"`
	// Mnemonic, when set, deterministically derives the node's identity
	// instead of loading or generating a random keypair file. Operators
	// should prefer an environment variable or prompt over a config file
	// for this field; WriteDefaultConfig never writes one back out.
	Mnemonic string `conf:"identity.mnemonic"`
}

// ListenConfig lists the multiaddrs the swarm listens on.
type ListenConfig struct {
	Addrs []string `conf:"listen.addrs"`
}

// BootstrapConfig lists peers used to join the network, as full multiaddrs
// of the form "/ip4/.../tcp/.../p2p/<peer id>".
type BootstrapConfig struct {
	Peers []string `conf:"bootstrap.peers"`
}

// SwarmConfig tunes the libp2p host and connection manager.
type SwarmConfig struct {
	IdleTimeout       time.Duration `conf:"swarm.idle_timeout"`
	DialConcurrency   int           `conf:"swarm.dial_concurrency"`
	PerConnBufferSize int           `conf:"swarm.per_conn_buffer_size"`
}

// DHTConfig tunes the Kademlia DHT.
type DHTConfig struct {
	ReplicationFactor int           `conf:"dht.replication_factor"`
	QueryTimeout      time.Duration `conf:"dht.query_timeout"`
	// Mode is one of "server", "client", or "auto".
	Mode string `conf:"dht.mode"`
}

// IdentifyConfig tunes the libp2p identify protocol.
type IdentifyConfig struct {
	AgentVersion string `conf:"identify.agent_version"`
	PushUpdates  bool   `conf:"identify.push_updates"`
	CacheSize    int    `conf:"identify.cache_size"`
}

// DiscoveryConfig tunes peer discovery.
type DiscoveryConfig struct {
	EnableMDNS    bool          `conf:"discovery.enable_mdns"`
	TTL           time.Duration `conf:"discovery.ttl"`
	QueryInterval time.Duration `conf:"discovery.query_interval"`
	EnableIPv6    bool          `conf:"discovery.enable_ipv6"`
}

// LogConfig holds logging settings, reused verbatim in shape from a chain
// node's own LogConfig.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// StorageConfig controls optional cross-restart persistence.
type StorageConfig struct {
	// DiscoveryStorePath is where observed peer addresses are persisted.
	// Empty disables persistence and uses an in-memory store instead.
	DiscoveryStorePath string `conf:"storage.discovery_store_path"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.netabase
//	macOS:   ~/Library/Application Support/Netabase
//	Windows: %APPDATA%\Netabase
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".netabase"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Netabase")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Netabase")
		}
		return filepath.Join(home, "AppData", "Roaming", "Netabase")
	default:
		return filepath.Join(home, ".netabase")
	}
}

// KeypairPath returns the node identity key file path, honoring an
// explicit override.
func (c *Config) KeypairPath() string {
	if c.Identity.KeypairPath != "" {
		return c.Identity.KeypairPath
	}
	return filepath.Join(c.DataDir, "node.key")
}

// DiscoveryStoreDir returns the discovery-store data directory, honoring
// an explicit override.
func (c *Config) DiscoveryStoreDir() string {
	if c.Storage.DiscoveryStorePath != "" {
		return c.Storage.DiscoveryStorePath
	}
	return filepath.Join(c.DataDir, "peers")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "netabase.conf")
}
