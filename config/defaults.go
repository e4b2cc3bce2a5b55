package config

import "time"

// DefaultProtocolName is the rendezvous/advertising namespace used when
// none is configured.
const DefaultProtocolName = "/netabase/1.0.0"

// DefaultConfig returns the default node configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Identity: IdentityConfig{
			ProtocolName: DefaultProtocolName,
		},
		Listen: ListenConfig{
			Addrs: []string{"/ip4/0.0.0.0/tcp/0"},
		},
		Bootstrap: BootstrapConfig{
			// Left empty: operators fill this in once seed nodes are
			// provisioned, e.g.:
			//   "/ip4/203.0.113.1/tcp/4001/p2p/12D3KooW..."
			Peers: []string{},
		},
		Swarm: SwarmConfig{
			IdleTimeout:       5 * time.Minute,
			DialConcurrency:   10,
			PerConnBufferSize: 1024,
		},
		DHT: DHTConfig{
			ReplicationFactor: 20,
			QueryTimeout:      30 * time.Second,
			Mode:              "server",
		},
		Identify: IdentifyConfig{
			AgentVersion: "netabase/0.1.0",
			PushUpdates:  true,
			CacheSize:    128,
		},
		Discovery: DiscoveryConfig{
			EnableMDNS:    true,
			TTL:           2 * time.Minute,
			QueryInterval: 30 * time.Second,
			EnableIPv6:    false,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Storage: StorageConfig{
			// Empty disables persistence. EnsureDataDirs creates the
			// DiscoveryStoreDir() directory but leaves this field empty.
		},
	}
}
