package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "datadir":
		cfg.DataDir = value

	// Identity
	case "identity.keypair_path":
		cfg.Identity.KeypairPath = value
	case "identity.keypair_passphrase_env":
		cfg.Identity.KeypairPassphraseEnv = value
	case "identity.protocol_name":
		cfg.Identity.ProtocolName = value
	case "identity.mnemonic":
		cfg.Identity.Mnemonic = value

	// Listen
	case "listen.addrs":
		cfg.Listen.Addrs = parseStringList(value)

	// Bootstrap
	case "bootstrap.peers":
		cfg.Bootstrap.Peers = parseStringList(value)

	// Swarm
	case "swarm.idle_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Swarm.IdleTimeout = d
	case "swarm.dial_concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Swarm.DialConcurrency = n
	case "swarm.per_conn_buffer_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Swarm.PerConnBufferSize = n

	// DHT
	case "dht.replication_factor":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.DHT.ReplicationFactor = n
	case "dht.query_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.DHT.QueryTimeout = d
	case "dht.mode":
		cfg.DHT.Mode = value

	// Identify
	case "identify.agent_version":
		cfg.Identify.AgentVersion = value
	case "identify.push_updates":
		cfg.Identify.PushUpdates = parseBool(value)
	case "identify.cache_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Identify.CacheSize = n

	// Discovery
	case "discovery.enable_mdns":
		cfg.Discovery.EnableMDNS = parseBool(value)
	case "discovery.ttl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Discovery.TTL = d
	case "discovery.query_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Discovery.QueryInterval = d
	case "discovery.enable_ipv6":
		cfg.Discovery.EnableIPv6 = parseBool(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	// Storage
	case "storage.discovery_store_path":
		cfg.Storage.DiscoveryStorePath = value

	default:
		// Unknown keys are ignored.
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string) error {
	content := `# Netabase Node Configuration

# Data directory (platform default if unset)
# datadir = ~/.netabase

# ============================================================================
# Identity
# ============================================================================

identity.protocol_name = ` + DefaultProtocolName + `
# identity.keypair_path = ~/.netabase/node.key
# identity.keypair_passphrase_env = NETABASE_KEYPAIR_PASSPHRASE
# identity.mnemonic =

# ============================================================================
# Listen / Bootstrap
# ============================================================================

listen.addrs = /ip4/0.0.0.0/tcp/0

# Bootstrap peers (comma-separated multiaddrs with a /p2p/<peer id> suffix)
# bootstrap.peers = /ip4/203.0.113.1/tcp/4001/p2p/12D3KooW...

# ============================================================================
# Swarm / DHT
# ============================================================================

swarm.idle_timeout = 5m
swarm.dial_concurrency = 10
swarm.per_conn_buffer_size = 1024

dht.replication_factor = 20
dht.query_timeout = 30s
dht.mode = server

# ============================================================================
# Identify / Discovery
# ============================================================================

identify.agent_version = netabase/0.1.0
identify.push_updates = true
identify.cache_size = 128

discovery.enable_mdns = true
discovery.ttl = 2m
discovery.query_interval = 30s
discovery.enable_ipv6 = false

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false

# ============================================================================
# Storage
# ============================================================================

# storage.discovery_store_path = ~/.netabase/peers
`
	return os.WriteFile(path, []byte(content), 0644)
}
