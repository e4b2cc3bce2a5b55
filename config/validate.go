package config

import (
	"fmt"
	"strings"

	"github.com/multiformats/go-multiaddr"
)

// Validate checks a node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateMultiaddrs(cfg.Listen.Addrs, "listen.addrs"); err != nil {
		return err
	}
	if err := validateMultiaddrs(cfg.Bootstrap.Peers, "bootstrap.peers"); err != nil {
		return err
	}

	switch cfg.DHT.Mode {
	case "", "server", "client", "auto":
	default:
		return fmt.Errorf("dht.mode must be server, client, or auto, got %q", cfg.DHT.Mode)
	}
	if cfg.DHT.ReplicationFactor < 1 {
		return fmt.Errorf("dht.replication_factor must be at least 1")
	}
	if cfg.DHT.QueryTimeout <= 0 {
		return fmt.Errorf("dht.query_timeout must be positive")
	}

	if len(cfg.Listen.Addrs) == 0 && len(cfg.Bootstrap.Peers) == 0 {
		return fmt.Errorf("at least one of listen.addrs or bootstrap.peers must be supplied")
	}
	if !strings.HasPrefix(cfg.Identity.ProtocolName, "/") {
		return fmt.Errorf("identity.protocol_name must start with /, got %q", cfg.Identity.ProtocolName)
	}

	if cfg.Swarm.DialConcurrency < 0 {
		return fmt.Errorf("swarm.dial_concurrency must not be negative")
	}
	if cfg.Swarm.PerConnBufferSize < 0 {
		return fmt.Errorf("swarm.per_conn_buffer_size must not be negative")
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", cfg.Log.Level)
	}

	return nil
}

func validateMultiaddrs(addrs []string, field string) error {
	for i, addr := range addrs {
		if _, err := multiaddr.NewMultiaddr(addr); err != nil {
			return fmt.Errorf("%s[%d] %q: %w", field, i, addr, err)
		}
	}
	return nil
}
