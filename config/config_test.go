package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(DefaultConfig()) error: %v", err)
	}
}

func TestValidateRejectsBadListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Listen.Addrs = []string{"not-a-multiaddr"}
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for malformed listen addr")
	}
}

func TestValidateRejectsBadBootstrapAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bootstrap.Peers = []string{"/ip4/1.2.3.4/tcp/1234"} // missing /p2p/<id>... still a valid multiaddr though
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v, want nil (multiaddr without /p2p suffix is still syntactically valid)", err)
	}
	cfg.Bootstrap.Peers = []string{"definitely not an address"}
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for malformed bootstrap addr")
	}
}

func TestValidateRejectsBadDHTMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DHT.Mode = "omniscient"
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for invalid dht.mode")
	}
}

func TestValidateRejectsZeroReplicationFactor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DHT.ReplicationFactor = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for dht.replication_factor < 1")
	}
}

func TestValidateRejectsZeroQueryTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DHT.QueryTimeout = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for dht.query_timeout == 0")
	}
}

func TestValidateRequiresListenAddrsOrBootstrapPeers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Listen.Addrs = nil
	cfg.Bootstrap.Peers = nil
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error when neither listen.addrs nor bootstrap.peers is set")
	}

	cfg.Bootstrap.Peers = []string{"/ip4/1.2.3.4/tcp/4001/p2p/12D3KooWQYV9dGMFoRzNStwpXztXaBUjtPqi6aU76ZgUriHhKust"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v, want nil once bootstrap.peers alone is set", err)
	}
}

func TestValidateRejectsProtocolNameWithoutSlash(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Identity.ProtocolName = "netabase/1.0.0"
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for identity.protocol_name without leading /")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "screaming"
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate() error = nil, want error for invalid log.level")
	}
}

func TestValidateNilConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("Validate(nil) error = nil, want error")
	}
}

func TestLoadFileMissingReturnsEmptyMap(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v, want empty", values)
	}
}

func TestLoadFileParsesKeyValuePairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netabase.conf")
	content := `# comment line
datadir = /tmp/nb

identity.protocol_name = "/netabase/2.0.0"
listen.addrs = /ip4/0.0.0.0/tcp/4001,/ip6/::/tcp/4001
dht.replication_factor = 42
discovery.enable_mdns = false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if values["datadir"] != "/tmp/nb" {
		t.Errorf("datadir = %q, want /tmp/nb", values["datadir"])
	}
	if values["identity.protocol_name"] != "/netabase/2.0.0" {
		t.Errorf("identity.protocol_name = %q, want /netabase/2.0.0 (quotes stripped)", values["identity.protocol_name"])
	}
}

func TestLoadFileRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("this line has no equals sign\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile() error = nil, want error for malformed line")
	}
}

func TestApplyFileConfigOverridesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	values := map[string]string{
		"dht.replication_factor": "5",
		"dht.mode":                "client",
		"discovery.enable_mdns":   "false",
		"swarm.idle_timeout":      "1m",
		"bootstrap.peers":         "/ip4/1.2.3.4/tcp/4001/p2p/12D3KooWQYV9dGMFoRzNStwpXztXaBUjtPqi6aU76ZgUriHhKust",
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
	if cfg.DHT.ReplicationFactor != 5 {
		t.Errorf("ReplicationFactor = %d, want 5", cfg.DHT.ReplicationFactor)
	}
	if cfg.DHT.Mode != "client" {
		t.Errorf("Mode = %q, want client", cfg.DHT.Mode)
	}
	if cfg.Discovery.EnableMDNS {
		t.Error("EnableMDNS = true, want false")
	}
	if len(cfg.Bootstrap.Peers) != 1 {
		t.Errorf("Bootstrap.Peers = %v, want 1 entry", cfg.Bootstrap.Peers)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() after ApplyFileConfig error: %v", err)
	}
}

func TestApplyFileConfigUnknownKeyIgnored(t *testing.T) {
	cfg := DefaultConfig()
	if err := ApplyFileConfig(cfg, map[string]string{"nonsense.key": "value"}); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
}

func TestApplyFileConfigPropagatesParseErrors(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyFileConfig(cfg, map[string]string{"dht.replication_factor": "not-a-number"})
	if err == nil {
		t.Fatal("ApplyFileConfig() error = nil, want parse error")
	}
}

func TestWriteDefaultConfigThenLoadFileRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netabase.conf")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if values["identity.protocol_name"] != DefaultProtocolName {
		t.Errorf("identity.protocol_name = %q, want %q", values["identity.protocol_name"], DefaultProtocolName)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() on round-tripped default config error: %v", err)
	}
}

func TestConfigHelperPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data/netabase"

	if got, want := cfg.KeypairPath(), filepath.Join("/data/netabase", "node.key"); got != want {
		t.Errorf("KeypairPath() = %q, want %q", got, want)
	}
	if got, want := cfg.DiscoveryStoreDir(), filepath.Join("/data/netabase", "peers"); got != want {
		t.Errorf("DiscoveryStoreDir() = %q, want %q", got, want)
	}
	if got, want := cfg.LogsDir(), filepath.Join("/data/netabase", "logs"); got != want {
		t.Errorf("LogsDir() = %q, want %q", got, want)
	}
	if got, want := cfg.ConfigFile(), filepath.Join("/data/netabase", "netabase.conf"); got != want {
		t.Errorf("ConfigFile() = %q, want %q", got, want)
	}

	cfg.Identity.KeypairPath = "/custom/key"
	cfg.Storage.DiscoveryStorePath = "/custom/peers"
	if got := cfg.KeypairPath(); got != "/custom/key" {
		t.Errorf("KeypairPath() override = %q, want /custom/key", got)
	}
	if got := cfg.DiscoveryStoreDir(); got != "/custom/peers" {
		t.Errorf("DiscoveryStoreDir() override = %q, want /custom/peers", got)
	}
}

func TestEnsureDataDirsCreatesTreeAndDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "nb")

	if err := EnsureDataDirs(cfg); err != nil {
		t.Fatalf("EnsureDataDirs() error: %v", err)
	}
	for _, dir := range []string{cfg.DataDir, cfg.DiscoveryStoreDir(), cfg.LogsDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %q to exist", dir)
		}
	}
	if _, err := os.Stat(cfg.ConfigFile()); err != nil {
		t.Errorf("expected default config file to exist: %v", err)
	}

	// Idempotent: running twice must not error or clobber an edited config.
	if err := os.WriteFile(cfg.ConfigFile(), []byte("log.level = debug\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := EnsureDataDirs(cfg); err != nil {
		t.Fatalf("EnsureDataDirs() second call error: %v", err)
	}
	values, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if values["log.level"] != "debug" {
		t.Errorf("EnsureDataDirs() clobbered existing config file")
	}
}
