package config

import "testing"

func TestApplyFlagsOverridesConfig(t *testing.T) {
	cfg := DefaultConfig()
	f := &Flags{
		DataDir:         "/custom/datadir",
		ProtocolName:    "/netabase/test/1.0.0",
		ListenAddrs:     "/ip4/0.0.0.0/tcp/5001",
		BootstrapPeers:  "/ip4/9.9.9.9/tcp/4001/p2p/12D3KooWQYV9dGMFoRzNStwpXztXaBUjtPqi6aU76ZgUriHhKust",
		DialConcurrency: 25,
		DHTMode:         "client",
		LogLevel:        "debug",
		SetLogJSON:      true,
		LogJSON:         true,
	}

	ApplyFlags(cfg, f)

	if cfg.DataDir != "/custom/datadir" {
		t.Errorf("DataDir = %q, want /custom/datadir", cfg.DataDir)
	}
	if cfg.Identity.ProtocolName != "/netabase/test/1.0.0" {
		t.Errorf("ProtocolName = %q, want /netabase/test/1.0.0", cfg.Identity.ProtocolName)
	}
	if len(cfg.Listen.Addrs) != 1 || cfg.Listen.Addrs[0] != "/ip4/0.0.0.0/tcp/5001" {
		t.Errorf("Listen.Addrs = %v, want single overridden addr", cfg.Listen.Addrs)
	}
	if len(cfg.Bootstrap.Peers) != 1 {
		t.Errorf("Bootstrap.Peers = %v, want single entry", cfg.Bootstrap.Peers)
	}
	if cfg.Swarm.DialConcurrency != 25 {
		t.Errorf("DialConcurrency = %d, want 25", cfg.Swarm.DialConcurrency)
	}
	if cfg.DHT.Mode != "client" {
		t.Errorf("DHT.Mode = %q, want client", cfg.DHT.Mode)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON = false, want true")
	}
}

func TestApplyFlagsNoMDNSDisablesDiscovery(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Discovery.EnableMDNS {
		t.Fatal("expected default EnableMDNS = true")
	}

	f := &Flags{NoMDNS: true, SetNoMDNS: true}
	ApplyFlags(cfg, f)

	if cfg.Discovery.EnableMDNS {
		t.Error("EnableMDNS = true, want false after --no-mdns")
	}
}

func TestApplyFlagsLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := DefaultConfig()
	original := *cfg

	ApplyFlags(cfg, &Flags{})

	if cfg.DataDir != original.DataDir {
		t.Errorf("DataDir changed with empty Flags: got %q, want %q", cfg.DataDir, original.DataDir)
	}
	if cfg.DHT.Mode != original.DHT.Mode {
		t.Errorf("DHT.Mode changed with empty Flags: got %q, want %q", cfg.DHT.Mode, original.DHT.Mode)
	}
	if cfg.Discovery.EnableMDNS != original.Discovery.EnableMDNS {
		t.Error("EnableMDNS changed with empty Flags and SetNoMDNS=false")
	}
}

func TestLoadFromFileAppliesConfFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromFile(dir)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}

	if err := WriteDefaultConfig(cfg.ConfigFile()); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}
	cfg2, err := LoadFromFile(dir)
	if err != nil {
		t.Fatalf("second LoadFromFile() error: %v", err)
	}
	if err := Validate(cfg2); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}
