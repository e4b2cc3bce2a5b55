// netabase-cli is a command-line client for interacting with the Netabase
// DHT: each invocation starts its own short-lived node (using the same
// config a netabased daemon would), performs one operation, and tears the
// node back down — there is no RPC server to dial, since Netabase's public
// surface is the Store API itself, not a JSON-RPC endpoint.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/netabase/netabase"
	"github.com/netabase/netabase/config"
	"github.com/netabase/netabase/internal/identity"
	"github.com/netabase/netabase/internal/schema"
)

// rawRecord is the CLI's own schema type for ad hoc put/get: a string key
// field and an opaque byte payload, letting the CLI exchange arbitrary
// values without requiring the operator to register an application schema
// first.
type rawRecord struct {
	Key  string `netabase:"key"`
	Data []byte
}

func (r rawRecord) MarshalValue() ([]byte, error) { return r.Data, nil }

func (r *rawRecord) UnmarshalValue(b []byte) error {
	r.Data = b
	return nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	configPath := ""
	dataDir := ""
	quorumFlag := "one"
	timeout := 30 * time.Second

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--config" && len(args) > 1:
			configPath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--config="):
			configPath = args[0][len("--config="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--quorum" && len(args) > 1:
			quorumFlag = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--quorum="):
			quorumFlag = args[0][len("--quorum="):]
			args = args[1:]
		case args[0] == "--timeout" && len(args) > 1:
			if d, err := time.ParseDuration(args[1]); err == nil {
				timeout = d
			}
			args = args[2:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "identity":
		cmdIdentity(cmdArgs, configPath, dataDir)
	case "mnemonic":
		cmdMnemonic()
	case "addrs":
		cmdAddrs(configPath, dataDir, timeout)
	case "dial":
		cmdDial(cmdArgs, configPath, dataDir, timeout)
	case "put":
		cmdPut(cmdArgs, configPath, dataDir, quorumFlag, timeout)
	case "get":
		cmdGet(cmdArgs, configPath, dataDir, timeout)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: netabase-cli [global flags] <command> [args]

Global flags:
  --config <path>     Config file (default: <datadir>/netabase.conf)
  --datadir <path>    Data directory (default: ~/.netabase)
  --quorum <spec>     one (default), majority, all, or an integer N
  --timeout <dur>     Per-operation timeout (default: 30s)

Commands:
  identity show                  Print this node's peer ID
  mnemonic                       Generate a fresh BIP-39 identity mnemonic
  addrs                          Start briefly and print dialable addresses
  dial <multiaddr>                Dial a peer once
  put <key> <value>              Store a value under key
  get <key>                      Fetch the value stored under key
  help                           Show this help
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig resolves the operator's config the same way netabased does:
// defaults, optionally overridden by datadir, then the on-disk .conf file.
func loadConfig(configPath, dataDir string) *config.Config {
	dd := dataDir
	if dd == "" {
		dd = config.DefaultDataDir()
	}
	cfg, err := config.LoadFromFile(dd)
	if err != nil {
		fatal("loading config: %v", err)
	}
	if configPath != "" {
		values, err := config.LoadFile(configPath)
		if err != nil {
			fatal("loading config file %s: %v", configPath, err)
		}
		if err := config.ApplyFileConfig(cfg, values); err != nil {
			fatal("applying config file %s: %v", configPath, err)
		}
	}
	return cfg
}

// resolvePassphrase prompts on the controlling terminal, without echo, when
// the config names a passphrase env var that isn't already set — mirroring
// a wallet CLI's own interactive password prompt.
func resolvePassphrase(cfg *config.Config) {
	envName := cfg.Identity.KeypairPassphraseEnv
	if envName == "" || os.Getenv(envName) != "" {
		return
	}
	fmt.Fprint(os.Stderr, "Keypair passphrase: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatal("reading passphrase: %v", err)
	}
	os.Setenv(envName, string(pw))
}

func startStore(configPath, dataDir string, timeout time.Duration) (*netabase.Store, context.Context, context.CancelFunc) {
	cfg := loadConfig(configPath, dataDir)
	resolvePassphrase(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	store, err := netabase.Start(ctx, cfg)
	if err != nil {
		cancel()
		fatal("starting node: %v", err)
	}
	return store, ctx, cancel
}

func parseQuorum(spec string) netabase.Quorum {
	switch spec {
	case "one", "":
		return netabase.QuorumOne
	case "majority":
		return netabase.QuorumMajority
	case "all":
		return netabase.QuorumAll
	default:
		if n, err := strconv.Atoi(spec); err == nil && n > 0 {
			return netabase.N(n)
		}
		fatal("invalid --quorum %q: want one, majority, all, or a positive integer", spec)
		return netabase.Quorum{}
	}
}

func cmdIdentity(args []string, configPath, dataDir string) {
	if len(args) == 0 || args[0] != "show" {
		fatal("usage: netabase-cli identity show")
	}
	cfg := loadConfig(configPath, dataDir)
	if cfg.Identity.Mnemonic != "" {
		id, err := identity.FromMnemonic(cfg.Identity.Mnemonic, "")
		if err != nil {
			fatal("deriving identity from mnemonic: %v", err)
		}
		fmt.Println(id.PeerID().String())
		return
	}
	resolvePassphrase(cfg)

	var passphrase []byte
	if cfg.Identity.KeypairPassphraseEnv != "" {
		passphrase = []byte(os.Getenv(cfg.Identity.KeypairPassphraseEnv))
	}
	id, err := identity.LoadOrCreate(cfg.KeypairPath(), passphrase, identity.DefaultEncryptionParams())
	if err != nil {
		fatal("loading identity: %v", err)
	}
	fmt.Println(id.PeerID().String())
}

func cmdMnemonic() {
	m, err := identity.GenerateMnemonic()
	if err != nil {
		fatal("generating mnemonic: %v", err)
	}
	fmt.Println(m)
}

func cmdAddrs(configPath, dataDir string, timeout time.Duration) {
	store, ctx, cancel := startStore(configPath, dataDir, timeout)
	defer cancel()
	for _, a := range store.Addrs() {
		fmt.Println(a)
	}
	if err := store.Shutdown(ctx); err != nil {
		fatal("shutting down: %v", err)
	}
}

func cmdDial(args []string, configPath, dataDir string, timeout time.Duration) {
	if len(args) != 1 {
		fatal("usage: netabase-cli dial <multiaddr>")
	}
	store, ctx, cancel := startStore(configPath, dataDir, timeout)
	defer cancel()
	if err := store.Dial(ctx, args[0]); err != nil {
		fatal("dial: %v", err)
	}
	fmt.Println("connected")
	if err := store.Shutdown(ctx); err != nil {
		fatal("shutting down: %v", err)
	}
}

func cmdPut(args []string, configPath, dataDir, quorumFlag string, timeout time.Duration) {
	if len(args) != 2 {
		fatal("usage: netabase-cli put <key> <value>")
	}
	quorum := parseQuorum(quorumFlag)
	store, ctx, cancel := startStore(configPath, dataDir, timeout)
	defer cancel()

	desc, err := schema.Register[rawRecord, *rawRecord]()
	if err != nil {
		fatal("registering schema: %v", err)
	}
	rec := rawRecord{Key: args[0], Data: []byte(args[1])}
	if err := netabase.Put(ctx, store, desc, rec, quorum, nil, nil); err != nil {
		fatal("put: %v", err)
	}
	fmt.Println("ok")
	if err := store.Shutdown(ctx); err != nil {
		fatal("shutting down: %v", err)
	}
}

func cmdGet(args []string, configPath, dataDir string, timeout time.Duration) {
	if len(args) != 1 {
		fatal("usage: netabase-cli get <key>")
	}
	store, ctx, cancel := startStore(configPath, dataDir, timeout)
	defer cancel()

	desc, err := schema.Register[rawRecord, *rawRecord]()
	if err != nil {
		fatal("registering schema: %v", err)
	}
	key := schema.KeyFromBytes([]byte(args[0]))
	value, found, err := netabase.Get(ctx, store, desc, key)
	if err != nil {
		fatal("get: %v", err)
	}
	if !found {
		fmt.Fprintln(os.Stderr, "not found")
		os.Exit(1)
	}
	fmt.Println(string(value.Data))
	if err := store.Shutdown(ctx); err != nil {
		fatal("shutting down: %v", err)
	}
}
