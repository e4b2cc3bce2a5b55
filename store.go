// Package netabase is a distributed, content-addressed key-value store
// built on a Kademlia DHT over libp2p. A Store is the typed, ergonomic
// entry point: every operation reduces to sending a command to the
// swarm supervisor goroutine and awaiting its reply, mirroring a chain
// node's RPC-over-channel facade in front of its own single-owner
// network goroutine.
package netabase

import (
	"context"
	"fmt"
	"os"
	"time"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/netabase/netabase/config"
	"github.com/netabase/netabase/internal/errs"
	"github.com/netabase/netabase/internal/identity"
	"github.com/netabase/netabase/internal/schema"
	"github.com/netabase/netabase/internal/storage"
	"github.com/netabase/netabase/internal/swarm"
)

// Quorum, Mode, and Event are re-exported under the facade's own names so
// callers never need to import internal/swarm directly.
type (
	Quorum = swarm.Quorum
	Mode   = swarm.Mode
	Event  = swarm.Event
)

const (
	QuorumOne      = swarm.QuorumOne
	QuorumMajority = swarm.QuorumMajority
	QuorumAll      = swarm.QuorumAll
	QuorumN        = swarm.QuorumN

	ModeServer = swarm.ModeServer
	ModeClient = swarm.ModeClient
	ModeAuto   = swarm.ModeAuto
)

// N builds a QuorumN quorum requiring exactly count replicas.
func N(count int) Quorum {
	return Quorum{Kind: QuorumN, Count: count}
}

// Store is a clonable handle onto a running swarm supervisor: cloning a
// Store (plain struct copy — every field is itself already a shared
// handle) never spawns a second supervisor. Grounded on internal/p2p.Node's
// cloneable-handle treatment, generalized from callback registries to
// request/reply channels, since the facade's operations must look
// synchronous to the caller.
type Store struct {
	sv  *swarm.Supervisor
	id  *identity.Identity
	cfg *config.Config
}

// Start constructs and brings up a Store: it builds the node identity (per
// cfg.Identity), opens the discovery store, constructs the swarm
// supervisor, and blocks until the libp2p host and DHT are live.
func Start(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errs.New("netabase.Start", errs.KindInvalidAddress)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errs.Wrap("netabase.Start", errs.KindInvalidAddress, err)
	}

	id, err := resolveIdentity(cfg)
	if err != nil {
		return nil, err
	}

	db, err := openDiscoveryDB(cfg)
	if err != nil {
		return nil, err
	}

	bootstrapPeers, err := parseBootstrapPeers(cfg.Bootstrap.Peers)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := swarm.Options{
		Identity:          id.PrivKey(),
		ProtocolName:      cfg.Identity.ProtocolName,
		ListenAddrs:       cfg.Listen.Addrs,
		BootstrapPeers:    bootstrapPeers,
		ReplicationFactor: cfg.DHT.ReplicationFactor,
		QueryTimeout:      cfg.DHT.QueryTimeout,
		Mode:              parseDHTMode(cfg.DHT.Mode),
		AgentVersion:      cfg.Identify.AgentVersion,
		EnableMDNS:        cfg.Discovery.EnableMDNS,
		DiscoveryInterval: cfg.Discovery.QueryInterval,
		DiscoveryStore:    db,
		// Validator is left nil here deliberately: internal/schema never
		// signs an envelope's payload, so wiring internal/validator.Validator
		// unconditionally would reject every record this Store itself
		// produces. newDHT falls back to an accept-all validator, matching
		// swarm.Options' own documented nil-default. A signing Validator is
		// only meaningful once a caller's schema actually produces
		// validator.Sign-wrapped payloads.
	}

	sv := swarm.New(opts)
	if err := sv.Start(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{sv: sv, id: id, cfg: cfg}, nil
}

// resolveIdentity derives or loads the node's libp2p keypair according to
// cfg.Identity: a mnemonic takes precedence over a key file, which takes
// precedence over generating and persisting a fresh random identity.
func resolveIdentity(cfg *config.Config) (*identity.Identity, error) {
	if cfg.Identity.Mnemonic != "" {
		id, err := identity.FromMnemonic(cfg.Identity.Mnemonic, "")
		if err != nil {
			return nil, errs.Wrap("netabase.Start", errs.KindMalformed, err)
		}
		return id, nil
	}

	var passphrase []byte
	if cfg.Identity.KeypairPassphraseEnv != "" {
		if v := os.Getenv(cfg.Identity.KeypairPassphraseEnv); v != "" {
			passphrase = []byte(v)
		}
	}

	id, err := identity.LoadOrCreate(cfg.KeypairPath(), passphrase, identity.DefaultEncryptionParams())
	if err != nil {
		return nil, errs.Wrap("netabase.Start", errs.KindMalformed, err)
	}
	return id, nil
}

// openDiscoveryDB opens the configured persistence backend, or an
// in-memory fallback when no path is configured — the same fallback the
// teacher's own p2p layer uses in test mode when no DB is wired in.
func openDiscoveryDB(cfg *config.Config) (storage.DB, error) {
	path := cfg.Storage.DiscoveryStorePath
	if path == "" {
		return storage.NewMemory(), nil
	}
	db, err := storage.NewBadger(path)
	if err != nil {
		return nil, errs.Wrap("netabase.Start", errs.KindBindFailed, err)
	}
	return db, nil
}

func parseDHTMode(s string) Mode {
	switch s {
	case "client":
		return ModeClient
	case "auto":
		return ModeAuto
	default:
		return ModeServer
	}
}

// parseBootstrapPeers splits each configured bootstrap multiaddr (which
// must carry a trailing /p2p/<peer id> component) into a swarm.BootstrapPeer.
func parseBootstrapPeers(addrs []string) ([]swarm.BootstrapPeer, error) {
	out := make([]swarm.BootstrapPeer, 0, len(addrs))
	for _, addr := range addrs {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			return nil, errs.Wrap("netabase.Start", errs.KindInvalidAddress, err)
		}
		for _, a := range info.Addrs {
			out = append(out, swarm.BootstrapPeer{
				PeerID: info.ID,
				Addr:   fmt.Sprintf("%s/p2p/%s", a, info.ID),
			})
		}
	}
	return out, nil
}

// Identity returns the node's resolved libp2p identity.
func (s *Store) Identity() *identity.Identity {
	return s.id
}

// Config returns the configuration the Store was started with.
func (s *Store) Config() *config.Config {
	return s.cfg
}

// PeerID returns the node's own libp2p peer ID.
func (s *Store) PeerID() peer.ID {
	return s.id.PeerID()
}

// PrivKey exposes the node's private key, for callers building other
// libp2p-aware components against the same identity.
func (s *Store) PrivKey() libp2pcrypto.PrivKey {
	return s.id.PrivKey()
}

// Addrs returns the node's own dialable multiaddrs, each already suffixed
// with /p2p/<peer id>, suitable for handing to another Store's Dial.
func (s *Store) Addrs() []string {
	host := s.sv.Host()
	out := make([]string, 0, len(host.Addrs()))
	for _, a := range host.Addrs() {
		out = append(out, fmt.Sprintf("%s/p2p/%s", a, host.ID()))
	}
	return out
}

// Dial connects directly to a peer named by a well-formed multiaddr.
func (s *Store) Dial(ctx context.Context, addr string) error {
	reply := make(chan swarm.DialResult, 1)
	select {
	case s.sv.Commands() <- swarm.DialCommand{Addr: addr, Reply: reply}:
	case <-ctx.Done():
		return errs.Wrap("netabase.Dial", errs.KindCancelled, ctx.Err())
	}
	select {
	case r := <-reply:
		return r.Err
	case <-ctx.Done():
		return errs.Wrap("netabase.Dial", errs.KindCancelled, ctx.Err())
	}
}

// Bootstrap triggers a fresh DHT routing-table bootstrap round.
func (s *Store) Bootstrap(ctx context.Context) error {
	reply := make(chan swarm.BootstrapResult, 1)
	select {
	case s.sv.Commands() <- swarm.BootstrapCommand{Reply: reply}:
	case <-ctx.Done():
		return errs.Wrap("netabase.Bootstrap", errs.KindCancelled, ctx.Err())
	}
	select {
	case r := <-reply:
		return r.Err
	case <-ctx.Done():
		return errs.Wrap("netabase.Bootstrap", errs.KindCancelled, ctx.Err())
	}
}

// AddAddress records addr as a known address for peerID in the routing
// table, without dialing it — used when a discovery mechanism outside the
// swarm (an application-level rendezvous, say) has learned of a peer.
func (s *Store) AddAddress(ctx context.Context, peerID peer.ID, addr string) error {
	reply := make(chan swarm.Ack, 1)
	select {
	case s.sv.Commands() <- swarm.AddAddressCommand{PeerID: peerID, Addr: addr, Reply: reply}:
	case <-ctx.Done():
		return errs.Wrap("netabase.AddAddress", errs.KindCancelled, ctx.Err())
	}
	select {
	case a := <-reply:
		return a.Err
	case <-ctx.Done():
		return errs.Wrap("netabase.AddAddress", errs.KindCancelled, ctx.Err())
	}
}

// SetDHTMode switches the DHT's participation mode.
func (s *Store) SetDHTMode(ctx context.Context, mode Mode) error {
	reply := make(chan swarm.Ack, 1)
	select {
	case s.sv.Commands() <- swarm.SetModeCommand{Mode: mode, Reply: reply}:
	case <-ctx.Done():
		return errs.Wrap("netabase.SetDHTMode", errs.KindCancelled, ctx.Err())
	}
	select {
	case a := <-reply:
		return a.Err
	case <-ctx.Done():
		return errs.Wrap("netabase.SetDHTMode", errs.KindCancelled, ctx.Err())
	}
}

// CurrentMode reports the DHT mode actually in effect — always Server or
// Client, never Auto, regardless of what SetDHTMode was last called with.
func (s *Store) CurrentMode() Mode {
	return s.sv.CurrentMode()
}

// Subscribe joins the network event broadcast stream from this moment on.
// The returned detach function must be called once the caller no longer
// wants to receive events, to let the hub reclaim the subscription slot.
func (s *Store) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	reply := make(chan swarm.SubscribeResult, 1)
	select {
	case s.sv.Commands() <- swarm.SubscribeCommand{Reply: reply}:
	case <-ctx.Done():
		return nil, nil, errs.Wrap("netabase.Subscribe", errs.KindCancelled, ctx.Err())
	}
	select {
	case r := <-reply:
		return r.Events, r.Detach, nil
	case <-ctx.Done():
		return nil, nil, errs.Wrap("netabase.Subscribe", errs.KindCancelled, ctx.Err())
	}
}

// Shutdown tears the Store down. Idempotent: once the supervisor has
// stopped, further calls return nil without waiting for an ack.
func (s *Store) Shutdown(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		s.sv.Wait()
		close(stopped)
	}()
	reply := make(chan swarm.Ack, 1)
	select {
	case s.sv.Commands() <- swarm.ShutdownCommand{Reply: reply}:
	case <-stopped:
		return nil
	case <-ctx.Done():
		return errs.Wrap("netabase.Shutdown", errs.KindCancelled, ctx.Err())
	}
	select {
	case a := <-reply:
		s.sv.Wait()
		return a.Err
	case <-stopped:
		return nil
	case <-ctx.Done():
		return errs.Wrap("netabase.Shutdown", errs.KindCancelled, ctx.Err())
	}
}

// Put stores value under the key its Descriptor derives, replicated to at
// least quorum's resolved replica count. publisher and expiresAt are
// optional envelope metadata; pass nil for either to omit them.
func Put[T any, PT schema.ValuePtr[T]](ctx context.Context, s *Store, d *schema.Descriptor[T, PT], value T, quorum Quorum, publisher *peer.ID, expiresAt *time.Time) error {
	rec, err := d.ToRecord(value, publisher, expiresAt)
	if err != nil {
		return err
	}
	reply := make(chan swarm.PutResult, 1)
	cmd := swarm.PutCommand{
		Key:       rec.Key.Bytes(),
		Value:     rec.Value,
		Publisher: publisher,
		ExpiresAt: expiresAt,
		Quorum:    quorum,
		Reply:     reply,
	}
	select {
	case s.sv.Commands() <- cmd:
	case <-ctx.Done():
		return errs.Wrap("netabase.Put", errs.KindCancelled, ctx.Err())
	}
	select {
	case r := <-reply:
		return r.Err
	case <-ctx.Done():
		return errs.Wrap("netabase.Put", errs.KindCancelled, ctx.Err())
	}
}

// Get retrieves the value stored at key. found is false (with err nil) when
// the DHT has no record at key — callers should treat a miss as an empty
// option, not a failure.
func Get[T any, PT schema.ValuePtr[T]](ctx context.Context, s *Store, d *schema.Descriptor[T, PT], key schema.Key) (value T, found bool, err error) {
	reply := make(chan swarm.GetResult, 1)
	cmd := swarm.GetCommand{Key: key.Bytes(), Reply: reply}
	select {
	case s.sv.Commands() <- cmd:
	case <-ctx.Done():
		return value, false, errs.Wrap("netabase.Get", errs.KindCancelled, ctx.Err())
	}
	select {
	case r := <-reply:
		if r.Err != nil {
			return value, false, r.Err
		}
		if !r.Found {
			return value, false, nil
		}
		v, _, _, derr := d.FromRecord(r.Value)
		if derr != nil {
			return value, false, derr
		}
		return v, true, nil
	case <-ctx.Done():
		return value, false, errs.Wrap("netabase.Get", errs.KindCancelled, ctx.Err())
	}
}
