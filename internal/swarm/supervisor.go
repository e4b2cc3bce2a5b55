package swarm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	record "github.com/libp2p/go-libp2p-record"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/rs/zerolog"

	"github.com/netabase/netabase/internal/discoverystore"
	netlog "github.com/netabase/netabase/internal/errs"
	klog "github.com/netabase/netabase/internal/log"
	"github.com/netabase/netabase/internal/registry"
	"github.com/netabase/netabase/internal/storage"

	"github.com/netabase/netabase/internal/broadcast"
)

// sweepInterval is how often the run loop checks the pending-query
// registry for timed-out operations. Mirrors a persist-loop
// cadence pattern (a fixed ticker driving periodic housekeeping).
const sweepInterval = 5 * time.Second

type lifecycle int

const (
	stateStarting lifecycle = iota
	stateRunning
	stateStopping
	stateStopped
)

// completion is how a dht_handler goroutine reports a finished operation
// back to the run loop. outcome is in the pending-query registry's generic
// shape; translate converts it into the command-specific Reply value and
// performs the actual send.
type completion struct {
	handle    registry.Handle
	outcome   registry.Outcome
	translate func(registry.Outcome)
}

// Supervisor is the single goroutine that owns the libp2p host and the
// Kademlia DHT. Every other package reaches the network exclusively by
// sending a Command on Commands() and waiting on that command's Reply
// channel. Modeled on a libp2p chain node: host constructed
// first, DHT second, discovery loops last, torn down in reverse.
type Supervisor struct {
	opts Options
	log  zerolog.Logger

	host host.Host
	dht  atomic.Pointer[dht.IpfsDHT]
	mode atomic.Int32 // resolved Mode (never ModeAuto) backing the DHT currently installed

	registry *registry.Registry
	hub      *broadcast.Hub
	peers    *discoverystore.Store

	commands    chan Command
	completions chan completion
	pending     map[registry.Handle]func(registry.Outcome)

	connEvents      chan broadcast.Event
	discoveryEvents chan broadcast.Event

	state lifecycle

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mdnsService mdns.Service
}

// New constructs a Supervisor bound to opts. It does not touch the network
// until Start is called.
func New(opts Options) *Supervisor {
	if opts.EventBufferSize < 1 {
		opts.EventBufferSize = 32
	}
	if opts.CommandBufferSize < 1 {
		opts.CommandBufferSize = 16
	}
	if opts.ReplicationFactor < 1 {
		opts.ReplicationFactor = 20
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.DiscoveryInterval <= 0 {
		opts.DiscoveryInterval = 30 * time.Second
	}
	db := opts.DiscoveryStore
	if db == nil {
		db = storage.NewMemory()
	}
	return &Supervisor{
		opts:            opts,
		log:             klog.WithComponent("swarm"),
		registry:        registry.New(),
		hub:             broadcast.NewHub(opts.EventBufferSize),
		peers:           discoverystore.New(db),
		commands:        make(chan Command, opts.CommandBufferSize),
		completions:     make(chan completion, opts.CommandBufferSize),
		pending:         make(map[registry.Handle]func(registry.Outcome)),
		connEvents:      make(chan broadcast.Event, opts.EventBufferSize),
		discoveryEvents: make(chan broadcast.Event, opts.EventBufferSize),
		done:            make(chan struct{}),
		state:           stateStarting,
	}
}

// Commands returns the channel the facade sends Commands on. The channel is
// valid immediately after New; commands sent before Start completes its
// network setup are simply queued in the buffer.
func (s *Supervisor) Commands() chan<- Command {
	return s.commands
}

// Start brings up the libp2p host and DHT, registers the connection and
// discovery notifiers, then launches the run loop in the background. It
// mirrors that construction order: host, then DHT, then discovery, then
// background loops, each step torn down on failure in reverse order.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	hostOpts := []libp2p.Option{
		libp2p.ListenAddrStrings(s.opts.ListenAddrs...),
	}
	if len(s.opts.ListenAddrs) == 0 {
		hostOpts = []libp2p.Option{libp2p.NoListenAddrs}
	}
	if s.opts.Identity != nil {
		hostOpts = append(hostOpts, libp2p.Identity(s.opts.Identity))
	}
	if s.opts.AgentVersion != "" {
		hostOpts = append(hostOpts, libp2p.UserAgent(s.opts.AgentVersion))
	}

	h, err := libp2p.New(hostOpts...)
	if err != nil {
		return netlog.Wrap("swarm.Start", netlog.KindBindFailed, err)
	}
	s.host = h

	h.Network().Notify(&connNotifiee{s: s})

	kadDHT, err := s.newDHT(s.opts.Mode)
	if err != nil {
		h.Close()
		return err
	}
	s.dht.Store(kadDHT)

	bctx, bcancel := context.WithTimeout(s.ctx, s.opts.QueryTimeout)
	err = kadDHT.Bootstrap(bctx)
	bcancel()
	if err != nil {
		kadDHT.Close()
		h.Close()
		return netlog.Wrap("swarm.Start", netlog.KindTimeout, err)
	}

	for _, addr := range s.host.Addrs() {
		s.hub.Publish(broadcast.Event{ListeningOn: &broadcast.ListeningOn{
			Addr: fmt.Sprintf("%s/p2p/%s", addr, s.host.ID()),
		}})
	}
	s.hub.Publish(broadcast.Event{DhtBootstrapped: &broadcast.DhtBootstrapped{}})

	for _, bp := range s.opts.BootstrapPeers {
		go s.dialBootstrapPeer(bp)
	}
	s.restorePersistedPeers()

	if s.opts.EnableMDNS {
		svc := mdns.NewMdnsService(h, s.opts.ProtocolName, &mdnsNotifee{s: s})
		if err := svc.Start(); err == nil {
			s.mdnsService = svc
		}
	}

	go s.runDiscovery(kadDHT)
	go s.run()
	return nil
}

// resolveMode turns mode into a concrete Server/Client mode, never Auto.
// ModeServer and ModeClient pass through unchanged; ModeAuto resolves to
// Server when the host has at least one bound listen address reachable
// from host.Addrs(), else Client — a node with nothing to be dialed on
// has no business announcing itself as a DHT server.
func (s *Supervisor) resolveMode(mode Mode) Mode {
	if mode != ModeAuto {
		return mode
	}
	if len(s.host.Addrs()) > 0 {
		return ModeServer
	}
	return ModeClient
}

// newDHT constructs a *dht.IpfsDHT bound to s.host per mode. ModeAuto is
// never passed to the kad-dht library: resolveMode resolves it first, and
// the resolved value is recorded in s.mode so CurrentMode reflects what is
// actually running rather than what was requested. SetModeCommand is the
// only thing that later flips it, each time by constructing a fresh DHT
// and atomically swapping the pointer so in-flight operations holding
// their own reference are never orphaned.
func (s *Supervisor) newDHT(mode Mode) (*dht.IpfsDHT, error) {
	resolved := s.resolveMode(mode)
	dhtMode := dht.ModeServer
	if resolved == ModeClient {
		dhtMode = dht.ModeClient
	}
	validator := s.opts.Validator
	if validator == nil {
		validator = acceptAllValidator{}
	}
	kadOpts := []dht.Option{
		dht.Mode(dhtMode),
		dht.Concurrency(10),
		dht.Validator(record.NamespacedValidator{recordNamespaceKey: validator}),
	}
	kadDHT, err := dht.New(s.ctx, s.host, kadOpts...)
	if err != nil {
		return nil, netlog.Wrap("swarm.newDHT", netlog.KindBindFailed, err)
	}
	s.mode.Store(int32(resolved))
	return kadDHT, nil
}

// CurrentMode reports the DHT mode actually in effect — always Server or
// Client, never Auto — safe to call from any goroutine.
func (s *Supervisor) CurrentMode() Mode {
	return Mode(s.mode.Load())
}

// run is the supervisor's single cooperative loop: every mutation of host,
// dht, registry, and hub subscriber state happens on this goroutine.
func (s *Supervisor) run() {
	defer close(s.done)
	s.state = stateRunning

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case cmd := <-s.commands:
			s.dispatch(cmd)

		case c := <-s.completions:
			if s.registry.Resolve(c.handle, c.outcome) {
				c.translate(c.outcome)
			}
			delete(s.pending, c.handle)

		case evt := <-s.connEvents:
			s.hub.Publish(evt)

		case evt := <-s.discoveryEvents:
			s.hub.Publish(evt)

		case now := <-sweep.C:
			for _, h := range s.registry.SweepExpired(now) {
				if fn, ok := s.pending[h]; ok {
					fn(registry.Outcome{Err: netlog.New("swarm.sweep", netlog.KindTimeout)})
					delete(s.pending, h)
				}
			}

		case <-s.ctx.Done():
			s.shutdown()
			return
		}
	}
}

// dispatch routes one Command to its handler. Commands whose work is
// synchronous (AddAddress, SetMode, Subscribe) are handled inline on this
// goroutine; Commands requiring a blocking network call (Put, Get,
// Bootstrap, Dial) are handed to dht_handler.go, which spawns a goroutine
// per call and reports back through s.completions.
func (s *Supervisor) dispatch(cmd Command) {
	switch c := cmd.(type) {
	case PutCommand:
		s.handlePut(c)
	case GetCommand:
		s.handleGet(c)
	case BootstrapCommand:
		s.handleBootstrap(c)
	case DialCommand:
		s.handleDial(c)
	case AddAddressCommand:
		s.handleAddAddress(c)
	case SetModeCommand:
		s.handleSetMode(c)
	case SubscribeCommand:
		events, detach := s.hub.Subscribe()
		c.Reply <- SubscribeResult{Events: events, Detach: detach}
	case ShutdownCommand:
		s.cancel()
		c.Reply <- Ack{}
	default:
		s.log.Warn().Msg("swarm: unknown command type ignored")
	}
}

// shutdown tears the supervisor down in the reverse of Start's order:
// discovery first (implicitly, via ctx cancellation stopping runDiscovery),
// then the pending-query registry (every caller still waiting gets a
// Cancelled error), then the DHT, then the host.
func (s *Supervisor) shutdown() {
	s.state = stateStopping
	n := s.registry.ResolveAll(registry.Outcome{Err: netlog.New("swarm.shutdown", netlog.KindCancelled)})
	for h, fn := range s.pending {
		_ = h
		fn(registry.Outcome{Err: netlog.New("swarm.shutdown", netlog.KindCancelled)})
	}
	s.pending = make(map[registry.Handle]func(registry.Outcome))
	if n > 0 {
		s.log.Debug().Int("cancelled", n).Msg("swarm: cancelled in-flight operations on shutdown")
	}
	if s.mdnsService != nil {
		_ = s.mdnsService.Close()
	}
	if d := s.dht.Load(); d != nil {
		d.Close()
	}
	if s.host != nil {
		s.host.Close()
	}
	s.state = stateStopped
}

// Wait blocks until the run loop has finished shutting down.
func (s *Supervisor) Wait() {
	<-s.done
}

// Host returns the underlying libp2p host, for callers (identity, the
// facade) that need the local peer ID or listen addresses directly.
func (s *Supervisor) Host() host.Host {
	return s.host
}

// currentDHT returns the live *dht.IpfsDHT, safe to call concurrently with
// SetModeCommand's pointer swap.
func (s *Supervisor) currentDHT() *dht.IpfsDHT {
	return s.dht.Load()
}
