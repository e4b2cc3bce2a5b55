package swarm

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/routing"

	"github.com/netabase/netabase/internal/broadcast"
	netlog "github.com/netabase/netabase/internal/errs"
	"github.com/netabase/netabase/internal/registry"
)

// recordNamespaceKey is the go-libp2p-record namespace Netabase registers
// its validator under (see newDHT's record.NamespacedValidator). Every DHT
// key Netabase reads or writes is prefixed with it, per the kad-dht
// convention of routing keys shaped "/<namespace>/<rest>".
const recordNamespaceKey = "netabase"

const recordNamespace = "/" + recordNamespaceKey + "/"

func recordKey(key []byte) string {
	return recordNamespace + hex.EncodeToString(key)
}

// acceptAllValidator is used when no caller-supplied record.Validator is
// configured: it accepts any value and, on SelectRecord conflicts, always
// prefers the first record. internal/validator's signature-checking
// Validator can be supplied through Options.Validator instead;
// netabase.Start does not supply one.
type acceptAllValidator struct{}

func (acceptAllValidator) Validate(key string, value []byte) error { return nil }

func (acceptAllValidator) Select(key string, values [][]byte) (int, error) { return 0, nil }

// handlePut dispatches a PutCommand to a background goroutine: PutValue's
// real implementation (see DESIGN.md) ignores any quorum-shaped option and
// always fans out to every peer GetClosestPeers returns, so Netabase cannot
// learn a replica count from the write itself. Instead it performs a
// read-after-write GetValue call with dht.Quorum(required), which does
// consult its quorum option, and treats that verification read's outcome as
// the Put's replication result.
func (s *Supervisor) handlePut(c PutCommand) {
	required := c.Quorum.Resolve(s.opts.ReplicationFactor)
	sink := make(chan registry.Outcome, 1)
	handle := s.registry.Insert(sink, time.Now().Add(2*s.opts.QueryTimeout))
	s.pending[handle] = func(o registry.Outcome) {
		c.Reply <- PutResult{Err: o.Err}
	}

	d := s.currentDHT()
	key := recordKey(c.Key)
	value := c.Value
	timeout := s.opts.QueryTimeout
	parentCtx := s.ctx
	op := "swarm.Put"

	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		err := d.PutValue(ctx, key, value)
		cancel()
		if err != nil {
			wrapped := netlog.Wrap(op, netlog.KindDialFailed, err)
			s.completions <- completion{
				handle:  handle,
				outcome: registry.Outcome{Err: wrapped},
				translate: func(registry.Outcome) {
					c.Reply <- PutResult{Err: wrapped}
				},
			}
			return
		}

		gctx, gcancel := context.WithTimeout(parentCtx, timeout)
		_, gerr := d.GetValue(gctx, key, dht.Quorum(required))
		gcancel()

		var result PutResult
		if gerr != nil {
			result = PutResult{ReachedReplicas: 0, Err: netlog.WrapQuorumFailed(op, 0, required)}
		} else {
			result = PutResult{ReachedReplicas: required}
		}
		s.completions <- completion{
			handle:    handle,
			outcome:   registry.Outcome{Err: result.Err},
			translate: func(registry.Outcome) { c.Reply <- result },
		}
	}()
}

// handleGet dispatches a GetCommand. A routing.ErrNotFound from GetValue is
// translated to GetResult{Found: false}, not an error: the facade maps that
// to an empty option rather than surfacing a failure.
func (s *Supervisor) handleGet(c GetCommand) {
	sink := make(chan registry.Outcome, 1)
	handle := s.registry.Insert(sink, time.Now().Add(s.opts.QueryTimeout))
	s.pending[handle] = func(o registry.Outcome) {
		c.Reply <- GetResult{Err: o.Err}
	}

	d := s.currentDHT()
	key := recordKey(c.Key)
	timeout := s.opts.QueryTimeout
	parentCtx := s.ctx
	op := "swarm.Get"

	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		value, err := d.GetValue(ctx, key)
		cancel()

		var result GetResult
		var registryErr error
		switch {
		case err == nil:
			result = GetResult{Found: true, Value: value}
		case errors.Is(err, routing.ErrNotFound):
			result = GetResult{Found: false}
		default:
			registryErr = netlog.Wrap(op, netlog.KindDialFailed, err)
			result = GetResult{Err: registryErr}
		}
		s.completions <- completion{
			handle:    handle,
			outcome:   registry.Outcome{Err: registryErr},
			translate: func(registry.Outcome) { c.Reply <- result },
		}
	}()
}

// handleBootstrap dispatches a BootstrapCommand: a fresh routing-table
// bootstrap round against the DHT's configured seed set.
func (s *Supervisor) handleBootstrap(c BootstrapCommand) {
	sink := make(chan registry.Outcome, 1)
	handle := s.registry.Insert(sink, time.Now().Add(s.opts.QueryTimeout))
	s.pending[handle] = func(o registry.Outcome) {
		c.Reply <- BootstrapResult{Err: o.Err}
	}

	d := s.currentDHT()
	timeout := s.opts.QueryTimeout
	parentCtx := s.ctx

	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		err := d.Bootstrap(ctx)
		cancel()
		var wrapped error
		if err != nil {
			wrapped = netlog.Wrap("swarm.Bootstrap", netlog.KindTimeout, err)
		}
		s.completions <- completion{
			handle:  handle,
			outcome: registry.Outcome{Err: wrapped},
			translate: func(registry.Outcome) {
				if wrapped == nil {
					s.hub.Publish(broadcast.Event{DhtBootstrapped: &broadcast.DhtBootstrapped{}})
				}
				c.Reply <- BootstrapResult{Err: wrapped}
			},
		}
	}()
}

// handleDial dispatches a DialCommand against a well-formed multiaddr.
func (s *Supervisor) handleDial(c DialCommand) {
	sink := make(chan registry.Outcome, 1)
	handle := s.registry.Insert(sink, time.Now().Add(s.opts.QueryTimeout))
	s.pending[handle] = func(o registry.Outcome) {
		c.Reply <- DialResult{Err: o.Err}
	}

	h := s.host
	timeout := s.opts.QueryTimeout
	parentCtx := s.ctx
	addr := c.Addr

	go func() {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			wrapped := netlog.Wrap("swarm.Dial", netlog.KindInvalidAddress, err)
			s.completions <- completion{
				handle:    handle,
				outcome:   registry.Outcome{Err: wrapped},
				translate: func(registry.Outcome) { c.Reply <- DialResult{Err: wrapped} },
			}
			return
		}
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		err = h.Connect(ctx, *info)
		cancel()
		var wrapped error
		if err != nil {
			wrapped = netlog.Wrap("swarm.Dial", netlog.KindDialFailed, err)
		}
		s.completions <- completion{
			handle:  handle,
			outcome: registry.Outcome{Err: wrapped},
			translate: func(registry.Outcome) {
				c.Reply <- DialResult{PeerID: info.ID, Err: wrapped}
			},
		}
	}()
}

// handleAddAddress runs inline: it only touches the peerstore, never the
// wire, so there is no call worth handing to a goroutine.
func (s *Supervisor) handleAddAddress(c AddAddressCommand) {
	info, err := peer.AddrInfoFromString(c.Addr)
	if err != nil {
		c.Reply <- Ack{Err: netlog.Wrap("swarm.AddAddress", netlog.KindInvalidAddress, err)}
		return
	}
	s.host.Peerstore().AddAddrs(c.PeerID, info.Addrs, 24*time.Hour)
	if d := s.currentDHT(); d != nil {
		d.RoutingTable().TryAddPeer(c.PeerID, true, false)
	}
	c.Reply <- Ack{}
}

// handleSetMode resolves an Open Question: ModeAuto is never passed to
// go-libp2p-kad-dht directly — newDHT's resolveMode decides Server vs.
// Client for it based on s.host.Addrs(). Switching modes constructs a
// fresh *dht.IpfsDHT bound to the same host and atomically swaps the
// supervisor's pointer, so operations already holding a captured
// reference to the old DHT finish against it rather than being orphaned
// mid-query. An explicit ModeServer request is refused with
// KindModeMismatch when the host has no configured listen addresses: a
// node that cannot be dialed cannot usefully serve DHT traffic. ModeAuto
// is never refused here — it always succeeds, degrading to Client instead
// of being rejected when there is nothing to listen on.
func (s *Supervisor) handleSetMode(c SetModeCommand) {
	if c.Mode == ModeServer && len(s.opts.ListenAddrs) == 0 {
		c.Reply <- Ack{Err: netlog.New("swarm.SetMode", netlog.KindModeMismatch)}
		return
	}
	newDHT, err := s.newDHT(c.Mode)
	if err != nil {
		c.Reply <- Ack{Err: err}
		return
	}
	old := s.dht.Swap(newDHT)
	s.opts.Mode = c.Mode
	if old != nil {
		go old.Close()
	}
	c.Reply <- Ack{}
}

// dialBootstrapPeer connects to a configured bootstrap peer at Start time.
// Failures are non-fatal: DHT discovery and later Dial commands can still
// reach the network through other peers.
func (s *Supervisor) dialBootstrapPeer(bp BootstrapPeer) {
	info, err := peer.AddrInfoFromString(bp.Addr)
	if err != nil {
		s.log.Warn().Str("addr", bp.Addr).Err(err).Msg("swarm: bad bootstrap address")
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.QueryTimeout)
	defer cancel()
	if err := s.host.Connect(ctx, *info); err != nil {
		s.log.Warn().Str("peer", info.ID.String()).Err(err).Msg("swarm: bootstrap peer connect failed")
	}
}
