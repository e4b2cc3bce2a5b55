package swarm

import (
	"context"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	dutil "github.com/libp2p/go-libp2p/p2p/discovery/util"
	"github.com/multiformats/go-multiaddr"

	"github.com/netabase/netabase/internal/broadcast"
	"github.com/netabase/netabase/internal/discoverystore"
)

// peerDialTimeout bounds a single discovery-triggered dial attempt.
const peerDialTimeout = 5 * time.Second

// mdnsNotifee implements mdns.Notifee. It is grounded on a
// discoveryNotifee: ignore self, dial with a short timeout, and report the
// peer as discovered regardless of whether the dial itself succeeds — mDNS
// found it on the local network either way.
type mdnsNotifee struct {
	s *Supervisor
}

func (n *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == n.s.host.ID() {
		return
	}
	n.s.emitDiscovery(broadcast.Event{PeerDiscovered: &broadcast.PeerDiscovered{
		PeerID: pi.ID,
		Addr:   addrInfoString(pi),
	}})
	n.s.persistDiscoveredPeer(pi, discoverystore.SourceMDNS)
	ctx, cancel := context.WithTimeout(n.s.ctx, peerDialTimeout)
	defer cancel()
	_ = n.s.host.Connect(ctx, pi)
}

// runDiscovery advertises this node under the configured rendezvous
// namespace and periodically finds peers through the DHT's routing
// discovery, grounded on a routing-discovery loop. It
// additionally tracks which peer IDs are currently visible so a peer that
// drops out of consecutive rounds is reported via PeerExpired, a concern
// a chain-node discovery loop, tracking connection state instead, has no equivalent for.
func (s *Supervisor) runDiscovery(kadDHT *dht.IpfsDHT) {
	routingDiscovery := drouting.NewRoutingDiscovery(kadDHT)
	dutil.Advertise(s.ctx, routingDiscovery, s.opts.ProtocolName)

	ticker := time.NewTicker(s.opts.DiscoveryInterval)
	defer ticker.Stop()

	seen := make(map[peer.ID]struct{})

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.findPeers(routingDiscovery, seen)
		}
	}
}

func (s *Supervisor) findPeers(rd *drouting.RoutingDiscovery, seen map[peer.ID]struct{}) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.QueryTimeout)
	defer cancel()

	peerCh, err := rd.FindPeers(ctx, s.opts.ProtocolName)
	if err != nil {
		return
	}

	round := make(map[peer.ID]struct{})
	for p := range peerCh {
		if p.ID == s.host.ID() || len(p.Addrs) == 0 {
			continue
		}
		round[p.ID] = struct{}{}
		if _, already := seen[p.ID]; !already {
			s.emitDiscovery(broadcast.Event{PeerDiscovered: &broadcast.PeerDiscovered{
				PeerID: p.ID,
				Addr:   addrInfoString(p),
			}})
			s.persistDiscoveredPeer(p, discoverystore.SourceDHT)
		}
		dialCtx, dialCancel := context.WithTimeout(s.ctx, peerDialTimeout)
		_ = s.host.Connect(dialCtx, p)
		dialCancel()
	}

	for id := range seen {
		if _, stillThere := round[id]; !stillThere {
			s.emitDiscovery(broadcast.Event{PeerExpired: &broadcast.PeerExpired{PeerID: id}})
		}
	}
	for id := range seen {
		delete(seen, id)
	}
	for id := range round {
		seen[id] = struct{}{}
	}
}

// emitDiscovery is safe to call from any goroutine: it sends onto a
// buffered channel the run loop alone reads from.
func (s *Supervisor) emitDiscovery(evt broadcast.Event) {
	select {
	case s.discoveryEvents <- evt:
	case <-s.ctx.Done():
	}
}

func addrInfoString(pi peer.AddrInfo) string {
	if len(pi.Addrs) == 0 {
		return ""
	}
	return pi.Addrs[0].String() + "/p2p/" + pi.ID.String()
}

// persistDiscoveredPeer records pi in the discovery store, best-effort: a
// storage failure here never blocks discovery itself, only a future
// restart's ability to reconnect faster.
func (s *Supervisor) persistDiscoveredPeer(pi peer.AddrInfo, source discoverystore.Source) {
	addrs := make([]string, len(pi.Addrs))
	for i, a := range pi.Addrs {
		addrs[i] = a.String()
	}
	err := s.peers.Save(discoverystore.Record{
		ID:       pi.ID.String(),
		Addrs:    addrs,
		LastSeen: time.Now().Unix(),
		Source:   source,
	})
	if err != nil {
		s.log.Debug().Err(err).Str("peer", pi.ID.String()).Msg("swarm: failed to persist discovered peer")
	}
}

// restorePersistedPeers reconnects to peers learned in a previous run,
// before a fresh DHT bootstrap round or mDNS has had a chance to rediscover
// them. Stale entries older than the store's own prune threshold are
// pruned rather than dialed.
func (s *Supervisor) restorePersistedPeers() {
	if _, err := s.peers.PruneStale(0); err != nil {
		s.log.Debug().Err(err).Msg("swarm: failed to prune stale persisted peers")
	}
	records, err := s.peers.LoadAll()
	if err != nil {
		s.log.Debug().Err(err).Msg("swarm: failed to load persisted peers")
		return
	}
	for _, rec := range records {
		id, err := peer.Decode(rec.ID)
		if err != nil {
			continue
		}
		addrs := make([]multiaddr.Multiaddr, 0, len(rec.Addrs))
		for _, a := range rec.Addrs {
			ma, err := multiaddr.NewMultiaddr(a)
			if err != nil {
				continue
			}
			addrs = append(addrs, ma)
		}
		if len(addrs) == 0 {
			continue
		}
		s.host.Peerstore().AddAddrs(id, addrs, peerstore.TempAddrTTL)
		go func(info peer.AddrInfo) {
			ctx, cancel := context.WithTimeout(s.ctx, peerDialTimeout)
			defer cancel()
			_ = s.host.Connect(ctx, info)
		}(peer.AddrInfo{ID: id, Addrs: addrs})
	}
}
