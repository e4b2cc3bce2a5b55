package swarm

import (
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/multiformats/go-multiaddr"

	"github.com/netabase/netabase/internal/broadcast"
)

// connNotifiee tracks connection lifecycle via network.Notifiee and
// forwards PeerUp/PeerDown onto the supervisor's connEvents channel, which
// the run loop republishes through the broadcast hub. Grounded on the
// teacher's internal/p2p.connNotifier: ignore self-connections, only treat
// a peer as down once every connection to it has closed.
type connNotifiee struct {
	s *Supervisor
}

func (cn *connNotifiee) Connected(_ network.Network, conn network.Conn) {
	remote := conn.RemotePeer()
	if remote == cn.s.host.ID() {
		return
	}
	cn.s.emitConn(broadcast.Event{PeerUp: &broadcast.PeerUp{PeerID: remote}})
}

func (cn *connNotifiee) Disconnected(net network.Network, conn network.Conn) {
	remote := conn.RemotePeer()
	if len(net.ConnsToPeer(remote)) > 0 {
		return
	}
	cn.s.emitConn(broadcast.Event{PeerDown: &broadcast.PeerDown{PeerID: remote}})
}

func (cn *connNotifiee) Listen(network.Network, multiaddr.Multiaddr) {}

func (cn *connNotifiee) ListenClose(network.Network, multiaddr.Multiaddr) {}

// emitConn is safe to call from any goroutine: it sends onto a buffered
// channel the run loop alone reads from, so no lock is needed.
func (s *Supervisor) emitConn(evt broadcast.Event) {
	select {
	case s.connEvents <- evt:
	case <-s.ctx.Done():
	}
}
