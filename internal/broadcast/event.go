// Package broadcast implements the facade's network event stream: a lazy,
// multi-consumer sequence that every Subscribe call joins from the moment
// of subscription, with lagging-slow-consumer semantics so one stalled
// subscriber never blocks another or the swarm supervisor. No library in
// the example corpus covers exactly this concern once go-libp2p-pubsub is
// out of scope (it broadcasts across the wire, not in-process to local
// subscribers) — see DESIGN.md for why this is built on channels alone.
package broadcast

import "github.com/libp2p/go-libp2p/core/peer"

// Event is the sum of events a Subscribe call observes. Exactly one
// concrete type below is populated per Event value.
type Event struct {
	ListeningOn     *ListeningOn
	PeerUp          *PeerUp
	PeerDown        *PeerDown
	PeerDiscovered  *PeerDiscovered
	PeerExpired     *PeerExpired
	DhtBootstrapped *DhtBootstrapped
	Lagged          *Lagged
	FatalError      *FatalError
}

// ListeningOn reports a new locally bound listen address.
type ListeningOn struct {
	Addr string
}

// PeerUp reports a newly established connection.
type PeerUp struct {
	PeerID peer.ID
}

// PeerDown reports a connection's closure.
type PeerDown struct {
	PeerID peer.ID
}

// PeerDiscovered reports a peer found via mDNS or DHT routing discovery.
type PeerDiscovered struct {
	PeerID peer.ID
	Addr   string
}

// PeerExpired reports a previously discovered peer no longer reachable at
// its last known address.
type PeerExpired struct {
	PeerID peer.ID
}

// DhtBootstrapped reports that a DHT bootstrap round completed: the one
// Start runs, or one triggered by a Bootstrap command.
type DhtBootstrapped struct{}

// Lagged reports that a subscriber's buffer overflowed: missed_count events
// were dropped before this marker, and the subscriber now rejoins the live
// tail.
type Lagged struct {
	MissedCount uint64
}

// FatalError reports that the swarm supervisor is terminating.
type FatalError struct {
	Reason string
}
