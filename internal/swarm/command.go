// Package swarm implements the swarm supervisor: the single background
// task that exclusively owns the libp2p host and Kademlia DHT, dispatches
// protocol events, matches asynchronous DHT query completions to waiting
// callers via internal/registry, and broadcasts network events via
// internal/broadcast. Modeled on a libp2p chain node's lifecycle
// (construct host, then DHT, then discovery, then background loops) with
// DHT put/get dispatch in place of GossipSub topic plumbing.
package swarm

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// QuorumKind names the replication target a Put targets.
type QuorumKind int

const (
	QuorumOne QuorumKind = iota
	QuorumMajority
	QuorumAll
	QuorumN
)

// Quorum carries a QuorumKind and, for QuorumN, the explicit replica count.
type Quorum struct {
	Kind  QuorumKind
	Count int
}

// Resolve returns the concrete replica count quorum demands given a DHT
// configured with replicationFactor total target replicas.
func (q Quorum) Resolve(replicationFactor int) int {
	switch q.Kind {
	case QuorumOne:
		return 1
	case QuorumMajority:
		return replicationFactor/2 + 1
	case QuorumAll:
		return replicationFactor
	case QuorumN:
		if q.Count < 1 {
			return 1
		}
		return q.Count
	default:
		return 1
	}
}

// Mode names the DHT participation mode a node runs in.
type Mode int

const (
	ModeServer Mode = iota
	ModeClient
	ModeAuto
)

// Command is implemented by every message the facade sends to the
// supervisor's inbox. Each concrete command carries its own reply channel.
type Command interface {
	isCommand()
}

// PutResult is delivered on a PutCommand's Reply channel.
type PutResult struct {
	ReachedReplicas int
	Err             error
}

// PutCommand stores value under key, replicated to at least Quorum's
// resolved replica count.
type PutCommand struct {
	Key       []byte
	Value     []byte
	Publisher *peer.ID
	ExpiresAt *time.Time
	Quorum    Quorum
	Reply     chan PutResult
}

func (PutCommand) isCommand() {}

// GetResult is delivered on a GetCommand's Reply channel. Found is false
// (with Err nil) when the DHT has no record at Key — the facade maps this
// to an empty option, not an error.
type GetResult struct {
	Found bool
	Value []byte
	Err   error
}

// GetCommand retrieves the value stored at Key.
type GetCommand struct {
	Key   []byte
	Reply chan GetResult
}

func (GetCommand) isCommand() {}

// BootstrapResult is delivered on a BootstrapCommand's Reply channel.
type BootstrapResult struct {
	Err error
}

// BootstrapCommand triggers a DHT routing-table bootstrap round.
type BootstrapCommand struct {
	Reply chan BootstrapResult
}

func (BootstrapCommand) isCommand() {}

// DialResult is delivered on a DialCommand's Reply channel.
type DialResult struct {
	PeerID peer.ID
	Err    error
}

// DialCommand connects to the peer named by a well-formed multiaddr.
type DialCommand struct {
	Addr  string
	Reply chan DialResult
}

func (DialCommand) isCommand() {}

// Ack is delivered on commands whose only possible outcomes are success or
// a surfaced error: AddAddress, SetMode.
type Ack struct {
	Err error
}

// AddAddressCommand records addr as a known address for peer in the
// routing table, without dialing it.
type AddAddressCommand struct {
	PeerID peer.ID
	Addr   string
	Reply  chan Ack
}

func (AddAddressCommand) isCommand() {}

// SetModeCommand switches the DHT's participation mode.
type SetModeCommand struct {
	Mode  Mode
	Reply chan Ack
}

func (SetModeCommand) isCommand() {}

// SubscribeResult hands back a live event channel and its detach function.
type SubscribeResult struct {
	Events <-chan Event
	Detach func()
}

// SubscribeCommand joins the network event broadcast stream from this
// moment on.
type SubscribeCommand struct {
	Reply chan SubscribeResult
}

func (SubscribeCommand) isCommand() {}

// ShutdownCommand initiates the Stopping transition. A second Shutdown read
// while the run loop is still running acks at once; once the run loop has
// exited nothing reads Commands(), so a Shutdown sent then gets no ack
// (Store.Shutdown returns when Wait does instead).
type ShutdownCommand struct {
	Reply chan Ack
}

func (ShutdownCommand) isCommand() {}
