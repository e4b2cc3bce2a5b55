package swarm

import (
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/netabase/netabase/internal/storage"
)

// BootstrapPeer names a peer the supervisor dials (or at minimum learns the
// address of) during Starting.
type BootstrapPeer struct {
	PeerID peer.ID
	Addr   string
}

// Options carries everything the supervisor needs to construct its host
// and DHT. It intentionally does not depend on the config package: the
// composition root (the netabase facade or a cmd binary) translates
// config.Config into Options, keeping this package free of a dependency on
// the configuration-file format.
type Options struct {
	Identity          crypto.PrivKey
	ProtocolName      string
	ListenAddrs       []string
	BootstrapPeers    []BootstrapPeer
	ReplicationFactor int
	QueryTimeout      time.Duration
	Mode              Mode
	AgentVersion      string
	EnableMDNS        bool
	DiscoveryInterval time.Duration
	EventBufferSize   int
	CommandBufferSize int

	// DiscoveryStore persists observed peer addresses across restarts.
	// A storage.MemoryDB is used by callers that don't want persistence.
	DiscoveryStore storage.DB

	// Validator optionally plugs a github.com/libp2p/go-libp2p-record
	// Validator into the DHT (see internal/validator). Nil installs
	// acceptAllValidator under the netabase record namespace (see newDHT).
	Validator recordValidator
}

// recordValidator mirrors github.com/libp2p/go-libp2p-record.Validator's
// method set without importing that package here, so Options stays usable
// without forcing every caller to import go-libp2p-record directly.
type recordValidator interface {
	Validate(key string, value []byte) error
	Select(key string, values [][]byte) (int, error)
}
