package schema

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Record is the wire-level shape of one DHT entry: a raw key, the framed
// value bytes actually handed to go-libp2p-kad-dht, and the optional
// metadata Netabase's own envelope carries alongside the payload.
type Record struct {
	Key       Key
	Value     []byte
	Publisher *peer.ID
	ExpiresAt *time.Time
}
