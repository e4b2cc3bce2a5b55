// Package discoverystore persists addresses of peers Netabase has seen, so
// a restarted node can reconnect without waiting for mDNS or DHT discovery
// to rediscover them from scratch. Generalized from chain-node peer
// bookkeeping ("dht"/"mdns"/"seed"/"gossip" sources) to Netabase's own
// discovery sources.
package discoverystore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/netabase/netabase/internal/errs"
	"github.com/netabase/netabase/internal/storage"
)

const (
	peerKeyPrefix     = "peer/"
	staleThreshold    = 24 * time.Hour
	maxPersistedPeers = 2000
)

// Source names where a peer record was learned from.
type Source string

const (
	SourceBootstrap Source = "bootstrap"
	SourceMDNS      Source = "mdns"
	SourceDHT       Source = "dht"
	SourceDial      Source = "dial"
)

// Record is a persisted peer entry.
type Record struct {
	ID       string   `json:"id"`
	Addrs    []string `json:"addrs"`
	LastSeen int64    `json:"last_seen"`
	Source   Source   `json:"source"`
}

// Store persists peer Records in a storage.DB under the "peer/" prefix.
type Store struct {
	db storage.DB
}

// New creates a Store backed by db. A storage.MemoryDB gives a Store with
// no cross-restart persistence, for callers that don't want it.
func New(db storage.DB) *Store {
	return &Store{db: db}
}

func keyFromString(id string) []byte {
	return []byte(peerKeyPrefix + id)
}

func keyFor(id peer.ID) []byte {
	return keyFromString(id.String())
}

// Save persists rec. If the store is already at capacity and rec names a
// peer not already present, the save is silently skipped rather than
// evicting an existing entry.
func (s *Store) Save(rec Record) error {
	key := keyFromString(rec.ID)
	exists, err := s.db.Has(key)
	if err != nil {
		return errs.Wrap("discoverystore.Save", errs.KindUnknown, err)
	}
	if !exists {
		count, err := s.Count()
		if err != nil {
			return err
		}
		if count >= maxPersistedPeers {
			return nil
		}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap("discoverystore.Save", errs.KindMalformed, err)
	}
	return s.db.Put(key, data)
}

// Load retrieves a single peer Record by ID. It returns a *errs.Error with
// KindNotFound wrapping the underlying storage error when absent.
func (s *Store) Load(id peer.ID) (*Record, error) {
	data, err := s.db.Get(keyFor(id))
	if err != nil {
		return nil, errs.Wrap("discoverystore.Load", errs.KindNotFound, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.Wrap("discoverystore.Load", errs.KindMalformed, err)
	}
	return &rec, nil
}

// LoadAll returns every persisted Record. Corrupt entries are skipped
// rather than aborting the scan.
func (s *Store) LoadAll() ([]Record, error) {
	var records []Record
	err := s.db.ForEach([]byte(peerKeyPrefix), func(_, value []byte) error {
		var rec Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("discoverystore.LoadAll", errs.KindUnknown, err)
	}
	return records, nil
}

// Delete removes id's persisted record, if any.
func (s *Store) Delete(id peer.ID) error {
	if err := s.db.Delete(keyFor(id)); err != nil {
		return errs.Wrap("discoverystore.Delete", errs.KindUnknown, err)
	}
	return nil
}

// PruneStale removes every record last seen before now-threshold, using
// staleThreshold when threshold is zero. It returns the number pruned.
func (s *Store) PruneStale(threshold time.Duration) (int, error) {
	if threshold <= 0 {
		threshold = staleThreshold
	}
	cutoff := time.Now().Add(-threshold).Unix()
	var toDelete [][]byte

	err := s.db.ForEach([]byte(peerKeyPrefix), func(key, value []byte) error {
		var rec Record
		keyCopy := append([]byte(nil), key...)
		if err := json.Unmarshal(value, &rec); err != nil {
			toDelete = append(toDelete, keyCopy)
			return nil
		}
		if rec.LastSeen < cutoff {
			toDelete = append(toDelete, keyCopy)
		}
		return nil
	})
	if err != nil {
		return 0, errs.Wrap("discoverystore.PruneStale", errs.KindUnknown, err)
	}
	for _, k := range toDelete {
		if err := s.db.Delete(k); err != nil {
			return 0, errs.Wrap("discoverystore.PruneStale", errs.KindUnknown, err)
		}
	}
	return len(toDelete), nil
}

// Count returns the number of persisted records.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.db.ForEach([]byte(peerKeyPrefix), func(_, _ []byte) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("discoverystore: count peers: %w", err)
	}
	return count, nil
}
