package discoverystore

import (
	"fmt"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/netabase/netabase/internal/errs"
	"github.com/netabase/netabase/internal/storage"
)

func newTestStore() *Store {
	return New(storage.NewMemory())
}

func testPeerID(s string) (peer.ID, string) {
	id := peer.ID(s)
	return id, id.String()
}

func TestStoreSaveLoad(t *testing.T) {
	s := newTestStore()
	pid, pidStr := testPeerID("peer-1")

	rec := Record{
		ID:       pidStr,
		Addrs:    []string{"/ip4/192.168.1.1/tcp/4001"},
		LastSeen: time.Now().Unix(),
		Source:   SourceDHT,
	}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(pid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != rec.ID || loaded.Source != rec.Source || loaded.LastSeen != rec.LastSeen {
		t.Errorf("loaded record mismatch: got %+v, want %+v", loaded, rec)
	}
}

func TestStoreLoadMissingIsNotFound(t *testing.T) {
	s := newTestStore()
	pid, _ := testPeerID("absent")
	_, err := s.Load(pid)
	if err == nil {
		t.Fatal("expected an error loading a never-saved peer")
	}
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestStoreLoadAll(t *testing.T) {
	s := newTestStore()
	now := time.Now().Unix()
	for i, raw := range []string{"pa", "pb", "pc"} {
		_, pidStr := testPeerID(raw)
		if err := s.Save(Record{ID: pidStr, LastSeen: now + int64(i), Source: SourceBootstrap}); err != nil {
			t.Fatalf("Save %s: %v", pidStr, err)
		}
	}
	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records, got %d", len(all))
	}
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore()
	pid, pidStr := testPeerID("del-peer")
	if err := s.Save(Record{ID: pidStr, LastSeen: time.Now().Unix(), Source: SourceMDNS}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(pid); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(pid); err == nil {
		t.Error("expected error after delete, got nil")
	}
}

func TestStorePruneStale(t *testing.T) {
	s := newTestStore()
	_, oldStr := testPeerID("old-peer")
	recentPID, recentStr := testPeerID("recent-peer")

	if err := s.Save(Record{ID: oldStr, LastSeen: time.Now().Add(-48 * time.Hour).Unix(), Source: SourceDHT}); err != nil {
		t.Fatalf("Save old: %v", err)
	}
	if err := s.Save(Record{ID: recentStr, LastSeen: time.Now().Add(-1 * time.Hour).Unix(), Source: SourceDHT}); err != nil {
		t.Fatalf("Save recent: %v", err)
	}

	pruned, err := s.PruneStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneStale: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned, got %d", pruned)
	}

	rec, err := s.Load(recentPID)
	if err != nil {
		t.Fatalf("Load recent after prune: %v", err)
	}
	if rec.ID != recentStr {
		t.Errorf("wrong peer survived prune: %q", rec.ID)
	}
}

func TestStoreSaveOverwrite(t *testing.T) {
	s := newTestStore()
	pid, pidStr := testPeerID("overwrite-peer")

	if err := s.Save(Record{ID: pidStr, LastSeen: 1000, Source: SourceMDNS}); err != nil {
		t.Fatalf("Save v1: %v", err)
	}
	if err := s.Save(Record{ID: pidStr, LastSeen: 2000, Source: SourceDHT, Addrs: []string{"a", "b"}}); err != nil {
		t.Fatalf("Save v2: %v", err)
	}

	loaded, err := s.Load(pid)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LastSeen != 2000 || loaded.Source != SourceDHT || len(loaded.Addrs) != 2 {
		t.Errorf("overwrite did not take: %+v", loaded)
	}

	count, _ := s.Count()
	if count != 1 {
		t.Errorf("expected 1 record after overwrite, got %d", count)
	}
}

func TestStoreCapacityRejectsNewPeersAtLimit(t *testing.T) {
	s := newTestStore()
	for i := 0; i < maxPersistedPeers; i++ {
		_, pidStr := testPeerID(fmt.Sprintf("peer-%d", i))
		if err := s.Save(Record{ID: pidStr, LastSeen: int64(i)}); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != maxPersistedPeers {
		t.Fatalf("setup: expected %d records, got %d", maxPersistedPeers, count)
	}

	_, newStr := testPeerID("one-too-many")
	if err := s.Save(Record{ID: newStr, LastSeen: 0}); err != nil {
		t.Fatalf("Save at capacity should not error: %v", err)
	}
	count, _ = s.Count()
	if count != maxPersistedPeers {
		t.Errorf("expected capacity to hold at %d, got %d", maxPersistedPeers, count)
	}
}
