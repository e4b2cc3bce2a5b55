package netabase

import (
	"context"
	"testing"
	"time"

	"github.com/netabase/netabase/config"
	"github.com/netabase/netabase/internal/schema"
)

// noteDoc is a minimal schema type used to exercise the facade's generic
// Put/Get against a real, in-process Store.
type noteDoc struct {
	ID   string `netabase:"key"`
	Body string
}

func (d noteDoc) MarshalValue() ([]byte, error) {
	return []byte(d.Body), nil
}

func (d *noteDoc) UnmarshalValue(b []byte) error {
	d.Body = string(b)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Identity.ProtocolName = "/netabase-facade-test"
	cfg.Listen.Addrs = []string{"/ip4/127.0.0.1/tcp/0"}
	cfg.DHT.ReplicationFactor = 1
	cfg.DHT.QueryTimeout = 10 * time.Second
	cfg.Discovery.EnableMDNS = false
	return cfg
}

func TestStartShutdown(t *testing.T) {
	ctx := context.Background()
	s, err := Start(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.PeerID().Validate() != nil {
		t.Fatal("expected a valid peer ID after Start")
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	// Idempotent: a second Shutdown call must not hang or error.
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestStartRejectsNilConfig(t *testing.T) {
	if _, err := Start(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Listen.Addrs = []string{"not-a-multiaddr"}
	if _, err := Start(context.Background(), cfg); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestPutThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Start(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Shutdown(ctx)

	desc, err := schema.Register[noteDoc, *noteDoc]()
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	note := noteDoc{ID: "note-1", Body: "hello netabase"}
	if err := Put(ctx, s, desc, note, Quorum{Kind: QuorumOne}, nil, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	key, err := desc.KeyOf(note)
	if err != nil {
		t.Fatalf("KeyOf: %v", err)
	}
	got, found, err := Get(ctx, s, desc, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected to find the record just put")
	}
	if got.Body != note.Body {
		t.Errorf("Body = %q, want %q", got.Body, note.Body)
	}
}

func TestGetMissingKeyNotFound(t *testing.T) {
	ctx := context.Background()
	s, err := Start(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Shutdown(ctx)

	desc, err := schema.Register[noteDoc, *noteDoc]()
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, found, err := Get(ctx, s, desc, schema.KeyFromBytes([]byte("never-written")))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("expected Found=false for a key never written")
	}
}

func TestSubscribeReceivesPeerEvents(t *testing.T) {
	ctx := context.Background()
	a, err := Start(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("Start a: %v", err)
	}
	defer a.Shutdown(ctx)

	b, err := Start(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("Start b: %v", err)
	}
	defer b.Shutdown(ctx)

	events, detach, err := a.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer detach()

	bAddrs := b.Addrs()
	if len(bAddrs) == 0 {
		t.Skip("no listen address available to dial")
	}

	if err := a.Dial(ctx, bAddrs[0]); err != nil {
		t.Fatalf("Dial: %v", err)
	}

	select {
	case evt := <-events:
		if evt.PeerUp == nil {
			t.Errorf("expected a PeerUp event after Dial, got %+v", evt)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for a network event after Dial")
	}
}
