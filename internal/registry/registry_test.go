package registry

import (
	"testing"
	"time"

	"github.com/netabase/netabase/internal/errs"
)

func TestResolveIsAtMostOnce(t *testing.T) {
	r := New()
	sink := make(chan Outcome, 1)
	h := r.Insert(sink, time.Now().Add(time.Minute))

	if !r.Resolve(h, Outcome{Value: []byte("first")}) {
		t.Fatal("first Resolve should succeed")
	}
	if r.Resolve(h, Outcome{Value: []byte("second")}) {
		t.Fatal("second Resolve on the same handle should report false")
	}

	out, ok := <-sink
	if !ok {
		t.Fatal("sink closed without delivering an outcome")
	}
	if string(out.Value) != "first" {
		t.Fatalf("got %q, want %q", out.Value, "first")
	}
	if _, stillOpen := <-sink; stillOpen {
		t.Fatal("sink should be closed after resolution")
	}
	if r.Len() != 0 {
		t.Fatalf("entry should be removed from the table, Len()=%d", r.Len())
	}
}

func TestResolveUnknownHandleReturnsFalse(t *testing.T) {
	r := New()
	if r.Resolve(Handle(999), Outcome{}) {
		t.Fatal("Resolve on an unknown handle should return false")
	}
}

func TestSweepExpiredDeliversTimeout(t *testing.T) {
	r := New()
	sink := make(chan Outcome, 1)
	past := time.Now().Add(-time.Second)
	h := r.Insert(sink, past)

	swept := r.SweepExpired(time.Now())
	if len(swept) != 1 || swept[0] != h {
		t.Fatalf("expected handle %v to be swept, got %v", h, swept)
	}

	out := <-sink
	if !errs.Is(out.Err, errs.KindTimeout) {
		t.Fatalf("expected KindTimeout, got %v", out.Err)
	}
	if r.Len() != 0 {
		t.Fatalf("swept entry should be removed, Len()=%d", r.Len())
	}
}

func TestSweepExpiredLeavesUnexpiredEntriesPending(t *testing.T) {
	r := New()
	sink := make(chan Outcome, 1)
	h := r.Insert(sink, time.Now().Add(time.Hour))

	swept := r.SweepExpired(time.Now())
	if len(swept) != 0 {
		t.Fatalf("expected nothing swept, got %v", swept)
	}
	if r.Len() != 1 {
		t.Fatalf("entry should remain pending, Len()=%d", r.Len())
	}

	if !r.Resolve(h, Outcome{Value: []byte("ok")}) {
		t.Fatal("Resolve should still succeed on the unswept handle")
	}
}

func TestResolveAllDrainsEveryEntry(t *testing.T) {
	r := New()
	sinks := make([]chan Outcome, 5)
	for i := range sinks {
		sinks[i] = make(chan Outcome, 1)
		r.Insert(sinks[i], time.Now().Add(time.Minute))
	}

	n := r.ResolveAll(Outcome{Err: errs.New("shutdown", errs.KindCancelled)})
	if n != 5 {
		t.Fatalf("expected 5 entries resolved, got %d", n)
	}
	if r.Len() != 0 {
		t.Fatalf("registry should be empty after ResolveAll, Len()=%d", r.Len())
	}

	for i, sink := range sinks {
		out, ok := <-sink
		if !ok {
			t.Fatalf("sink %d closed without delivering an outcome", i)
		}
		if !errs.Is(out.Err, errs.KindCancelled) {
			t.Fatalf("sink %d: expected KindCancelled, got %v", i, out.Err)
		}
	}
}

func TestHandlesAreNeverReused(t *testing.T) {
	r := New()
	sink1 := make(chan Outcome, 1)
	sink2 := make(chan Outcome, 1)

	h1 := r.Insert(sink1, time.Now().Add(time.Minute))
	r.Resolve(h1, Outcome{})
	h2 := r.Insert(sink2, time.Now().Add(time.Minute))

	if h1 == h2 {
		t.Fatalf("expected distinct handles, got %v and %v", h1, h2)
	}
}
