package broadcast

import "testing"

func drainNonBlocking(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestFastSubscriberNeverLags(t *testing.T) {
	h := NewHub(4)
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	for i := 0; i < 10; i++ {
		h.Publish(Event{DhtBootstrapped: &DhtBootstrapped{}})
		<-ch // drained immediately, as a "fast" consumer would
	}

	events := drainNonBlocking(ch)
	for _, e := range events {
		if e.Lagged != nil {
			t.Fatalf("fast subscriber observed a Lagged marker: %+v", e.Lagged)
		}
	}
}

func TestSlowSubscriberObservesLaggedThenResumesTail(t *testing.T) {
	h := NewHub(2)
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	// Publish more events than the buffer holds while nobody reads.
	for i := 0; i < 6; i++ {
		h.Publish(Event{DhtBootstrapped: &DhtBootstrapped{}})
	}

	drained := drainNonBlocking(ch)
	if len(drained) == 0 {
		t.Fatal("expected at least the buffered events")
	}

	// Publish once more: this should surface a Lagged marker since the
	// subscriber was behind, then the live tail resumes normally.
	h.Publish(Event{ListeningOn: &ListeningOn{Addr: "/ip4/0.0.0.0/tcp/0"}})

	var sawLagged bool
	var sawListening bool
	for _, e := range append(drained, drainNonBlocking(ch)...) {
		if e.Lagged != nil {
			sawLagged = true
		}
		if e.ListeningOn != nil {
			sawListening = true
		}
	}
	if !sawLagged {
		t.Fatal("expected slow subscriber to observe a Lagged marker")
	}
	if !sawListening {
		t.Fatal("expected the live tail to resume with the ListeningOn event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(4)
	ch, unsubscribe := h.Subscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	if h.Len() != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe, got %d", h.Len())
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	h := NewHub(1)
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(Event{DhtBootstrapped: &DhtBootstrapped{}})
		}
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done
}
