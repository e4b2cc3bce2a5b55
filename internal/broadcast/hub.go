package broadcast

import "sync"

// Hub fans a single stream of Events out to any number of independent
// subscribers. Publish may be called concurrently with Subscribe/
// Unsubscribe; Publish itself never blocks on a slow subscriber.
type Hub struct {
	mu          sync.Mutex
	subscribers map[uint64]*subscriber
	nextID      uint64
	bufferSize  int
}

type subscriber struct {
	ch     chan Event
	lagged bool
	missed uint64
}

// NewHub returns a Hub whose subscriber channels each buffer bufferSize
// events before the subscriber is considered lagging.
func NewHub(bufferSize int) *Hub {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Hub{
		subscribers: make(map[uint64]*subscriber),
		bufferSize:  bufferSize,
	}
}

// Subscribe joins the stream from this moment on and returns the receive
// channel plus an unsubscribe function. The returned channel is closed once
// unsubscribe runs; callers must stop reading from it at that point.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	sub := &subscriber{ch: make(chan Event, h.bufferSize)}
	h.subscribers[id] = sub

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(s.ch)
		}
	}
	return sub.ch, unsubscribe
}

// Publish delivers evt to every current subscriber. A subscriber whose
// buffer is full never blocks this call: it is marked lagging and its
// missed count grows until buffer space frees up, at which point it
// receives a single Lagged marker before rejoining the live tail.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subscribers {
		deliver(sub, evt)
	}
}

// Len reports the current subscriber count, for diagnostics.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func deliver(sub *subscriber, evt Event) {
	if sub.lagged {
		marker := Event{Lagged: &Lagged{MissedCount: sub.missed}}
		select {
		case sub.ch <- marker:
			sub.lagged = false
			sub.missed = 0
		default:
			sub.missed++
			return
		}
	}

	select {
	case sub.ch <- evt:
	default:
		sub.lagged = true
		sub.missed++
	}
}
