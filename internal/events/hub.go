package events

import "sync"

const defaultBuffer = 8

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event. Every consumer in this module treats
// an event as "something changed, re-read the source", so a dropped event
// behind a pending one loses nothing.
type Hub struct {
	mu      sync.Mutex
	buffer  int
	clients map[chan Event]struct{}
}

// NewHub returns a hub with the default per-subscriber buffer.
func NewHub() *Hub {
	return NewHubSize(defaultBuffer)
}

// NewHubSize returns a hub whose subscriber channels hold up to n events.
func NewHubSize(n int) *Hub {
	if n < 1 {
		n = 1
	}
	return &Hub{buffer: n, clients: make(map[chan Event]struct{})}
}

// Subscribe registers and returns a new subscriber channel.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes ch and closes it. Unknown or already removed channels
// are ignored.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; !ok {
		return
	}
	delete(h.clients, ch)
	close(ch)
}

// Publish delivers e to every subscriber that has room.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- e:
		default:
			// drop if slow
		}
	}
}

// Len reports the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
