// Package listeners holds the ephemeral set of clients waiting to hear the
// outcome of a specific invoice. Entries live in memory only: a restart
// silently drops them, and clients are expected to fall back to polling the
// status endpoint. Delivery is best-effort and at-most-once.
package listeners

import "sync"

// Event values delivered to listening clients.
const (
	EventSettled = "settled"
	EventStale   = "stale"
	EventReset   = "reset"
	EventExpired = "expired"
)

// Registry maps invoice r_hashes to notification channels. Each channel
// receives at most one event and is then closed. A channel may also be
// closed without an event, when a later subscriber replaces it.
type Registry struct {
	mu       sync.Mutex
	channels map[string]chan string
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]chan string)}
}

// Subscribe registers a channel for the given r_hash. At most one channel
// exists per hash; a previous one is closed unread.
func (r *Registry) Subscribe(rHash string) <-chan string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.channels[rHash]; ok {
		close(old)
	}
	ch := make(chan string, 1)
	r.channels[rHash] = ch
	return ch
}

// Notify delivers event to the listener for rHash, if any, and removes it.
func (r *Registry) Notify(rHash, event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify(rHash, event)
}

// Resolve ends a transfer: the winning invoice's listener gets winnerEvent,
// every other listener gets "expired", and the registry is cleared.
func (r *Registry) Resolve(winnerRHash, winnerEvent string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notify(winnerRHash, winnerEvent)
	for rHash := range r.channels {
		r.notify(rHash, EventExpired)
	}
}

// ExpireAll notifies every listener with "expired" and clears the registry.
// Used when a timeout reset invalidates all outstanding invoices.
func (r *Registry) ExpireAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for rHash := range r.channels {
		r.notify(rHash, EventExpired)
	}
}

// Len reports the number of outstanding listeners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

func (r *Registry) notify(rHash, event string) {
	ch, ok := r.channels[rHash]
	if !ok {
		return
	}
	// The channel is buffered and receives exactly one event in its life,
	// so the send never blocks.
	ch <- event
	close(ch)
	delete(r.channels, rHash)
}
