// Package panel owns the process-wide event surface that IDE clients
// subscribe to. The hub is created lazily on first use, torn down on
// Dispose, and re-creatable afterward.
package panel

import "sync"

// Event is one scan lifecycle message pushed to subscribers. Type is
// the discriminant; the remaining fields form a closed set of payload
// shapes.
type Event struct {
	Type       string `json:"type"`
	ScanID     string `json:"scanId,omitempty"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
	FileCount  int    `json:"fileCount,omitempty"`
	IssueCount int    `json:"issueCount,omitempty"`
}

const (
	EventScanStarted   = "scan_started"
	EventScanUploaded  = "scan_uploaded"
	EventScanSubmitted = "scan_submitted"
	EventScanCompleted = "scan_completed"
	EventScanFailed    = "scan_failed"
	EventScanStopped   = "scan_stopped"
)

// Hub fans events out to subscribers. Slow subscribers lose the oldest
// buffered event rather than blocking publishers.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func newHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered event channel. The returned cancel
// func must be called when the subscriber goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
}

// Publish delivers evt to every subscriber without blocking.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- evt:
			continue
		default:
		}
		// full buffer: drop the oldest event, then retry once
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *Hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = map[chan Event]struct{}{}
}

// Registry is the single owner of the active hub.
type Registry struct {
	mu  sync.Mutex
	hub *Hub
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Active returns the current hub, creating it on first use.
func (r *Registry) Active() *Hub {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hub == nil {
		r.hub = newHub()
	}
	return r.hub
}

// Dispose tears the active hub down; the next Active call creates a
// fresh one.
func (r *Registry) Dispose() {
	r.mu.Lock()
	hub := r.hub
	r.hub = nil
	r.mu.Unlock()
	if hub != nil {
		hub.close()
	}
}
