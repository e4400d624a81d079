package services

import (
	"sync"

	"sart-go/internal/instrument"
	"sart-go/internal/sart"
)

// Subscriber receives the latest snapshot of one session. Snapshots that
// arrive faster than the subscriber reads them are coalesced.
type Subscriber struct {
	send chan sart.Snapshot
}

// C delivers snapshots. It is closed when the session goes away.
func (s *Subscriber) C() <-chan sart.Snapshot {
	return s.send
}

// offer replaces any unread snapshot with snap.
func (s *Subscriber) offer(snap sart.Snapshot) {
	select {
	case s.send <- snap:
		return
	default:
	}
	select {
	case <-s.send:
	default:
	}
	select {
	case s.send <- snap:
	default:
	}
}

// Hub fans session snapshots out to stream subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a subscriber for sessionID.
func (h *Hub) Subscribe(sessionID string) *Subscriber {
	sub := &Subscriber{send: make(chan sart.Snapshot, 1)}

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*Subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	h.mu.Unlock()

	instrument.StreamClients.Inc()
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call after
// the session has been closed.
func (h *Hub) Unsubscribe(sessionID string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.send)
	instrument.StreamClients.Dec()
	if len(set) == 0 {
		delete(h.subs, sessionID)
	}
}

// Publish hands snap to every subscriber of sessionID without blocking.
func (h *Hub) Publish(sessionID string, snap sart.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[sessionID] {
		sub.offer(snap)
	}
}

// CloseSession disconnects every subscriber of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[sessionID] {
		close(sub.send)
		instrument.StreamClients.Dec()
	}
	delete(h.subs, sessionID)
}

// Count returns the number of subscribers of sessionID.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
