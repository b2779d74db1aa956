package sse

import (
	"sync"
	"time"
)

// Event is one payroll or lending change pushed to a company's subscribers.
type Event struct {
	CompanyID string      `json:"-"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	At        time.Time   `json:"at"`
}

// Publisher is the side of the hub services depend on.
type Publisher interface {
	Publish(companyID string, event Event)
}

// Hub fans events out to subscribers, keyed by company.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	bufferSize  int
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		bufferSize:  16,
	}
}

// Subscribe registers a subscriber for a company and returns the event
// channel and a cleanup function that must be called once.
func (h *Hub) Subscribe(companyID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufferSize)

	if h.subscribers[companyID] == nil {
		h.subscribers[companyID] = make(map[chan Event]struct{})
	}
	h.subscribers[companyID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[companyID], ch)
			close(ch)
			if len(h.subscribers[companyID]) == 0 {
				delete(h.subscribers, companyID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to every subscriber of the company. Slow
// subscribers miss events rather than block the publisher.
func (h *Hub) Publish(companyID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.CompanyID = companyID
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	for ch := range h.subscribers[companyID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers for a company
func (h *Hub) SubscriberCount(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[companyID])
}
