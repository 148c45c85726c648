// Package events fans order changes out to the admin stream and the message broker.
package events

import (
	"log"
	"sync"
	"time"
)

// Event types.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderPaymentUpdate = "order.payment_updated"
	OrderDeleted       = "order.deleted"
)

// OrderEvent describes a change to one order.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status,omitempty"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher accepts order events. Publish must not block.
type Publisher interface {
	Publish(ev OrderEvent)
}

// Hub delivers every published event to each subscriber channel. A
// subscriber that is not keeping up loses events instead of stalling
// the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan OrderEvent]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[chan OrderEvent]struct{}), buffer: buffer}
}

// Subscribe returns a channel of events and a function that releases it.
func (h *Hub) Subscribe() (<-chan OrderEvent, func()) {
	ch := make(chan OrderEvent, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev OrderEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("events: dropping %s for slow subscriber", ev.Type)
		}
	}
}

// Forward pumps hub events into sink until the hub subscription is
// released by stop.
func (h *Hub) Forward(sink func(OrderEvent)) (stop func()) {
	ch, release := h.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			sink(ev)
		}
	}()
	return func() {
		release()
		<-done
	}
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(OrderEvent) {}
