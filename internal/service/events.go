// Package service provides the business logic of the compliance pipeline:
// staging, reconciliation, enrichment, and background jobs.
package service

import (
	"log/slog"
	"sync"
)

// ItemChanged is published whenever reconciliation creates or updates a
// catalog item. The enrichment side consumes these instead of hooking into
// the save path directly.
type ItemChanged struct {
	ItemID     string
	MaterialID int
	Created    bool
}

// Dispatcher is a small in-process pub/sub for item-change notifications.
// Publish never blocks: a subscriber that cannot keep up drops events, which
// is acceptable because enrichment re-triggering is state-driven and a missed
// event is picked up by the next bulk trigger.
type Dispatcher struct {
	mu   sync.RWMutex
	subs []chan ItemChanged
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe returns a buffered channel receiving future item-change events.
func (d *Dispatcher) Subscribe(buffer int) <-chan ItemChanged {
	if buffer <= 0 {
		buffer = 256
	}
	ch := make(chan ItemChanged, buffer)

	d.mu.Lock()
	d.subs = append(d.subs, ch)
	d.mu.Unlock()

	return ch
}

// Publish delivers an event to all subscribers without blocking.
func (d *Dispatcher) Publish(ev ItemChanged) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, ch := range d.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("dropping item-changed event, subscriber full", "material_id", ev.MaterialID)
		}
	}
}
