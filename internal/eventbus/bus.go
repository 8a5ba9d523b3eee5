// Package eventbus implements the in-process, synchronous publish/subscribe
// Event Bus. Dispatch runs single-threaded from the
// publishing goroutine, subscribers run synchronously in publish order,
// and a subscriber panic is recovered and logged at critical severity
// without aborting the publisher.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aerocal/gaugecore/internal/logging"
)

// Event is a canonical published event.
type Event struct {
	Name    string
	Payload any
}

// Handler processes one published event.
type Handler func(ctx context.Context, evt Event) error

type registration struct {
	id      string
	name    string
	handler Handler
}

// Bus is the in-process event bus.
type Bus struct {
	mu       sync.RWMutex
	subs     []registration
	log      *logging.Logger
	panics   prometheus.Counter
}

// New creates an event bus. registerer may be nil to skip metrics
// registration (e.g. in tests).
func New(log *logging.Logger, registerer prometheus.Registerer) *Bus {
	if log == nil {
		log = logging.NewDefault("eventbus")
	}
	panics := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gaugecore_eventbus_panics_total",
		Help: "Number of subscriber panics recovered by the event bus.",
	})
	if registerer != nil {
		_ = registerer.Register(panics)
	}
	return &Bus{log: log, panics: panics}
}

// Subscribe registers handler for events named name ("*" matches every
// event). Returns a subscription id that Unsubscribe accepts.
func (b *Bus) Subscribe(name string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := fmt.Sprintf("sub-%d", len(b.subs)+1)
	b.subs = append(b.subs, registration{id: id, name: name, handler: handler})
	return id
}

// Unsubscribe removes a previously registered subscription.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.subs {
		if r.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish runs every matching subscriber synchronously, in registration
// order, within the caller's goroutine. Best-effort: a subscriber error or
// panic is logged and does not stop the remaining subscribers or return an
// error to the publisher.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	subs := make([]registration, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, r := range subs {
		if r.name != "*" && r.name != evt.Name {
			continue
		}
		b.dispatchOne(ctx, r, evt)
	}
}

func (b *Bus) dispatchOne(ctx context.Context, r registration, evt Event) {
	defer func() {
		if rec := recover(); rec != nil {
			b.panics.Inc()
			b.log.WithField("subscriber", r.id).WithField("event", evt.Name).
				WithField("panic", rec).WithField("severity", "critical").
				Error("event subscriber panicked")
		}
	}()
	if err := r.handler(ctx, evt); err != nil {
		b.log.WithField("subscriber", r.id).WithField("event", evt.Name).
			WithField("error", err).Warn("event subscriber returned an error")
	}
}
