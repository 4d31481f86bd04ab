// Package notify broadcasts code discoveries to in-process subscribers.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"code_tracker/internal/model"
)

// Topic is the name under which discovery events are published.
const Topic = "new_code"

// DefaultBuffer is the per-subscriber queue length used when Subscribe is given zero.
const DefaultBuffer = 16

// Hub fans discovery events out to every current subscriber.
// Delivery is best effort: a subscriber whose buffer is full misses the event.
type Hub struct {
	log *slog.Logger
	now func() time.Time

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// Subscription receives events published after it was created.
type Subscription struct {
	hub    *Hub
	events chan model.Event
	once   sync.Once
}

// NewHub creates an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:  log,
		now:  time.Now,
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber with the given buffer size.
// Subscribing to a closed hub yields an already closed subscription.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &Subscription{hub: h, events: make(chan model.Event, buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.once.Do(func() { close(sub.events) })
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Notify publishes a new_code event for key to all subscribers. It never blocks.
func (h *Hub) Notify(game model.GameConfig, key string) {
	ev := model.Event{
		ID:   uuid.NewString(),
		Game: game.ID,
		Slug: game.Slug,
		Key:  key,
		At:   h.now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	delivered := 0
	for sub := range h.subs {
		select {
		case sub.events <- ev:
			delivered++
		default:
			h.log.Warn("subscriber buffer full, dropping event", "event_id", ev.ID, "game", ev.Game, "key", ev.Key)
		}
	}
	h.log.Debug("published event", "topic", Topic, "event_id", ev.ID, "game", ev.Game, "subscribers", delivered)
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends all subscriptions. Later Notify calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		sub.once.Do(func() { close(sub.events) })
		delete(h.subs, sub)
	}
}

// Events returns the channel of delivered events. It is closed when the
// subscription or the hub is closed.
func (s *Subscription) Events() <-chan model.Event {
	return s.events
}

// Close detaches the subscription from its hub. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	delete(s.hub.subs, s)
	s.once.Do(func() { close(s.events) })
}
