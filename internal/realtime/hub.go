package realtime

import (
	"context"
	"strings"
	"sync"
)

const (
	DefaultBacklogSize      = 50
	DefaultSubscriberBuffer = 16
)

// Hub fans events out to in-process subscribers, keyed by channel name.
// Slow subscribers drop events instead of blocking publishers.
type Hub struct {
	mu               sync.RWMutex
	channels         map[string]*topic
	backlogSize      int
	subscriberBuffer int
}

type topic struct {
	mu      sync.Mutex
	backlog []Event
	subs    map[uint64]chan Event
	nextID  uint64
}

type Subscription struct {
	hub     *Hub
	channel string
	id      uint64
	ch      chan Event
	once    sync.Once
}

func NewHub() *Hub {
	return &Hub{
		channels:         make(map[string]*topic),
		backlogSize:      DefaultBacklogSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish implements Publisher for single-instance deployments.
func (h *Hub) Publish(ctx context.Context, channel string, event string, payload any) error {
	if h == nil {
		return ErrHubUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	evt, err := newEvent(channel, event, payload)
	if err != nil {
		return err
	}
	h.Deliver(evt)
	return nil
}

// Deliver hands an already encoded event to local subscribers. Events for
// channels nobody listens to are dropped.
func (h *Hub) Deliver(evt Event) {
	if h == nil {
		return
	}
	name := strings.TrimSpace(evt.Channel)
	h.mu.RLock()
	t := h.channels[name]
	h.mu.RUnlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	t.backlog = append(t.backlog, evt)
	if len(t.backlog) > h.backlogSize {
		t.backlog = t.backlog[len(t.backlog)-h.backlogSize:]
	}
	subs := make([]chan Event, 0, len(t.subs))
	for _, ch := range t.subs {
		subs = append(subs, ch)
	}
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a listener and returns the events buffered since the
// channel was first opened.
func (h *Hub) Subscribe(channel string) (*Subscription, []Event, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}
	name := strings.TrimSpace(channel)
	if name == "" {
		return nil, nil, ErrInvalidChannel
	}

	// The registry lock is held so a concurrent unsubscribe cannot drop the
	// topic between lookup and registration.
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.channels[name]
	if t == nil {
		t = &topic{subs: make(map[uint64]chan Event)}
		h.channels[name] = t
	}
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	ch := make(chan Event, h.subscriberBuffer)
	t.subs[id] = ch
	backlog := append([]Event(nil), t.backlog...)
	t.mu.Unlock()

	return &Subscription{hub: h, channel: name, id: id, ch: ch}, backlog, nil
}

// Subscribers reports how many listeners a channel has.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	t := h.channels[strings.TrimSpace(channel)]
	h.mu.RUnlock()
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (h *Hub) unsubscribe(name string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := h.channels[name]
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.subs, id)
	empty := len(t.subs) == 0
	t.mu.Unlock()
	if empty {
		delete(h.channels, name)
	}
}

func (s *Subscription) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.channel, s.id)
	})
}
