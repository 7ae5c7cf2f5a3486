package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/olx/internal/shared"
)

// Handler receives the raw JSON payload of one realtime event.
type Handler func(data json.RawMessage)

// Subscriber registers handlers on named channels.
//
// Implemented by [Hub] for in-process delivery and [Client] for the relay stream.
type Subscriber interface {
	On(channel string, fn Handler) (*Subscription, error)
}

// Subscription is a registered handler.
//
// No invocation starts once Off returns. A delivery already running on another goroutine may still finish.
type Subscription struct {
	channel string
	fn      Handler
	active  atomic.Bool
	off     func(*Subscription)
	once    sync.Once
}

// Channel returns the channel name the subscription listens on.
func (s *Subscription) Channel() string {
	return s.channel
}

// Active reports whether Off has not yet been called.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Off removes the handler. Safe to call more than once and from inside the handler itself.
func (s *Subscription) Off() {
	s.once.Do(func() {
		s.active.Store(false)
		if s.off != nil {
			s.off(s)
		}
	})
}

func (s *Subscription) deliver(data json.RawMessage) bool {
	if !s.active.Load() {
		return false
	}
	s.fn(data)
	return true
}

// Hub is an in-process pub/sub keyed by channel name.
//
// Publish delivers synchronously in registration order and never holds the hub lock while a handler runs,
// so handlers may call Off or On.
type Hub struct {
	mu     sync.Mutex
	subs   map[string][]*Subscription
	onIdle func(channel string)
	onOpen func(channel string)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]*Subscription)}
}

// OnIdle sets a hook called when the last subscriber of a channel leaves.
func (h *Hub) OnIdle(fn func(channel string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onIdle = fn
}

// OnOpen sets a hook called when a channel gains its first subscriber.
func (h *Hub) OnOpen(fn func(channel string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onOpen = fn
}

// On registers fn on channel.
func (h *Hub) On(channel string, fn Handler) (*Subscription, error) {
	if channel == "" {
		return nil, fmt.Errorf("%w: empty channel", shared.ErrInvalidArgument)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: nil handler", shared.ErrInvalidArgument)
	}

	sub := &Subscription{channel: channel, fn: fn, off: h.remove}
	sub.active.Store(true)

	h.mu.Lock()
	first := len(h.subs[channel]) == 0
	h.subs[channel] = append(h.subs[channel], sub)
	hook := h.onOpen
	h.mu.Unlock()

	if first && hook != nil {
		hook(channel)
	}
	return sub, nil
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	list := h.subs[sub.channel]
	for i, s := range list {
		if s == sub {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	idle := len(list) == 0
	if idle {
		delete(h.subs, sub.channel)
	} else {
		h.subs[sub.channel] = list
	}
	hook := h.onIdle
	h.mu.Unlock()

	if idle && hook != nil {
		hook(sub.channel)
	}
}

// Publish delivers data to every active subscriber of channel and returns how many handlers ran.
func (h *Hub) Publish(channel string, data json.RawMessage) int {
	h.mu.Lock()
	snapshot := append([]*Subscription(nil), h.subs[channel]...)
	h.mu.Unlock()

	delivered := 0
	for _, sub := range snapshot {
		if sub.deliver(data) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the number of handlers registered on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[channel])
}

// Channels returns every channel with at least one subscriber.
func (h *Hub) Channels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for ch := range h.subs {
		out = append(out, ch)
	}
	return out
}
