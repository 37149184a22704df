package channel

import "sync"

// Hub fans every published value out to all subscribers. A subscriber that
// cannot keep up loses values instead of stalling the publisher, unless it
// subscribed with SubscribeAll.
type Hub[T any] struct {
	mu      sync.Mutex
	subs    []*subscription[T]
	size    int
	dropped uint64
	closed  bool
}

// NewHub creates a hub whose subscriptions buffer size values each.
func NewHub[T any](size int) *Hub[T] {
	return &Hub[T]{size: size}
}

// Subscribe returns a lossy receiver. It is closed when the hub closes.
func (h *Hub[T]) Subscribe() Receiver[T] {
	return h.subscribe(false)
}

// SubscribeAll returns a receiver that gets every value. Publish blocks
// while it is full, so it must be drained until the hub closes.
func (h *Hub[T]) SubscribeAll() Receiver[T] {
	return h.subscribe(true)
}

func (h *Hub[T]) subscribe(lossless bool) Receiver[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := newSubscription[T](h.size, lossless)
	if h.closed {
		close(s.ch)
		return s
	}
	// lossless subscribers are served first
	if lossless {
		h.subs = append([]*subscription[T]{s}, h.subs...)
	} else {
		h.subs = append(h.subs, s)
	}
	return s
}

// Publish delivers v to every subscriber. Lossy subscribers without room
// skip it.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, s := range h.subs {
		if !s.deliver(v) {
			h.dropped++
		}
	}
}

// Dropped returns how many deliveries were skipped on full subscribers.
func (h *Hub[T]) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close closes all subscriptions. Later publishes are ignored.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, s := range h.subs {
		close(s.ch)
	}
	h.subs = nil
}
