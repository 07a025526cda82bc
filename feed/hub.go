package feed

import (
	"sync"

	"github.com/ngaut/log"
)

// Hub is an in-process fan-out of feed events implementing Sink. Delivery
// is not durable: a subscriber that registers after a commit never sees it,
// and a subscriber whose buffer is full misses events rather than stalling
// the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
	buffer int
}

func NewHub(buffer int) *Hub {
	return &Hub{
		subs:   make(map[string]map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers for events of one feed. The returned cancel func
// closes the channel and must be called exactly once.
func (h *Hub) Subscribe(feed string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.subs[feed] == nil {
		h.subs[feed] = make(map[int]chan Event)
	}
	id := h.nextID
	h.nextID++
	h.subs[feed][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[feed][id]; !ok {
			return
		}
		delete(h.subs[feed], id)
		close(ch)
	}
	return ch, cancel
}

func (h *Hub) Emit(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[e.Feed] {
		select {
		case ch <- e:
		default:
			log.Warnf("hub: subscriber of feed %s lagging, dropped %s event for id %d", e.Feed, e.Type, e.ID)
		}
	}
}
