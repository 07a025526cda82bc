package feed

import (
	"strconv"
)

type EventType int

const (
	EventPublish EventType = iota + 1
	EventRetract
)

func (t EventType) String() string {
	switch t {
	case EventPublish:
		return "publish"
	case EventRetract:
		return "retract"
	}
	return "unknown"
}

// Event is emitted once per committed mutation, never for an aborted
// attempt. An edit emits an EventPublish with the same shape as a fresh
// publish; a subscriber can only tell the two apart by already knowing the
// id.
type Event struct {
	Feed    string
	Type    EventType
	ID      uint64
	Content []byte
}

// Marshal renders the wire form: decimal id and content joined by a NUL
// byte for publish events, the bare decimal id for retract events.
func (e Event) Marshal() []byte {
	id := strconv.FormatUint(e.ID, 10)
	if e.Type == EventRetract {
		return []byte(id)
	}
	buf := make([]byte, 0, len(id)+1+len(e.Content))
	buf = append(buf, id...)
	buf = append(buf, 0)
	buf = append(buf, e.Content...)
	return buf
}

// Sink receives events from the mutation engine. The engine calls Emit
// after its transaction commits and expects Emit not to block.
type Sink interface {
	Emit(e Event)
}

// Discard is a Sink that drops every event.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Emit(Event) {}
