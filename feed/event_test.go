package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventMarshal(t *testing.T) {
	publish := Event{Feed: "f", Type: EventPublish, ID: 7, Content: []byte("hello")}
	assert.Equal(t, []byte("7\x00hello"), publish.Marshal())

	retract := Event{Feed: "f", Type: EventRetract, ID: 7}
	assert.Equal(t, []byte("7"), retract.Marshal())

	empty := Event{Feed: "f", Type: EventPublish, ID: 12}
	assert.Equal(t, []byte("12\x00"), empty.Marshal())
}

func TestEditIndistinguishableFromPublish(t *testing.T) {
	// An edit emits the same wire bytes as a fresh publish of the same id
	// and content.
	publish := Event{Feed: "f", Type: EventPublish, ID: 3, Content: []byte("v2")}
	edit := Event{Feed: "f", Type: EventPublish, ID: 3, Content: []byte("v2")}
	assert.Equal(t, publish.Marshal(), edit.Marshal())
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "publish", EventPublish.String())
	assert.Equal(t, "retract", EventRetract.String())
	assert.Equal(t, "unknown", EventType(0).String())
}
