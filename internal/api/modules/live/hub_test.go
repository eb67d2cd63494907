package live

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levra/voicebridge/internal/stores/session"
)

func TestHubSubscribePublish(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe("room-1")
	defer cancel()

	entries := []session.Entry{{ID: "a1", Kind: session.KindAgent, Text: "hello", OrderingKey: 1}}
	hub.PublishTimeline("room-1", entries)

	select {
	case event := <-events:
		assert.Equal(t, EventTimeline, event.Type)
		assert.Equal(t, "room-1", event.RoomID)
		assert.Equal(t, entries, event.Timeline)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestHubRoomIsolation(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe("room-1")
	defer cancel()

	hub.PublishTimeline("room-2", nil)

	select {
	case <-events:
		t.Fatal("event leaked across rooms")
	default:
	}
}

func TestHubNotifyContextChanged(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe("room-1")
	defer cancel()

	require.NoError(t, hub.NotifyContextChanged(context.Background(), "room-1"))

	select {
	case event := <-events:
		assert.Equal(t, EventContextUpdated, event.Type)
	default:
		t.Fatal("expected a context event")
	}
}

func TestHubSlowSubscriberDropsOldest(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe("room-1")
	defer cancel()

	// Overflow the subscriber buffer without draining it
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.PublishTimeline("room-1", []session.Entry{{ID: "s", OrderingKey: int64(i)}})
	}

	// The newest event survives at the tail of the buffer
	var last Event
	for {
		select {
		case event := <-events:
			last = event
			continue
		default:
		}
		break
	}

	require.Len(t, last.Timeline, 1)
	assert.Equal(t, int64(subscriberBuffer+4), last.Timeline[0].OrderingKey)
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe("room-1")
	cancel()

	hub.PublishTimeline("room-1", nil)

	select {
	case <-events:
		t.Fatal("cancelled subscriber still received an event")
	default:
	}
}
