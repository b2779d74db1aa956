package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishesPerCompany(t *testing.T) {
	hub := NewHub()
	events, cleanup := hub.Subscribe("co-1")
	other, cleanupOther := hub.Subscribe("co-2")
	defer cleanupOther()

	hub.Publish("co-1", Event{Event: "cycle.computed", Data: map[string]string{"cycle_id": "c-1"}})

	select {
	case e := <-events:
		assert.Equal(t, "cycle.computed", e.Event)
		assert.Equal(t, "co-1", e.CompanyID)
		assert.False(t, e.At.IsZero())
	default:
		t.Fatal("expected an event for co-1")
	}

	select {
	case e := <-other:
		t.Fatalf("co-2 received %v", e)
	default:
	}

	assert.Equal(t, 1, hub.SubscriberCount("co-1"))
	cleanup()
	cleanup()
	assert.Equal(t, 0, hub.SubscriberCount("co-1"))

	_, ok := <-events
	assert.False(t, ok)
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	events, cleanup := hub.Subscribe("co-1")
	defer cleanup()

	for i := 0; i < hub.bufferSize+5; i++ {
		hub.Publish("co-1", Event{Event: "ping"})
	}
	require.Len(t, events, hub.bufferSize)
}
