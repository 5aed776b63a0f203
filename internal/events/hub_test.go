package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish("hello")
	require.Equal(t, "hello", <-a)
	require.Equal(t, "hello", <-b)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish("x")
	}
	require.Len(t, ch, subscriberBuffer)
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	h.Unsubscribe(ch)

	_, open := <-ch
	require.False(t, open)
}

func TestMakeRendersEventEnvelope(t *testing.T) {
	line := Make("req-1", TypeFillDone, map[string]int{"stored": 3})

	var e Event
	require.NoError(t, json.Unmarshal([]byte(line), &e))
	require.Equal(t, TypeFillDone, e.Type)
	require.Equal(t, 1, e.Version)
	require.Equal(t, "req-1", e.RequestID)
	require.JSONEq(t, `{"stored":3}`, string(e.Data))
	require.False(t, e.At.IsZero())
}
