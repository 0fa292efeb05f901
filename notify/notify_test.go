package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriberOfSameRun(t *testing.T) {
	h := New(4)
	defer h.Close()

	sub := h.Subscribe(context.Background(), "run-1")
	defer sub.Close()

	h.Publish(Event{Type: EventPhaseChange, RunID: "run-1", Payload: PhaseChangePayload{Phase: "planning"}})

	select {
	case ev := <-sub.C():
		assert.Equal(t, EventPhaseChange, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishDoesNotCrossRuns(t *testing.T) {
	h := New(4)
	defer h.Close()

	subA := h.Subscribe(context.Background(), "run-a")
	defer subA.Close()
	subB := h.Subscribe(context.Background(), "run-b")
	defer subB.Close()

	h.Publish(Event{Type: EventMessage, RunID: "run-a", Payload: MessagePayload{Role: "user", Content: "hi"}})

	select {
	case ev := <-subA.C():
		assert.Equal(t, "run-a", ev.RunID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event on run-a")
	}

	select {
	case <-subB.C():
		t.Fatal("run-b subscriber should not receive run-a's event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberDropsEventsWithoutBlocking(t *testing.T) {
	h := New(1)
	defer h.Close()

	sub := h.Subscribe(context.Background(), "run-1")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Publish(Event{Type: EventMessage, RunID: "run-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber instead of dropping")
	}
}

func TestSubscriptionClosedOnContextCancel(t *testing.T) {
	h := New(4)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := h.Subscribe(ctx, "run-1")
	cancel()

	require.Eventually(t, func() bool {
		_, ok := <-sub.C()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestEndRunClosesAllSubscriptions(t *testing.T) {
	h := New(4)
	defer h.Close()

	sub1 := h.Subscribe(context.Background(), "run-1")
	sub2 := h.Subscribe(context.Background(), "run-1")

	h.EndRun("run-1")

	_, ok1 := <-sub1.C()
	_, ok2 := <-sub2.C()
	assert.False(t, ok1)
	assert.False(t, ok2)
}
