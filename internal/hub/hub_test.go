package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery_tracker/internal/models"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func receive(t *testing.T, sub *Subscription) models.TrackingUpdate {
	t.Helper()
	select {
	case u, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return u
	case <-time.After(time.Second):
		t.Fatalf("no update on %s", sub.Topic)
		return models.TrackingUpdate{}
	}
}

func TestHub_FanOutToOrderAndGlobalTopics(t *testing.T) {
	h := startHub(t)

	order := h.Subscribe(OrderTopic("ORD1"))
	other := h.Subscribe(OrderTopic("ORD2"))
	global := h.Subscribe(GlobalTopic)
	defer order.Close()
	defer other.Close()
	defer global.Close()

	h.Publish(models.TrackingUpdate{OrderID: "ORD1", Status: models.StatusStarted})

	assert.Equal(t, "ORD1", receive(t, order).OrderID)
	assert.Equal(t, "ORD1", receive(t, global).OrderID)

	select {
	case u := <-other.C:
		t.Fatalf("unexpected update %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PreservesOrder(t *testing.T) {
	h := startHub(t)
	sub := h.Subscribe(OrderTopic("ORD1"))
	defer sub.Close()

	statuses := []models.Status{
		models.StatusStarted,
		models.StatusLocationUpdate,
		models.StatusLocationUpdate,
		models.StatusCompleted,
	}
	for i, s := range statuses {
		h.Publish(models.TrackingUpdate{OrderID: "ORD1", Status: s, Message: string(rune('a' + i))})
	}
	for i, s := range statuses {
		u := receive(t, sub)
		assert.Equal(t, s, u.Status)
		assert.Equal(t, string(rune('a'+i)), u.Message)
	}
}

func TestHub_CloseUnsubscribes(t *testing.T) {
	h := startHub(t)
	sub := h.Subscribe(GlobalTopic)
	assert.Equal(t, 1, h.Subscribers(GlobalTopic))

	sub.Close()
	sub.Close()
	assert.Zero(t, h.Subscribers(GlobalTopic))

	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestHub_RunStopClosesSubscriptions(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	sub := h.Subscribe(GlobalTopic)
	cancel()
	<-done

	_, ok := <-sub.C
	assert.False(t, ok)
	sub.Close()

	late := h.Subscribe(GlobalTopic)
	_, ok = <-late.C
	assert.False(t, ok)
}

func TestHub_PublishNeverBlocksOnLocationUpdates(t *testing.T) {
	h := New() // not running: the broadcast buffer fills up

	done := make(chan struct{})
	go func() {
		for range broadcastBuffer * 2 {
			h.Publish(models.TrackingUpdate{OrderID: "ORD1", Status: models.StatusLocationUpdate})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}
