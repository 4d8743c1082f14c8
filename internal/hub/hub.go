// Package hub fans tracking updates out to topic subscribers.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"delivery_tracker/internal/models"
)

const (
	// GlobalTopic receives every update.
	GlobalTopic = "/topic/tracking"

	orderTopicPrefix = "/topic/delivery/"

	broadcastBuffer  = 100
	subscriberBuffer = 32

	// Lifecycle events wait this long for room in the broadcast channel
	// before being dropped; location updates never wait.
	lifecycleSendTimeout = time.Second
)

// OrderTopic is the per-order topic name.
func OrderTopic(orderID string) string {
	return orderTopicPrefix + orderID
}

// Subscription receives updates for one topic until closed.
type Subscription struct {
	C     <-chan models.TrackingUpdate
	Topic string

	ch   chan models.TrackingUpdate
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub routes updates from the tracking service to subscribers. A single
// Run goroutine drains the broadcast channel, so subscribers see updates in
// publish order.
type Hub struct {
	subscribers map[string]map[*Subscription]bool
	broadcast   chan models.TrackingUpdate
	closed      bool
	mu          sync.Mutex
}

// New creates a Hub. Call Run to start delivering.
func New() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscription]bool),
		broadcast:   make(chan models.TrackingUpdate, broadcastBuffer),
	}
}

// Run delivers queued updates until ctx is cancelled, then closes every subscription.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case update := <-h.broadcast:
			h.deliver(update)
		}
	}
}

// Publish queues update for the order topic and the global topic. It never
// blocks a caller for longer than lifecycleSendTimeout.
func (h *Hub) Publish(update models.TrackingUpdate) {
	if update.Status == models.StatusLocationUpdate {
		select {
		case h.broadcast <- update:
		default:
			logrus.WithFields(logrus.Fields{
				"order_id": update.OrderID,
				"status":   update.Status,
			}).Warn("Tracking broadcast channel full, dropping location update.")
		}
		return
	}

	timer := time.NewTimer(lifecycleSendTimeout)
	defer timer.Stop()
	select {
	case h.broadcast <- update:
	case <-timer.C:
		logrus.WithFields(logrus.Fields{
			"order_id": update.OrderID,
			"status":   update.Status,
		}).Error("Tracking broadcast channel full, dropping lifecycle update.")
	}
}

// Subscribe attaches a new subscriber to topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan models.TrackingUpdate, subscriberBuffer)
	sub := &Subscription{C: ch, Topic: topic, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	if _, ok := h.subscribers[topic]; !ok {
		h.subscribers[topic] = make(map[*Subscription]bool)
	}
	h.subscribers[topic][sub] = true

	logrus.WithFields(logrus.Fields{
		"topic":   topic,
		"sub_ptr": sub,
	}).Debug("Subscriber registered with hub.")
	return sub
}

// Subscribers returns how many subscribers are attached to topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[topic])
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subscribers[sub.Topic]; ok {
		if subs[sub] {
			delete(subs, sub)
			close(sub.ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, sub.Topic)
		}
	}
	logrus.WithField("topic", sub.Topic).Debug("Subscriber removed from hub.")
}

func (h *Hub) deliver(update models.TrackingUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range []string{OrderTopic(update.OrderID), GlobalTopic} {
		for sub := range h.subscribers[topic] {
			select {
			case sub.ch <- update:
			default:
				logrus.WithFields(logrus.Fields{
					"topic":    topic,
					"order_id": update.OrderID,
					"status":   update.Status,
				}).Warn("Subscriber too slow, dropping update.")
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for topic, subs := range h.subscribers {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.subscribers, topic)
	}
	logrus.Info("Tracking hub stopped; all subscriptions closed.")
}
