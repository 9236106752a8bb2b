package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultHeartbeatInterval keeps idle push streams open through proxies
const DefaultHeartbeatInterval = 30 * time.Second

// Subscriber is a live push-stream connection
type Subscriber interface {
	ID() string
	Send(alert Alert) error
}

// Bus fans alerts out to every live subscriber and, when configured, to push
// registrations. Subscribers whose writes fail are dropped.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	producer    Producer
	logger      *logrus.Logger
}

// NewBus creates a bus. producer may be nil when push is not configured.
func NewBus(logger *logrus.Logger, producer Producer) *Bus {
	return &Bus{
		subscribers: make(map[string]Subscriber),
		producer:    producer,
		logger:      logger,
	}
}

// Subscribe registers a subscriber and sends it a connected heartbeat.
// A subscriber that cannot receive the heartbeat is not registered.
func (b *Bus) Subscribe(sub Subscriber) error {
	if err := sub.Send(heartbeat("connected")); err != nil {
		return err
	}

	b.mu.Lock()
	b.subscribers[sub.ID()] = sub
	count := len(b.subscribers)
	b.mu.Unlock()

	liveSubscribers.Set(float64(count))
	b.logger.WithFields(logrus.Fields{
		"subscriber":  sub.ID(),
		"subscribers": count,
	}).Debug("Subscriber connected")
	return nil
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	_, ok := b.subscribers[id]
	delete(b.subscribers, id)
	count := len(b.subscribers)
	b.mu.Unlock()

	if ok {
		liveSubscribers.Set(float64(count))
		b.logger.WithField("subscriber", id).Debug("Subscriber disconnected")
	}
}

// SubscriberCount returns the number of live subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Broadcast delivers an alert to every live subscriber and enqueues it for push.
// Only an invalid alert is reported as an error; delivery failures are absorbed.
func (b *Bus) Broadcast(ctx context.Context, alert Alert) error {
	if err := alert.Validate(); err != nil {
		return err
	}

	delivered := b.sendLive(alert)
	alertsBroadcast.WithLabelValues(string(alert.Kind)).Inc()

	if b.producer != nil {
		if err := b.producer.ProduceAlert(ctx, alert); err != nil {
			b.logger.WithError(err).WithField("alert_id", alert.ID).Warn("Failed to enqueue push delivery")
		}
	}

	b.logger.WithFields(logrus.Fields{
		"alert_id":  alert.ID,
		"kind":      alert.Kind,
		"event_id":  alert.RelatedEventID,
		"delivered": delivered,
	}).Info("Alert broadcast")
	return nil
}

// PushNotification is the externally triggered entry point. Missing ids and
// timestamps are filled in before the alert is broadcast.
func (b *Bus) PushNotification(ctx context.Context, alert Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	return b.Broadcast(ctx, alert)
}

// RunHeartbeat sends a heartbeat to live subscribers on every interval until ctx is done
func (b *Bus) RunHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sendLive(heartbeat("heartbeat"))
		}
	}
}

// sendLive writes to a copy of the subscriber set so slow writers never hold the lock
func (b *Bus) sendLive(alert Alert) int {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, s := range subs {
		if err := s.Send(alert); err != nil {
			b.logger.WithError(err).WithField("subscriber", s.ID()).Debug("Dropping subscriber after failed write")
			b.Unsubscribe(s.ID())
			continue
		}
		delivered++
	}
	return delivered
}

func heartbeat(title string) Alert {
	return Alert{
		ID:        uuid.New().String(),
		Kind:      System,
		Title:     title,
		Timestamp: time.Now(),
	}
}

// ErrSubscriberBlocked is returned when a channel subscriber cannot accept an alert in time
var ErrSubscriberBlocked = errors.New("notification: subscriber blocked")

// ChannelSubscriber buffers alerts on a channel for a reader goroutine
type ChannelSubscriber struct {
	id      string
	ch      chan Alert
	timeout time.Duration
	once    sync.Once
	done    chan struct{}
}

// NewChannelSubscriber creates a subscriber with the given buffer size
func NewChannelSubscriber(buffer int) *ChannelSubscriber {
	return &ChannelSubscriber{
		id:      uuid.New().String(),
		ch:      make(chan Alert, buffer),
		timeout: 100 * time.Millisecond,
		done:    make(chan struct{}),
	}
}

// ID returns the subscriber id
func (s *ChannelSubscriber) ID() string { return s.id }

// Alerts returns the receive side of the buffer
func (s *ChannelSubscriber) Alerts() <-chan Alert { return s.ch }

// Send queues an alert, failing if the reader has gone or stays blocked
func (s *ChannelSubscriber) Send(alert Alert) error {
	select {
	case <-s.done:
		return ErrSubscriberBlocked
	default:
	}
	select {
	case s.ch <- alert:
		return nil
	case <-s.done:
		return ErrSubscriberBlocked
	case <-time.After(s.timeout):
		return ErrSubscriberBlocked
	}
}

// Close makes every later Send fail
func (s *ChannelSubscriber) Close() {
	s.once.Do(func() { close(s.done) })
}
