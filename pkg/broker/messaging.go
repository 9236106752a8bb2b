package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrBrokerClosed = errors.New("broker is closed")
	ErrQueueFull    = errors.New("topic queue is full")
)

// Message is one queued payload
type Message struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Payload     []byte            `json:"payload"`
	PublishedAt time.Time         `json:"published_at"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// MessageHandler is a function that processes messages
type MessageHandler func(context.Context, *Message) error

// MessageBroker queues messages per topic and hands them to subscribers
type MessageBroker interface {
	// Publish queues a message without waiting for delivery
	Publish(ctx context.Context, topic string, payload []byte, attributes map[string]string) error

	// Subscribe registers a handler for every message queued on topic
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// CreateTopic creates a topic if it doesn't exist
	CreateTopic(ctx context.Context, topic string) error

	// Close stops accepting messages. Already queued messages are still delivered.
	Close() error
}

// Subscription is a registered handler
type Subscription interface {
	ID() string
	Unsubscribe() error
}

type topicQueue struct {
	queue    chan *Message
	handlers map[string]MessageHandler
}

// InMemoryBroker keeps a bounded queue per topic. A single dispatcher per topic
// delivers messages in publish order, so a slow handler never blocks Publish.
type InMemoryBroker struct {
	mu        sync.RWMutex
	topics    map[string]*topicQueue
	logger    *logrus.Logger
	queueSize int
	closed    bool
	dispatch  sync.WaitGroup
}

type subscription struct {
	id     string
	topic  string
	broker *InMemoryBroker
	once   sync.Once
}

// NewInMemoryBroker creates a broker whose topics hold at most queueSize
// undelivered messages
func NewInMemoryBroker(logger *logrus.Logger, queueSize int) *InMemoryBroker {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &InMemoryBroker{
		topics:    make(map[string]*topicQueue),
		logger:    logger,
		queueSize: queueSize,
	}
}

// CreateTopic creates a topic and starts its dispatcher
func (b *InMemoryBroker) CreateTopic(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	b.topicLocked(topic)
	return nil
}

// topicLocked returns the topic, creating it when missing. b.mu must be held.
func (b *InMemoryBroker) topicLocked(name string) *topicQueue {
	if t, ok := b.topics[name]; ok {
		return t
	}
	t := &topicQueue{
		queue:    make(chan *Message, b.queueSize),
		handlers: make(map[string]MessageHandler),
	}
	b.topics[name] = t
	b.dispatch.Add(1)
	go b.run(name, t)
	return t
}

// Publish queues a message. A full queue rejects the message with ErrQueueFull.
func (b *InMemoryBroker) Publish(_ context.Context, topic string, payload []byte, attributes map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}

	msg := &Message{
		ID:          uuid.New().String(),
		Topic:       topic,
		Payload:     payload,
		PublishedAt: time.Now(),
		Attributes:  attributes,
	}
	select {
	case b.topicLocked(topic).queue <- msg:
		return nil
	default:
		b.logger.WithFields(logrus.Fields{
			"topic":      topic,
			"queue_size": b.queueSize,
		}).Warn("Dropping message, topic queue is full")
		return ErrQueueFull
	}
}

// Subscribe registers handler on topic
func (b *InMemoryBroker) Subscribe(_ context.Context, topic string, handler MessageHandler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	id := uuid.New().String()
	b.topicLocked(topic).handlers[id] = handler
	return &subscription{id: id, topic: topic, broker: b}, nil
}

func (b *InMemoryBroker) run(name string, t *topicQueue) {
	defer b.dispatch.Done()
	for msg := range t.queue {
		b.mu.RLock()
		handlers := make([]MessageHandler, 0, len(t.handlers))
		for _, h := range t.handlers {
			handlers = append(handlers, h)
		}
		b.mu.RUnlock()

		for _, h := range handlers {
			b.processMessage(h, msg)
		}
	}
	b.logger.WithField("topic", name).Debug("Topic dispatcher stopped")
}

func (b *InMemoryBroker) processMessage(handler MessageHandler, msg *Message) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.WithField("message_id", msg.ID).WithField("panic", p).Error("Message handler panicked")
		}
	}()

	if err := handler(context.Background(), msg); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"message_id": msg.ID,
			"topic":      msg.Topic,
		}).Error("Error processing message")
	}
}

// Close stops accepting messages and waits for queued ones to be handled
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, t := range b.topics {
		close(t.queue)
	}
	b.mu.Unlock()

	b.dispatch.Wait()
	return nil
}

func (s *subscription) ID() string {
	return s.id
}

// Unsubscribe removes the handler. Messages already handed to it still finish.
func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		if t, ok := s.broker.topics[s.topic]; ok {
			delete(t.handlers, s.id)
		}
	})
	return nil
}

// AlertsTopic carries alerts queued for out-of-band push delivery
const AlertsTopic = "push_alerts"

// AlertMessage is the wire form of an alert on AlertsTopic
type AlertMessage struct {
	AlertID   string    `json:"alert_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	EventID   string    `json:"event_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAlertMessage encodes an alert for AlertsTopic
func NewAlertMessage(msg AlertMessage) (*Message, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:          uuid.New().String(),
		Topic:       AlertsTopic,
		Payload:     payload,
		PublishedAt: time.Now(),
		Attributes: map[string]string{
			"kind":     msg.Kind,
			"alert_id": msg.AlertID,
		},
	}, nil
}
