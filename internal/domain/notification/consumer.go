package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/angelonej/daily-planner-agent-sub000/pkg/broker"
	"github.com/sirupsen/logrus"
)

// Consumer delivers queued alerts to push registrations
type Consumer interface {
	// Start starts the consumer
	Start(ctx context.Context) error

	// Stop stops the consumer
	Stop() error

	// IsRunning returns true if the consumer is running
	IsRunning() bool
}

// brokerConsumer implements the Consumer interface
type brokerConsumer struct {
	messageBroker broker.MessageBroker
	sender        Sender
	repository    Repository
	logger        *logrus.Logger
	topicName     string

	mu           sync.Mutex
	subscription broker.Subscription
	isRunning    bool
}

// NewBrokerConsumer creates a new push delivery consumer
func NewBrokerConsumer(
	messageBroker broker.MessageBroker,
	sender Sender,
	repository Repository,
	logger *logrus.Logger) Consumer {

	return &brokerConsumer{
		messageBroker: messageBroker,
		sender:        sender,
		repository:    repository,
		logger:        logger,
		topicName:     broker.AlertsTopic,
	}
}

// Start subscribes to the push topic
func (c *brokerConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isRunning {
		return errors.New("consumer already running")
	}

	if err := c.messageBroker.CreateTopic(ctx, c.topicName); err != nil {
		c.logger.WithError(err).Error("Failed to create push alerts topic")
		return err
	}

	sub, err := c.messageBroker.Subscribe(ctx, c.topicName, c.handleMessage)
	if err != nil {
		c.logger.WithError(err).Error("Failed to subscribe to push alerts topic")
		return err
	}

	c.subscription = sub
	c.isRunning = true

	c.logger.WithFields(logrus.Fields{
		"topic":        c.topicName,
		"subscription": sub.ID(),
	}).Info("Push consumer started")

	return nil
}

// Stop unsubscribes from the push topic
func (c *brokerConsumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRunning {
		return nil
	}

	if c.subscription != nil {
		if err := c.subscription.Unsubscribe(); err != nil {
			c.logger.WithError(err).Error("Failed to unsubscribe from push alerts topic")
			return err
		}
	}

	c.isRunning = false
	c.subscription = nil

	c.logger.Info("Push consumer stopped")

	return nil
}

// IsRunning returns true if the consumer is running
func (c *brokerConsumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}

// handleMessage sends one alert to every registration, pruning the gone ones.
// Delivery failures never fail the message.
func (c *brokerConsumer) handleMessage(ctx context.Context, message *broker.Message) error {
	alert, err := fromMessage(message.Payload)
	if err != nil {
		c.logger.WithError(err).WithField("message_id", message.ID).Error("Dropping malformed alert message")
		return err
	}

	regs, err := c.repository.List(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Failed to list push registrations")
		return err
	}
	if len(regs) == 0 {
		return nil
	}

	payload, err := pushPayload(alert)
	if err != nil {
		return err
	}

	var delivered, pruned, failed int
	for _, reg := range regs {
		err := c.sender.Send(ctx, reg, payload)
		switch {
		case err == nil:
			delivered++
			pushDeliveries.WithLabelValues("delivered").Inc()
		case errors.Is(err, ErrRegistrationGone):
			pruned++
			pushDeliveries.WithLabelValues("pruned").Inc()
			if delErr := c.repository.Delete(ctx, reg.ID); delErr != nil && !errors.Is(delErr, ErrRegistrationNotFound) {
				c.logger.WithError(delErr).WithField("registration_id", reg.ID).Warn("Failed to prune push registration")
			}
		default:
			failed++
			pushDeliveries.WithLabelValues("failed").Inc()
			c.logger.WithError(err).WithField("registration_id", reg.ID).Debug("Push delivery failed")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"alert_id":  alert.ID,
		"kind":      alert.Kind,
		"delivered": delivered,
		"pruned":    pruned,
		"failed":    failed,
	}).Debug("Push delivery finished")

	return nil
}
