package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/pkg/broker"
	"github.com/sirupsen/logrus"
)

// Producer queues alerts for out-of-band push delivery
type Producer interface {
	// ProduceAlert enqueues an alert for every push registration
	ProduceAlert(ctx context.Context, alert Alert) error
}

// brokerProducer implements the Producer interface using a message broker
type brokerProducer struct {
	messageBroker broker.MessageBroker
	logger        *logrus.Logger
	topicName     string
}

// NewBrokerProducer creates a new alert producer using a message broker
func NewBrokerProducer(messageBroker broker.MessageBroker, logger *logrus.Logger) Producer {
	p := &brokerProducer{
		messageBroker: messageBroker,
		logger:        logger,
		topicName:     broker.AlertsTopic,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := messageBroker.CreateTopic(ctx, p.topicName); err != nil {
		logger.WithError(err).Error("Failed to create push alerts topic")
	}

	return p
}

// ProduceAlert publishes the alert on the push topic
func (p *brokerProducer) ProduceAlert(ctx context.Context, alert Alert) error {
	if err := alert.Validate(); err != nil {
		return err
	}

	message, err := broker.NewAlertMessage(toMessage(alert))
	if err != nil {
		p.logger.WithError(err).Error("Failed to create alert message")
		return err
	}

	if err := p.messageBroker.Publish(ctx, p.topicName, message.Payload, message.Attributes); err != nil {
		p.logger.WithError(err).Error("Failed to publish alert message")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"kind":     alert.Kind,
	}).Debug("Alert queued for push")

	return nil
}

func toMessage(alert Alert) broker.AlertMessage {
	return broker.AlertMessage{
		AlertID:   alert.ID,
		Kind:      string(alert.Kind),
		Title:     alert.Title,
		Body:      alert.Body,
		EventID:   alert.RelatedEventID,
		Timestamp: alert.Timestamp,
	}
}

func fromMessage(payload []byte) (Alert, error) {
	var msg broker.AlertMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Alert{}, fmt.Errorf("decode alert message: %w", err)
	}
	kind, err := ParseKind(msg.Kind)
	if err != nil {
		return Alert{}, err
	}
	return Alert{
		ID:             msg.AlertID,
		Kind:           kind,
		Title:          msg.Title,
		Body:           msg.Body,
		RelatedEventID: msg.EventID,
		Timestamp:      msg.Timestamp,
	}, nil
}
