package main

import (
	"net/http"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/persistence/postgres/connection"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/broker"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/config"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// NotificationSystem holds all notification-related components
type NotificationSystem struct {
	Bus           *notification.Bus
	Registrations notification.Repository
	Consumer      notification.Consumer
	MessageBroker broker.MessageBroker
	Logger        *logrus.Logger
}

// SetupNotificationSystem builds the alert bus. Web push delivery is wired in
// only when VAPID keys are configured; otherwise alerts reach live subscribers only.
// The consumer is returned unstarted.
func SetupNotificationSystem(
	db *connection.Database,
	cfg config.PushConfig,
	client *http.Client,
	appLogger *logger.Logger,
	isDevelopment bool,
) *NotificationSystem {
	notifLogger := logrus.New()
	notifLogger.SetFormatter(&logrus.JSONFormatter{})
	if isDevelopment {
		notifLogger.SetLevel(logrus.DebugLevel)
	} else {
		notifLogger.SetLevel(logrus.InfoLevel)
	}

	ns := &NotificationSystem{Logger: notifLogger}

	sender, err := notification.NewWebPushSender(notification.WebPushConfig{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subscriber: cfg.Subscriber,
	}, client)
	if err != nil {
		appLogger.Info("Web push disabled", zap.Error(err))
		ns.Bus = notification.NewBus(notifLogger, nil)
		return ns
	}

	if db != nil {
		ns.Registrations = notification.NewRepository(db, notifLogger)
	} else {
		appLogger.Warn("Database disabled, push registrations are kept in memory")
		ns.Registrations = notification.NewMemoryRepository()
	}

	ns.MessageBroker = broker.NewInMemoryBroker(notifLogger, 1000)
	producer := notification.NewBrokerProducer(ns.MessageBroker, notifLogger)
	ns.Consumer = notification.NewBrokerConsumer(ns.MessageBroker, sender, ns.Registrations, notifLogger)
	ns.Bus = notification.NewBus(notifLogger, producer)

	appLogger.Info("Web push enabled")
	return ns
}

// Shutdown closes the broker. The consumer is stopped by the job scheduler.
func (ns *NotificationSystem) Shutdown() error {
	if ns.MessageBroker != nil {
		if err := ns.MessageBroker.Close(); err != nil {
			ns.Logger.WithError(err).Error("Error closing message broker")
			return err
		}
	}
	ns.Logger.Info("Notification system shut down successfully")
	return nil
}
