package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Sender delivers a payload to one push registration.
// It returns ErrRegistrationGone when the endpoint no longer exists.
type Sender interface {
	Send(ctx context.Context, reg *PushRegistration, payload []byte) error
}

// WebPushConfig holds the VAPID identity used for web push
type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        int
}

type webPushSender struct {
	cfg    WebPushConfig
	client *http.Client
}

// NewWebPushSender creates a VAPID web push sender
func NewWebPushSender(cfg WebPushConfig, client *http.Client) (Sender, error) {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, ErrPushNotConfigured
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 300
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &webPushSender{cfg: cfg, client: client}, nil
}

func (s *webPushSender) Send(ctx context.Context, reg *PushRegistration, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: reg.Endpoint,
		Keys: webpush.Keys{
			P256dh: reg.P256dh,
			Auth:   reg.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             s.cfg.TTL,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return fmt.Errorf("web push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return classifyPushStatus(resp.StatusCode)
}

// classifyPushStatus maps a push service response to an error.
// 404 and 410 mean the subscription is gone for good.
func classifyPushStatus(status int) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return ErrRegistrationGone
	case status >= 400:
		return fmt.Errorf("web push: unexpected status %d", status)
	default:
		return nil
	}
}

// pushPayload is the JSON body the service worker receives
func pushPayload(alert Alert) ([]byte, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("encode push payload: %w", err)
	}
	return payload, nil
}

// GenerateVAPIDKeys creates a new VAPID key pair for configuration
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
