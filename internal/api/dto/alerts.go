package dto

import (
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/alerts"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/triggers"
)

// PushNotificationRequest is an externally triggered alert. Type is checked
// against the known kinds by the bus.
type PushNotificationRequest struct {
	Type    string `json:"type" validate:"required"`
	Title   string `json:"title" validate:"required,not_empty,max=200"`
	Body    string `json:"body" validate:"max=2000"`
	EventID string `json:"event_id,omitempty"`
}

// ToAlert converts the request into an alert. The kind is validated downstream.
func (r PushNotificationRequest) ToAlert() notification.Alert {
	return notification.Alert{
		Kind:           notification.Kind(r.Type),
		Title:          r.Title,
		Body:           r.Body,
		RelatedEventID: r.EventID,
	}
}

// PushKeys are the browser-generated subscription keys
type PushKeys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// PushRegistrationRequest mirrors the browser PushSubscription JSON
type PushRegistrationRequest struct {
	Endpoint string   `json:"endpoint" validate:"required,url"`
	Keys     PushKeys `json:"keys"`
}

// ToRegistration converts the request into a registration
func (r PushRegistrationRequest) ToRegistration(userAgent string) *notification.PushRegistration {
	return &notification.PushRegistration{
		Endpoint:  r.Endpoint,
		P256dh:    r.Keys.P256dh,
		Auth:      r.Keys.Auth,
		UserAgent: userAgent,
	}
}

// DeleteRegistrationRequest removes a registration by endpoint
type DeleteRegistrationRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// TriggersRequest reschedules both daily triggers
type TriggersRequest struct {
	MorningTime string `json:"morning_time" validate:"required,clock"`
	EveningTime string `json:"evening_time" validate:"required,clock"`
}

// TriggersResponse reports the active schedule
type TriggersResponse = triggers.Schedule

// LocationRequest is a GPS fix from the user's device
type LocationRequest struct {
	Lat        *float64   `json:"lat" validate:"required,min=-90,max=90"`
	Lng        *float64   `json:"lng" validate:"required,min=-180,max=180"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// ToFix converts the request into a fix, stamping it with now when the device did not
func (r LocationRequest) ToFix(now time.Time) alerts.GpsFix {
	fix := alerts.GpsFix{Lat: *r.Lat, Lng: *r.Lng, CapturedAt: now}
	if r.CapturedAt != nil && !r.CapturedAt.IsZero() {
		fix.CapturedAt = *r.CapturedAt
	}
	return fix
}

// UsageRequest records one LLM request's token and cost usage
type UsageRequest struct {
	InputTokens  int64   `json:"input_tokens" validate:"min=0"`
	OutputTokens int64   `json:"output_tokens" validate:"min=0"`
	CostUSD      float64 `json:"cost_usd" validate:"min=0"`
}
