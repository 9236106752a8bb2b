package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind is the closed set of alert types the bus delivers
type Kind string

const (
	// LeadWarning fires once when an event is about 15 minutes away
	LeadWarning Kind = "lead_warning"
	// StartingNow fires once when an event is within two minutes of its start
	StartingNow Kind = "starting_now"
	// Departure fires once when it is time to leave for a located event
	Departure Kind = "departure"
	// DigestSent follows a successful morning digest
	DigestSent Kind = "digest_sent"
	// EveningReady follows the evening snapshot build
	EveningReady Kind = "evening_ready"
	// System covers heartbeats and operator messages
	System Kind = "system"
)

var validKinds = map[Kind]struct{}{
	LeadWarning:  {},
	StartingNow:  {},
	Departure:    {},
	DigestSent:   {},
	EveningReady: {},
	System:       {},
}

// ParseKind converts a string to a Kind, rejecting unknown values
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrKindUnknown, s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	_, ok := validKinds[k]
	return ok
}

// UnmarshalJSON rejects unknown kinds at decode time
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Alert is a single notification pushed to live subscribers and push registrations
type Alert struct {
	ID             string    `json:"id"`
	Kind           Kind      `json:"type"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	RelatedEventID string    `json:"event_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewAlert builds an alert with a fresh id and the current time
func NewAlert(kind Kind, title, body, eventID string) Alert {
	return Alert{
		ID:             uuid.New().String(),
		Kind:           kind,
		Title:          title,
		Body:           body,
		RelatedEventID: eventID,
		Timestamp:      time.Now(),
	}
}

// Validate checks the alert before it reaches the delivery boundary
func (a Alert) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrKindUnknown, a.Kind)
	}
	if a.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// PushRegistration is a durable web push subscription
type PushRegistration struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;"`
	Endpoint  string    `json:"endpoint" gorm:"not null;uniqueIndex"`
	P256dh    string    `json:"p256dh" gorm:"not null"`
	Auth      string    `json:"auth" gorm:"not null"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

// TableName overrides the gorm table name
func (PushRegistration) TableName() string {
	return "push_registrations"
}

// BeforeCreate hook to set default values
func (r *PushRegistration) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	return nil
}
