package calendar

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type EventType string

const (
	EventTypeNone     EventType = "None"
	EventTypeMeeting  EventType = "Meeting"
	EventTypeHoliday  EventType = "Holiday"
	EventTypeReminder EventType = "Reminder"
)

type Transparency string

const (
	TransparencyOpaque      Transparency = "opaque"
	TransparencyTransparent Transparency = "transparent"
)

// StringArray is a PostgreSQL text array
type StringArray []string

// Value implements the driver.Valuer interface
func (a StringArray) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

// Scan implements the sql.Scanner interface
func (a *StringArray) Scan(src interface{}) error {
	return (*pq.StringArray)(a).Scan(src)
}

// CalendarEvent is a single calendar entry
type CalendarEvent struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ExternalID   string       `json:"external_id,omitempty" gorm:"type:varchar(255);index:idx_calendar_event_external"`
	Title        string       `json:"title" gorm:"type:varchar(255);not null"`
	Description  string       `json:"description" gorm:"type:text"`
	EventType    EventType    `json:"event_type" gorm:"type:varchar(50);not null;default:'None'"`
	StartTime    time.Time    `json:"start_time" gorm:"not null;index:idx_calendar_event_start"`
	EndTime      time.Time    `json:"end_time" gorm:"not null"`
	IsAllDay     bool         `json:"is_all_day" gorm:"not null;default:false"`
	Location     string       `json:"location,omitempty" gorm:"type:varchar(255)"`
	Attendees    StringArray  `json:"attendees,omitempty" gorm:"type:varchar[]"`
	Transparency Transparency `json:"transparency" gorm:"type:varchar(20);not null;default:'opaque'"`
	Cancelled    bool         `json:"cancelled" gorm:"not null;default:false"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:current_timestamp"`
}

// TableName overrides the gorm table name
func (CalendarEvent) TableName() string {
	return "calendar_events"
}

// BeforeCreate hook to set default values
func (e *CalendarEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Transparency == "" {
		e.Transparency = TransparencyOpaque
	}
	if e.EventType == "" {
		e.EventType = EventTypeNone
	}
	return nil
}

// DisplayStart is the human-formatted start shown in briefings
func (e CalendarEvent) DisplayStart(loc *time.Location) string {
	if e.IsAllDay {
		return e.StartTime.In(loc).Format("Mon, Jan 2") + " (all day)"
	}
	return e.StartTime.In(loc).Format("Mon, Jan 2, 3:04 PM")
}
