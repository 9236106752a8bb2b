package calendar

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository reads calendar events
type Repository interface {
	// EventsBetween returns non-cancelled events that overlap [start, end), ordered by start
	EventsBetween(ctx context.Context, start, end time.Time) ([]CalendarEvent, error)
	CreateEvent(ctx context.Context, event *CalendarEvent) error
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new calendar repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) EventsBetween(ctx context.Context, start, end time.Time) ([]CalendarEvent, error) {
	var events []CalendarEvent
	err := r.db.WithContext(ctx).
		Where("cancelled = ?", false).
		Where("start_time < ? AND end_time > ?", end, start).
		Order("start_time ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) CreateEvent(ctx context.Context, event *CalendarEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
