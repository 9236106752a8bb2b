package briefing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSourceNotConfigured is returned by adapters that have no credentials or endpoint
var ErrSourceNotConfigured = errors.New("briefing: source not configured")

// CalendarSource reads the user's calendar
type CalendarSource interface {
	EventsForDay(ctx context.Context, daysAhead int) ([]Event, error)
	EventsInRange(ctx context.Context, start, end time.Time) ([]Event, error)
}

// MailSource reads unread mail across all configured accounts
type MailSource interface {
	UnreadAcrossAccounts(ctx context.Context) ([]Email, error)
}

// TaskSource reads open tasks
type TaskSource interface {
	OpenTasks(ctx context.Context, limit int) ([]Task, error)
}

// WeatherSource fetches today's forecast
type WeatherSource interface {
	Forecast(ctx context.Context) (*Weather, error)
}

// NewsSource searches articles per topic
type NewsSource interface {
	SearchByTopics(ctx context.Context, topics []string) (map[string][]Article, error)
}

// UsageSource reports today's usage. It never does I/O.
type UsageSource interface {
	Today() UsageStats
}

// PackageScanner finds shipment tracking info
type PackageScanner interface {
	ScanForPackages(ctx context.Context) ([]Package, error)
}

// Sources bundles every adapter the aggregator fans out to
type Sources struct {
	Calendar CalendarSource
	Mail     MailSource
	Tasks    TaskSource
	Weather  WeatherSource
	News     NewsSource
	Usage    UsageSource
	Packages PackageScanner
}

// Result is the outcome of one source call: a value or an isolated error.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the call succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// OrDefault returns the value on success and def otherwise
func (r Result[T]) OrDefault(def T) T {
	if r.Err != nil {
		return def
	}
	return r.Value
}

// capture runs fn, converting a panic into an isolated error
func capture[T any](fn func() (T, error)) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = Result[T]{Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	v, err := fn()
	return Result[T]{Value: v, Err: err}
}
