package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
)

// GPSFreshness is how long a reported fix is trusted as the trip origin
const GPSFreshness = 2 * time.Hour

// TrafficEstimate is a live drive-time lookup result
type TrafficEstimate struct {
	FreeFlowMinutes     int  `json:"free_flow_minutes"`
	TrafficAwareMinutes int  `json:"traffic_aware_minutes"`
	DelayMinutes        int  `json:"delay_minutes"`
	Heavy               bool `json:"heavy"`
}

// TrafficSource looks up live drive durations. It returns nil, nil when no
// estimate is available for the route.
type TrafficSource interface {
	LiveDriveDuration(ctx context.Context, origin, destination string) (*TrafficEstimate, error)
}

// Notifier delivers alerts
type Notifier interface {
	Broadcast(ctx context.Context, alert notification.Alert) error
}

// GpsFix is a device location report
type GpsFix struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	CapturedAt time.Time `json:"captured_at"`
}

// Fresh reports whether the fix is recent enough to use as an origin
func (f GpsFix) Fresh(now time.Time) bool {
	return !f.CapturedAt.IsZero() && now.Sub(f.CapturedAt) <= GPSFreshness
}

// Origin formats the fix as a "lat,lng" route origin
func (f GpsFix) Origin() string {
	return fmt.Sprintf("%.6f,%.6f", f.Lat, f.Lng)
}

// LocationStore holds the most recent GPS fix
type LocationStore struct {
	mu  sync.RWMutex
	fix *GpsFix
}

// NewLocationStore creates an empty store
func NewLocationStore() *LocationStore {
	return &LocationStore{}
}

// Update replaces the stored fix. Older fixes than the current one are ignored.
func (s *LocationStore) Update(fix GpsFix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fix != nil && fix.CapturedAt.Before(s.fix.CapturedAt) {
		return
	}
	s.fix = &fix
}

// Latest returns the stored fix, if any
func (s *LocationStore) Latest() (GpsFix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fix == nil {
		return GpsFix{}, false
	}
	return *s.fix, true
}

// FiredKey identifies one delivered alert for one event
type FiredKey struct {
	EventID string
	Kind    notification.Kind
}

// DepartureLead is how long before the start a departure alert fires:
// the traffic-aware drive plus a 10 minute buffer, never less than 20 minutes.
func DepartureLead(est TrafficEstimate) time.Duration {
	lead := est.TrafficAwareMinutes + 10
	if lead < 20 {
		lead = 20
	}
	return time.Duration(lead) * time.Minute
}
