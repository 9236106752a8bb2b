package alerts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"go.uber.org/zap"
)

const (
	// DefaultInterval is the poll interval when none is configured
	DefaultInterval = 60 * time.Second
	// MinInterval is the floor applied to the poll interval
	MinInterval = 15 * time.Second

	lookAhead        = 120 * time.Minute
	activeAfter      = 5 * time.Minute
	leadWarningMin   = 13 * time.Minute
	leadWarningMax   = 16 * time.Minute
	startingNowSlack = 2 * time.Minute
	departureWindow  = 2 * time.Minute
)

// Config configures a Scheduler
type Config struct {
	Interval    time.Duration
	HomeAddress string
	WorkAddress string
	FiredLimit  int
	Now         func() time.Time
}

type departure struct {
	start    time.Time
	lead     time.Duration
	estimate TrafficEstimate
	expires  time.Time
}

// Scheduler polls today's calendar and fires lead-warning, starting-now and
// departure alerts, each at most once per event.
type Scheduler struct {
	calendar  briefing.CalendarSource
	traffic   TrafficSource
	locations *LocationStore
	notifier  Notifier
	logger    *logger.Logger

	interval time.Duration
	home     string
	work     string
	now      func() time.Time

	mu         sync.Mutex
	fired      *firedSet
	checked    map[string]time.Time // traffic-checked markers, event key -> expiry
	departures map[string]departure

	lookups sync.WaitGroup
}

// NewScheduler creates a scheduler. traffic and locations may be nil; without
// traffic or a home or work address no departure alerts are produced.
func NewScheduler(calendar briefing.CalendarSource, traffic TrafficSource, locations *LocationStore, notifier Notifier, cfg Config, log *logger.Logger) *Scheduler {
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		calendar:   calendar,
		traffic:    traffic,
		locations:  locations,
		notifier:   notifier,
		logger:     log,
		interval:   interval,
		home:       strings.TrimSpace(cfg.HomeAddress),
		work:       strings.TrimSpace(cfg.WorkAddress),
		now:        cfg.Now,
		fired:      newFiredSet(cfg.FiredLimit),
		checked:    make(map[string]time.Time),
		departures: make(map[string]departure),
	}
}

// Interval returns the effective poll interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start runs the poll loop in the background until ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Alert scheduler started",
		zap.Duration("interval", s.interval),
		zap.Bool("traffic_enabled", s.traffic != nil && s.fallbackOrigin() != ""),
	)
	go s.Run(ctx)
}

// Run polls immediately and then on every interval. A failed poll is logged and
// the loop carries on.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.safeTick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Alert scheduler stopped")
			return
		case <-ticker.C:
			s.safeTick(ctx)
		}
	}
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			tickFailures.Inc()
			s.logger.Error("Alert scheduler tick panicked", zap.Any("panic", p))
		}
	}()
	if err := s.Tick(ctx); err != nil {
		tickFailures.Inc()
		s.logger.Error("Alert scheduler tick failed", zap.Error(err))
	}
}

// Tick runs one poll over today's events, read straight from the calendar
func (s *Scheduler) Tick(ctx context.Context) error {
	started := time.Now()
	defer func() {
		tickDuration.Observe(time.Since(started).Seconds())
	}()

	now := s.now()
	events, err := s.calendar.EventsForDay(ctx, 0)
	if err != nil {
		return fmt.Errorf("fetch today's events: %w", err)
	}

	for _, e := range events {
		start, ok := briefing.ResolveStart(e, now)
		if !ok {
			continue
		}
		until := start.Sub(now)
		if until < -activeAfter || until > lookAhead {
			continue
		}
		key := eventKey(e, start)

		if s.wantsTraffic(e) {
			s.ensureLookup(ctx, key, e, start, now)
			s.checkDeparture(ctx, key, e, start, now)
		}

		if until >= leadWarningMin && until <= leadWarningMax {
			s.fire(ctx, key, start, notification.LeadWarning, now,
				fmt.Sprintf("Starting in ~15 minutes: %s", e.Title),
				describe(e, start))
		}
		if until >= -startingNowSlack && until <= startingNowSlack {
			s.fire(ctx, key, start, notification.StartingNow, now,
				fmt.Sprintf("Starting now: %s", e.Title),
				describe(e, start))
		}
	}

	s.mu.Lock()
	expired := s.fired.expire(now)
	for k, exp := range s.checked {
		if now.After(exp) {
			delete(s.checked, k)
		}
	}
	for k, d := range s.departures {
		if now.After(d.expires) {
			delete(s.departures, k)
		}
	}
	cleared := s.fired.enforceLimit()
	size := s.fired.len()
	s.mu.Unlock()

	if cleared {
		s.logger.Warn("Fired alert set exceeded its bound and was cleared")
	}
	s.logger.Debug("Alert scheduler tick complete",
		zap.Int("events", len(events)),
		zap.Int("fired_keys", size),
		zap.Int("expired_keys", expired),
	)
	return nil
}

// WaitForLookups blocks until every traffic lookup started so far has finished
func (s *Scheduler) WaitForLookups() {
	s.lookups.Wait()
}

// Fired reports whether an alert of the given kind was delivered for an event key
func (s *Scheduler) Fired(eventKey string, kind notification.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired.has(FiredKey{EventID: eventKey, Kind: kind})
}

// DepartureLeadFor returns the cached departure lead for an event key
func (s *Scheduler) DepartureLeadFor(eventKey string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departures[eventKey]
	return d.lead, ok
}

func (s *Scheduler) wantsTraffic(e briefing.Event) bool {
	return s.traffic != nil && s.fallbackOrigin() != "" && briefing.HasPhysicalLocation(e)
}

// destination expands the "home", "work" and "office" shorthands to the
// configured addresses
func (s *Scheduler) destination(location string) string {
	switch strings.ToLower(strings.TrimSpace(location)) {
	case "home":
		if s.home != "" {
			return s.home
		}
	case "work", "office":
		if s.work != "" {
			return s.work
		}
	}
	return location
}

// ensureLookup starts the one traffic lookup an event gets. It does not block
// the tick; the result is cached for later ticks.
func (s *Scheduler) ensureLookup(ctx context.Context, key string, e briefing.Event, start, now time.Time) {
	s.mu.Lock()
	_, seen := s.checked[key]
	s.checked[key] = start.Add(activeAfter)
	s.mu.Unlock()
	if seen {
		return
	}

	origin := s.origin(now)
	dest := s.destination(e.Location)
	if strings.EqualFold(origin, dest) {
		s.logger.Debug("Event is at the trip origin, skipping traffic", zap.String("event", key))
		return
	}
	lookupCtx := context.WithoutCancel(ctx)

	s.lookups.Add(1)
	go func() {
		defer s.lookups.Done()
		defer func() {
			if p := recover(); p != nil {
				trafficLookups.WithLabelValues("error").Inc()
				s.logger.Error("Traffic lookup panicked", zap.String("event", key), zap.Any("panic", p))
			}
		}()

		est, err := s.traffic.LiveDriveDuration(lookupCtx, origin, dest)
		if err != nil {
			trafficLookups.WithLabelValues("error").Inc()
			s.logger.Warn("Traffic lookup failed", zap.String("event", key), zap.Error(err))
			return
		}
		if est == nil {
			trafficLookups.WithLabelValues("unavailable").Inc()
			s.logger.Debug("No traffic estimate for event", zap.String("event", key))
			return
		}
		trafficLookups.WithLabelValues("ok").Inc()

		lead := DepartureLead(*est)
		s.mu.Lock()
		s.departures[key] = departure{
			start:    start,
			lead:     lead,
			estimate: *est,
			expires:  start.Add(activeAfter),
		}
		s.mu.Unlock()

		s.logger.Info("Departure lead computed",
			zap.String("event", key),
			zap.String("origin", origin),
			zap.Int("traffic_minutes", est.TrafficAwareMinutes),
			zap.Duration("lead", lead),
		)
		s.checkDeparture(lookupCtx, key, e, start, s.now())
	}()
}

// checkDeparture fires the departure alert during the two minutes after the
// leave-by time. It runs on every tick and when a lookup completes, so a slow
// lookup that lands inside the window still fires.
func (s *Scheduler) checkDeparture(ctx context.Context, key string, e briefing.Event, start, now time.Time) {
	s.mu.Lock()
	d, ok := s.departures[key]
	s.mu.Unlock()
	if !ok {
		return
	}

	leaveAt := start.Add(-d.lead)
	if now.Before(leaveAt) || !now.Before(leaveAt.Add(departureWindow)) {
		return
	}

	body := fmt.Sprintf("%s at %s. Drive is about %d min", e.Location, start.Format("3:04 PM"), d.estimate.TrafficAwareMinutes)
	if d.estimate.DelayMinutes > 0 {
		body += fmt.Sprintf(" (%d min traffic delay)", d.estimate.DelayMinutes)
	}
	body += "."
	s.fire(ctx, key, start, notification.Departure, now, fmt.Sprintf("Time to leave for %s", e.Title), body)
}

func (s *Scheduler) origin(now time.Time) string {
	if s.locations != nil {
		if fix, ok := s.locations.Latest(); ok && fix.Fresh(now) {
			return fix.Origin()
		}
	}
	return s.fallbackOrigin()
}

func (s *Scheduler) fallbackOrigin() string {
	if s.home != "" {
		return s.home
	}
	return s.work
}

// fire delivers an alert unless one of the same kind already went out for the event
func (s *Scheduler) fire(ctx context.Context, key string, start time.Time, kind notification.Kind, now time.Time, title, body string) bool {
	s.mu.Lock()
	fresh := s.fired.mark(FiredKey{EventID: key, Kind: kind}, start.Add(activeAfter))
	s.mu.Unlock()
	if !fresh {
		return false
	}

	alert := notification.NewAlert(kind, title, body, key)
	alert.Timestamp = now
	if err := s.notifier.Broadcast(ctx, alert); err != nil {
		s.logger.Warn("Failed to broadcast alert", zap.String("event", key), zap.String("kind", string(kind)), zap.Error(err))
	}
	alertsFired.WithLabelValues(string(kind)).Inc()
	s.logger.Info("Alert fired", zap.String("event", key), zap.String("kind", string(kind)))
	return true
}

// eventKey identifies an event across polls. Events without an id fall back to
// title and start.
func eventKey(e briefing.Event, start time.Time) string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("%s@%d", e.Title, start.Unix())
}

func describe(e briefing.Event, start time.Time) string {
	if e.Location == "" {
		return fmt.Sprintf("At %s.", start.Format("3:04 PM"))
	}
	return fmt.Sprintf("At %s, %s.", start.Format("3:04 PM"), e.Location)
}
