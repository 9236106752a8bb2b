package triggers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Trigger names
const (
	Morning = "morning"
	Evening = "evening"
)

// SnapshotService builds snapshots and stores them per session
type SnapshotService interface {
	BuildSnapshot(ctx context.Context) (*briefing.Snapshot, error)
	SetSession(ctx context.Context, id string, snap *briefing.Snapshot)
}

// DigestSender delivers the morning digest and returns a delivery id
type DigestSender interface {
	Send(ctx context.Context, snap *briefing.Snapshot) (string, error)
}

// Pusher delivers a notification to every subscriber
type Pusher interface {
	PushNotification(ctx context.Context, alert notification.Alert) error
}

// Config configures a Manager
type Config struct {
	MorningTime string
	EveningTime string
	Location    *time.Location
	OwnerID     string
}

// Schedule describes the active triggers
type Schedule struct {
	Morning     string    `json:"morning_time"`
	Evening     string    `json:"evening_time"`
	Timezone    string    `json:"timezone"`
	NextMorning time.Time `json:"next_morning,omitempty"`
	NextEvening time.Time `json:"next_evening,omitempty"`
}

// Manager owns the morning and evening daily triggers
type Manager struct {
	snapshots SnapshotService
	digest    DigestSender
	pusher    Pusher
	owner     string
	logger    *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	times   map[string]string
	running bool
}

// NewManager creates a manager and registers both triggers. Nothing runs until Start.
func NewManager(snapshots SnapshotService, digest DigestSender, pusher Pusher, cfg Config, log *logger.Logger) *Manager {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	m := &Manager{
		snapshots: snapshots,
		digest:    digest,
		pusher:    pusher,
		owner:     cfg.OwnerID,
		logger:    log,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		entries: make(map[string]cron.EntryID),
		times:   make(map[string]string),
	}
	if m.owner == "" {
		m.owner = "default"
	}
	m.schedule(Morning, cfg.MorningTime, DefaultMorning, m.runMorning)
	m.schedule(Evening, cfg.EveningTime, DefaultEvening, m.runEvening)
	return m
}

// Start begins firing the triggers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.cron.Start()
	m.running = true
	m.logger.Info("Daily triggers started",
		zap.String("morning", m.times[Morning]),
		zap.String("evening", m.times[Evening]),
	)
}

// Stop halts the triggers and returns a context that is done once running jobs finish
func (m *Manager) Stop() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return m.cron.Stop()
}

// Reschedule replaces both triggers with new times without restarting the process.
// Invalid times fall back to the defaults.
func (m *Manager) Reschedule(morning, evening string) Schedule {
	m.mu.Lock()
	m.schedule(Morning, morning, DefaultMorning, m.runMorning)
	m.schedule(Evening, evening, DefaultEvening, m.runEvening)
	m.mu.Unlock()

	s := m.Schedule()
	m.logger.Info("Daily triggers rescheduled",
		zap.String("morning", s.Morning),
		zap.String("evening", s.Evening),
	)
	return s
}

// Schedule returns the active trigger times and their next run
func (m *Manager) Schedule() Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Schedule{
		Morning:  m.times[Morning],
		Evening:  m.times[Evening],
		Timezone: m.cron.Location().String(),
	}
	if m.running {
		s.NextMorning = m.cron.Entry(m.entries[Morning]).Next
		s.NextEvening = m.cron.Entry(m.entries[Evening]).Next
	}
	return s
}

// RunNow runs a trigger immediately, outside its schedule
func (m *Manager) RunNow(ctx context.Context, name string) error {
	switch name {
	case Morning:
		return m.RunMorning(ctx)
	case Evening:
		return m.RunEvening(ctx)
	default:
		return fmt.Errorf("triggers: unknown trigger %q", name)
	}
}

// schedule swaps the cron entry for name. Callers hold m.mu or own m exclusively.
func (m *Manager) schedule(name, hhmm, fallback string, job func()) {
	if id, ok := m.entries[name]; ok {
		m.cron.Remove(id)
	}
	if hhmm != "" && !ValidClock(hhmm) {
		m.logger.Warn("Invalid trigger time, using default",
			zap.String("trigger", name),
			zap.String("value", hhmm),
			zap.String("default", fallback),
		)
	}
	spec, used := CronSpec(hhmm, fallback)
	id, err := m.cron.AddFunc(spec, job)
	if err != nil {
		// CronSpec only produces valid expressions
		m.logger.Error("Failed to schedule trigger", zap.String("trigger", name), zap.Error(err))
		return
	}
	m.entries[name] = id
	m.times[name] = used
}

func (m *Manager) runMorning() {
	if err := m.RunMorning(context.Background()); err != nil {
		m.logger.Error("Morning trigger failed", zap.Error(err))
	}
}

func (m *Manager) runEvening() {
	if err := m.RunEvening(context.Background()); err != nil {
		m.logger.Error("Evening trigger failed", zap.Error(err))
	}
}

// RunMorning builds a snapshot, stores it for the owner, sends the digest and
// announces it. A failed send is logged and not retried.
func (m *Manager) RunMorning(ctx context.Context) error {
	snap, err := m.snapshots.BuildSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("build morning snapshot: %w", err)
	}
	m.snapshots.SetSession(ctx, m.owner, snap)

	if m.digest == nil {
		m.logger.Debug("No digest sender configured, skipping morning digest")
		return nil
	}
	deliveryID, err := m.digest.Send(ctx, snap)
	if err != nil {
		m.logger.Error("Failed to send morning digest", zap.Error(err))
		return nil
	}
	m.logger.Info("Morning digest sent", zap.String("delivery_id", deliveryID))

	alert := notification.NewAlert(notification.DigestSent,
		"Morning digest sent",
		fmt.Sprintf("%d events and %d important emails today.", len(snap.Events), len(snap.ImportantEmails)),
		"")
	return m.pusher.PushNotification(ctx, alert)
}

// RunEvening builds a snapshot, stores it for the owner and announces it
func (m *Manager) RunEvening(ctx context.Context) error {
	snap, err := m.snapshots.BuildSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("build evening snapshot: %w", err)
	}
	m.snapshots.SetSession(ctx, m.owner, snap)

	alert := notification.NewAlert(notification.EveningReady,
		"Evening briefing ready",
		fmt.Sprintf("%d open tasks and %d suggestions for tomorrow.", len(snap.Tasks), len(snap.Suggestions)),
		"")
	return m.pusher.PushNotification(ctx, alert)
}

// cronLogger routes cron's logging through zap
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
