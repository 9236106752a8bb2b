package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/cache"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"go.uber.org/zap"
)

// AlertLoop polls the calendar and fires alerts until ctx is done
type AlertLoop interface {
	Run(ctx context.Context)
	Interval() time.Duration
}

// Heartbeat keeps idle push streams open
type Heartbeat interface {
	RunHeartbeat(ctx context.Context, interval time.Duration)
}

// DailyTriggers fires the morning and evening jobs
type DailyTriggers interface {
	Start()
	Stop() context.Context
}

// PushConsumer drains the push queue
type PushConsumer interface {
	Start(ctx context.Context) error
	Stop() error
}

// InvalidationFeed delivers dashboard invalidations from other instances
type InvalidationFeed interface {
	SubscribeInvalidations(ctx context.Context, onInvalidate func(cache.BriefingEvent)) error
}

// Jobs are the background loops the scheduler owns. Nil fields are skipped.
type Jobs struct {
	Alerts            AlertLoop
	Heartbeat         Heartbeat
	HeartbeatInterval time.Duration
	Triggers          DailyTriggers
	Consumer          PushConsumer
	Invalidations     InvalidationFeed
	OnInvalidate      func()
}

// Scheduler starts every background loop and stops them together
type Scheduler struct {
	jobs   Jobs
	logger *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	running bool
}

func NewScheduler(jobs Jobs, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		logger: logger,
	}
}

// Start launches the loops. Failures to start an optional loop are logged and
// the remaining loops still start.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	startTime := time.Now()

	if s.jobs.Alerts != nil {
		s.goLoop(func() { s.jobs.Alerts.Run(ctx) })
		s.logger.Info("Alert loop scheduled", zap.Duration("interval", s.jobs.Alerts.Interval()))
	}

	if s.jobs.Heartbeat != nil {
		s.goLoop(func() { s.jobs.Heartbeat.RunHeartbeat(ctx, s.jobs.HeartbeatInterval) })
	}

	if s.jobs.Consumer != nil {
		if err := s.jobs.Consumer.Start(ctx); err != nil {
			s.logger.Error("Failed to start push consumer", zap.Error(err))
		}
	}

	if s.jobs.Invalidations != nil && s.jobs.OnInvalidate != nil {
		err := s.jobs.Invalidations.SubscribeInvalidations(ctx, func(event cache.BriefingEvent) {
			s.logger.Debug("Dashboard invalidated by peer", zap.String("origin", event.Origin))
			s.jobs.OnInvalidate()
		})
		if err != nil {
			s.logger.Warn("Cross-instance invalidation disabled", zap.Error(err))
		}
	}

	if s.jobs.Triggers != nil {
		s.jobs.Triggers.Start()
	}

	s.logger.Info("Background jobs started",
		zap.Time("start_time", startTime),
		zap.Bool("alerts", s.jobs.Alerts != nil),
		zap.Bool("push", s.jobs.Consumer != nil),
		zap.Bool("triggers", s.jobs.Triggers != nil),
	)
}

// Stop cancels every loop and waits for them, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	var triggersDone <-chan struct{}
	if s.jobs.Triggers != nil {
		triggersDone = s.jobs.Triggers.Stop().Done()
	}
	if s.jobs.Consumer != nil {
		if err := s.jobs.Consumer.Stop(); err != nil {
			s.logger.Warn("Failed to stop push consumer", zap.Error(err))
		}
	}

	loopsDone := make(chan struct{})
	go func() {
		s.loops.Wait()
		close(loopsDone)
	}()

	for _, done := range []<-chan struct{}{loopsDone, triggersDone} {
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Background jobs did not stop in time", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}
	s.logger.Info("Background jobs stopped")
	return nil
}

func (s *Scheduler) goLoop(fn func()) {
	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		fn()
	}()
}
