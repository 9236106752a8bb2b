package briefing

import (
	"context"

	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"go.uber.org/zap"
)

// Builder produces snapshots
type Builder interface {
	BuildSnapshot(ctx context.Context) (*Snapshot, error)
}

// InvalidationPublisher tells other instances to drop their dashboard entry
type InvalidationPublisher interface {
	PublishInvalidation(ctx context.Context) error
}

// Service is the briefing entry point used by triggers and the HTTP layer
type Service struct {
	builder   Builder
	sessions  *SessionCache
	dashboard *DashboardCache
	publisher InvalidationPublisher
	logger    *logger.Logger
}

// NewService wires a builder to both caches. publisher may be nil.
func NewService(builder Builder, sessions *SessionCache, publisher InvalidationPublisher, log *logger.Logger, opts ...DashboardCacheOption) *Service {
	return &Service{
		builder:   builder,
		sessions:  sessions,
		dashboard: NewDashboardCache(builder.BuildSnapshot, log, opts...),
		publisher: publisher,
		logger:    log,
	}
}

// BuildSnapshot runs a fresh aggregation, bypassing every cache
func (s *Service) BuildSnapshot(ctx context.Context) (*Snapshot, error) {
	return s.builder.BuildSnapshot(ctx)
}

// GetCachedSnapshot serves the dashboard snapshot, refreshing it when stale
func (s *Service) GetCachedSnapshot(ctx context.Context) (*Snapshot, error) {
	return s.dashboard.GetOrRefresh(ctx)
}

// InvalidateCache forces the next dashboard read to refetch and notifies peers
func (s *Service) InvalidateCache(ctx context.Context) {
	s.dashboard.Invalidate()
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishInvalidation(ctx); err != nil {
		s.logger.Warn("Failed to publish dashboard invalidation", zap.Error(err))
	}
}

// InvalidateLocal drops the local dashboard entry without notifying peers.
// It is the handler for invalidations received from other instances.
func (s *Service) InvalidateLocal() {
	s.dashboard.Invalidate()
}

// Refresh builds a snapshot, stores it for the session and invalidates the dashboard
func (s *Service) Refresh(ctx context.Context, sessionID string) (*Snapshot, error) {
	snap, err := s.builder.BuildSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	s.sessions.Set(ctx, sessionID, snap)
	s.InvalidateCache(ctx)
	return snap, nil
}

// SetSession stores a snapshot for a session id
func (s *Service) SetSession(ctx context.Context, id string, snap *Snapshot) {
	s.sessions.Set(ctx, id, snap)
}

// GetSession returns the snapshot stored for a session id
func (s *Service) GetSession(ctx context.Context, id string) (*Snapshot, bool) {
	return s.sessions.Get(ctx, id)
}

// DashboardEntry exposes the cached dashboard entry for diagnostics
func (s *Service) DashboardEntry() (CacheEntry, bool) {
	return s.dashboard.Peek()
}
