package briefing

import (
	"context"
	"sync"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultDashboardTTL is how long a dashboard snapshot is served before refetching
const DefaultDashboardTTL = 5 * time.Minute

// SessionStore persists session snapshots beyond the process lifetime
type SessionStore interface {
	SaveSnapshot(ctx context.Context, id string, s *Snapshot) error
	LoadSnapshot(ctx context.Context, id string) (*Snapshot, error)
}

// SessionCache keeps the latest snapshot per session or user id.
// Entries have no TTL and are only replaced by an explicit Set.
type SessionCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	store   SessionStore
	logger  *logger.Logger
	now     func() time.Time
}

// NewSessionCache creates a session cache. store may be nil.
func NewSessionCache(store SessionStore, log *logger.Logger) *SessionCache {
	return &SessionCache{
		entries: make(map[string]CacheEntry),
		store:   store,
		logger:  log,
		now:     time.Now,
	}
}

// Set stores the snapshot under id, overwriting any previous entry
func (c *SessionCache) Set(ctx context.Context, id string, s *Snapshot) {
	c.mu.Lock()
	c.entries[id] = CacheEntry{Data: s, FetchedAt: c.now()}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.SaveSnapshot(ctx, id, s); err != nil {
		c.logger.Error("Failed to mirror session snapshot", zap.String("session", id), zap.Error(err))
	}
}

// Get returns the snapshot stored under id. On a local miss the store is consulted
// and a hit is kept in memory.
func (c *SessionCache) Get(ctx context.Context, id string) (*Snapshot, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return entry.Data, true
	}
	if c.store == nil {
		return nil, false
	}

	s, err := c.store.LoadSnapshot(ctx, id)
	if err != nil || s == nil {
		return nil, false
	}

	c.mu.Lock()
	if existing, ok := c.entries[id]; ok {
		c.mu.Unlock()
		return existing.Data, true
	}
	c.entries[id] = CacheEntry{Data: s, FetchedAt: c.now()}
	c.mu.Unlock()
	return s, true
}

// RefreshFunc builds a fresh snapshot
type RefreshFunc func(ctx context.Context) (*Snapshot, error)

// DashboardCache holds one global snapshot with a TTL. Concurrent misses share a
// single refresh.
type DashboardCache struct {
	mu         sync.Mutex
	entry      *CacheEntry
	generation uint64
	group      singleflight.Group
	refresh    RefreshFunc
	ttl        time.Duration
	now        func() time.Time
	logger     *logger.Logger
}

// DashboardCacheOption customises a DashboardCache
type DashboardCacheOption func(*DashboardCache)

// WithTTL overrides the default TTL
func WithTTL(ttl time.Duration) DashboardCacheOption {
	return func(c *DashboardCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source
func WithClock(now func() time.Time) DashboardCacheOption {
	return func(c *DashboardCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewDashboardCache creates an empty dashboard cache
func NewDashboardCache(refresh RefreshFunc, log *logger.Logger, opts ...DashboardCacheOption) *DashboardCache {
	c := &DashboardCache{
		refresh: refresh,
		ttl:     DefaultDashboardTTL,
		now:     time.Now,
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const flightKey = "dashboard"

// GetOrRefresh returns the cached snapshot while it is younger than the TTL.
// Otherwise it joins the in-flight refresh or starts one. A refresh error is
// returned to every caller that joined it and nothing is cached.
func (c *DashboardCache) GetOrRefresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	if c.entry != nil && c.now().Sub(c.entry.FetchedAt) < c.ttl {
		s := c.entry.Data
		c.mu.Unlock()
		dashboardCacheEvents.WithLabelValues("hit").Inc()
		return s, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		// The refresh is shared, so it must not die with the first caller's request.
		return c.load(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			dashboardCacheEvents.WithLabelValues("coalesced").Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs one refresh and stores the result unless an Invalidate landed
// while it was running
func (c *DashboardCache) load(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	dashboardCacheEvents.WithLabelValues("miss").Inc()
	s, err := c.refresh(ctx)
	if err != nil {
		c.logger.Error("Dashboard refresh failed", zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	if c.generation == gen {
		c.entry = &CacheEntry{Data: s, FetchedAt: c.now()}
	}
	c.mu.Unlock()
	return s, nil
}

// Peek returns the cached entry without refreshing
func (c *DashboardCache) Peek() (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return CacheEntry{}, false
	}
	return *c.entry, true
}

// Invalidate drops the cached entry and detaches any in-flight refresh so the
// next GetOrRefresh starts a new one.
func (c *DashboardCache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.generation++
	c.mu.Unlock()
	c.group.Forget(flightKey)
}
