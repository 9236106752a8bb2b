package briefing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingRefresh struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresh) Refresh(context.Context) (*Snapshot, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &Snapshot{GeneratedAt: time.Now()}, nil
}

func TestDashboardCacheTTL(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	refresh := &countingRefresh{}
	cache := NewDashboardCache(refresh.Refresh, logger.NewNop(), WithClock(clock.Now))
	ctx := context.Background()

	first, err := cache.GetOrRefresh(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, refresh.calls.Load())

	clock.Advance(4*time.Minute + 59*time.Second)
	second, err := cache.GetOrRefresh(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, refresh.calls.Load())

	clock.Advance(2 * time.Second)
	third, err := cache.GetOrRefresh(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.EqualValues(t, 2, refresh.calls.Load())
}

func TestDashboardCacheCustomTTL(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	refresh := &countingRefresh{}
	cache := NewDashboardCache(refresh.Refresh, logger.NewNop(), WithClock(clock.Now), WithTTL(time.Minute))

	_, err := cache.GetOrRefresh(context.Background())
	require.NoError(t, err)
	clock.Advance(61 * time.Second)
	_, err = cache.GetOrRefresh(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, refresh.calls.Load())
}

func TestDashboardCacheSingleFlight(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	refresh := func(context.Context) (*Snapshot, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return &Snapshot{}, nil
	}
	cache := NewDashboardCache(refresh, logger.NewNop())

	const callers = 8
	results := make([]*Snapshot, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := cache.GetOrRefresh(context.Background())
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestDashboardCacheFailurePropagatesAndClears(t *testing.T) {
	boom := errors.New("calendar down")
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	refresh := func(context.Context) (*Snapshot, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
			return nil, boom
		}
		return &Snapshot{}, nil
	}
	cache := NewDashboardCache(refresh, logger.NewNop())

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := cache.GetOrRefresh(context.Background())
			errs <- err
		}()
	}
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, <-errs, boom)
	}
	_, ok := cache.Peek()
	assert.False(t, ok)

	s, err := cache.GetOrRefresh(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.EqualValues(t, 2, calls.Load())
}

func TestDashboardCacheInvalidate(t *testing.T) {
	refresh := &countingRefresh{}
	cache := NewDashboardCache(refresh.Refresh, logger.NewNop())
	ctx := context.Background()

	first, err := cache.GetOrRefresh(ctx)
	require.NoError(t, err)

	cache.Invalidate()
	second, err := cache.GetOrRefresh(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, refresh.calls.Load())
}

func TestDashboardCacheInvalidateDetachesInFlight(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	stale := &Snapshot{Suggestions: []string{"stale"}}
	fresh := &Snapshot{Suggestions: []string{"fresh"}}
	refresh := func(context.Context) (*Snapshot, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return stale, nil
		}
		return fresh, nil
	}
	cache := NewDashboardCache(refresh, logger.NewNop())

	staleResult := make(chan *Snapshot, 1)
	go func() {
		s, _ := cache.GetOrRefresh(context.Background())
		staleResult <- s
	}()
	<-started

	cache.Invalidate()
	got, err := cache.GetOrRefresh(context.Background())
	require.NoError(t, err)
	assert.Same(t, fresh, got)

	close(release)
	assert.Same(t, stale, <-staleResult)

	entry, ok := cache.Peek()
	require.True(t, ok)
	assert.Same(t, fresh, entry.Data)
	assert.EqualValues(t, 2, calls.Load())
}

func TestDashboardCacheStoresRefreshStartedAfterInvalidate(t *testing.T) {
	refresh := &countingRefresh{}
	cache := NewDashboardCache(refresh.Refresh, logger.NewNop())

	cache.Invalidate()
	cache.Invalidate()
	s, err := cache.load(context.Background())
	require.NoError(t, err)

	entry, ok := cache.Peek()
	require.True(t, ok)
	assert.Same(t, s, entry.Data)
}

func TestDashboardCacheDropsRefreshInvalidatedMidway(t *testing.T) {
	var cache *DashboardCache
	cache = NewDashboardCache(func(context.Context) (*Snapshot, error) {
		cache.Invalidate()
		return &Snapshot{}, nil
	}, logger.NewNop())

	s, err := cache.load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, ok := cache.Peek()
	assert.False(t, ok)
}

func TestDashboardCacheCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	refresh := func(ctx context.Context) (*Snapshot, error) {
		<-release
		return &Snapshot{}, ctx.Err()
	}
	cache := NewDashboardCache(refresh, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.GetOrRefresh(ctx)
		done <- err
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		_, ok := cache.Peek()
		return ok
	}, time.Second, 10*time.Millisecond)
}

type memoryStore struct {
	mu    sync.Mutex
	saved map[string]*Snapshot
	err   error
}

func (m *memoryStore) SaveSnapshot(_ context.Context, id string, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved[id] = s
	return nil
}

func (m *memoryStore) LoadSnapshot(_ context.Context, id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return s, nil
}

func TestSessionCache(t *testing.T) {
	ctx := context.Background()
	cache := NewSessionCache(nil, logger.NewNop())

	_, ok := cache.Get(ctx, "owner")
	assert.False(t, ok)

	morning := &Snapshot{Suggestions: []string{"morning"}}
	cache.Set(ctx, "owner", morning)
	got, ok := cache.Get(ctx, "owner")
	require.True(t, ok)
	assert.Same(t, morning, got)

	evening := &Snapshot{Suggestions: []string{"evening"}}
	cache.Set(ctx, "owner", evening)
	got, _ = cache.Get(ctx, "owner")
	assert.Same(t, evening, got)

	_, ok = cache.Get(ctx, "someone-else")
	assert.False(t, ok)
}

func TestSessionCacheMirrorsToStore(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{saved: map[string]*Snapshot{}}
	snap := &Snapshot{Suggestions: []string{"kept"}}

	NewSessionCache(store, logger.NewNop()).Set(ctx, "owner", snap)
	assert.Same(t, snap, store.saved["owner"])

	restarted := NewSessionCache(store, logger.NewNop())
	got, ok := restarted.Get(ctx, "owner")
	require.True(t, ok)
	assert.Same(t, snap, got)
}

func TestSessionCacheStoreFailureKeepsLocalEntry(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{saved: map[string]*Snapshot{}, err: errors.New("redis down")}
	cache := NewSessionCache(store, logger.NewNop())

	snap := &Snapshot{}
	cache.Set(ctx, "owner", snap)
	got, ok := cache.Get(ctx, "owner")
	require.True(t, ok)
	assert.Same(t, snap, got)
}

type recordingPublisher struct {
	calls atomic.Int32
}

func (p *recordingPublisher) PublishInvalidation(context.Context) error {
	p.calls.Add(1)
	return nil
}

func TestServiceRefreshStoresSessionAndInvalidates(t *testing.T) {
	ctx := context.Background()
	refresh := &countingRefresh{}
	publisher := &recordingPublisher{}
	svc := NewService(builderFunc(refresh.Refresh), NewSessionCache(nil, logger.NewNop()), publisher, logger.NewNop())

	cached, err := svc.GetCachedSnapshot(ctx)
	require.NoError(t, err)

	snap, err := svc.Refresh(ctx, "owner")
	require.NoError(t, err)

	got, ok := svc.GetSession(ctx, "owner")
	require.True(t, ok)
	assert.Same(t, snap, got)
	assert.EqualValues(t, 1, publisher.calls.Load())

	_, ok = svc.DashboardEntry()
	assert.False(t, ok)

	again, err := svc.GetCachedSnapshot(ctx)
	require.NoError(t, err)
	assert.NotSame(t, cached, again)
	assert.EqualValues(t, 3, refresh.calls.Load())

	svc.InvalidateLocal()
	assert.EqualValues(t, 1, publisher.calls.Load())
}

type builderFunc func(context.Context) (*Snapshot, error)

func (f builderFunc) BuildSnapshot(ctx context.Context) (*Snapshot, error) { return f(ctx) }
