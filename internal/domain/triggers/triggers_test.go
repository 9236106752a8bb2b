package triggers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots struct {
	mu       sync.Mutex
	snap     *briefing.Snapshot
	err      error
	builds   int
	sessions map[string]*briefing.Snapshot
}

func (f *fakeSnapshots) BuildSnapshot(context.Context) (*briefing.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	return f.snap, f.err
}

func (f *fakeSnapshots) SetSession(_ context.Context, id string, snap *briefing.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = make(map[string]*briefing.Snapshot)
	}
	f.sessions[id] = snap
}

type fakeDigest struct {
	id    string
	err   error
	sends int
}

func (f *fakeDigest) Send(context.Context, *briefing.Snapshot) (string, error) {
	f.sends++
	return f.id, f.err
}

type fakePusher struct {
	alerts []notification.Alert
}

func (f *fakePusher) PushNotification(_ context.Context, a notification.Alert) error {
	f.alerts = append(f.alerts, a)
	return nil
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"07:00", 7, 0, true},
		{"7:05", 7, 5, true},
		{"23:59", 23, 59, true},
		{" 18:30 ", 18, 30, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"12:5", 0, 0, false},
		{"noon", 0, 0, false},
		{"", 0, 0, false},
		{"1:2:3", 0, 0, false},
		{"+7:00", 0, 0, false},
		{"-1:00", 0, 0, false},
		{"07:+5", 0, 0, false},
		{"0x:10", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			hour, minute, err := ParseClock(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hour)
			assert.Equal(t, tt.minute, minute)
		})
	}
}

func TestCronSpec(t *testing.T) {
	spec, used := CronSpec("06:45", DefaultMorning)
	assert.Equal(t, "45 6 * * *", spec)
	assert.Equal(t, "06:45", used)

	spec, used = CronSpec("25:00", DefaultMorning)
	assert.Equal(t, "0 7 * * *", spec)
	assert.Equal(t, "07:00", used)

	spec, used = CronSpec("", DefaultEvening)
	assert.Equal(t, "0 18 * * *", spec)
	assert.Equal(t, "18:00", used)
}

func newTestManager(snaps *fakeSnapshots, digest DigestSender, pusher *fakePusher, morning, evening string) *Manager {
	return NewManager(snaps, digest, pusher, Config{
		MorningTime: morning,
		EveningTime: evening,
		Location:    time.UTC,
		OwnerID:     "owner",
	}, logger.NewNop())
}

func TestRunMorningSendsDigestAndNotifies(t *testing.T) {
	snap := &briefing.Snapshot{Events: []briefing.Event{{ID: "1"}}, ImportantEmails: []briefing.Email{{ID: "m"}}}
	snaps := &fakeSnapshots{snap: snap}
	digest := &fakeDigest{id: "msg-1"}
	pusher := &fakePusher{}
	m := newTestManager(snaps, digest, pusher, "", "")

	require.NoError(t, m.RunMorning(context.Background()))

	assert.Same(t, snap, snaps.sessions["owner"])
	assert.Equal(t, 1, digest.sends)
	require.Len(t, pusher.alerts, 1)
	assert.Equal(t, notification.DigestSent, pusher.alerts[0].Kind)
	assert.Contains(t, pusher.alerts[0].Body, "1 events and 1 important emails")
}

func TestRunMorningDigestFailureIsNotRetried(t *testing.T) {
	snaps := &fakeSnapshots{snap: &briefing.Snapshot{}}
	digest := &fakeDigest{err: errors.New("smtp down")}
	pusher := &fakePusher{}
	m := newTestManager(snaps, digest, pusher, "", "")

	require.NoError(t, m.RunMorning(context.Background()))

	assert.NotNil(t, snaps.sessions["owner"])
	assert.Equal(t, 1, digest.sends)
	assert.Empty(t, pusher.alerts)
}

func TestRunMorningBuildFailure(t *testing.T) {
	snaps := &fakeSnapshots{err: context.Canceled}
	digest := &fakeDigest{}
	pusher := &fakePusher{}
	m := newTestManager(snaps, digest, pusher, "", "")

	err := m.RunMorning(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, snaps.sessions)
	assert.Equal(t, 0, digest.sends)
	assert.Empty(t, pusher.alerts)
}

func TestRunEveningStoresSnapshotAndNotifies(t *testing.T) {
	snap := &briefing.Snapshot{Tasks: []briefing.Task{{ID: "t"}}}
	snaps := &fakeSnapshots{snap: snap}
	pusher := &fakePusher{}
	m := newTestManager(snaps, nil, pusher, "", "")

	require.NoError(t, m.RunNow(context.Background(), Evening))

	assert.Same(t, snap, snaps.sessions["owner"])
	require.Len(t, pusher.alerts, 1)
	assert.Equal(t, notification.EveningReady, pusher.alerts[0].Kind)

	assert.Error(t, m.RunNow(context.Background(), "midday"))
}

func TestRescheduleReplacesEntries(t *testing.T) {
	m := newTestManager(&fakeSnapshots{snap: &briefing.Snapshot{}}, nil, &fakePusher{}, "06:30", "bogus")

	s := m.Schedule()
	assert.Equal(t, "06:30", s.Morning)
	assert.Equal(t, "18:00", s.Evening)
	assert.Equal(t, "UTC", s.Timezone)
	assert.Len(t, m.cron.Entries(), 2)

	m.Start()
	defer m.Stop()

	s = m.Reschedule("08:15", "21:45")
	assert.Equal(t, "08:15", s.Morning)
	assert.Equal(t, "21:45", s.Evening)
	assert.Equal(t, 8, s.NextMorning.Hour())
	assert.Equal(t, 15, s.NextMorning.Minute())
	assert.Equal(t, 21, s.NextEvening.Hour())
	assert.Equal(t, 45, s.NextEvening.Minute())
	assert.Len(t, m.cron.Entries(), 2)

	// invalid values fall back to the defaults, not to the times set above
	s = m.Reschedule("nope", "+9:30")
	assert.Equal(t, DefaultMorning, s.Morning)
	assert.Equal(t, DefaultEvening, s.Evening)
	assert.Len(t, m.cron.Entries(), 2)
}

func TestStopIsIdempotent(t *testing.T) {
	m := newTestManager(&fakeSnapshots{snap: &briefing.Snapshot{}}, nil, &fakePusher{}, "", "")
	m.Start()
	m.Start()

	select {
	case <-m.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not finish")
	}
	<-m.Stop().Done()
	assert.True(t, m.Schedule().NextMorning.IsZero())
}
