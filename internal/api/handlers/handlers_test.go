package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/middleware"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/alerts"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/triggers"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockBriefingService struct {
	mock.Mock
}

func (m *mockBriefingService) GetCachedSnapshot(ctx context.Context) (*briefing.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*briefing.Snapshot)
	return snap, args.Error(1)
}

func (m *mockBriefingService) Refresh(ctx context.Context, sessionID string) (*briefing.Snapshot, error) {
	args := m.Called(ctx, sessionID)
	snap, _ := args.Get(0).(*briefing.Snapshot)
	return snap, args.Error(1)
}

func (m *mockBriefingService) GetSession(ctx context.Context, id string) (*briefing.Snapshot, bool) {
	args := m.Called(ctx, id)
	snap, _ := args.Get(0).(*briefing.Snapshot)
	return snap, args.Bool(1)
}

func (m *mockBriefingService) InvalidateCache(ctx context.Context) {
	m.Called(ctx)
}

func (m *mockBriefingService) DashboardEntry() (briefing.CacheEntry, bool) {
	args := m.Called()
	return args.Get(0).(briefing.CacheEntry), args.Bool(1)
}

func newRouter() (*gin.Engine, *middleware.ValidationMiddleware) {
	return gin.New(), middleware.NewValidationMiddleware(logger.NewNop())
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBriefingHandler(t *testing.T) {
	fetched := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	snap := &briefing.Snapshot{Suggestions: []string{"Leave early"}}

	svc := new(mockBriefingService)
	svc.On("GetCachedSnapshot", mock.Anything).Return(snap, nil).Once()
	svc.On("DashboardEntry").Return(briefing.CacheEntry{Data: snap, FetchedAt: fetched}, true)
	svc.On("Refresh", mock.Anything, "phone").Return(snap, nil)
	svc.On("GetSession", mock.Anything, "phone").Return(snap, true)
	svc.On("GetSession", mock.Anything, "missing").Return(nil, false)
	svc.On("InvalidateCache", mock.Anything).Return()

	r, v := newRouter()
	h := NewBriefingHandler(svc, logger.NewNop())
	r.GET("/api/briefing", h.GetBriefing)
	r.POST("/api/briefing/refresh", v.ValidateRequest(&dto.RefreshRequest{}), h.Refresh)
	r.GET("/api/briefing/session/:id", h.GetSession)
	r.DELETE("/api/briefing/cache", h.InvalidateCache)

	t.Run("dashboard", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/api/briefing", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.BriefingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"Leave early"}, resp.Snapshot.Suggestions)
		require.NotNil(t, resp.FetchedAt)
		assert.True(t, fetched.Equal(*resp.FetchedAt))
	})

	t.Run("refresh", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/briefing/refresh", dto.RefreshRequest{SessionID: "phone"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("refresh requires session", func(t *testing.T) {
		w := doJSON(t, r, http.MethodPost, "/api/briefing/refresh", map[string]string{"session_id": "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "session_id")
	})

	t.Run("session", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/api/briefing/session/phone", nil).Code)
		assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/briefing/session/missing", nil).Code)
	})

	t.Run("invalidate", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, "/api/briefing/cache", nil).Code)
	})

	svc.AssertExpectations(t)
}

func TestGetBriefingFailure(t *testing.T) {
	svc := new(mockBriefingService)
	svc.On("GetCachedSnapshot", mock.Anything).Return(nil, context.DeadlineExceeded)

	r, _ := newRouter()
	r.GET("/api/briefing", NewBriefingHandler(svc, logger.NewNop()).GetBriefing)

	w := doJSON(t, r, http.MethodGet, "/api/briefing", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type recordingPusher struct {
	alerts []notification.Alert
}

func (p *recordingPusher) PushNotification(_ context.Context, a notification.Alert) error {
	if err := a.Validate(); err != nil {
		return err
	}
	p.alerts = append(p.alerts, a)
	return nil
}

func TestPushNotification(t *testing.T) {
	pusher := &recordingPusher{}
	r, v := newRouter()
	h := NewNotificationHandler(pusher, nil, "", logger.NewNop())
	r.POST("/api/notifications", v.ValidateRequest(&dto.PushNotificationRequest{}), h.Push)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"valid", dto.PushNotificationRequest{Type: "system", Title: "Deploy finished"}, http.StatusAccepted},
		{"unknown kind", dto.PushNotificationRequest{Type: "party", Title: "x"}, http.StatusBadRequest},
		{"missing title", map[string]string{"type": "system"}, http.StatusBadRequest},
		{"bad json", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, doJSON(t, r, http.MethodPost, "/api/notifications", tt.body).Code)
		})
	}
	require.Len(t, pusher.alerts, 1)
	assert.Equal(t, notification.System, pusher.alerts[0].Kind)
}

func TestPushRegistrations(t *testing.T) {
	repo := notification.NewMemoryRepository()
	r, v := newRouter()
	h := NewNotificationHandler(&recordingPusher{}, repo, "BPublicKey", logger.NewNop())
	r.GET("/api/push/public-key", h.PublicKey)
	r.POST("/api/push/registrations", v.ValidateRequest(&dto.PushRegistrationRequest{}), h.Register)
	r.DELETE("/api/push/registrations", v.ValidateRequest(&dto.DeleteRegistrationRequest{}), h.Unregister)

	w := doJSON(t, r, http.MethodGet, "/api/push/public-key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BPublicKey")

	reg := dto.PushRegistrationRequest{
		Endpoint: "https://push.example.com/send/abc",
		Keys:     dto.PushKeys{P256dh: "p256", Auth: "auth"},
	}
	assert.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/push/registrations", reg).Code)

	regs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "p256", regs[0].P256dh)

	missingKeys := dto.PushRegistrationRequest{Endpoint: "https://push.example.com/send/def"}
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/api/push/registrations", missingKeys).Code)

	del := dto.DeleteRegistrationRequest{Endpoint: reg.Endpoint}
	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, "/api/push/registrations", del).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodDelete, "/api/push/registrations", del).Code)
}

func TestPushRegistrationsWithoutPush(t *testing.T) {
	r, _ := newRouter()
	h := NewNotificationHandler(&recordingPusher{}, nil, "", logger.NewNop())
	r.GET("/api/push/public-key", h.PublicKey)
	r.POST("/api/push/registrations", h.Register)

	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/push/public-key", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, r, http.MethodPost, "/api/push/registrations", map[string]string{}).Code)
}

type fakeScheduler struct {
	current triggers.Schedule
}

func (f *fakeScheduler) Schedule() triggers.Schedule { return f.current }

func (f *fakeScheduler) Reschedule(morning, evening string) triggers.Schedule {
	f.current.Morning, f.current.Evening = morning, evening
	return f.current
}

func TestTriggersHandler(t *testing.T) {
	s := &fakeScheduler{current: triggers.Schedule{Morning: "07:00", Evening: "18:00", Timezone: "UTC"}}
	r, v := newRouter()
	h := NewTriggersHandler(s, logger.NewNop())
	r.GET("/api/triggers", h.Get)
	r.PUT("/api/triggers", v.ValidateRequest(&dto.TriggersRequest{}), h.Update)

	w := doJSON(t, r, http.MethodGet, "/api/triggers", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"morning_time":"07:00"`)

	w = doJSON(t, r, http.MethodPut, "/api/triggers", dto.TriggersRequest{MorningTime: "06:15", EveningTime: "21:30"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "06:15", s.current.Morning)
	assert.Equal(t, "21:30", s.current.Evening)

	w = doJSON(t, r, http.MethodPut, "/api/triggers", dto.TriggersRequest{MorningTime: "25:00", EveningTime: "21:30"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "morning_time")
	assert.Equal(t, "06:15", s.current.Morning)
}

func TestUpdateLocation(t *testing.T) {
	store := alerts.NewLocationStore()
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	r, v := newRouter()
	h := NewAlertsHandler(nil, store, logger.NewNop())
	h.now = func() time.Time { return now }
	r.POST("/api/location", v.ValidateRequest(&dto.LocationRequest{}), h.UpdateLocation)

	w := doJSON(t, r, http.MethodPost, "/api/location", map[string]float64{"lat": 40.7128, "lng": -74.006})
	require.Equal(t, http.StatusNoContent, w.Code)

	fix, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, now, fix.CapturedAt)
	assert.Equal(t, "40.712800,-74.006000", fix.Origin())

	w = doJSON(t, r, http.MethodPost, "/api/location", map[string]float64{"lat": 123, "lng": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/location", map[string]float64{"lng": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeUsage struct {
	mu    sync.Mutex
	stats briefing.UsageStats
}

func (f *fakeUsage) Record(in, out int64, cost float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.InputTokens += in
	f.stats.OutputTokens += out
	f.stats.CostUSD += cost
	f.stats.Requests++
}

func (f *fakeUsage) Today() briefing.UsageStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func TestUsageHandler(t *testing.T) {
	usage := &fakeUsage{}
	r, v := newRouter()
	h := NewUsageHandler(usage)
	r.POST("/api/usage", v.ValidateRequest(&dto.UsageRequest{}), h.Record)

	w := doJSON(t, r, http.MethodPost, "/api/usage", dto.UsageRequest{InputTokens: 120, OutputTokens: 30, CostUSD: 0.002})
	require.Equal(t, http.StatusOK, w.Code)

	var stats briefing.UsageStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Requests)
	assert.Equal(t, int64(120), stats.InputTokens)

	w = doJSON(t, r, http.MethodPost, "/api/usage", map[string]int{"input_tokens": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidatedRequestWithoutMiddleware(t *testing.T) {
	svc := new(mockBriefingService)
	svc.On("Refresh", mock.Anything, "tablet").Return(&briefing.Snapshot{}, nil)
	svc.On("Refresh", mock.Anything, "broken").Return(nil, errors.New("boom"))

	r, _ := newRouter()
	r.POST("/refresh", NewBriefingHandler(svc, logger.NewNop()).Refresh)

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/refresh", dto.RefreshRequest{SessionID: "tablet"}).Code)
	assert.Equal(t, http.StatusInternalServerError, doJSON(t, r, http.MethodPost, "/refresh", dto.RefreshRequest{SessionID: "broken"}).Code)
}
