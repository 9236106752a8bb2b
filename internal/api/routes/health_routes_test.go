package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	err error
}

func (f fakeCache) HealthCheck(context.Context) error { return f.err }

func (f fakeCache) GetMetrics() map[string]interface{} {
	return map[string]interface{}{"hits": 3}
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("ready", func(t *testing.T) {
		r := gin.New()
		NewHealthRoutes(map[string]Pinger{"database": ok}, fakeCache{}).RegisterRoutes(r)

		assert.Equal(t, http.StatusOK, serve(r, "/health").Code)

		w := serve(r, "/health/ready")
		require.Equal(t, http.StatusOK, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])

		w = serve(r, "/health/cache")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"hits":3`)

		assert.Equal(t, http.StatusOK, serve(r, "/metrics").Code)
	})

	t.Run("not ready", func(t *testing.T) {
		r := gin.New()
		NewHealthRoutes(map[string]Pinger{"database": ok, "redis": down}, fakeCache{err: errors.New("timeout")}).RegisterRoutes(r)

		w := serve(r, "/health/ready")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")

		assert.Equal(t, http.StatusServiceUnavailable, serve(r, "/health/cache").Code)
	})

	t.Run("no cache", func(t *testing.T) {
		r := gin.New()
		NewHealthRoutes(nil, nil).RegisterRoutes(r)
		w := serve(r, "/health/cache")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "disabled")
	})
}
