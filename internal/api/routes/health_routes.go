package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp" example:"2025-04-17T02:00:00Z"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// CacheReporter exposes Redis cache health and counters
type CacheReporter interface {
	HealthCheck(ctx context.Context) error
	GetMetrics() map[string]interface{}
}

// HealthRoutes serves liveness, readiness and metrics
type HealthRoutes struct {
	deps    map[string]Pinger
	cache   CacheReporter
	timeout time.Duration
}

// NewHealthRoutes creates health routes. deps and cache may be empty.
func NewHealthRoutes(deps map[string]Pinger, cache CacheReporter) *HealthRoutes {
	return &HealthRoutes{deps: deps, cache: cache, timeout: 2 * time.Second}
}

// RegisterRoutes registers health check endpoints
func (r *HealthRoutes) RegisterRoutes(router *gin.Engine) {
	// @Summary Health check endpoint
	// @Tags health
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Router /health [get]
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	})

	// @Summary Readiness check endpoint
	// @Description Pings every configured backing store
	// @Tags health
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Failure 503 {object} HealthResponse
	// @Router /health/ready [get]
	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), r.timeout)
		defer cancel()

		status, code := "ready", http.StatusOK
		checks := make(map[string]string, len(r.deps))
		for name, dep := range r.deps {
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		c.JSON(code, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC(),
			Checks:    checks,
		})
	})

	// @Summary Cache health and hit counters
	// @Tags health
	// @Produce json
	// @Router /health/cache [get]
	router.GET("/health/cache", func(c *gin.Context) {
		if r.cache == nil {
			c.JSON(http.StatusOK, gin.H{"status": "disabled"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), r.timeout)
		defer cancel()
		if err := r.cache.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "metrics": r.cache.GetMetrics()})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
