package routes

import (
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/handlers"
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// BriefingRoutes manages briefing and usage endpoint routes
type BriefingRoutes struct {
	handler *handlers.BriefingHandler
	usage   *handlers.UsageHandler
}

// NewBriefingRoutes creates a new briefing routes handler
func NewBriefingRoutes(handler *handlers.BriefingHandler, usage *handlers.UsageHandler) *BriefingRoutes {
	return &BriefingRoutes{handler: handler, usage: usage}
}

// RegisterRoutes registers briefing routes with the provided router
func (r *BriefingRoutes) RegisterRoutes(router *gin.Engine, validation *middleware.ValidationMiddleware) {
	briefingRoutes := router.Group("/api/briefing")
	{
		briefingRoutes.GET("", gzip.Gzip(gzip.DefaultCompression), r.handler.GetBriefing)
		briefingRoutes.POST("/refresh", validation.ValidateRequest(&dto.RefreshRequest{}), r.handler.Refresh)
		briefingRoutes.GET("/session/:id", gzip.Gzip(gzip.DefaultCompression), r.handler.GetSession)
		briefingRoutes.DELETE("/cache", r.handler.InvalidateCache)
	}

	if r.usage != nil {
		router.GET("/api/usage", r.usage.Today)
		router.POST("/api/usage", validation.ValidateRequest(&dto.UsageRequest{}), r.usage.Record)
	}
}
