package handlers

import (
	"context"
	"net/http"

	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BriefingService is the part of briefing.Service the HTTP layer uses
type BriefingService interface {
	GetCachedSnapshot(ctx context.Context) (*briefing.Snapshot, error)
	Refresh(ctx context.Context, sessionID string) (*briefing.Snapshot, error)
	GetSession(ctx context.Context, id string) (*briefing.Snapshot, bool)
	InvalidateCache(ctx context.Context)
	DashboardEntry() (briefing.CacheEntry, bool)
}

// BriefingHandler serves snapshots
type BriefingHandler struct {
	service BriefingService
	logger  *logger.Logger
}

// NewBriefingHandler creates a new briefing handler
func NewBriefingHandler(service BriefingService, logger *logger.Logger) *BriefingHandler {
	return &BriefingHandler{
		service: service,
		logger:  logger,
	}
}

// GetBriefing godoc
// @Summary Get the dashboard briefing
// @Description Serves the cached snapshot, refreshing it when stale. Concurrent
// @Description callers share one refresh.
// @Tags briefing
// @Produce json
// @Success 200 {object} dto.BriefingResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/briefing [get]
func (h *BriefingHandler) GetBriefing(c *gin.Context) {
	snap, err := h.service.GetCachedSnapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get briefing", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to build briefing"})
		return
	}

	resp := dto.BriefingResponse{Snapshot: snap}
	if entry, ok := h.service.DashboardEntry(); ok && entry.Data == snap {
		fetched := entry.FetchedAt
		resp.FetchedAt = &fetched
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Build a fresh briefing for a session
// @Tags briefing
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Session to store the snapshot under"
// @Success 200 {object} dto.BriefingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/briefing/refresh [post]
func (h *BriefingHandler) Refresh(c *gin.Context) {
	req, ok := validatedRequest[dto.RefreshRequest](c)
	if !ok {
		return
	}

	snap, err := h.service.Refresh(c.Request.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("Failed to refresh briefing", zap.String("session_id", req.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to build briefing"})
		return
	}
	c.JSON(http.StatusOK, dto.BriefingResponse{Snapshot: snap})
}

// GetSession godoc
// @Summary Get the snapshot stored for a session
// @Tags briefing
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.BriefingResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/briefing/session/{id} [get]
func (h *BriefingHandler) GetSession(c *gin.Context) {
	id := c.Param("id")
	snap, ok := h.service.GetSession(c.Request.Context(), id)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "session not found"})
		return
	}
	c.JSON(http.StatusOK, dto.BriefingResponse{Snapshot: snap})
}

// InvalidateCache godoc
// @Summary Drop the dashboard snapshot on every instance
// @Tags briefing
// @Success 204
// @Router /api/briefing/cache [delete]
func (h *BriefingHandler) InvalidateCache(c *gin.Context) {
	h.service.InvalidateCache(c.Request.Context())
	c.Status(http.StatusNoContent)
}
