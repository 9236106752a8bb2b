package handlers

import (
	"net/http"

	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/triggers"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

// TriggerScheduler reads and replaces the daily trigger times
type TriggerScheduler interface {
	Schedule() triggers.Schedule
	Reschedule(morning, evening string) triggers.Schedule
}

// TriggersHandler exposes the daily trigger schedule
type TriggersHandler struct {
	scheduler TriggerScheduler
	logger    *logger.Logger
}

// NewTriggersHandler creates a new triggers handler
func NewTriggersHandler(scheduler TriggerScheduler, logger *logger.Logger) *TriggersHandler {
	return &TriggersHandler{scheduler: scheduler, logger: logger}
}

// Get godoc
// @Summary Current trigger times
// @Tags triggers
// @Produce json
// @Success 200 {object} dto.TriggersResponse
// @Router /api/triggers [get]
func (h *TriggersHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Schedule())
}

// Update godoc
// @Summary Reschedule the morning and evening triggers
// @Tags triggers
// @Accept json
// @Produce json
// @Param request body dto.TriggersRequest true "HH:MM times"
// @Success 200 {object} dto.TriggersResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/triggers [put]
func (h *TriggersHandler) Update(c *gin.Context) {
	req, ok := validatedRequest[dto.TriggersRequest](c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Reschedule(req.MorningTime, req.EveningTime))
}
