package handlers

import (
	"net/http"

	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/gin-gonic/gin"
)

// UsageRecorder accumulates per-day token and cost usage
type UsageRecorder interface {
	Record(inputTokens, outputTokens int64, costUSD float64)
	Today() briefing.UsageStats
}

// UsageHandler records LLM usage reported by clients
type UsageHandler struct {
	usage UsageRecorder
}

func NewUsageHandler(usage UsageRecorder) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Record godoc
// @Summary Record one request's token usage
// @Tags usage
// @Accept json
// @Produce json
// @Param request body dto.UsageRequest true "Usage"
// @Success 200 {object} briefing.UsageStats
// @Router /api/usage [post]
func (h *UsageHandler) Record(c *gin.Context) {
	req, ok := validatedRequest[dto.UsageRequest](c)
	if !ok {
		return
	}
	h.usage.Record(req.InputTokens, req.OutputTokens, req.CostUSD)
	c.JSON(http.StatusOK, h.usage.Today())
}

// Today godoc
// @Summary Today's usage totals
// @Tags usage
// @Produce json
// @Success 200 {object} briefing.UsageStats
// @Router /api/usage [get]
func (h *UsageHandler) Today(c *gin.Context) {
	c.JSON(http.StatusOK, h.usage.Today())
}
