package handlers

import (
	"net/http"

	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// validatedRequest returns the body decoded by the validation middleware, or
// binds it directly when the middleware did not run. On failure the response
// is already written.
func validatedRequest[T any](c *gin.Context) (*T, bool) {
	if v, ok := c.Get(middleware.ValidatedModelKey); ok {
		if req, ok := v.(*T); ok {
			return req, true
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "invalid model type from validation"})
		return nil, false
	}

	req := new(T)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return nil, false
	}
	return req, true
}
