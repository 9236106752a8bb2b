package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pusher broadcasts an externally triggered alert
type Pusher interface {
	PushNotification(ctx context.Context, alert notification.Alert) error
}

// NotificationHandler handles pushes and push registrations
type NotificationHandler struct {
	pusher        Pusher
	registrations notification.Repository
	publicKey     string
	logger        *logger.Logger
}

// NewNotificationHandler creates a new notification handler. registrations
// may be nil when web push is not configured.
func NewNotificationHandler(pusher Pusher, registrations notification.Repository, publicKey string, logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		pusher:        pusher,
		registrations: registrations,
		publicKey:     publicKey,
		logger:        logger,
	}
}

// Push godoc
// @Summary Broadcast an alert
// @Tags notifications
// @Accept json
// @Param request body dto.PushNotificationRequest true "Alert"
// @Success 202
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/notifications [post]
func (h *NotificationHandler) Push(c *gin.Context) {
	req, ok := validatedRequest[dto.PushNotificationRequest](c)
	if !ok {
		return
	}

	if err := h.pusher.PushNotification(c.Request.Context(), req.ToAlert()); err != nil {
		if errors.Is(err, notification.ErrKindUnknown) || errors.Is(err, notification.ErrEmptyTitle) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("Failed to push notification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to push notification"})
		return
	}
	c.Status(http.StatusAccepted)
}

// PublicKey godoc
// @Summary VAPID public key for browser subscriptions
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/push/public-key [get]
func (h *NotificationHandler) PublicKey(c *gin.Context) {
	if h.registrations == nil || h.publicKey == "" {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: notification.ErrPushNotConfigured.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.publicKey})
}

// Register godoc
// @Summary Store a web push registration
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dto.PushRegistrationRequest true "Browser PushSubscription"
// @Success 201 {object} notification.PushRegistration
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/push/registrations [post]
func (h *NotificationHandler) Register(c *gin.Context) {
	if h.registrations == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: notification.ErrPushNotConfigured.Error()})
		return
	}
	req, ok := validatedRequest[dto.PushRegistrationRequest](c)
	if !ok {
		return
	}

	reg := req.ToRegistration(c.Request.UserAgent())
	if err := h.registrations.Save(c.Request.Context(), reg); err != nil {
		h.logger.Error("Failed to save push registration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to save registration"})
		return
	}
	c.JSON(http.StatusCreated, reg)
}

// Unregister godoc
// @Summary Remove a web push registration
// @Tags notifications
// @Accept json
// @Param request body dto.DeleteRegistrationRequest true "Endpoint"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/push/registrations [delete]
func (h *NotificationHandler) Unregister(c *gin.Context) {
	if h.registrations == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: notification.ErrPushNotConfigured.Error()})
		return
	}
	req, ok := validatedRequest[dto.DeleteRegistrationRequest](c)
	if !ok {
		return
	}

	err := h.registrations.DeleteByEndpoint(c.Request.Context(), req.Endpoint)
	switch {
	case errors.Is(err, notification.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "registration not found"})
	case err != nil:
		h.logger.Error("Failed to delete push registration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to delete registration"})
	default:
		c.Status(http.StatusNoContent)
	}
}
