package routes

import (
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/handlers"
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// AlertRoutes manages alert stream, push and trigger routes
type AlertRoutes struct {
	alerts        *handlers.AlertsHandler
	notifications *handlers.NotificationHandler
	triggers      *handlers.TriggersHandler
}

// NewAlertRoutes creates a new alert routes handler
func NewAlertRoutes(alerts *handlers.AlertsHandler, notifications *handlers.NotificationHandler, triggers *handlers.TriggersHandler) *AlertRoutes {
	return &AlertRoutes{
		alerts:        alerts,
		notifications: notifications,
		triggers:      triggers,
	}
}

// RegisterRoutes registers alert routes with the provided router
func (r *AlertRoutes) RegisterRoutes(router *gin.Engine, validation *middleware.ValidationMiddleware) {
	router.GET("/api/alerts/ws", r.alerts.Stream)
	router.POST("/api/location", validation.ValidateRequest(&dto.LocationRequest{}), r.alerts.UpdateLocation)

	router.POST("/api/notifications", validation.ValidateRequest(&dto.PushNotificationRequest{}), r.notifications.Push)

	pushRoutes := router.Group("/api/push")
	{
		pushRoutes.GET("/public-key", r.notifications.PublicKey)
		pushRoutes.POST("/registrations", validation.ValidateRequest(&dto.PushRegistrationRequest{}), r.notifications.Register)
		pushRoutes.DELETE("/registrations", validation.ValidateRequest(&dto.DeleteRegistrationRequest{}), r.notifications.Unregister)
	}

	if r.triggers != nil {
		triggerRoutes := router.Group("/api/triggers")
		{
			triggerRoutes.GET("", r.triggers.Get)
			triggerRoutes.PUT("", validation.ValidateRequest(&dto.TriggersRequest{}), r.triggers.Update)
		}
	}
}
