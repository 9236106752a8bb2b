package handlers

import (
	"net/http"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/api/dto"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/alerts"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/notification"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadLimit    = 1024
	wsBuffer       = 16
)

// AlertStream registers live subscribers
type AlertStream interface {
	Subscribe(sub notification.Subscriber) error
	Unsubscribe(id string)
}

// LocationUpdater stores the latest GPS fix
type LocationUpdater interface {
	Update(fix alerts.GpsFix)
}

// AlertsHandler serves the live alert stream and GPS updates
type AlertsHandler struct {
	stream    AlertStream
	locations LocationUpdater
	logger    *logger.Logger
	upgrader  websocket.Upgrader
	now       func() time.Time
}

// NewAlertsHandler creates a new alerts handler
func NewAlertsHandler(stream AlertStream, locations LocationUpdater, logger *logger.Logger) *AlertsHandler {
	return &AlertsHandler{
		stream:    stream,
		locations: locations,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins; CORS is applied at the router
			},
		},
		now: time.Now,
	}
}

// Stream godoc
// @Summary Live alert stream
// @Description Upgrades to a WebSocket that receives every alert as JSON. A
// @Description "connected" system alert is sent first and heartbeats follow.
// @Tags alerts
// @Router /api/alerts/ws [get]
func (h *AlertsHandler) Stream(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade to WebSocket",
			zap.Error(err),
			zap.String("remote_addr", c.Request.RemoteAddr))
		return
	}
	defer ws.Close()

	sub := notification.NewChannelSubscriber(wsBuffer)
	defer sub.Close()
	if err := h.stream.Subscribe(sub); err != nil {
		h.logger.Warn("Failed to subscribe alert stream", zap.Error(err))
		return
	}
	defer h.stream.Unsubscribe(sub.ID())

	h.logger.Info("Alert stream connected",
		zap.String("subscriber", sub.ID()),
		zap.String("remote_addr", c.Request.RemoteAddr))

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// The client sends nothing meaningful; reading only detects disconnects
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("Alert stream read error", zap.Error(err))
				}
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			h.logger.Info("Alert stream disconnected", zap.String("subscriber", sub.ID()))
			return
		case alert := <-sub.Alerts():
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteJSON(alert); err != nil {
				h.logger.Debug("Alert stream write failed", zap.String("subscriber", sub.ID()), zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// UpdateLocation godoc
// @Summary Report the device's GPS position
// @Description The fix is used as the trip origin for departure alerts while fresh.
// @Tags alerts
// @Accept json
// @Param request body dto.LocationRequest true "GPS fix"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/location [post]
func (h *AlertsHandler) UpdateLocation(c *gin.Context) {
	req, ok := validatedRequest[dto.LocationRequest](c)
	if !ok {
		return
	}
	fix := req.ToFix(h.now())
	h.locations.Update(fix)
	h.logger.Debug("GPS fix updated", zap.Time("captured_at", fix.CapturedAt))
	c.Status(http.StatusNoContent)
}
