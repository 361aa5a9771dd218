package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/ikkim/fleetverify-backend/internal/errors"
	"github.com/ikkim/fleetverify-backend/internal/middleware"
	ws "github.com/ikkim/fleetverify-backend/internal/websocket"
)

type ReviewFeedController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewReviewFeedController accepts upgrades from allowedOrigins only; requests
// without an Origin header (non-browser clients) are let through.
func NewReviewFeedController(hub *ws.Hub, allowedOrigins []string) *ReviewFeedController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &ReviewFeedController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Connect upgrades to a websocket streaming verification events
// GET /api/v1/admin/ws/review-feed
func (ctrl *ReviewFeedController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	adminID, ok := middleware.GetAdminID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err, map[string]interface{}{
			"admin_id": adminID,
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, adminID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Review feed connection established", map[string]interface{}{
		"admin_id": adminID,
	})
}
