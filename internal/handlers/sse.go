package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/careloop/referral-backend/internal/logger"
	"github.com/careloop/referral-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log: log.With("handler", "SSEHandler"),
		hub: hub,
	}
}

// GET /api/dashboard/stream
// Long-lived event stream of referral activity for the dashboard.
func (h *SSEHandler) StreamDashboard(c *gin.Context) {
	client := h.hub.NewSSEClient()
	h.hub.AddChannel(client, sse.ChannelDashboard)
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
