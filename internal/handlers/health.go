package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ws "github.com/thereayou/eventchat/internal/websocket"
)

type HealthHandler struct {
	hub *ws.Hub
}

func NewHealthHandler(hub *ws.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       h.hub.RoomCount(),
		"connections": h.hub.ClientCount(),
	})
}
