package main

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/eventchat/internal/handlers"
	"github.com/thereayou/eventchat/internal/middleware"
)

func NewRouter(log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	return r
}

func APIEndpoints(r *gin.Engine, healthH *handlers.HealthHandler) {
	r.GET("/healthz", healthH.Health)
}

// ChatEndpoints вешает WebSocket-чат на prefix. Пути вне prefix получают 404 до апгрейда.
func ChatEndpoints(r *gin.Engine, prefix, cookieName string, wsH *handlers.WebSocketHandler) {
	chats := r.Group(strings.TrimSuffix(prefix, "/"))
	chats.Use(middleware.RequireUpgrade(), middleware.WSCredentialMiddleware(cookieName))
	{
		chats.GET("/*slug", wsH.HandleWebSocket)
	}
}
