package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereayou/eventchat/pkg/auth"
)

const CredentialKey = "credential"

// WSCredentialMiddleware достаёт credential из query, cookie или заголовка и
// кладёт его в контекст. Отсутствие credential не ошибка: сессия станет гостевой.
// Проверка подписи выполняется в сессии, где сбой решается политикой.
func WSCredentialMiddleware(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := auth.ExtractCredential(c.Request, cookieName); token != "" {
			c.Set(CredentialKey, token)
		}
		c.Next()
	}
}

// RequireUpgrade отклоняет запросы без WebSocket-рукопожатия
func RequireUpgrade() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !websocket.IsWebSocketUpgrade(c.Request) {
			c.JSON(http.StatusUpgradeRequired, gin.H{"error": "websocket upgrade required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
