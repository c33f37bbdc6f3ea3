package handlers

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/thereayou/eventchat/internal/middleware"
	ws "github.com/thereayou/eventchat/internal/websocket"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	hub      *ws.Hub
	chat     ws.ClientMessageHandler
	upgrader websocket.Upgrader
}

// NewWebSocketHandler создает новый WebSocket handler. Пустой allowedOrigins
// разрешает любой Origin.
func NewWebSocketHandler(hub *ws.Hub, chat ws.ClientMessageHandler, allowedOrigins []string) *WebSocketHandler {
	origins := lo.SliceToMap(allowedOrigins, func(o string) (string, struct{}) {
		return normalizeOrigin(o), struct{}{}
	})

	return &WebSocketHandler{
		hub:  hub,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[normalizeOrigin(origin)]
				return ok
			},
		},
	}
}

// HandleWebSocket обрабатывает WebSocket соединения
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	params := ws.ConnectParams{
		Credential: c.GetString(middleware.CredentialKey),
		Slug:       roomSlug(c.Request.URL.Path),
		RemoteAddr: c.ClientIP(),
	}
	if id, ok := ws.ParseEventID(c.Query("eventId")); ok {
		params.InitialEventID = &id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, params)
	if err := h.hub.Register(client); err != nil {
		client.CloseWithReason(websocket.CloseGoingAway, "server shutting down")
		return
	}

	go client.WritePump()
	go client.ReadPump(h.chat)
}

// roomSlug — последний сегмент пути: /ws/chats/mock-1 -> mock-1.
func roomSlug(p string) string {
	if strings.HasSuffix(p, "/") {
		return ""
	}
	return path.Base(p)
}

func normalizeOrigin(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(origin)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
