package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/eventchat/internal/models"
)

type echoHandler struct {
	reject bool
	roomID int64
}

func (h echoHandler) Activate(c *Client) error {
	if h.reject {
		return errors.New("no entry")
	}
	c.Authenticate(models.GuestIdentity())
	if h.roomID != 0 {
		return c.hub.JoinRoom(c, h.roomID)
	}
	return nil
}

func (h echoHandler) HandleMessage(c *Client, raw []byte) {
	_ = c.Send(NewErrorReply(string(raw)))
}

func startHub(t *testing.T, cfg HubConfig) *Hub {
	hub := newTestHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

func serve(t *testing.T, hub *Hub, handler ClientMessageHandler) string {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, ConnectParams{Slug: "test", RemoteAddr: r.RemoteAddr})
		if err := hub.Register(client); err != nil {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump(handler)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestClient_RoundTrip(t *testing.T) {
	req := require.New(t)
	hub := startHub(t, HubConfig{})
	conn := dial(t, serve(t, hub, echoHandler{}))

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("ping?")))

	var reply map[string]any
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	req.NoError(conn.ReadJSON(&reply))
	req.Equal("error", reply["type"])
	req.Equal("ping?", reply["error"])
}

func TestClient_ActivateRejectedClosesWithPolicyViolation(t *testing.T) {
	hub := startHub(t, HubConfig{})
	conn := dial(t, serve(t, hub, echoHandler{reject: true}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_DisconnectLeavesRooms(t *testing.T) {
	hub := startHub(t, HubConfig{})
	conn := dial(t, serve(t, hub, echoHandler{roomID: 12}))

	require.Eventually(t, func() bool { return len(hub.RoomMembers(12)) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0 && hub.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_LivenessEviction(t *testing.T) {
	hub := startHub(t, HubConfig{HeartbeatInterval: 50 * time.Millisecond})
	url := serve(t, hub, echoHandler{roomID: 1})

	// Этот клиент читает, значит отвечает на ping автоматически
	responsive := dial(t, url)
	go func() {
		for {
			if _, _, err := responsive.ReadMessage(); err != nil {
				return
			}
		}
	}()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Этот никогда не читает, pong не уходит
	_ = dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 1, hub.ClientCount())
	require.Len(t, hub.RoomMembers(1), 1)
}
