package websocket

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/eventchat/internal/models"
)

func newTestHub(cfg HubConfig) *Hub {
	return NewHub(NewRegistry(), cfg, logs.GetLoggerFromLevel(slog.LevelDebug))
}

// newActiveClient создаёт клиента без транспорта: кадры читаются прямо из очереди.
func newActiveClient(hub *Hub) *Client {
	c := NewClient(hub, nil, ConnectParams{Slug: "test"})
	c.beginAuthentication()
	c.Authenticate(models.GuestIdentity())
	return c
}

func drain(c *Client) []map[string]any {
	var frames []map[string]any
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return frames
			}
			var frame map[string]any
			if err := json.Unmarshal(data, &frame); err == nil {
				frames = append(frames, frame)
			}
		default:
			return frames
		}
	}
}

func receive(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case data := <-c.send:
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return nil
	}
}
