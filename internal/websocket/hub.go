package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultWriteWait         = 10 * time.Second
	defaultMaxMessageSize    = 64 * 1024
	defaultSendBufferSize    = 256
)

// HubConfig — параметры соединений. Нулевые поля заменяются значениями по умолчанию.
type HubConfig struct {
	HeartbeatInterval time.Duration
	WriteWait         time.Duration
	MaxMessageSize    int64
	SendBufferSize    int
}

func (c HubConfig) withDefaults() HubConfig {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	return c
}

// Hub владеет живыми соединениями: регистрирует их, рассылает кадры по
// комнатам и раз в HeartbeatInterval проверяет, что клиенты отвечают на ping.
type Hub struct {
	cfg      HubConfig
	registry *Registry
	log      *slog.Logger

	clients map[*Client]struct{}
	mu      sync.RWMutex

	// Каналы для регистрации/отмены регистрации
	register   chan *Client
	unregister chan *Client

	done chan struct{}
}

// NewHub создает новый Hub
func NewHub(registry *Registry, cfg HubConfig, log *slog.Logger) *Hub {
	return &Hub{
		cfg:        cfg.withDefaults(),
		registry:   registry,
		log:        log,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run запускает hub и блокируется до отмены ctx. При выходе все соединения закрываются.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		h.shutdown()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case <-ticker.C:
			h.heartbeat()
		}
	}
}

// Done закрывается после остановки hub.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	client.log.Info("Client connected", "slug", client.Slug)
}

// removeClient — единственная точка очистки. Повторный вызов ничего не делает.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if !ok {
		return
	}

	client.setState(StateClosing)
	rooms := h.registry.RemoveEverywhere(client)
	client.closeSend()
	client.cancel()
	client.setState(StateClosed)

	client.log.Info("Client disconnected", "rooms_left", len(rooms))
}

func (h *Hub) shutdown() {
	for _, client := range h.snapshotClients() {
		h.removeClient(client)
		client.terminate()
	}
}

// heartbeat закрывает клиентов, не ответивших на прошлый ping, остальным шлёт новый.
func (h *Hub) heartbeat() {
	for _, client := range h.snapshotClients() {
		if !client.probe() {
			client.log.Info("Client missed heartbeat, terminating")
			h.removeClient(client)
			client.terminate()
			continue
		}
		client.requestPing()
	}
}

func (h *Hub) snapshotClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// JoinRoom добавляет клиента в комнату
func (h *Hub) JoinRoom(client *Client, roomID int64) error {
	return h.registry.Join(roomID, client)
}

// LeaveRoom удаляет клиента из комнаты
func (h *Hub) LeaveRoom(client *Client, roomID int64) bool {
	return h.registry.Leave(roomID, client)
}

// Broadcast рассылает кадр всем участникам комнаты, кроме except (может быть nil).
// Кадр кодируется один раз. Закрытые клиенты и клиенты с переполненной
// очередью пропускаются. Возвращает число получателей.
func (h *Hub) Broadcast(roomID int64, o Outbound, except *Client) int {
	data, err := Encode(o)
	if err != nil {
		h.log.Error("Failed to encode broadcast", "room_id", roomID, "error", err)
		return 0
	}

	delivered := 0
	for _, client := range h.registry.Members(roomID) {
		if client == except {
			continue
		}
		if err := client.enqueue(data); err != nil {
			client.log.Warn("Broadcast skipped", "room_id", roomID, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}

func (h *Hub) RoomMembers(roomID int64) []*Client {
	return h.registry.Members(roomID)
}
