package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/thereayou/eventchat/internal/models"
)

// State — состояние сессии соединения.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ClientMessageHandler обрабатывает жизненный цикл сессии.
// Activate вызывается один раз до чтения первого кадра и должен перевести
// клиента в Active через Authenticate. Ошибка закрывает соединение с кодом 1008.
// HandleMessage вызывается последовательно для каждого входящего кадра.
type ClientMessageHandler interface {
	Activate(client *Client) error
	HandleMessage(client *Client, raw []byte)
}

// ConnectParams — данные запроса на апгрейд.
type ConnectParams struct {
	Credential     string
	Slug           string
	InitialEventID *int64
	RemoteAddr     string
}

type Client struct {
	ID   uuid.UUID
	Slug string

	conn       *websocket.Conn
	hub        *Hub
	send       chan []byte
	ping       chan struct{}
	credential string
	initial    *int64
	log        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	identity models.Identity
	rooms    map[int64]struct{}
	alive    bool
	state    State
	closed   bool
}

func NewClient(hub *Hub, conn *websocket.Conn, params ConnectParams) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	return &Client{
		ID:         id,
		Slug:       params.Slug,
		conn:       conn,
		hub:        hub,
		send:       make(chan []byte, hub.cfg.SendBufferSize),
		ping:       make(chan struct{}, 1),
		credential: params.Credential,
		initial:    params.InitialEventID,
		log:        hub.log.With("client_id", id.String(), "remote_addr", params.RemoteAddr),
		ctx:        ctx,
		cancel:     cancel,
		identity:   models.GuestIdentity(),
		rooms:      make(map[int64]struct{}),
		alive:      true,
		state:      StateConnecting,
	}
}

// Context отменяется при закрытии клиента.
func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) Credential() string {
	return c.credential
}

// InitialEventID — комната из query-параметра eventId, если он валиден.
func (c *Client) InitialEventID() (int64, bool) {
	if c.initial == nil {
		return 0, false
	}
	return *c.initial, true
}

func (c *Client) Logger() *slog.Logger {
	return c.log
}

func (c *Client) Identity() models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Authenticate фиксирует личность. Допустимо только из Connecting/Authenticating.
func (c *Client) Authenticate(identity models.Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state >= StateActive {
		return false
	}
	c.identity = identity
	c.state = StateActive
	return true
}

func (c *Client) beginAuthentication() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnecting {
		return false
	}
	c.state = StateAuthenticating
	return true
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s > c.state {
		c.state = s
	}
}

// Rooms возвращает комнаты, в которых состоит клиент.
func (c *Client) Rooms() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Keys(c.rooms)
}

func (c *Client) IsInRoom(roomID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[roomID]
	return ok
}

// Send кодирует кадр и ставит его в очередь отправки.
func (c *Client) Send(o Outbound) error {
	data, err := Encode(o)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

// probe сбрасывает флаг живости. false — с прошлого тика pong не пришёл.
func (c *Client) probe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.alive {
		return false
	}
	c.alive = false
	return true
}

func (c *Client) requestPing() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}

// terminate рвёт транспорт без close-рукопожатия. ReadPump после этого завершится.
func (c *Client) terminate() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// CloseWithReason отправляет close-кадр с кодом и рвёт соединение.
func (c *Client) CloseWithReason(code int, reason string) {
	if c.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
		c.log.Debug("Failed to write close frame", "error", err)
	}
	c.conn.Close()
}

// ReadPump читает сообщения от клиента
func (c *Client) ReadPump(handler ClientMessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.markAlive()
		return nil
	})

	if !c.beginAuthentication() {
		return
	}
	if err := handler.Activate(c); err != nil {
		c.log.Info("Session rejected", "error", err)
		c.CloseWithReason(websocket.ClosePolicyViolation, "unauthorized")
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Debug("WebSocket read error", "error", err)
			}
			return
		}
		if c.State() != StateActive {
			return
		}
		handler.HandleMessage(c, raw)
	}
}

// WritePump отправляет сообщения клиенту. Единственный писатель в соединение,
// кроме control-кадров.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("WebSocket write error", "error", err)
				return
			}

		case <-c.ping:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
