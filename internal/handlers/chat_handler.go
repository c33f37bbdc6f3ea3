package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thereayou/eventchat/internal/models"
	"github.com/thereayou/eventchat/internal/services"
	ws "github.com/thereayou/eventchat/internal/websocket"
)

const (
	reasonInvalidMessage    = "invalid message"
	reasonInvalidEventID    = "Invalid eventId"
	reasonNotMember         = "not a member"
	reasonLoginRequired     = "login required"
	reasonAuthzUnavailable  = "authorization unavailable"
	reasonContentRequired   = "content is required"
	reasonSendFailed        = "send failed"
	unknownTypeReplyPattern = "unknown type: %s"
)

// ChatPolicy — переключатели поведения при сбоях зависимостей.
type ChatPolicy struct {
	AuthzFailure    services.FailurePolicy
	IdentityFailure services.FailurePolicy
	AllowGuestJoin  bool
}

// ChatHandler аутентифицирует сессию и разбирает входящие кадры чата.
type ChatHandler struct {
	hub      *ws.Hub
	verifier services.IdentityVerifier
	oracle   services.AuthorizationOracle
	store    services.MessageStore
	policy   ChatPolicy
	log      *slog.Logger
	now      func() time.Time
}

func NewChatHandler(
	hub *ws.Hub,
	verifier services.IdentityVerifier,
	oracle services.AuthorizationOracle,
	store services.MessageStore,
	policy ChatPolicy,
	log *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		hub:      hub,
		verifier: verifier,
		oracle:   oracle,
		store:    store,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
}

// Activate определяет личность по credential и выполняет автовход в комнату из eventId.
func (h *ChatHandler) Activate(client *ws.Client) error {
	identity, err := h.resolveIdentity(client)
	if err != nil {
		return err
	}
	if !client.Authenticate(identity) {
		return ws.ErrClientClosed
	}
	client.Logger().Debug("Session active", "user_id", identity.UserID(), "guest", identity.IsGuest())

	if eventID, ok := client.InitialEventID(); ok {
		h.join(client, eventID)
	}
	return nil
}

func (h *ChatHandler) resolveIdentity(client *ws.Client) (models.Identity, error) {
	credential := client.Credential()
	if credential == "" {
		return models.GuestIdentity(), nil
	}

	identity, err := h.verifier.VerifyCredential(client.Context(), credential)
	if err != nil {
		if h.policy.IdentityFailure.Allows() {
			client.Logger().Warn("Credential verification failed, continuing as guest", "error", err)
			return models.GuestIdentity(), nil
		}
		return models.Identity{}, fmt.Errorf("verify credential: %w", err)
	}
	if identity.IsGuest() && identity.Nickname == "" {
		identity.Nickname = models.GuestNickname
	}
	return identity, nil
}

// HandleMessage — таблица диспетчеризации входящих кадров.
func (h *ChatHandler) HandleMessage(client *ws.Client, raw []byte) {
	cmd, err := ws.DecodeCommand(raw)
	if err != nil {
		client.Logger().Debug("Malformed frame", "error", err)
		h.reply(client, ws.NewErrorReply(reasonInvalidMessage))
		return
	}

	switch cmd := cmd.(type) {
	case ws.JoinCommand:
		if !cmd.EventID.Valid {
			h.reply(client, ws.JoinRejected(nil, reasonInvalidEventID))
			return
		}
		h.join(client, cmd.EventID.ID)

	case ws.SendCommand:
		h.handleSend(client, cmd)

	case ws.TypingCommand:
		if !cmd.EventID.Valid {
			return
		}
		identity := client.Identity()
		h.hub.Broadcast(cmd.EventID.ID, ws.NewTypingEvent(cmd.EventID.ID, identity.UserID(), identity.Nickname, cmd.Typing), client)

	case ws.LeaveCommand:
		if !cmd.EventID.Valid {
			h.reply(client, ws.LeaveRejected(reasonInvalidEventID))
			return
		}
		h.hub.LeaveRoom(client, cmd.EventID.ID)
		h.reply(client, ws.LeaveAccepted(cmd.EventID.ID))

	case ws.UnknownCommand:
		client.Logger().Debug("Unknown frame type", "type", cmd.Type)
		h.reply(client, ws.NewErrorReply(fmt.Sprintf(unknownTypeReplyPattern, cmd.Type)))
	}
}

func (h *ChatHandler) join(client *ws.Client, eventID int64) {
	if reason, ok := h.authorize(client, eventID); !ok {
		h.reply(client, ws.JoinRejected(&eventID, reason))
		return
	}
	if err := h.hub.JoinRoom(client, eventID); err != nil {
		client.Logger().Debug("Join skipped", "event_id", eventID, "error", err)
		return
	}
	h.reply(client, ws.JoinAccepted(eventID))
}

// authorize: гость проходит, если это разрешено; пользователь проверяется
// через оракул, а сбой оракула решается политикой AuthzFailure.
func (h *ChatHandler) authorize(client *ws.Client, eventID int64) (string, bool) {
	identity := client.Identity()
	if identity.IsGuest() {
		if h.policy.AllowGuestJoin {
			return "", true
		}
		return reasonLoginRequired, false
	}

	member, err := h.oracle.IsEventMember(client.Context(), identity.UserID(), eventID)
	if err != nil {
		allowed := h.policy.AuthzFailure.Allows()
		client.Logger().Warn("Membership check failed",
			"event_id", eventID, "user_id", identity.UserID(), "allowed", allowed, "error", err)
		if allowed {
			return "", true
		}
		return reasonAuthzUnavailable, false
	}
	if !member {
		return reasonNotMember, false
	}
	return "", true
}

func (h *ChatHandler) handleSend(client *ws.Client, cmd ws.SendCommand) {
	eventID, content, err := validateSend(cmd)
	if err != nil {
		h.reply(client, ws.SendRejected(rejectReason(err)))
		return
	}

	identity := client.Identity()

	// Гостевые сообщения не сохраняются
	if identity.IsGuest() {
		now := h.now()
		msg := ws.NewChatMessage(ws.EphemeralID(now), eventID, ws.Author{ID: 0, Nickname: identity.Nickname}, content, now)
		h.reply(client, ws.SendAccepted(msg.ID))
		h.hub.Broadcast(eventID, msg, client)
		return
	}

	chat, err := h.store.CreateChat(client.Context(), eventID, identity.UserID(), content)
	if err != nil {
		client.Logger().Error("Failed to persist chat message", "event_id", eventID, "user_id", identity.UserID(), "error", err)
		h.reply(client, ws.SendRejected(reasonSendFailed))
		return
	}

	author := ws.Author{ID: chat.UserID, Nickname: identity.Nickname}
	if chat.User.ID != 0 {
		author = ws.Author{ID: chat.User.ID, Nickname: chat.User.Nickname}
	}
	msg := ws.NewChatMessage(ws.DurableID(chat.ID), chat.EventID, author, chat.Content, chat.CreatedAt)
	h.reply(client, ws.SendAccepted(msg.ID))
	h.hub.Broadcast(eventID, msg, client)
}

func validateSend(cmd ws.SendCommand) (int64, string, error) {
	if !cmd.EventID.Valid {
		return 0, "", ws.ErrInvalidEventID
	}
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return 0, "", ws.ErrEmptyContent
	}
	return cmd.EventID.ID, content, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ws.ErrInvalidEventID):
		return reasonInvalidEventID
	case errors.Is(err, ws.ErrEmptyContent):
		return reasonContentRequired
	default:
		return reasonSendFailed
	}
}

func (h *ChatHandler) reply(client *ws.Client, o ws.Outbound) {
	if err := client.Send(o); err != nil {
		client.Logger().Debug("Reply dropped", "error", err)
	}
}
