package websocket

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// MessageType определяет типы сообщений
type MessageType string

const (
	// От клиента
	TypeJoin   MessageType = "join"
	TypeSend   MessageType = "send"
	TypeTyping MessageType = "typing"
	TypeLeave  MessageType = "leave"

	// От сервера
	TypeMessage  MessageType = "message"
	TypeJoinAck  MessageType = "join-ack"
	TypeSendAck  MessageType = "send-ack"
	TypeLeaveAck MessageType = "leave-ack"
	TypeError    MessageType = "error"
)

// EventRef — eventId входящего кадра. Valid == false, если поле отсутствует
// или не является целым числом.
type EventRef struct {
	ID    int64
	Valid bool
}

// Command — разобранный входящий кадр. Набор реализаций закрыт.
type Command interface {
	command()
}

type JoinCommand struct {
	EventID EventRef
}

type SendCommand struct {
	EventID EventRef
	Content string
}

type TypingCommand struct {
	EventID EventRef
	Typing  bool
}

type LeaveCommand struct {
	EventID EventRef
}

// UnknownCommand — кадр с неизвестным типом.
type UnknownCommand struct {
	Type string
}

func (JoinCommand) command()    {}
func (SendCommand) command()    {}
func (TypingCommand) command()  {}
func (LeaveCommand) command()   {}
func (UnknownCommand) command() {}

type inboundFrame struct {
	Type    *string         `json:"type"`
	EventID json.RawMessage `json:"eventId"`
	Content json.RawMessage `json:"content"`
	Typing  json.RawMessage `json:"typing"`
}

// DecodeCommand разбирает кадр. Всё, что не является JSON-объектом со строковым
// полем type, возвращает ErrInvalidMessage.
func DecodeCommand(raw []byte) (Command, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidMessage
	}

	var frame inboundFrame
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		return nil, ErrInvalidMessage
	}
	if frame.Type == nil {
		return nil, ErrInvalidMessage
	}

	switch MessageType(*frame.Type) {
	case TypeJoin:
		return JoinCommand{EventID: parseEventRef(frame.EventID)}, nil
	case TypeSend:
		return SendCommand{EventID: parseEventRef(frame.EventID), Content: textOf(frame.Content)}, nil
	case TypeTyping:
		return TypingCommand{EventID: parseEventRef(frame.EventID), Typing: truthy(frame.Typing)}, nil
	case TypeLeave:
		return LeaveCommand{EventID: parseEventRef(frame.EventID)}, nil
	default:
		return UnknownCommand{Type: *frame.Type}, nil
	}
}

// ParseEventID разбирает id события из строки, например из query-параметра.
func ParseEventID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return integral(f)
}

func parseEventRef(raw json.RawMessage) EventRef {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return EventRef{}
	}

	var id int64
	var ok bool
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return EventRef{}
		}
		id, ok = ParseEventID(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return EventRef{}
		}
		id, ok = integral(f)
	}
	return EventRef{ID: id, Valid: ok}
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// textOf принимает строку или число, остальное даёт пустую строку.
func textOf(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 't':
		return true
	case 'f', 'n':
		return false
	case '"':
		return len(raw) > 2
	case '{', '[':
		return true
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return false
		}
		return f != 0
	}
}

// MessageID — id сообщения в кадре: число из хранилища для сохранённых
// сообщений либо строка "tmp-<ms>" для гостевых, которые не сохраняются.
type MessageID struct {
	durable   int64
	ephemeral string
}

const ephemeralPrefix = "tmp-"

func DurableID(id int64) MessageID {
	return MessageID{durable: id}
}

func EphemeralID(at time.Time) MessageID {
	return MessageID{ephemeral: ephemeralPrefix + strconv.FormatInt(at.UnixMilli(), 10)}
}

func (m MessageID) IsEphemeral() bool {
	return m.ephemeral != ""
}

func (m MessageID) String() string {
	if m.IsEphemeral() {
		return m.ephemeral
	}
	return strconv.FormatInt(m.durable, 10)
}

func (m MessageID) MarshalJSON() ([]byte, error) {
	if m.IsEphemeral() {
		return json.Marshal(m.ephemeral)
	}
	return []byte(strconv.FormatInt(m.durable, 10)), nil
}

// Outbound — исходящий кадр. Набор реализаций закрыт.
type Outbound interface {
	outbound()
}

type Author struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// ChatMessage рассылается участникам комнаты при новом сообщении.
type ChatMessage struct {
	Type      MessageType `json:"type"`
	ID        MessageID   `json:"id"`
	EventID   int64       `json:"eventId"`
	User      Author      `json:"user"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

type TypingEvent struct {
	Type     MessageType `json:"type"`
	EventID  int64       `json:"eventId"`
	UserID   int64       `json:"userId"`
	Nickname string      `json:"nickname"`
	Typing   bool        `json:"typing"`
}

type JoinAck struct {
	Type    MessageType `json:"type"`
	OK      bool        `json:"ok"`
	EventID *int64      `json:"eventId,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type SendAck struct {
	Type      MessageType `json:"type"`
	OK        bool        `json:"ok"`
	MessageID *MessageID  `json:"messageId,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type LeaveAck struct {
	Type    MessageType `json:"type"`
	OK      bool        `json:"ok"`
	EventID *int64      `json:"eventId,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ErrorReply struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}

func (ChatMessage) outbound() {}
func (TypingEvent) outbound() {}
func (JoinAck) outbound()     {}
func (SendAck) outbound()     {}
func (LeaveAck) outbound()    {}
func (ErrorReply) outbound()  {}

func NewChatMessage(id MessageID, eventID int64, author Author, content string, createdAt time.Time) ChatMessage {
	return ChatMessage{Type: TypeMessage, ID: id, EventID: eventID, User: author, Content: content, CreatedAt: createdAt}
}

func NewTypingEvent(eventID, userID int64, nickname string, typing bool) TypingEvent {
	return TypingEvent{Type: TypeTyping, EventID: eventID, UserID: userID, Nickname: nickname, Typing: typing}
}

func JoinAccepted(eventID int64) JoinAck {
	return JoinAck{Type: TypeJoinAck, OK: true, EventID: &eventID}
}

// JoinRejected — отказ во входе. eventID == nil, если его не удалось разобрать.
func JoinRejected(eventID *int64, reason string) JoinAck {
	return JoinAck{Type: TypeJoinAck, EventID: eventID, Error: reason}
}

func SendAccepted(id MessageID) SendAck {
	return SendAck{Type: TypeSendAck, OK: true, MessageID: &id}
}

func SendRejected(reason string) SendAck {
	return SendAck{Type: TypeSendAck, Error: reason}
}

func LeaveAccepted(eventID int64) LeaveAck {
	return LeaveAck{Type: TypeLeaveAck, OK: true, EventID: &eventID}
}

func LeaveRejected(reason string) LeaveAck {
	return LeaveAck{Type: TypeLeaveAck, Error: reason}
}

func NewErrorReply(reason string) ErrorReply {
	return ErrorReply{Type: TypeError, Error: reason}
}

func Encode(o Outbound) ([]byte, error) {
	return json.Marshal(o)
}
