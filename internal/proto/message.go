package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeIdentify    = "identify"
	InboundTypeJoin        = "join"
	InboundTypeLeave       = "leave"
	InboundTypeTyping      = "typing"
	InboundTypeMessageRead = "message_read"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// IdentifyData associates the connection with a logical user.
type IdentifyData struct {
	UserID string `json:"user_id"`
}

// RoomData requests to join or leave a named room.
type RoomData struct {
	Room string `json:"room"`
}

// TypingData is a typing indicator from the client.
type TypingData struct {
	ToUserID string `json:"to_user_id"`
	IsTyping bool   `json:"is_typing"`
}

// MessageReadData is the socket-level read signal from the client.
type MessageReadData struct {
	MessageID  string `json:"message_id"`
	FromUserID string `json:"from_user_id"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessagePayload is a message as pushed over the realtime channel. The same
// shape is used by the REST responses.
type MessagePayload struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Text       string    `json:"text"`
	Seen       bool      `json:"seen"`
	DeletedFor []string  `json:"deletedFor"`
	IsUnsent   bool      `json:"isUnsent"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PresencePayload announces a user's online status change.
type PresencePayload struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// TypingPayload relays a typing indicator with the sender attached.
type TypingPayload struct {
	From     string `json:"from"`
	ToUserID string `json:"toUserId"`
	IsTyping bool   `json:"isTyping"`
}

// MessageReadPayload relays the read signal with the reader attached.
type MessageReadPayload struct {
	MessageID  string `json:"messageId"`
	ReadBy     string `json:"readBy"`
	FromUserID string `json:"fromUserId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
