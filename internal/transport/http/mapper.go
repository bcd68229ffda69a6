package http

import (
	"github.com/heartlinkhq/heartlink-server/internal/core"
	"github.com/heartlinkhq/heartlink-server/internal/proto"
	"github.com/heartlinkhq/heartlink-server/internal/store"
)

func messagePayload(msg *store.Message) proto.MessagePayload {
	deletedFor := msg.DeletedFor
	if deletedFor == nil {
		deletedFor = []string{}
	}
	return proto.MessagePayload{
		ID:         msg.ID,
		From:       msg.From,
		To:         msg.To,
		Text:       msg.Text,
		Seen:       msg.Seen,
		DeletedFor: deletedFor,
		IsUnsent:   msg.IsUnsent,
		CreatedAt:  msg.CreatedAt,
	}
}

func messagePayloads(msgs []*store.Message) []proto.MessagePayload {
	out := make([]proto.MessagePayload, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, messagePayload(msg))
	}
	return out
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "message",
			Data:  messagePayload(event.Message),
		}
	case core.EventSeen:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "seen",
			Data:  messagePayload(event.Message),
		}
	case core.EventPresence:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "presence",
			Data: proto.PresencePayload{
				UserID: event.User,
				Online: event.Online,
			},
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "typing",
			Data: proto.TypingPayload{
				From:     event.From,
				ToUserID: event.ToUser,
				IsTyping: event.IsTyping,
			},
		}
	case core.EventMessageRead:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "message_read",
			Data: proto.MessageReadPayload{
				MessageID:  event.MessageID,
				ReadBy:     event.ReadBy,
				FromUserID: event.From,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
