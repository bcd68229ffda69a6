package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/heartlinkhq/heartlink-server/internal/core"
	"github.com/heartlinkhq/heartlink-server/internal/proto"
	"github.com/heartlinkhq/heartlink-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(utils.NewID())
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if protoErr := h.handleInbound(client, inbound); protoErr != nil {
			// Error replies only reach the acting connection, so they are
			// written synchronously instead of queued behind fan-out events.
			errEvent := &core.Event{Kind: core.EventError, Error: protoErr}
			if writeErr := wsjson.Write(ctx, conn, outboundFromEvent(errEvent)); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) handleInbound(client *core.Client, inbound proto.Inbound) *core.ProtoError {
	switch inbound.Type {
	case proto.InboundTypeIdentify:
		var data proto.IdentifyData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.UserID == "" {
			return &core.ProtoError{Code: "bad_request", Message: "user_id is required"}
		}
		h.hub.Identify(client, data.UserID)
		h.log.Debug().Str("conn_id", client.ID).Str("user_id", data.UserID).Msg("connection identified")
		return nil
	case proto.InboundTypeJoin:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.Room == "" {
			return &core.ProtoError{Code: "bad_request", Message: "room is required"}
		}
		h.hub.JoinRoom(client, data.Room)
		return nil
	case proto.InboundTypeLeave:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.Room == "" {
			return &core.ProtoError{Code: "bad_request", Message: "room is required"}
		}
		h.hub.LeaveRoom(client, data.Room)
		return nil
	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return &core.ProtoError{Code: "bad_request", Message: "invalid typing payload"}
		}
		h.hub.Broadcast(&core.Event{
			Kind:     core.EventTyping,
			From:     client.UserID,
			ToUser:   data.ToUserID,
			IsTyping: data.IsTyping,
		})
		return nil
	case proto.InboundTypeMessageRead:
		var data proto.MessageReadData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return &core.ProtoError{Code: "bad_request", Message: "invalid message_read payload"}
		}
		h.hub.Broadcast(&core.Event{
			Kind:      core.EventMessageRead,
			MessageID: data.MessageID,
			ReadBy:    client.UserID,
			From:      data.FromUserID,
		})
		return nil
	default:
		return &core.ProtoError{Code: "invalid_message", Message: "unknown message type"}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
