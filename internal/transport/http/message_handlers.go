package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/heartlinkhq/heartlink-server/internal/messaging"
	"github.com/heartlinkhq/heartlink-server/internal/store"
)

// MessageHandlers provides HTTP handlers for the messaging endpoints.
type MessageHandlers struct {
	service *messaging.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(service *messaging.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: service,
		log:     logger,
	}
}

// SendRequest represents the send message request body.
type SendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// AckResponse acknowledges an operation with no payload.
type AckResponse struct {
	OK bool `json:"ok"`
}

// Send handles message creation.
// POST /api/messages/send
func (h *MessageHandlers) Send(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing to/text"})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), caller.ID, req.To, req.Text)
	if err != nil {
		if errors.Is(err, messaging.ErrMissingRecipient) || errors.Is(err, messaging.ErrMissingText) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing to/text"})
			return
		}
		h.log.Error().Err(err).Str("from", caller.ID).Msg("failed to send message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, messagePayload(msg))
}

// Conversation handles conversation retrieval.
// GET /api/messages/conversation/:userId
func (h *MessageHandlers) Conversation(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	otherID := c.Param("userId")
	msgs, err := h.service.Conversation(c.Request.Context(), caller.ID, otherID)
	if err != nil {
		if errors.Is(err, messaging.ErrMissingPeer) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no user id"})
			return
		}
		h.log.Error().Err(err).Str("caller", caller.ID).Str("other", otherID).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, messagePayloads(msgs))
}

// MarkSeen handles the read receipt.
// PUT /api/messages/seen/:messageId
func (h *MessageHandlers) MarkSeen(c *gin.Context) {
	messageID := c.Param("messageId")

	msg, err := h.service.MarkSeen(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		h.log.Error().Err(err).Str("message_id", messageID).Msg("failed to mark seen")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, messagePayload(msg))
}

// Heartbeat handles the liveness signal.
// POST /api/messages/heartbeat
func (h *MessageHandlers) Heartbeat(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	h.service.Heartbeat(caller.ID)
	c.JSON(http.StatusOK, AckResponse{OK: true})
}

// OnlineUsers handles the online snapshot query.
// GET /api/messages/online-users
func (h *MessageHandlers) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.OnlineUsers())
}

// DeleteForMe handles per-caller soft deletion.
// DELETE /api/messages/delete-for-me/:messageId
func (h *MessageHandlers) DeleteForMe(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	messageID := c.Param("messageId")
	msg, err := h.service.DeleteForMe(c.Request.Context(), messageID, caller.ID)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		h.log.Error().Err(err).Str("message_id", messageID).Msg("failed to delete for user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, messagePayload(msg))
}

// Unsend handles global message redaction by the sender.
// POST /api/messages/unsend/:messageId
func (h *MessageHandlers) Unsend(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	messageID := c.Param("messageId")
	msg, err := h.service.Unsend(c.Request.Context(), messageID, caller.ID)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		if errors.Is(err, messaging.ErrNotSender) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "not allowed"})
			return
		}
		h.log.Error().Err(err).Str("message_id", messageID).Msg("failed to unsend")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, messagePayload(msg))
}
