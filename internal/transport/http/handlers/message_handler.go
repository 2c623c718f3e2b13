package handlers

import (
	"errors"
	nethttp "net/http"
	"strings"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/event"
	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/transport/http/middleware"
	"github.com/Lucas-Zerino/grows-gateway/internal/transport/http/response"
	"github.com/Lucas-Zerino/grows-gateway/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type sendMessageRequest struct {
	Recipient   string `json:"recipient" binding:"required"`
	Type        string `json:"type"`
	Text        string `json:"text"`
	MediaURL    string `json:"media_url"`
	Caption     string `json:"caption"`
	Priority    int    `json:"priority" binding:"min=0,max=9"`
	MaxAttempts int    `json:"max_attempts"`
}

// sendMessage responds as soon as the message row and its outbox record
// commit; delivery status is observed later via getMessage.
func (h *Handler) sendMessage(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.RespondError(c, nethttp.StatusUnauthorized, "instance token required")
		return
	}
	inst, err := h.instances.GetByToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, repository.ErrInstanceNotFound) {
			response.RespondError(c, nethttp.StatusUnauthorized, "unknown instance token")
			return
		}
		response.RespondError(c, nethttp.StatusInternalServerError, "lookup failed")
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	msg, alreadyExist, err := h.sender.Send(c.Request.Context(), usecase.SendMessageInput{
		Instance:       inst,
		Recipient:      req.Recipient,
		Type:           event.MessageType(req.Type),
		Content:        req.Text,
		MediaURL:       req.MediaURL,
		Caption:        req.Caption,
		Priority:       req.Priority,
		MaxAttempts:    req.MaxAttempts,
		IdempotencyKey: c.GetString(middleware.IdempotencyKeyCtx),
		RequestHash:    c.GetString(middleware.IdempotencyHashCtx),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrIdempotencyKeyConflict):
			response.RespondError(c, nethttp.StatusConflict, "idempotency key conflicts with request")
		case errors.Is(err, usecase.ErrInvalidRecipient):
			response.RespondError(c, nethttp.StatusBadRequest, "invalid recipient")
		default:
			response.RespondError(c, nethttp.StatusInternalServerError, "send failed")
		}
		return
	}
	if alreadyExist {
		response.RespondOK(c, nethttp.StatusOK, msg, nil)
		return
	}
	response.RespondOK(c, nethttp.StatusCreated, msg, nil)
}

func (h *Handler) getMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid id")
		return
	}
	msg, err := h.sender.GetMessage(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, nethttp.StatusNotFound, "not found")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, msg, nil)
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.GetHeader("X-Instance-Token")
}
