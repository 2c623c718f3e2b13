package handlers

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/metrics"
	"github.com/Lucas-Zerino/grows-gateway/internal/transport/http/response"
	"github.com/Lucas-Zerino/grows-gateway/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FailureSink archives rejected webhook bodies for diagnosis.
type FailureSink interface {
	Record(ctx context.Context, providerName, reason string, payload []byte) error
}

// receiveWebhook is the POST ingress for every provider. The response
// contract is fixed: 200 {"received": true} once normalization succeeded,
// even when side effects or republishing partially failed, because a non-2xx
// makes the provider redeliver everything.
func (h *Handler) receiveWebhook(c *gin.Context) {
	providerName := c.Param("provider")
	pathID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid path id")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid request body")
		return
	}

	req := webhook.Request{
		Provider: providerName,
		PathID:   pathID,
		Headers:  c.Request.Header,
		Body:     body,
	}

	events, err := h.inbound.Handle(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrUnauthorized):
			metrics.WebhookRejected.WithLabelValues(providerName, "unauthorized").Inc()
			h.log.WithField("provider", providerName).Warn("webhook: signature rejected")
			response.RespondError(c, nethttp.StatusUnauthorized, "signature verification failed")
		case errors.Is(err, webhook.ErrBadPayload):
			metrics.WebhookRejected.WithLabelValues(providerName, "bad_payload").Inc()
			h.log.WithFields(logrus.Fields{"provider": providerName, "payload": string(body)}).
				Warn("webhook: malformed payload")
			if sinkErr := h.failures.Record(c.Request.Context(), providerName, err.Error(), body); sinkErr != nil {
				h.log.WithError(sinkErr).Warn("webhook: failure archive write failed")
			}
			response.RespondError(c, nethttp.StatusBadRequest, "malformed payload")
		case errors.Is(err, webhook.ErrConfigNotFound):
			metrics.WebhookRejected.WithLabelValues(providerName, "not_found").Inc()
			response.RespondError(c, nethttp.StatusNotFound, "unknown webhook configuration")
		default:
			h.log.WithError(err).WithField("provider", providerName).Error("webhook: processing failed")
			response.RespondError(c, nethttp.StatusInternalServerError, "processing failed")
		}
		return
	}

	_ = events
	c.JSON(nethttp.StatusOK, gin.H{"received": true})
}

// verifyWebhook is the GET challenge-response handshake used by the graph
// providers when a webhook subscription is created.
func (h *Handler) verifyWebhook(c *gin.Context) {
	pathID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, "invalid path id")
		return
	}

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	if mode != "subscribe" || token == "" || challenge == "" {
		response.RespondError(c, nethttp.StatusBadRequest, "missing verification parameters")
		return
	}

	inst, err := h.instances.GetByID(c.Request.Context(), pathID)
	if err != nil {
		if errors.Is(err, repository.ErrInstanceNotFound) {
			response.RespondError(c, nethttp.StatusNotFound, "unknown webhook configuration")
			return
		}
		response.RespondError(c, nethttp.StatusInternalServerError, "lookup failed")
		return
	}

	if inst.VerifyToken == "" || token != inst.VerifyToken {
		response.RespondError(c, nethttp.StatusUnauthorized, "verify token mismatch")
		return
	}

	c.String(nethttp.StatusOK, challenge)
}
