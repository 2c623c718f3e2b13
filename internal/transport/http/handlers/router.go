package handlers

import (
	nethttp "net/http"

	"github.com/Lucas-Zerino/grows-gateway/internal/domain/repository"
	"github.com/Lucas-Zerino/grows-gateway/internal/transport/http/response"
	"github.com/Lucas-Zerino/grows-gateway/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	inbound   *usecase.InboundRouter
	sender    *usecase.OutboundSender
	instances repository.InstanceRepository
	outbox    repository.OutboxRepository
	failures  FailureSink
	store     repository.Store
	log       *logrus.Logger
}

func NewHandler(
	inbound *usecase.InboundRouter,
	sender *usecase.OutboundSender,
	instances repository.InstanceRepository,
	outbox repository.OutboxRepository,
	failures FailureSink,
	store repository.Store,
	log *logrus.Logger,
) *Handler {
	return &Handler{
		inbound:   inbound,
		sender:    sender,
		instances: instances,
		outbox:    outbox,
		failures:  failures,
		store:     store,
		log:       log,
	}
}

type Router struct {
	handler *Handler
}

func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

func (r *Router) RegisterRoutes(engine *gin.Engine, idempotency gin.HandlerFunc) {
	engine.GET("/healthz", r.handler.health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	webhooks := engine.Group("/webhooks")
	webhooks.POST("/:provider/:id", r.handler.receiveWebhook)
	webhooks.GET("/:provider/:id", r.handler.verifyWebhook)

	api := engine.Group("/api")
	messages := api.Group("/messages")
	messages.POST("", idempotency, r.handler.sendMessage)
	messages.GET("/:id", r.handler.getMessage)
	api.GET("/outbox", r.handler.listOutbox)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		response.RespondOK(c, nethttp.StatusServiceUnavailable, gin.H{"status": "down"}, nil)
		return
	}
	response.RespondOK(c, nethttp.StatusOK, gin.H{"status": "ok"}, nil)
}
