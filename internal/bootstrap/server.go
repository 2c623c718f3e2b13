package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/messaging"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/persistence"
	"github.com/Lucas-Zerino/grows-gateway/internal/provider"
	"github.com/Lucas-Zerino/grows-gateway/internal/transport/http/handlers"
	"github.com/Lucas-Zerino/grows-gateway/internal/transport/http/middleware"
	"github.com/Lucas-Zerino/grows-gateway/internal/usecase"
	"github.com/Lucas-Zerino/grows-gateway/internal/webhook"
	"github.com/gin-gonic/gin"
)

func Run(ctx context.Context, cfg config.Config) error {
	start := time.Now()
	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	conn, err := persistence.New(ctx, persistence.Config{
		WriteDSN:          cfg.Database.WriteDSN,
		ReadDSN:           cfg.Database.ReadDSN,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return err
	}
	log.Infof("bootstrap: db init in %s", time.Since(start))
	defer conn.Close()

	pingCtx := ctx
	if cfg.Database.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
		defer cancel()
	}
	if err := conn.Ping(pingCtx); err != nil {
		return err
	}
	log.Infof("bootstrap: db ping in %s", time.Since(start))

	publisher, err := messaging.New(ctx, cfg.Broker, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	instanceRepo := persistence.NewInstanceRepository(conn)
	messageRepo := persistence.NewMessageRepository(conn)
	outboxRepo := persistence.NewOutboxRepository(conn, cfg.Outbox.BackoffLadder, cfg.Outbox.MaxAttempts, cfg.Outbox.LockTimeout, cfg.Outbox.Retention)
	failureRepo := persistence.NewWebhookFailureRepository(conn)

	normalizers := webhook.NewRegistry(
		webhook.NewWAHANormalizer(instanceRepo, log),
		webhook.NewWPPConnectNormalizer(instanceRepo, log),
		webhook.NewMessengerNormalizer(instanceRepo, log),
		webhook.NewInstagramNormalizer(instanceRepo, log),
	)

	inbound := usecase.NewInboundRouter(normalizers, instanceRepo, messageRepo, publisher, cfg.Broker, log)
	sender := usecase.NewOutboundSender(messageRepo, outboxRepo, cfg.Broker, log)

	if gateways := buildGateways(cfg.Providers); len(gateways.Names()) > 0 && cfg.Providers.SyncInterval > 0 {
		reconciler := usecase.NewStatusReconciler(instanceRepo, gateways, cfg.Providers.SyncInterval, log)
		go reconciler.Run(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(log), gin.Recovery())
	allowBypassIdemKey := cfg.Env != "prod"
	handler := handlers.NewHandler(inbound, sender, instanceRepo, outboxRepo, failureRepo, conn, log)
	routerBuilder := handlers.NewRouter(handler)
	routerBuilder.RegisterRoutes(router, middleware.IdempotencyRequired(allowBypassIdemKey))

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("bootstrap: server listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}

	return nil
}

// buildGateways registers a gateway for each provider endpoint with a base
// URL configured; unconfigured providers are simply absent from the registry.
func buildGateways(cfg config.Providers) *provider.Registry {
	var gateways []provider.Gateway
	if cfg.WPPConnect.BaseURL != "" {
		gateways = append(gateways, provider.NewWPPConnect(cfg.WPPConnect))
	}
	if cfg.WAHA.BaseURL != "" {
		gateways = append(gateways, provider.NewWAHA(cfg.WAHA))
	}
	if cfg.Meta.BaseURL != "" && cfg.Meta.APIKey != "" {
		gateways = append(gateways, provider.NewMessenger(cfg.Meta), provider.NewInstagram(cfg.Meta))
	}
	return provider.NewRegistry(gateways...)
}
