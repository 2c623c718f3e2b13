/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lucas-Zerino/grows-gateway/internal/bootstrap"
	"github.com/Lucas-Zerino/grows-gateway/internal/config"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/messaging"
	"github.com/Lucas-Zerino/grows-gateway/internal/infra/persistence"
	"github.com/Lucas-Zerino/grows-gateway/internal/usecase"
	"github.com/spf13/cobra"
)

var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Publish outbox records to the broker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		log, err := bootstrap.BuildLogger(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "log error:", err)
			os.Exit(1)
		}

		db, err := persistence.New(ctx, persistence.Config{
			WriteDSN:          cfg.Database.WriteDSN,
			ReadDSN:           cfg.Database.ReadDSN,
			MaxConns:          cfg.Database.MaxConns,
			MinConns:          cfg.Database.MinConns,
			MaxConnLifetime:   cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "db error:", err)
			os.Exit(1)
		}
		defer db.Close()

		publisher, err := messaging.New(ctx, cfg.Broker, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "broker error:", err)
			os.Exit(1)
		}
		defer publisher.Close()

		outboxRepo := persistence.NewOutboxRepository(db, cfg.Outbox.BackoffLadder, cfg.Outbox.MaxAttempts, cfg.Outbox.LockTimeout, cfg.Outbox.Retention)
		dispatcher := usecase.NewDispatcher(outboxRepo, publisher, cfg.Outbox, cfg.Broker, log)

		log.Infof("dispatcher: started (workers=%d, batch=%d, interval=%s)", cfg.Outbox.Workers, cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)
		dispatcher.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(dispatcherCmd)
}
