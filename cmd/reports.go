/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
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

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Consume provider worker delivery reports",
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

		consumer, err := messaging.NewConsumer(ctx, cfg.Broker, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "broker error:", err)
			os.Exit(1)
		}
		defer consumer.Close()

		messageRepo := persistence.NewMessageRepository(db)
		processor := usecase.NewReportProcessor(messageRepo, log)

		log.Infof("reports: consuming %s", cfg.Broker.ReportsQueue)
		if err := consumer.ConsumeReports(ctx, processor.Handle); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "consumer error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
}
