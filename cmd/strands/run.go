package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/strands-sre/strands/pkg/api"
	"github.com/strands-sre/strands/pkg/config"
)

const shutdownGrace = 10 * time.Second

var httpAddr string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the controller loop and operator HTTP console",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&httpAddr, "http-addr", getEnv("HTTP_ADDR", ":8080"), "address for the operator HTTP console")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return wrapConfigError(fmt.Errorf("initialize configuration: %w", err))
	}
	logger := newLogger(cfg.System.LogLevel)
	stats := cfg.Stats()
	logger.Info("configuration loaded", "config_dir", cfg.ConfigDir(), "providers", stats.Providers, "specialists", stats.Specialists)

	application, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer application.Close()

	server := api.NewServer(application.pool, application.playbooks, application.reviews, application.resilience)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("operator console listening", "addr", httpAddr)
		if err := server.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	go application.controller.Run(ctx, cfg.System.TickInterval)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("operator console: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("operator console shutdown error", "error", err)
	}
	return nil
}
