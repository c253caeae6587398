package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tendd/internal/api"
	"tendd/internal/config"
	"tendd/internal/logging"
	tenddmcp "tendd/internal/mcp"
	"tendd/internal/store"
	"tendd/internal/tracker"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	// In mcp/both modes stdout carries the protocol, so logs go to stderr.
	var logger *slog.Logger
	if cfg.Mode == "http" {
		logger = logging.New(cfg.LogLevel)
	} else {
		logger = logging.NewWithWriter(cfg.LogLevel, os.Stderr)
	}

	baseCtx := context.Background()
	storeInst, err := store.Open(baseCtx, cfg.StateDir)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer storeInst.DB.Close()

	tr := tracker.New(storeInst, logger)

	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	go func() {
		if err := tr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("tracker stopped", "err", err)
		}
	}()

	switch cfg.Mode {
	case "http":
		runHTTPMode(cfg, tr, logger, cancel)
	case "mcp":
		runMCPMode(tr, logger, cancel)
	case "both":
		runBothMode(cfg, tr, logger, cancel)
	}
}

func runHTTPMode(cfg *config.Config, tr *tracker.Tracker, logger *slog.Logger, cancel context.CancelFunc) {
	server := api.NewServer(cfg.Addr, cfg.AuthToken, tr, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	}

	shutdown(server, cfg, logger, cancel)
}

func runMCPMode(tr *tracker.Tracker, logger *slog.Logger, cancel context.CancelFunc) {
	mcpServer := tenddmcp.NewMCPServer(tr, logger)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("received signal, shutting down...")
		cancel()
	}()

	if err := mcpServer.Run(); err != nil {
		logger.Error("mcp server error", "err", err)
		os.Exit(1)
	}
}

func runBothMode(cfg *config.Config, tr *tracker.Tracker, logger *slog.Logger, cancel context.CancelFunc) {
	mcpServer := tenddmcp.NewMCPServer(tr, logger)
	mcpErr := make(chan error, 1)
	go func() {
		if err := mcpServer.Run(); err != nil {
			mcpErr <- err
		}
	}()

	server := api.NewServer(cfg.Addr, cfg.AuthToken, tr, logger)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	case err := <-mcpErr:
		logger.Error("mcp server error", "err", err)
	}

	shutdown(server, cfg, logger, cancel)
	logger.Info("shutdown complete")
}

func shutdown(server *api.Server, cfg *config.Config, logger *slog.Logger, cancel context.CancelFunc) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	cancel()
}
