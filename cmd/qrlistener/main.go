package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vendorflow/vendorflow/internal/app"
	"github.com/vendorflow/vendorflow/internal/mqttbridge"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping qr listener startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := mqttbridge.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(&app.Config{LogFormat: cfg.LogFormat, LogLevel: cfg.LogLevel})

	listener := mqttbridge.NewListener(*cfg, mqttbridge.NewForwarder(*cfg, nil), logger)
	if err := listener.Run(ctx); err != nil {
		logger.Error("qr listener", slog.Any("error", err))
		os.Exit(1)
	}
}
