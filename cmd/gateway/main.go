// cmd/gateway/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/gateway"
	"github.com/tamzrod/modbus-gateway/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: gateway <config.yaml|config.toml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	config.Normalize(cfg)

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// --------------------
	// Build + run
	// --------------------

	g, err := gateway.Build(cfg, logger)
	if err != nil {
		logger.Fatal("gateway build failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		zap.String("config", cfgPath),
		zap.String("source", cfg.Source.Endpoint),
		zap.String("sink", cfg.Sink.URL),
	)

	if err := g.Run(ctx); err != nil {
		logger.Error("gateway stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
