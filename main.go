package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/clubmint/allowgate/app"
	"github.com/clubmint/allowgate/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("application run failed", "error", err)
	}

	if err := application.Close(); err != nil {
		application.Logger.Error("shutdown error", "error", err)
	}
	application.Logger.Info("application shut down gracefully")
}
