package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/okorelov/profile-auth/internal/infra/app"
	"github.com/okorelov/profile-auth/internal/infra/config"
)

func main() {
	if err := run(); err != nil {
		log.Printf("service stopped: %v", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is a local convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
