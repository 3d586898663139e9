package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gembot/internal/app"
)

func main() {
	// Optional .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, configPath); err != nil {
		fmt.Fprintln(os.Stderr, "gembot:", err)
		os.Exit(1)
	}
}
