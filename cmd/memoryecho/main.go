package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"memoryecho/internal/app"
	"memoryecho/pkg/config"
	"memoryecho/pkg/logger"
	"memoryecho/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var version = "dev"

func main() {
	_ = godotenv.Load(".env")

	flags := config.ParseConfigFlags()
	eff, err := config.LoadEffective(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithLevel(eff.Config.Logging.Level)

	a, err := app.New(eff, version)
	if err != nil {
		shutdown.Abort("startup failed", err, eff.DBPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server failed", err, eff.DBPath)
	}
	logger.Info("server_stopped")
}
