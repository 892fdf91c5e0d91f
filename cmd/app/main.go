package main

import (
	"github.com/joho/godotenv"
	"os"
	"os/signal"
	"syscall"
	"time"
	"trashiq/internal/config"
	"trashiq/internal/config/env"
	"trashiq/pkg/log"
)

func main() {
	// .env must be loaded before the logger reads LOG_LEVEL and APP_ENV
	envErr := godotenv.Load()

	logger := log.NewLogger()
	if envErr != nil {
		logger.Warnf("No .env file loaded: %v", envErr)
	}

	cfg := env.Load()
	fiberApp := config.NewFiber(logger, cfg.BodyLimitMB)
	validator := config.NewValidator()

	logger.Info("Starting TrashIQ Detection Server...")

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithConfig(cfg),
		config.WithValidator(validator),
		config.WithCategoryTable(),
		config.WithDetector(),
		config.WithResultCache(),
		config.WithMiddleware(),
		config.WithUtils(),
	)
	if err != nil {
		log.Fatal(log.Fields{"error": err.Error()}, "Failed to initialize server")
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatal(log.Fields{"error": err.Error(), "port": cfg.Port}, "Error starting server")
		}
	}()

	logger.Infof("Server listening on port %s", cfg.Port)

	<-sigChan
	logger.Info("Shutting down server...")
	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
