package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/growthspect/contact-intake/internal/core"
	"github.com/growthspect/contact-intake/internal/di"
	"github.com/growthspect/contact-intake/internal/httpserver"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Optional .env for local development; environment wins in production
	_ = godotenv.Load()

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	server *httpserver.Server,
	store core.RateLimitStore,
) error {
	defer logger.Sync()

	// Start the server
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop server", zap.Error(err))
	}

	// Stop the store's janitor if it runs one
	if stopper, ok := store.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
