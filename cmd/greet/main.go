// Command greet loads a greeting provider and prints its greeting.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/woxQAQ/greetffi/internal/app"
	"github.com/woxQAQ/greetffi/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	library := flag.String("library", "", "Path to a provider artifact; overrides library.path")
	providerName := flag.String("provider", "", "Provider to call (default: default_provider)")
	name := flag.String("name", "World", "Name to greet")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "greet: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *library != "" {
		cfg.Library.Path = *library
	}

	// Initialize logger
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Debug("Starting greet",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create client", zap.Error(err))
		return 1
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("Shutdown incomplete", zap.Error(err))
		}
	}()

	if err := a.Start(ctx); err != nil {
		logger.Error("Failed to load provider", zap.Error(err))
		return 1
	}

	greeting, err := a.Greet(ctx, *providerName, *name)
	if err != nil {
		logger.Error("Greet failed", zap.Error(err))
		return 1
	}

	fmt.Println(greeting)
	return 0
}

// newLogger builds a development logger for debug and a production logger
// at the requested level otherwise. Logs go to stderr either way.
func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		if lvl, parseErr := zap.ParseAtomicLevel(level); parseErr == nil {
			cfg.Level = lvl
		}
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
