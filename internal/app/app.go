// Package app wires configuration, the wasm runtime and the provider manager
// into the greeting client.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/woxQAQ/greetffi/internal/config"
	"github.com/woxQAQ/greetffi/internal/provider"
	"github.com/woxQAQ/greetffi/internal/wasm"
	"github.com/woxQAQ/greetffi/pkg/abi"
)

type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	wasmRuntime *wasm.Runtime
	providers   *provider.Manager
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	// Initialize Wasm runtime.
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:  cfg.Wasm.MemoryPages,
		DebugEnabled: cfg.Wasm.Debug,
		CacheDir:     cfg.Wasm.CacheDir,
		MaxInstances: cfg.Wasm.MaxInstances,
	}

	wasmRuntime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	providers := provider.NewManager(cfg, wasmRuntime, wasm.NewHostFunctions(logger), logger)

	logger.Info("Greeting client initialized",
		zap.String("default_provider", cfg.DefaultProvider),
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
	)

	return &App{
		cfg:         cfg,
		logger:      logger,
		wasmRuntime: wasmRuntime,
		providers:   providers,
	}, nil
}

// Start registers providers. An explicit library.path is bound first under
// the default provider name, so it takes precedence over a manifest of the
// same name. When neither supplies the default provider, the platform
// artifact in library.dir is bound instead.
func (a *App) Start(ctx context.Context) error {
	lib := a.cfg.Library

	if lib.Path != "" {
		if _, err := a.providers.LoadArtifact(ctx, a.cfg.DefaultProvider, lib.Path, lib.BackendKind()); err != nil {
			return err
		}
	}

	if err := a.providers.LoadAll(ctx); err != nil {
		return err
	}

	if _, err := a.providers.GetProvider(a.cfg.DefaultProvider); err == nil {
		return nil
	}

	path, err := DefaultArtifactPath(lib)
	if err != nil {
		return err
	}

	a.logger.Info("Falling back to platform artifact",
		zap.String("provider", a.cfg.DefaultProvider),
		zap.String("path", path),
	)

	_, err = a.providers.LoadArtifact(ctx, a.cfg.DefaultProvider, path, lib.BackendKind())
	return err
}

// DefaultArtifactPath returns <dir>/<name><ext>: the platform shared library
// extension for the native backend, .wasm for the wasm backend.
func DefaultArtifactPath(lib config.LibraryConfig) (string, error) {
	if lib.BackendKind() == abi.BackendWasm {
		return filepath.Join(lib.Dir, lib.Name+".wasm"), nil
	}

	platform := abi.CurrentPlatform()
	if !platform.Valid() {
		return "", abi.ErrUnsupportedPlatform
	}
	return filepath.Join(lib.Dir, platform.ArtifactName(lib.Name)), nil
}

// Greet calls providerName, or the default provider when it is empty.
func (a *App) Greet(ctx context.Context, providerName, name string) (string, error) {
	if providerName == "" {
		providerName = a.cfg.DefaultProvider
	}
	return a.providers.Greet(ctx, providerName, name)
}

// Providers returns the provider manager.
func (a *App) Providers() *provider.Manager {
	return a.providers
}

// Close gracefully shuts down every provider and the Wasm runtime.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("Shutting down greeting client")

	if err := a.providers.Shutdown(ctx); err != nil {
		a.logger.Error("Failed to shutdown providers", zap.Error(err))
		return err
	}

	a.logger.Info("Greeting client shutdown complete")
	return nil
}
