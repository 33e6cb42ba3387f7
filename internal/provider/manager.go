package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/greetffi/internal/config"
	"github.com/woxQAQ/greetffi/internal/native"
	"github.com/woxQAQ/greetffi/internal/wasm"
	"github.com/woxQAQ/greetffi/pkg/abi"
)

// Manager manages provider lifecycle.
type Manager struct {
	cfg      *config.Config
	runtime  *wasm.Runtime
	loader   *Loader
	registry *Registry
	logger   *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new provider manager. Wasm providers share runtime.
func NewManager(
	cfg *config.Config,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctionsImpl,
	logger *zap.Logger,
) *Manager {
	instances := wasm.NewInstanceManager(runtime, hostFuncs, logger)
	return &Manager{
		cfg:      cfg,
		runtime:  runtime,
		loader:   NewLoader(runtime, instances, logger, LoaderOptionsFromConfig(cfg)),
		registry: NewRegistry(logger),
		logger:   logger.With(zap.String("component", "provider-manager")),
	}
}

// LoaderOptionsFromConfig maps the library and wasm sections onto binding options.
func LoaderOptionsFromConfig(cfg *config.Config) *LoaderOptions {
	ownership := cfg.Library.OwnershipKind()
	return &LoaderOptions{
		Native: native.Options{
			Ownership:      ownership,
			SerializeCalls: cfg.Library.SerializeCalls,
			MaxResultBytes: cfg.Library.MaxResultBytes,
		},
		Wasm: wasm.GreeterOptions{
			Ownership:      ownership,
			MaxResultBytes: uint32(cfg.Library.MaxResultBytes),
			Timeout:        cfg.Wasm.Timeout(),
		},
	}
}

// LoadAll discovers and loads all providers from configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("providers already loaded")
	}

	m.logger.Info("Loading providers",
		zap.Strings("paths", m.cfg.ProviderPaths),
	)

	providers, err := m.loader.DiscoverProviders(ctx, m.cfg.ProviderPaths)
	if err != nil {
		// An empty provider path is not fatal; an explicit artifact may follow.
		if notFound, ok := err.(*NoProvidersFoundError); ok {
			m.logger.Warn("No providers found in configured paths",
				zap.Strings("paths", m.cfg.ProviderPaths),
				zap.NamedError("cause", notFound.Err),
			)
			m.loaded = true
			return nil
		}
		return err
	}

	for _, provider := range providers {
		if err := m.registry.Register(provider); err != nil {
			m.logger.Error("Failed to register provider",
				zap.String("name", provider.Manifest.Name),
				zap.Error(err),
			)
			m.closeGreeter(ctx, provider)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("Providers loaded successfully",
		zap.Int("count", m.registry.Count()),
	)

	return nil
}

// LoadArtifact binds a bare artifact and registers it under name.
func (m *Manager) LoadArtifact(ctx context.Context, name, path string, backend abi.Backend) (*Provider, error) {
	provider, err := m.loader.LoadArtifact(ctx, name, path, backend)
	if err != nil {
		return nil, err
	}

	if err := m.Register(provider); err != nil {
		m.closeGreeter(ctx, provider)
		return nil, err
	}

	return provider, nil
}

// Register adds an already loaded provider.
func (m *Manager) Register(provider *Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.registry.Register(provider)
}

// GetProvider retrieves a provider by name.
func (m *Manager) GetProvider(name string) (*Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, ok := m.registry.Get(name)
	if !ok {
		return nil, &ProviderNotFoundError{ProviderName: name}
	}

	return provider, nil
}

// FindProviderForBackend finds a provider hosted by backend.
func (m *Manager) FindProviderForBackend(backend abi.Backend) (*Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	providers := m.registry.LookupByBackend(backend)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no provider found for backend '%s'", backend)
	}

	// First registered wins
	return providers[0], nil
}

// Greet calls the named provider.
func (m *Manager) Greet(ctx context.Context, providerName, name string) (string, error) {
	provider, err := m.GetProvider(providerName)
	if err != nil {
		return "", err
	}

	return provider.Greeter.Greet(ctx, name)
}

// Shutdown closes every provider, then the wasm runtime.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Shutting down provider manager")

	var errs error
	for _, provider := range m.registry.List() {
		m.registry.Unregister(provider.Manifest.Name)
		if err := provider.Greeter.Close(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close provider '%s': %w", provider.Manifest.Name, err))
		}
	}

	if m.runtime != nil {
		if err := m.runtime.Close(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to shutdown runtime: %w", err))
		}
	}

	if errs != nil {
		m.logger.Error("Provider manager shutdown incomplete", zap.Error(errs))
		return errs
	}

	m.logger.Info("Provider manager shutdown complete")
	return nil
}

func (m *Manager) closeGreeter(ctx context.Context, provider *Provider) {
	if err := provider.Greeter.Close(ctx); err != nil {
		m.logger.Warn("Failed to close provider",
			zap.String("name", provider.Manifest.Name),
			zap.Error(err),
		)
	}
}

// Registry returns the provider registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether providers have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
