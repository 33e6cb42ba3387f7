package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/greetffi/internal/native"
	"github.com/woxQAQ/greetffi/internal/wasm"
	"github.com/woxQAQ/greetffi/pkg/abi"
)

// LoaderOptions holds the binding options applied to every provider.
// A manifest's ownership overrides the ownership set here.
type LoaderOptions struct {
	Native native.Options
	Wasm   wasm.GreeterOptions
}

// DefaultLoaderOptions returns the defaults of both backends.
func DefaultLoaderOptions() *LoaderOptions {
	return &LoaderOptions{
		Native: *native.DefaultOptions(),
		Wasm:   *wasm.DefaultGreeterOptions(),
	}
}

// Loader handles loading providers from disk.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	instances    *wasm.InstanceManager
	opts         LoaderOptions
	logger       *zap.Logger
}

// NewLoader creates a new provider loader.
func NewLoader(runtime *wasm.Runtime, instances *wasm.InstanceManager, logger *zap.Logger, opts *LoaderOptions) *Loader {
	if opts == nil {
		opts = DefaultLoaderOptions()
	}
	return &Loader{
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		instances:    instances,
		opts:         *opts,
		logger:       logger.With(zap.String("component", "provider-loader")),
	}
}

// LoadProvider loads a single provider from a directory holding provider.yaml.
func (l *Loader) LoadProvider(ctx context.Context, dir string) (*Provider, error) {
	l.logger.Debug("Loading provider", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	return l.load(ctx, manifest)
}

// LoadArtifact binds a bare artifact that has no manifest, using the
// loader's default ownership.
func (l *Loader) LoadArtifact(ctx context.Context, name, path string, backend abi.Backend) (*Provider, error) {
	ownership := l.opts.Native.Ownership
	if backend == abi.BackendWasm {
		ownership = l.opts.Wasm.Ownership
	}

	return l.load(ctx, artifactManifest(name, path, backend, ownership))
}

func (l *Loader) load(ctx context.Context, manifest *Manifest) (*Provider, error) {
	l.logger.Info("Loading provider",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Stringer("backend", manifest.Backend),
		zap.String("artifact", manifest.ArtifactPath()),
	)

	greeter, err := l.bind(ctx, manifest)
	if err != nil {
		return nil, &ProviderLoadError{
			ProviderName: manifest.Name,
			Err:          err,
		}
	}

	provider := &Provider{
		Manifest: manifest,
		Greeter:  greeter,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Provider loaded successfully",
		zap.String("name", manifest.Name),
		zap.Stringer("ownership", manifest.Ownership),
	)

	return provider, nil
}

// bind opens the artifact with the backend the manifest names.
func (l *Loader) bind(ctx context.Context, manifest *Manifest) (Greeter, error) {
	path := manifest.ArtifactPath()

	switch manifest.Backend {
	case abi.BackendWasm:
		if l.instances == nil {
			return nil, fmt.Errorf("wasm backend is not available")
		}
		compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, path)
		if err != nil {
			return nil, &abi.LoadError{Path: path, Err: err}
		}
		opts := l.opts.Wasm
		opts.Ownership = manifest.Ownership
		g, err := wasm.NewGreeter(ctx, l.instances, compiled.Name, l.logger, &opts)
		if err != nil {
			return nil, err
		}
		return g, nil

	case abi.BackendNative, "":
		opts := l.opts.Native
		opts.Ownership = manifest.Ownership
		g, err := native.Open(path, l.logger, &opts)
		if err != nil {
			return nil, err
		}
		return g, nil

	default:
		return nil, fmt.Errorf("unknown backend: %q", manifest.Backend)
	}
}

// DiscoverProviders scans directories for providers. Directories that fail to
// load are logged and skipped; NoProvidersFoundError carries their errors
// when nothing loaded at all.
func (l *Loader) DiscoverProviders(ctx context.Context, paths []string) ([]*Provider, error) {
	var providers []*Provider
	var errs error

	for _, basePath := range paths {
		l.logger.Debug("Scanning provider directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Provider path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			providerDir := filepath.Join(basePath, entry.Name())

			provider, err := l.LoadProvider(ctx, providerDir)
			if err != nil {
				l.logger.Error("Failed to load provider",
					zap.String("dir", providerDir),
					zap.Error(err),
				)
				errs = multierr.Append(errs, err)
				continue
			}

			providers = append(providers, provider)
		}
	}

	if len(providers) > 0 && errs != nil {
		l.logger.Warn("Some providers failed to load",
			zap.Int("loaded", len(providers)),
			zap.Int("failed", len(multierr.Errors(errs))),
		)
	}

	if len(providers) == 0 {
		return nil, &NoProvidersFoundError{Paths: paths, Err: errs}
	}

	return providers, nil
}
