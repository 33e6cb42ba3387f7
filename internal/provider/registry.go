package provider

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// Registry manages loaded providers.
type Registry struct {
	sync.RWMutex
	providers map[string]*Provider        // name -> provider
	byBackend map[abi.Backend][]*Provider // backend -> providers
	logger    *zap.Logger
}

// NewRegistry creates a new provider registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		providers: make(map[string]*Provider),
		byBackend: make(map[abi.Backend][]*Provider),
		logger:    logger.With(zap.String("component", "provider-registry")),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider *Provider) error {
	r.Lock()
	defer r.Unlock()

	name := provider.Manifest.Name

	if _, exists := r.providers[name]; exists {
		return &ProviderAlreadyRegisteredError{ProviderName: name}
	}

	r.providers[name] = provider

	backend := provider.Manifest.Backend
	r.byBackend[backend] = append(r.byBackend[backend], provider)

	r.logger.Info("Provider registered",
		zap.String("name", name),
		zap.Stringer("backend", backend),
	)

	return nil
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (*Provider, bool) {
	r.RLock()
	defer r.RUnlock()

	provider, ok := r.providers[name]
	return provider, ok
}

// LookupByBackend finds providers hosted by backend, in registration order.
func (r *Registry) LookupByBackend(backend abi.Backend) []*Provider {
	r.RLock()
	defer r.RUnlock()

	providers, ok := r.byBackend[backend]
	if !ok || len(providers) == 0 {
		return []*Provider{}
	}
	// Return copy to avoid race conditions
	result := make([]*Provider, len(providers))
	copy(result, providers)
	return result
}

// List returns all registered providers sorted by name.
func (r *Registry) List() []*Provider {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Provider, 0, len(r.providers))
	for _, provider := range r.providers {
		result = append(result, provider)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.Name < result[j].Manifest.Name
	})
	return result
}

// Unregister removes a provider from the registry and returns it.
// It does not close the provider's greeter.
func (r *Registry) Unregister(name string) (*Provider, bool) {
	r.Lock()
	defer r.Unlock()

	provider, ok := r.providers[name]
	if !ok {
		return nil, false
	}

	backend := provider.Manifest.Backend
	providers := r.byBackend[backend]
	for i, p := range providers {
		if p.Manifest.Name == name {
			r.byBackend[backend] = append(providers[:i], providers[i+1:]...)
			break
		}
	}

	delete(r.providers, name)

	r.logger.Info("Provider unregistered", zap.String("name", name))

	return provider, true
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.providers)
}
