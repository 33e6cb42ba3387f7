package provider

import (
	"context"
	"time"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// Greeter is a loaded greeting binding, native or wasm.
type Greeter interface {
	Greet(ctx context.Context, name string) (string, error)
	Close(ctx context.Context) error
}

// Provider is a loaded greeting provider with its manifest and binding.
type Provider struct {
	// Manifest is the parsed provider metadata
	Manifest *Manifest

	// Greeter is the bound artifact
	Greeter Greeter

	// LoadedAt is the timestamp when the provider was loaded
	LoadedAt time.Time
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.Manifest.Name
}

// Version returns the provider version.
func (p *Provider) Version() string {
	return p.Manifest.Version
}

// Backend returns the backend hosting the provider.
func (p *Provider) Backend() abi.Backend {
	return p.Manifest.Backend
}

// Ownership returns the result ownership protocol the binding follows.
func (p *Provider) Ownership() abi.Ownership {
	return p.Manifest.Ownership
}

// ArtifactPath returns the file the binding was loaded from.
func (p *Provider) ArtifactPath() string {
	return p.Manifest.ArtifactPath()
}
