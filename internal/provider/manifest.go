package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// ManifestFile is the manifest name looked up in each provider directory.
const ManifestFile = "provider.yaml"

// Manifest represents the provider.yaml structure.
type Manifest struct {
	Name      string            `yaml:"name"`
	Version   string            `yaml:"version"`
	Backend   abi.Backend       `yaml:"backend"`
	Ownership abi.Ownership     `yaml:"ownership"`
	Artifacts map[string]string `yaml:"artifacts"` // platform -> file
	Wasm      WasmConfig        `yaml:"wasm"`
	Author    string            `yaml:"author"`
	License   string            `yaml:"license"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds the wasm artifact of a provider.
type WasmConfig struct {
	File string `yaml:"file"`
}

// ParseManifest reads and parses provider.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields and normalizes backend and ownership.
// A native manifest must name an artifact for the running platform.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return m.invalid("name", "name is required")
	}

	if m.Version == "" {
		return m.invalid("version", "version is required")
	}

	backend, err := abi.ParseBackend(string(m.Backend))
	if err != nil {
		return m.invalid("backend", err.Error())
	}
	m.Backend = backend

	ownership, err := abi.ParseOwnership(string(m.Ownership))
	if err != nil {
		return m.invalid("ownership", err.Error())
	}
	m.Ownership = ownership

	switch m.Backend {
	case abi.BackendWasm:
		if m.Wasm.File == "" {
			return m.invalid("wasm.file", "wasm.file is required for the wasm backend")
		}
	default:
		if len(m.Artifacts) == 0 {
			return m.invalid("artifacts", "at least one artifact is required for the native backend")
		}
		for _, key := range m.platformKeys() {
			if _, err := abi.ParsePlatform(key); err != nil {
				return m.invalid("artifacts", err.Error())
			}
		}
		platform := abi.CurrentPlatform().String()
		if m.Artifacts[platform] == "" {
			return m.invalid("artifacts", fmt.Sprintf("no artifact for platform %s", platform))
		}
	}

	if _, err := os.Stat(m.ArtifactPath()); os.IsNotExist(err) {
		return &ArtifactNotFoundError{
			ManifestPath: m.Path(),
			File:         m.artifactFile(),
		}
	}

	return nil
}

func (m *Manifest) invalid(field, message string) error {
	return &ManifestValidationError{
		Path:    m.Path(),
		Field:   field,
		Message: message,
	}
}

// platformKeys returns the artifact keys in a stable order.
func (m *Manifest) platformKeys() []string {
	keys := make([]string, 0, len(m.Artifacts))
	for k := range m.Artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Manifest) artifactFile() string {
	if m.Backend == abi.BackendWasm {
		return m.Wasm.File
	}
	return m.Artifacts[abi.CurrentPlatform().String()]
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// ArtifactPath returns the path to the artifact bound on this platform.
func (m *Manifest) ArtifactPath() string {
	file := m.artifactFile()
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.dir, file)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}

// artifactManifest describes a bare artifact that has no provider.yaml.
func artifactManifest(name, path string, backend abi.Backend, ownership abi.Ownership) *Manifest {
	m := &Manifest{
		Name:      name,
		Version:   "0.0.0",
		Backend:   backend,
		Ownership: ownership,
		dir:       filepath.Dir(path),
	}
	file := filepath.Base(path)
	if backend == abi.BackendWasm {
		m.Wasm.File = file
	} else {
		m.Artifacts = map[string]string{abi.CurrentPlatform().String(): file}
	}
	return m
}
