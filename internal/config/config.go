package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// EnvPrefix prefixes environment overrides, e.g. GREET_LIBRARY_PATH.
const EnvPrefix = "GREET"

// validate is shared; validator caches struct metadata.
var validate = validator.New()

type Config struct {
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	ProviderPaths   []string      `mapstructure:"provider_paths"`
	DefaultProvider string        `mapstructure:"default_provider"`
	Library         LibraryConfig `mapstructure:"library"`
	Wasm            WasmConfig    `mapstructure:"wasm"`
}

// LibraryConfig selects the artifact used when no provider manifest names one.
type LibraryConfig struct {
	// Explicit artifact path. Takes precedence over Dir/Name.
	Path string `mapstructure:"path"`
	// Directory holding the platform default artifact.
	Dir string `mapstructure:"dir"`
	// Artifact base name; the platform extension is appended.
	Name string `mapstructure:"name" validate:"required"`
	// native or wasm.
	Backend string `mapstructure:"backend" validate:"oneof=native wasm"`
	// caller-frees or leak.
	Ownership string `mapstructure:"ownership" validate:"oneof=caller-frees leak"`
	// Guard every foreign call with a mutex.
	SerializeCalls bool `mapstructure:"serialize_calls"`
	// Upper bound on a result, terminator included. 0 disables it.
	MaxResultBytes int `mapstructure:"max_result_bytes" validate:"min=0,max=4294967295"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages" validate:"max=65536"`
	// Keep DWARF stack traces in traps.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances" validate:"min=0"`
	// Per-call execution timeout (seconds), 0 disables it.
	ExecutionTimeout int `mapstructure:"execution_timeout" validate:"min=0"`
}

// Load reads configuration from defaults, the optional file at configPath
// and GREET_* environment variables, in increasing precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("provider_paths", []string{"./providers"})
	v.SetDefault("default_provider", "greet")

	v.SetDefault("library.path", "")
	v.SetDefault("library.dir", ".")
	v.SetDefault("library.name", "libgreet")
	v.SetDefault("library.backend", string(abi.BackendNative))
	v.SetDefault("library.ownership", string(abi.OwnershipCallerFrees))
	v.SetDefault("library.serialize_calls", true)
	v.SetDefault("library.max_result_bytes", 1<<20) // 1MB

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.execution_timeout", 30)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config '%s': %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// BackendKind returns the parsed library backend.
func (l LibraryConfig) BackendKind() abi.Backend {
	b, _ := abi.ParseBackend(l.Backend)
	return b
}

// OwnershipKind returns the parsed ownership protocol.
func (l LibraryConfig) OwnershipKind() abi.Ownership {
	o, _ := abi.ParseOwnership(l.Ownership)
	return o
}

// Timeout returns ExecutionTimeout as a duration.
func (w WasmConfig) Timeout() time.Duration {
	return time.Duration(w.ExecutionTimeout) * time.Second
}
