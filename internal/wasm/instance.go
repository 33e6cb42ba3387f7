package wasm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// instanceSeq makes instance names unique within the process; wazero rejects
// two live modules with the same name.
var instanceSeq atomic.Uint64

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl

	hostOnce sync.Once
	hostErr  error
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, one is generated).
	InstanceID string
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// wazero module instance.
	module  api.Module
	runtime *Runtime

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64
}

// Instantiate creates a new instance from a compiled module.
// Host functions are made available to the module under HostModuleName and
// the reactor initializer (_initialize) runs before Instantiate returns.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	if max := m.runtime.config.MaxInstances; max > 0 && m.runtime.ActiveInstances() >= max {
		return nil, &InstanceLimitError{Max: max}
	}

	if err := m.instantiateHostModule(ctx); err != nil {
		return nil, err
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	// Go wasip1 c-shared builds are reactors: _initialize starts the Go
	// runtime and there is no _start. Missing start functions are skipped.
	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions("_initialize")

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	instance := &Instance{
		module:    module,
		runtime:   m.runtime,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
	}

	m.runtime.StoreInstance(instanceID, module)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(module.ExportedFunctionDefinitions())),
	)

	return instance, nil
}

// instantiateHostModule registers the host module once per manager.
func (m *InstanceManager) instantiateHostModule(ctx context.Context) error {
	m.hostOnce.Do(func() {
		if m.runtime.runtime.Module(HostModuleName) != nil {
			return // registered by another manager on the same runtime
		}
		builder := m.runtime.runtime.NewHostModuleBuilder(HostModuleName)
		if _, err := m.hostFuncs.export(builder).Instantiate(ctx); err != nil {
			m.hostErr = fmt.Errorf("failed to instantiate host module: %w", err)
		}
	})
	return m.hostErr
}

// Export returns the exported function name or a FunctionNotFoundError.
func (i *Instance) Export(name string) (api.Function, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
	}
	return fn, nil
}

// Memory returns the instance's memory helper, or nil if it exports no memory.
func (i *Instance) Memory() *Memory {
	if i.module.Memory() == nil {
		return nil
	}
	return NewMemory(i.module)
}

// Close closes the instance and stops tracking it.
func (i *Instance) Close(ctx context.Context) error {
	i.runtime.DeleteInstance(i.ID)
	return i.module.Close(ctx)
}

func generateInstanceID() string {
	return fmt.Sprintf("inst-%d", instanceSeq.Add(1))
}
