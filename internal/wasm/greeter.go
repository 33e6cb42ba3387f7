package wasm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// GreeterOptions configures a wasm Greeter.
type GreeterOptions struct {
	// Ownership of the buffer returned by Greet.
	Ownership abi.Ownership

	// Upper bound, including the terminator, when scanning a result. 0 scans
	// to the end of linear memory.
	MaxResultBytes uint32

	// Timeout per Greet call; 0 disables it. A call that times out closes the
	// instance, so the Greeter is unusable afterwards.
	Timeout time.Duration
}

// DefaultGreeterOptions returns the documented ABI contract.
func DefaultGreeterOptions() *GreeterOptions {
	return &GreeterOptions{
		Ownership:      abi.OwnershipCallerFrees,
		MaxResultBytes: 1 << 20, // 1MB
		Timeout:        30 * time.Second,
	}
}

// Greeter calls a greeting provider compiled to wasip1.
//
// Arguments travel through guest memory: the host asks the guest to Malloc a
// buffer, writes the encoded name into it, calls Greet with its address and
// hands both the argument and the result back through FreeString.
type Greeter struct {
	instance   *Instance
	memory     *Memory
	greet      api.Function
	malloc     api.Function
	freeString api.Function
	opts       GreeterOptions
	logger     *zap.Logger

	// A module instance is not safe for concurrent calls.
	mu     sync.Mutex
	closed bool
}

// NewGreeter instantiates the compiled module moduleName and binds its exports.
// Missing exports are reported as *abi.LoadError and the instance is closed again.
func NewGreeter(ctx context.Context, instances *InstanceManager, moduleName string, logger *zap.Logger, opts *GreeterOptions) (*Greeter, error) {
	if opts == nil {
		opts = DefaultGreeterOptions()
	}

	inst, err := instances.Instantiate(ctx, &InstanceConfig{ModuleName: moduleName})
	if err != nil {
		return nil, &abi.LoadError{Path: moduleName, Err: err}
	}

	g := &Greeter{
		instance: inst,
		opts:     *opts,
		logger: logger.With(
			zap.String("component", "wasm-greeter"),
			zap.String("instance_id", inst.ID),
		),
	}

	if err := g.bindExports(); err != nil {
		inst.Close(ctx)
		return nil, err
	}

	g.logger.Info("Wasm provider loaded",
		zap.String("module", moduleName),
		zap.Stringer("ownership", opts.Ownership),
	)

	return g, nil
}

// bindExports resolves every export the host relies on.
// FreeString is required regardless of ownership: argument buffers are
// allocated in the guest and always released through it.
func (g *Greeter) bindExports() error {
	exports := []struct {
		name string
		fn   *api.Function
	}{
		{abi.SymbolGreet, &g.greet},
		{abi.SymbolMalloc, &g.malloc},
		{abi.SymbolFreeString, &g.freeString},
	}

	for _, e := range exports {
		fn, err := g.instance.Export(e.name)
		if err != nil {
			return &abi.LoadError{Path: g.instance.Name, Symbol: e.name, Err: err}
		}
		*e.fn = fn
	}

	g.memory = g.instance.Memory()
	if g.memory == nil {
		return &abi.LoadError{Path: g.instance.Name, Symbol: "memory", Err: errors.New("module exports no memory")}
	}

	return nil
}

// Greet calls the guest's Greet export with name and returns its result.
func (g *Greeter) Greet(ctx context.Context, name string) (string, error) {
	arg, err := abi.EncodeCString(name)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return "", abi.ErrClosed
	}

	// A request cancelled before the call must not close the shared instance.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	argPtr, err := g.call(ctx, g.malloc, abi.SymbolMalloc, uint64(len(arg)))
	if err != nil {
		return "", err
	}
	if argPtr == 0 {
		return "", g.callError(abi.SymbolMalloc, abi.ErrNullResult)
	}
	defer g.release(ctx, argPtr)

	if err := g.memory.WriteBytes(argPtr, arg); err != nil {
		return "", g.callError(abi.SymbolGreet, err)
	}

	ret, err := g.call(ctx, g.greet, abi.SymbolGreet, uint64(argPtr))
	if err != nil {
		return "", err
	}
	if ret == 0 {
		return "", g.callError(abi.SymbolGreet, abi.ErrNullResult)
	}

	result, err := g.memory.ReadCString(ret, g.opts.MaxResultBytes)

	if g.opts.Ownership.FreesResult() {
		g.release(ctx, ret)
	}

	if err != nil {
		return "", g.callError(abi.SymbolGreet, err)
	}

	g.logger.Debug("Greet returned",
		zap.Int("arg_bytes", len(arg)),
		zap.Int("result_bytes", len(result)),
	)

	return result, nil
}

// LiveAllocations calls the optional LiveAllocations export of reference providers.
func (g *Greeter) LiveAllocations(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0, abi.ErrClosed
	}

	fn, err := g.instance.Export(abi.SymbolLiveAllocations)
	if err != nil {
		return 0, err
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return 0, g.callError(abi.SymbolLiveAllocations, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return int64(results[0]), nil
}

// call invokes fn and returns its first result as a guest address.
func (g *Greeter) call(ctx context.Context, fn api.Function, symbol string, params ...uint64) (uint32, error) {
	results, err := fn.Call(ctx, params...)
	if err != nil {
		// The runtime closes the module when ctx is done mid-call.
		if ctxErr := ctx.Err(); ctxErr != nil {
			g.markDead()
			if errors.Is(ctxErr, context.DeadlineExceeded) && g.opts.Timeout > 0 {
				return 0, &TimeoutError{Function: symbol, Duration: g.opts.Timeout}
			}
			return 0, ctxErr
		}
		return 0, g.callError(symbol, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return uint32(results[0]), nil
}

// release hands ptr back to the guest. Failures are logged, not returned:
// the greeting itself already succeeded or failed on its own.
func (g *Greeter) release(ctx context.Context, ptr uint32) {
	if g.closed {
		return
	}
	if _, err := g.freeString.Call(ctx, uint64(ptr)); err != nil {
		g.logger.Warn("FreeString failed",
			zap.Uint32("ptr", ptr),
			zap.Error(err),
		)
	}
}

func (g *Greeter) callError(symbol string, err error) error {
	return &abi.NativeCallError{Path: g.instance.Name, Symbol: symbol, Err: err}
}

func (g *Greeter) markDead() {
	g.closed = true
	g.instance.runtime.DeleteInstance(g.instance.ID)
	g.logger.Warn("Wasm instance closed by context, provider unusable")
}

// Close closes the underlying instance. Safe to call multiple times.
func (g *Greeter) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	return g.instance.Close(ctx)
}
