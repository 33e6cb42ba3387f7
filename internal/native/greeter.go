package native

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// Options configures a native Greeter.
type Options struct {
	// Ownership of the buffer returned by Greet.
	// With OwnershipCallerFrees, FreeString is a required export.
	Ownership abi.Ownership

	// Serialize foreign calls with a mutex. The provider's reentrancy is not
	// part of the ABI contract, so this is on by default.
	SerializeCalls bool

	// Upper bound, including the terminator, when scanning a result for its NUL.
	// 0 disables the bound.
	MaxResultBytes int
}

// DefaultOptions returns the documented ABI contract.
func DefaultOptions() *Options {
	return &Options{
		Ownership:      abi.OwnershipCallerFrees,
		SerializeCalls: true,
		MaxResultBytes: 1 << 20, // 1MB
	}
}

// symbolTable holds the provider functions, bound once at load time.
type symbolTable struct {
	greet      func(name *byte) uintptr
	freeString func(ptr uintptr) // nil when results are leaked
}

// Greeter calls a greeting provider loaded from a shared library.
type Greeter struct {
	lib    *Library
	syms   symbolTable
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	closed atomic.Bool
}

// Open loads the provider at path and binds its exports.
// Every required symbol is resolved before a Greeter is returned; on failure the
// library is unmapped again and the error is an *abi.LoadError.
func Open(path string, logger *zap.Logger, opts *Options) (*Greeter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	lib, err := OpenLibrary(path, logger)
	if err != nil {
		return nil, err
	}

	syms, err := bindSymbols(lib, opts.Ownership)
	if err != nil {
		lib.Close()
		return nil, err
	}

	g := newGreeter(lib, syms, logger, opts)

	g.logger.Info("Native provider loaded",
		zap.String("path", path),
		zap.Stringer("ownership", opts.Ownership),
		zap.Bool("serialize_calls", opts.SerializeCalls),
	)

	return g, nil
}

func newGreeter(lib *Library, syms symbolTable, logger *zap.Logger, opts *Options) *Greeter {
	return &Greeter{
		lib:    lib,
		syms:   syms,
		opts:   *opts,
		logger: logger.With(zap.String("component", "native-greeter")),
	}
}

// bindSymbols resolves the required exports and only then binds them,
// so a missing symbol never leaves a half-populated table behind.
func bindSymbols(lib *Library, ownership abi.Ownership) (symbolTable, error) {
	var t symbolTable

	greetAddr, err := lib.Lookup(abi.SymbolGreet)
	if err != nil {
		return t, err
	}

	var freeAddr uintptr
	if ownership.FreesResult() {
		freeAddr, err = lib.Lookup(abi.SymbolFreeString)
		if err != nil {
			return t, err
		}
	}

	registerFunc(&t.greet, greetAddr)
	if freeAddr != 0 {
		registerFunc(&t.freeString, freeAddr)
	}

	return t, nil
}

// Greet calls the provider's Greet export with name and returns its result.
func (g *Greeter) Greet(ctx context.Context, name string) (string, error) {
	if g.closed.Load() {
		return "", abi.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	arg, err := abi.EncodeCString(name)
	if err != nil {
		return "", err
	}

	if g.opts.SerializeCalls {
		g.mu.Lock()
		defer g.mu.Unlock()
	}

	ret := g.syms.greet(&arg[0])
	runtime.KeepAlive(arg)

	if ret == 0 {
		return "", &abi.NativeCallError{Path: g.lib.Path(), Symbol: abi.SymbolGreet, Err: abi.ErrNullResult}
	}

	result, err := readCString(ret, g.opts.MaxResultBytes)

	// Release even when decoding failed: the provider still owns an allocation.
	if g.syms.freeString != nil {
		g.syms.freeString(ret)
	}

	if err != nil {
		return "", &abi.NativeCallError{Path: g.lib.Path(), Symbol: abi.SymbolGreet, Err: err}
	}

	g.logger.Debug("Greet returned",
		zap.Int("arg_bytes", len(arg)),
		zap.Int("result_bytes", len(result)),
	)

	return result, nil
}

// Path returns the artifact path the Greeter was opened from.
func (g *Greeter) Path() string {
	return g.lib.Path()
}

// Library exposes the underlying library, e.g. to resolve diagnostic exports.
func (g *Greeter) Library() *Library {
	return g.lib
}

// Close marks the Greeter closed. The library stays mapped for the rest of the
// process: a Go c-shared provider cannot be unloaded safely.
func (g *Greeter) Close(ctx context.Context) error {
	if g.closed.Swap(true) {
		return nil
	}
	g.logger.Debug("Native provider closed", zap.String("path", g.lib.Path()))
	return nil
}
