package native

import (
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// Library is a shared library mapped into the process.
type Library struct {
	path   string
	handle uintptr
	logger *zap.Logger
}

// OpenLibrary maps the shared library at path.
// Relative paths are resolved against the working directory rather than the
// loader's search path, so "libgreet.so" means ./libgreet.so.
func OpenLibrary(path string, logger *zap.Logger) (*Library, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &abi.LoadError{Path: path, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, &abi.LoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &abi.LoadError{Path: path, Err: errors.New("is a directory")}
	}

	handle, err := dlopen(abs)
	if err != nil {
		return nil, &abi.LoadError{Path: path, Err: err}
	}

	lib := &Library{
		path:   path,
		handle: handle,
		logger: logger.With(zap.String("component", "native-library")),
	}

	lib.logger.Debug("Shared library mapped",
		zap.String("path", abs),
		zap.Int64("size_bytes", info.Size()),
	)

	return lib, nil
}

// Lookup resolves an exported symbol to its address.
func (l *Library) Lookup(name string) (uintptr, error) {
	if l.handle == 0 {
		return 0, &abi.LoadError{Path: l.path, Symbol: name, Err: abi.ErrClosed}
	}

	addr, err := dlsym(l.handle, name)
	if err != nil {
		return 0, &abi.LoadError{Path: l.path, Symbol: name, Err: err}
	}
	if addr == 0 {
		return 0, &abi.LoadError{Path: l.path, Symbol: name, Err: errors.New("symbol resolved to null")}
	}

	return addr, nil
}

// Path returns the path the library was opened with.
func (l *Library) Path() string {
	return l.path
}

// Close unmaps the library. Any function bound from it must not be called afterwards.
// Safe to call multiple times.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := dlclose(l.handle)
	l.handle = 0
	if err != nil {
		l.logger.Warn("Failed to unmap shared library",
			zap.String("path", l.path),
			zap.Error(err),
		)
	}
	return err
}
