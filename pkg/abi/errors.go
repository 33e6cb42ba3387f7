package abi

import (
	"errors"
	"fmt"
)

var (
	// ErrNullResult is reported when a foreign call returns the null address.
	ErrNullResult = errors.New("foreign call returned no result")

	// ErrUnterminated is reported when no NUL is found within the read bound.
	ErrUnterminated = errors.New("result is not NUL-terminated within the read limit")

	// ErrClosed is reported by calls on a closed binding.
	ErrClosed = errors.New("binding is closed")

	// ErrUnsupportedPlatform is reported when the host cannot load shared libraries.
	ErrUnsupportedPlatform = errors.New("dynamic loading is not supported on this platform")
)

// LoadError occurs when a provider cannot be found, opened, or lacks a required export.
type LoadError struct {
	Path   string
	Symbol string // empty unless a symbol failed to resolve
	Err    error
}

func (e *LoadError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("failed to load '%s': symbol '%s' not resolved: %v", e.Path, e.Symbol, e.Err)
	}
	return fmt.Sprintf("failed to load '%s': %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NativeCallError occurs when a foreign call produced no usable result.
type NativeCallError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *NativeCallError) Error() string {
	return fmt.Sprintf("call to '%s' in '%s' failed: %v", e.Symbol, e.Path, e.Err)
}

func (e *NativeCallError) Unwrap() error {
	return e.Err
}

// EncodingError occurs when an argument cannot be represented as a C string.
type EncodingError struct {
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode argument as C string: embedded NUL at offset %d", e.Offset)
}
