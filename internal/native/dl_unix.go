//go:build darwin || freebsd || linux

package native

import (
	"github.com/ebitengine/purego"
)

// dlopen maps a shared library on Unix-like systems.
// Symbols are bound eagerly so a broken artifact fails at load, not at first call.
func dlopen(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

// dlsym retrieves a symbol from the loaded library.
func dlsym(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func dlclose(handle uintptr) error {
	return purego.Dlclose(handle)
}

// registerFunc binds fptr (a pointer to a func variable) to the C function at addr.
func registerFunc(fptr any, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}
