//go:build windows

package native

import (
	"github.com/ebitengine/purego"
	"golang.org/x/sys/windows"
)

// dlopen maps a DLL into the process.
func dlopen(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

// dlsym retrieves an exported procedure from the DLL.
func dlsym(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func dlclose(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

// registerFunc binds fptr (a pointer to a func variable) to the procedure at addr.
func registerFunc(fptr any, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}
