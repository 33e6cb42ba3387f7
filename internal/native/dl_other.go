//go:build !darwin && !freebsd && !linux && !windows

package native

import (
	"github.com/woxQAQ/greetffi/pkg/abi"
)

func dlopen(path string) (uintptr, error) {
	return 0, abi.ErrUnsupportedPlatform
}

func dlsym(handle uintptr, name string) (uintptr, error) {
	return 0, abi.ErrUnsupportedPlatform
}

func dlclose(handle uintptr) error {
	return abi.ErrUnsupportedPlatform
}

// registerFunc is unreachable here: dlopen never succeeds.
func registerFunc(fptr any, addr uintptr) {}
