package native

import (
	"unsafe"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// readCString copies the NUL-terminated string at ptr.
//
// The terminator is the only bound the C protocol offers. limit caps the scan
// so a provider that forgets the terminator produces an error instead of a read
// across unrelated memory; limit <= 0 disables the cap.
func readCString(ptr uintptr, limit int) (string, error) {
	// ptr is C-allocated memory the Go GC never moves; vet's unsafeptr
	// warning on this conversion is expected.
	base := unsafe.Pointer(ptr)

	n := 0
	for *(*byte)(unsafe.Add(base, n)) != 0 {
		n++
		if limit > 0 && n >= limit {
			return "", abi.ErrUnterminated
		}
	}

	return string(unsafe.Slice((*byte)(base), n)), nil
}
