//go:build wasip1

// Command libgreet-wasm is the greeting provider compiled as a wasip1 reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o libgreet.wasm ./cmd/libgreet-wasm
//
// Addresses cross the boundary as uint32 offsets into linear memory. Every
// buffer handed to the host, including those returned by Malloc, stays
// pinned in allocs until the host passes it back to FreeString.
package main

import (
	"fmt"
	"unsafe"
)

//go:wasmimport host log_message
func hostLog(level, ptr, length uint32)

const (
	logDebug uint32 = iota
	logInfo
)

var allocs = map[uint32][]byte{}

func pin(buf []byte) uint32 {
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	allocs[ptr] = buf
	return ptr
}

func logf(level uint32, format string, args ...any) {
	msg := []byte(fmt.Sprintf(format, args...))
	if len(msg) == 0 {
		return
	}
	hostLog(level, uint32(uintptr(unsafe.Pointer(&msg[0]))), uint32(len(msg)))
}

// Malloc returns a buffer of size bytes owned by the host until FreeString.
//
//go:wasmexport Malloc
func Malloc(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	return pin(make([]byte, size))
}

// Greet returns the address of "Hello, <name>!\0", or 0 for a null name or "fail".
//
//go:wasmexport Greet
func Greet(namePtr uint32) uint32 {
	if namePtr == 0 {
		return 0
	}

	name := cString(namePtr)
	if name == "fail" {
		logf(logInfo, "refusing to greet %q", name)
		return 0
	}

	greeting := fmt.Sprintf("Hello, %s!", name)
	buf := make([]byte, len(greeting)+1)
	copy(buf, greeting)

	logf(logDebug, "greeted %d bytes", len(greeting))
	return pin(buf)
}

// FreeString releases a buffer from Malloc or Greet. Unknown addresses are ignored.
//
//go:wasmexport FreeString
func FreeString(ptr uint32) {
	delete(allocs, ptr)
}

// LiveAllocations reports how many buffers the host still holds.
//
//go:wasmexport LiveAllocations
func LiveAllocations() int64 {
	return int64(len(allocs))
}

// cString copies the NUL-terminated string at ptr.
func cString(ptr uint32) string {
	if buf, ok := allocs[ptr]; ok {
		for i, b := range buf {
			if b == 0 {
				return string(buf[:i])
			}
		}
		return string(buf)
	}

	p := unsafe.Pointer(uintptr(ptr))
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

func main() {}
