package wasm

import (
	"errors"

	"github.com/tetratelabs/wazero/api"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

var errOutOfRange = errors.New("out of range of memory size")

// Memory provides bounds-checked access to a module's linear memory.
//
// Every read and write is checked against the current memory size; string
// reads stop at the first NUL or at a caller-supplied limit, whichever
// comes first.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// ReadCString reads a NUL-terminated string starting at ptr.
// maxLen bounds the scan including the terminator; 0 scans to the end of memory.
func (m *Memory) ReadCString(ptr uint32, maxLen uint32) (string, error) {
	size := m.mem.Size()
	if ptr >= size {
		return "", &MemoryAccessError{Operation: "read", Address: ptr, Length: maxLen, Err: errOutOfRange}
	}

	// Never ask for more than what is left in memory.
	n := size - ptr
	if maxLen > 0 && maxLen < n {
		n = maxLen
	}

	buf, ok := m.mem.Read(ptr, n)
	if !ok {
		return "", &MemoryAccessError{Operation: "read", Address: ptr, Length: n, Err: errOutOfRange}
	}

	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}

	return "", &MemoryAccessError{Operation: "read", Address: ptr, Length: n, Err: abi.ErrUnterminated}
}

// ReadBytes reads raw bytes from Wasm memory.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, bool) {
	return m.mem.Read(ptr, length)
}

// WriteBytes copies data into memory at ptr.
// The region must already be owned by the caller, e.g. returned by Malloc.
func (m *Memory) WriteBytes(ptr uint32, data []byte) error {
	if !m.mem.Write(ptr, data) {
		return &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(data)), Err: errOutOfRange}
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}
