//go:build cgo

// Command libgreet is the reference greeting provider, built as a C shared
// library:
//
//	go build -buildmode=c-shared -o libgreet.so ./cmd/libgreet
//
// Greet allocates its result with malloc; the caller releases it through
// FreeString exactly once.
package main

// #include <stdlib.h>
import "C"

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// live counts results handed out and not yet released.
var live atomic.Int64

// Greet returns "Hello, <name>!" or NULL when name is NULL or "fail".
//
//export Greet
func Greet(name *C.char) *C.char {
	if name == nil {
		return nil
	}

	goName := C.GoString(name)
	if goName == "fail" {
		return nil
	}

	live.Add(1)
	return C.CString(fmt.Sprintf("Hello, %s!", goName))
}

// FreeString releases a result returned by Greet. NULL is ignored.
//
//export FreeString
func FreeString(str *C.char) {
	if str == nil {
		return
	}
	live.Add(-1)
	C.free(unsafe.Pointer(str))
}

// LiveAllocations reports how many Greet results have not been freed yet.
//
//export LiveAllocations
func LiveAllocations() C.longlong {
	return C.longlong(live.Load())
}

func main() {}
