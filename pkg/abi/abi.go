package abi

// Shared vocabulary of the greeting provider C ABI.
// This package is imported by both loader backends and by the tooling.

import "fmt"

// Exported symbol names every greeting provider is looked up by.
const (
	// SymbolGreet is `char* Greet(const char* name)`. A NULL result signals failure.
	SymbolGreet = "Greet"

	// SymbolFreeString is `void FreeString(char* s)`. It releases a result
	// returned by Greet and must be called at most once per address.
	SymbolFreeString = "FreeString"

	// SymbolMalloc is `char* Malloc(uint32 size)`, exported only by wasm
	// providers so the host can place arguments in guest memory.
	SymbolMalloc = "Malloc"

	// SymbolLiveAllocations reports how many Greet results have not been freed yet.
	// Reference providers export it for leak checks; bindings never require it.
	SymbolLiveAllocations = "LiveAllocations"
)

// Ownership names the protocol used for the buffer returned by Greet.
type Ownership string

const (
	// OwnershipCallerFrees: the provider allocates, the caller decodes and then
	// hands the address back through FreeString exactly once.
	OwnershipCallerFrees Ownership = "caller-frees"

	// OwnershipLeak: the provider allocates and the caller never releases.
	// Only acceptable for short-lived processes talking to providers without FreeString.
	OwnershipLeak Ownership = "leak"
)

// ParseOwnership parses an ownership name. The empty string selects OwnershipCallerFrees.
func ParseOwnership(s string) (Ownership, error) {
	switch Ownership(s) {
	case "", OwnershipCallerFrees:
		return OwnershipCallerFrees, nil
	case OwnershipLeak:
		return OwnershipLeak, nil
	default:
		return "", fmt.Errorf("unknown ownership protocol: %q (must be one of: caller-frees, leak)", s)
	}
}

// FreesResult reports whether FreeString is part of the contract.
func (o Ownership) FreesResult() bool {
	return o != OwnershipLeak
}

func (o Ownership) String() string {
	if o == "" {
		return string(OwnershipCallerFrees)
	}
	return string(o)
}

// Backend selects how a provider artifact is hosted.
type Backend string

const (
	// BackendNative loads a shared library into the process.
	BackendNative Backend = "native"

	// BackendWasm runs a wasip1 build of the provider inside wazero.
	BackendWasm Backend = "wasm"
)

func (b Backend) String() string {
	return string(b)
}

// ParseBackend parses a backend name. The empty string selects BackendNative.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendNative:
		return BackendNative, nil
	case BackendWasm:
		return BackendWasm, nil
	default:
		return "", fmt.Errorf("unknown backend: %q (must be one of: native, wasm)", s)
	}
}
