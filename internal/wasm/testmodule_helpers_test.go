package wasm

// Hand-assembled modules used by the tests. They avoid a compiler dependency
// while still exercising real wazero instances.

// memoryOnlyModule exports one page of memory and nothing else.
var memoryOnlyModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic: \0asm
	0x01, 0x00, 0x00, 0x00, // version: 1
	// memory section: 1 memory, min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export section: "memory" -> memory 0
	0x07, 0x0a, 0x01,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
}

// staticGreetModule implements the provider exports with a bump allocator:
//
//	Malloc(size) -> heap; heap += size
//	Greet(ptr)   -> 0 if the first byte is 'f', else the address of "Hello, wasm!"
//	FreeString   -> no-op
var staticGreetModule = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,
	// type section: (i32)->i32, (i32)->()
	0x01, 0x0a, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	// function section: Malloc, Greet, FreeString
	0x03, 0x04, 0x03, 0x00, 0x00, 0x01,
	// memory section: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// global section: mut i32 heap = 1024
	0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
	// export section
	0x07, 0x28, 0x04,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, 'M', 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x05, 'G', 'r', 'e', 'e', 't', 0x00, 0x01,
	0x0a, 'F', 'r', 'e', 'e', 'S', 't', 'r', 'i', 'n', 'g', 0x00, 0x02,
	// code section
	0x0a, 0x24, 0x03,
	// Malloc
	0x0b, 0x00,
	0x23, 0x00, // global.get heap
	0x23, 0x00, // global.get heap
	0x20, 0x00, // local.get size
	0x6a,       // i32.add
	0x24, 0x00, // global.set heap
	0x0b,
	// Greet
	0x13, 0x00,
	0x20, 0x00, // local.get ptr
	0x2d, 0x00, 0x00, // i32.load8_u
	0x41, 0xe6, 0x00, // i32.const 'f'
	0x46,       // i32.eq
	0x04, 0x7f, // if (result i32)
	0x41, 0x00, // i32.const 0
	0x05,       // else
	0x41, 0x10, // i32.const 16
	0x0b,       // end
	0x0b,
	// FreeString
	0x02, 0x00, 0x0b,
	// data section: "Hello, wasm!\0" at 16
	0x0b, 0x13, 0x01,
	0x00, 0x41, 0x10, 0x0b,
	0x0d, 'H', 'e', 'l', 'l', 'o', ',', ' ', 'w', 'a', 's', 'm', '!', 0x00,
}

// spinGreetModule has the same exports as staticGreetModule, but Greet never
// returns.
var spinGreetModule = []byte{
	0x00, 0x61, 0x73, 0x6d,
	0x01, 0x00, 0x00, 0x00,
	0x01, 0x0a, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x00,
	0x03, 0x04, 0x03, 0x00, 0x00, 0x01,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
	0x07, 0x28, 0x04,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, 'M', 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x05, 'G', 'r', 'e', 'e', 't', 0x00, 0x01,
	0x0a, 'F', 'r', 'e', 'e', 'S', 't', 'r', 'i', 'n', 'g', 0x00, 0x02,
	// code section
	0x0a, 0x1a, 0x03,
	// Malloc
	0x0b, 0x00,
	0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00,
	0x0b,
	// Greet
	0x09, 0x00,
	0x03, 0x40, // loop
	0x0c, 0x00, // br 0
	0x0b,       // end
	0x41, 0x00, // i32.const 0
	0x0b,
	// FreeString
	0x02, 0x00, 0x0b,
}
