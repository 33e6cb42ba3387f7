package native

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/greetffi/pkg/abi"
)

// fakeProvider implements the provider contract in Go memory.
// Results stay reachable through live until they are freed.
type fakeProvider struct {
	mu        sync.Mutex
	live      map[uintptr][]byte
	calls     int
	frees     int
	badFrees  int
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	delay     time.Duration
	result    func(name string) []byte // overrides the greeting when set
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{live: make(map[uintptr][]byte)}
}

func (f *fakeProvider) greet(name *byte) uintptr {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	in, err := readCString(uintptr(unsafe.Pointer(name)), 0)
	if err != nil {
		return 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if in == "fail" {
		return 0
	}

	var out []byte
	if f.result != nil {
		out = f.result(in)
	} else {
		out = append([]byte("Hello, "+in+"!"), 0)
	}
	ptr := uintptr(unsafe.Pointer(&out[0]))
	f.live[ptr] = out
	return ptr
}

func (f *fakeProvider) freeString(ptr uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.live[ptr]; !ok {
		f.badFrees++
		return
	}
	delete(f.live, ptr)
	f.frees++
}

func (f *fakeProvider) symbols(withFree bool) symbolTable {
	t := symbolTable{greet: f.greet}
	if withFree {
		t.freeString = f.freeString
	}
	return t
}

func newTestGreeter(t *testing.T, f *fakeProvider, opts *Options) *Greeter {
	t.Helper()
	if opts == nil {
		opts = DefaultOptions()
	}
	lib := &Library{path: "fake-libgreet"}
	return newGreeter(lib, f.symbols(opts.Ownership.FreesResult()), zaptest.NewLogger(t), opts)
}

func TestGreeter_Greet(t *testing.T) {
	f := newFakeProvider()
	g := newTestGreeter(t, f, nil)

	got, err := g.Greet(context.Background(), "World")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", got)

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 1, f.frees)
	assert.Empty(t, f.live)
}

func TestGreeter_GreetEmptyName(t *testing.T) {
	f := newFakeProvider()
	g := newTestGreeter(t, f, nil)

	got, err := g.Greet(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Hello, !", got)
}

func TestGreeter_GreetUTF8(t *testing.T) {
	f := newFakeProvider()
	g := newTestGreeter(t, f, nil)

	got, err := g.Greet(context.Background(), "Zoë 世界")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Zoë 世界!", got)
}

func TestGreeter_NullResult(t *testing.T) {
	f := newFakeProvider()
	g := newTestGreeter(t, f, nil)

	_, err := g.Greet(context.Background(), "fail")
	require.Error(t, err)

	var callErr *abi.NativeCallError
	require.True(t, errors.As(err, &callErr), "expected NativeCallError, got %T", err)
	assert.Equal(t, abi.SymbolGreet, callErr.Symbol)
	assert.Equal(t, "fake-libgreet", callErr.Path)
	assert.ErrorIs(t, err, abi.ErrNullResult)

	// a null result is never handed to FreeString
	assert.Equal(t, 0, f.frees)
	assert.Equal(t, 0, f.badFrees)
}

func TestGreeter_EmbeddedNULNeverCrossesBoundary(t *testing.T) {
	f := newFakeProvider()
	g := newTestGreeter(t, f, nil)

	_, err := g.Greet(context.Background(), "Wor\x00ld")
	require.Error(t, err)

	var encErr *abi.EncodingError
	require.True(t, errors.As(err, &encErr), "expected EncodingError, got %T", err)
	assert.Equal(t, 3, encErr.Offset)
	assert.Equal(t, 0, f.calls)
}

func TestGreeter_FreesExactlyOncePerResult(t *testing.T) {
	f := newFakeProvider()
	g := newTestGreeter(t, f, nil)

	const n = 200
	for i := 0; i < n; i++ {
		_, err := g.Greet(context.Background(), "World")
		require.NoError(t, err)
	}
	_, err := g.Greet(context.Background(), "fail")
	require.Error(t, err)

	assert.Equal(t, n+1, f.calls)
	assert.Equal(t, n, f.frees)
	assert.Equal(t, 0, f.badFrees)
	assert.Empty(t, f.live, "caller-frees must not leave live allocations")
}

func TestGreeter_LeakOwnershipNeverFrees(t *testing.T) {
	f := newFakeProvider()
	opts := DefaultOptions()
	opts.Ownership = abi.OwnershipLeak
	g := newTestGreeter(t, f, opts)

	for i := 0; i < 3; i++ {
		got, err := g.Greet(context.Background(), "World")
		require.NoError(t, err)
		assert.Equal(t, "Hello, World!", got)
	}

	assert.Equal(t, 0, f.frees)
	assert.Len(t, f.live, 3)
}

func TestGreeter_UnterminatedResult(t *testing.T) {
	f := newFakeProvider()
	f.result = func(string) []byte {
		out := make([]byte, 64)
		for i := range out {
			out[i] = 'a'
		}
		return out
	}
	opts := DefaultOptions()
	opts.MaxResultBytes = 16
	g := newTestGreeter(t, f, opts)

	_, err := g.Greet(context.Background(), "World")
	require.Error(t, err)

	var callErr *abi.NativeCallError
	require.True(t, errors.As(err, &callErr), "expected NativeCallError, got %T", err)
	assert.ErrorIs(t, err, abi.ErrUnterminated)

	// the allocation is still released
	assert.Equal(t, 1, f.frees)
	assert.Empty(t, f.live)
}

func TestGreeter_ResultAtLimit(t *testing.T) {
	f := newFakeProvider()
	opts := DefaultOptions()
	opts.MaxResultBytes = len("Hello, World!") + 1
	g := newTestGreeter(t, f, opts)

	got, err := g.Greet(context.Background(), "World")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", got)
}

func TestGreeter_Closed(t *testing.T) {
	f := newFakeProvider()
	g := newTestGreeter(t, f, nil)

	require.NoError(t, g.Close(context.Background()))
	require.NoError(t, g.Close(context.Background()), "Close should be idempotent")

	_, err := g.Greet(context.Background(), "World")
	assert.ErrorIs(t, err, abi.ErrClosed)
	assert.Equal(t, 0, f.calls)
}

func TestGreeter_CancelledContext(t *testing.T) {
	f := newFakeProvider()
	g := newTestGreeter(t, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Greet(ctx, "World")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.calls)
}

func TestGreeter_SerializesCalls(t *testing.T) {
	f := newFakeProvider()
	f.delay = 2 * time.Millisecond
	g := newTestGreeter(t, f, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Greet(context.Background(), "World")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.maxFlight.Load())
	assert.Equal(t, 8, f.frees)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, abi.OwnershipCallerFrees, opts.Ownership)
	assert.True(t, opts.SerializeCalls)
	assert.Equal(t, 1<<20, opts.MaxResultBytes)
}
