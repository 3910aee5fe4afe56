package alloc

import (
	"testing"

	"github.com/wippyai/reveal-bridge/errors"
)

func TestNew_RejectsUnknownStrategy(t *testing.T) {
	_, err := New(Config{Strategy: "arena"})
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Expected invalid_input, got %v", err)
	}
}

func TestZeroed_ReturnsCleanBuffers(t *testing.T) {
	a, err := New(Config{Strategy: Zeroed})
	if err != nil {
		t.Fatal(err)
	}
	b := a.Bytes(16)
	for i := range b {
		b[i] = 0xff
	}
	a.Release(b)

	again := a.Bytes(16)
	for i, v := range again {
		if v != 0 {
			t.Fatalf("Expected zeroed byte at %d, got 0x%x", i, v)
		}
	}
}

func TestPooled_LengthAndOversizeRejection(t *testing.T) {
	a, err := New(Config{Strategy: Pooled, PoolMaxBytes: 32})
	if err != nil {
		t.Fatal(err)
	}
	if a.Strategy() != Pooled {
		t.Fatalf("Expected pooled strategy, got %q", a.Strategy())
	}

	for _, n := range []int{0, 1, 31, 32, 64} {
		b := a.Bytes(n)
		if len(b) != n {
			t.Errorf("Bytes(%d) returned length %d", n, len(b))
		}
		a.Release(b)
	}

	// Releasing an oversized buffer must not panic and must not be served back
	// for a smaller request with a larger capacity than the cap allows.
	a.Release(make([]byte, 128))
	if b := a.Bytes(8); cap(b) > 64 {
		t.Errorf("Expected oversized buffer to be rejected, got cap %d", cap(b))
	}
}

func TestConfigure_Once(t *testing.T) {
	mu.Lock()
	saved, savedConfigured := current, configured
	current, configured = nil, false
	mu.Unlock()
	defer func() {
		mu.Lock()
		current, configured = saved, savedConfigured
		mu.Unlock()
	}()

	if err := Configure(Config{Strategy: Pooled}); err != nil {
		t.Fatalf("first Configure: %v", err)
	}
	if err := Configure(Config{Strategy: Pooled}); err != nil {
		t.Fatalf("repeat Configure with same settings: %v", err)
	}
	if err := Configure(Config{Strategy: Zeroed}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Expected reconfigure to fail, got %v", err)
	}
	if Current() != Pooled {
		t.Fatalf("Expected pooled, got %q", Current())
	}
}

func TestDefault_LocksZeroed(t *testing.T) {
	mu.Lock()
	saved, savedConfigured := current, configured
	current, configured = nil, false
	mu.Unlock()
	defer func() {
		mu.Lock()
		current, configured = saved, savedConfigured
		mu.Unlock()
	}()

	if Default().Strategy() != Zeroed {
		t.Fatal("Expected zeroed default")
	}
	if err := Configure(Config{Strategy: Pooled}); err == nil {
		t.Fatal("Expected Configure after first use to fail")
	}
}
