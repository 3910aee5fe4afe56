// Package alloc configures how decode paths obtain byte buffers.
//
// The strategy is a process-wide setting chosen once at startup. Zeroed hands
// out fresh, zero-filled slices. Pooled recycles released buffers without
// clearing them, so every caller must overwrite each byte it exposes.
package alloc

import (
	"fmt"
	"sync"

	"github.com/wippyai/reveal-bridge/errors"
	"go.uber.org/zap"
)

// Strategy names an allocation strategy.
type Strategy string

const (
	Zeroed Strategy = "zeroed"
	Pooled Strategy = "pooled"
)

// DefaultPoolMaxBytes is the largest buffer a pooled allocator keeps for reuse.
const DefaultPoolMaxBytes = 64 << 20

// Config selects a strategy and its limits.
type Config struct {
	Strategy     Strategy
	PoolMaxBytes int
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == Zeroed || s == Pooled
}

// Allocator hands out byte buffers according to its strategy.
type Allocator struct {
	pool     sync.Pool
	strategy Strategy
	maxBytes int
}

// New creates an allocator outside the process-wide configuration.
func New(cfg Config) (*Allocator, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = Zeroed
	}
	if !cfg.Strategy.Valid() {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown allocator strategy %q", cfg.Strategy))
	}
	if cfg.PoolMaxBytes <= 0 {
		cfg.PoolMaxBytes = DefaultPoolMaxBytes
	}
	return &Allocator{strategy: cfg.Strategy, maxBytes: cfg.PoolMaxBytes}, nil
}

// Strategy returns the allocator's strategy.
func (a *Allocator) Strategy() Strategy {
	return a.strategy
}

// Bytes returns a slice of length n. Under Pooled its contents are undefined.
func (a *Allocator) Bytes(n int) []byte {
	if a.strategy != Pooled {
		return make([]byte, n)
	}
	if v := a.pool.Get(); v != nil {
		buf := v.(*[]byte)
		if cap(*buf) >= n {
			return (*buf)[:n]
		}
	}
	return make([]byte, n)
}

// Release returns b for reuse. The caller must not touch b afterwards.
func (a *Allocator) Release(b []byte) {
	if a.strategy != Pooled || b == nil || cap(b) > a.maxBytes {
		return // reject oversized
	}
	b = b[:cap(b)]
	a.pool.Put(&b)
}

var (
	mu         sync.Mutex
	current    *Allocator
	configured bool
)

// Configure installs the process-wide allocator. It may be called once; a
// later call with the same settings is a no-op and a different one fails.
func Configure(cfg Config) error {
	a, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if configured {
		if current.strategy == a.strategy && current.maxBytes == a.maxBytes {
			return nil
		}
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("allocator already configured as %q", current.strategy))
	}
	current = a
	configured = true
	Logger().Debug("allocator configured",
		zap.String("strategy", string(a.strategy)),
		zap.Int("pool_max_bytes", a.maxBytes))
	return nil
}

// Default returns the process-wide allocator. The first call without a prior
// Configure locks in the Zeroed strategy.
func Default() *Allocator {
	mu.Lock()
	defer mu.Unlock()

	if !configured {
		current, _ = New(Config{Strategy: Zeroed})
		configured = true
	}
	return current
}

// Current reports the active process-wide strategy.
func Current() Strategy {
	return Default().strategy
}
