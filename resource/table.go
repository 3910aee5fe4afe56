package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed            = errors.New("resource table closed")
	ErrInvalidHandle     = errors.New("invalid resource handle")
	ErrOutstandingBorrow = errors.New("cannot drop resource with outstanding borrows")
)

// A handle holds a slot number in its low 24 bits and the slot's generation
// in the high 8. Removing a value bumps its slot's generation.
const (
	slotBits = 24
	slotMask = 1<<slotBits - 1
	maxSlots = slotMask
)

type entry[T any] struct {
	value       T
	borrowCount uint32
	valid       bool
	gen         uint8
}

func handleOf(slot int, gen uint8) Handle {
	return Handle(gen)<<slotBits | Handle(slot+1)
}

// Table maps handles to values of type T with borrow tracking.
// It is safe for concurrent use.
type Table[T any] struct {
	entries   []entry[T]
	freeList  []int
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	live      int
	closed    bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]entry[T], 0, 16),
		freeList: make([]int, 0, 8),
	}
}

// Insert adds a value and returns its handle. A closed or full table
// returns 0.
func (t *Table[T]) Insert(value T) Handle {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}

	var slot int
	if n := len(t.freeList); n > 0 {
		slot = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		if len(t.entries) >= maxSlots {
			t.mu.Unlock()
			return 0
		}
		slot = len(t.entries)
		t.entries = append(t.entries, entry[T]{})
	}
	e := &t.entries[slot]
	e.value, e.valid = value, true
	handle := handleOf(slot, e.gen)
	t.live++
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: handle, Value: value})
	return handle
}

// lookup returns the entry for handle. Callers hold mu.
func (t *Table[T]) lookup(handle Handle) *entry[T] {
	slot := int(handle&slotMask) - 1
	if slot < 0 || slot >= len(t.entries) {
		return nil
	}
	e := &t.entries[slot]
	if !e.valid || e.gen != uint8(handle>>slotBits) {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(handle Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.lookup(handle)
	if e == nil {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Remove drops a value and returns it. It fails with ErrInvalidHandle for
// unknown handles and ErrOutstandingBorrow while the value is borrowed.
// Values implementing Dropper are dropped.
func (t *Table[T]) Remove(handle Handle) (T, error) {
	var zero T

	t.mu.Lock()
	e := t.lookup(handle)
	if e == nil {
		t.mu.Unlock()
		return zero, ErrInvalidHandle
	}
	if e.borrowCount > 0 {
		t.mu.Unlock()
		return zero, ErrOutstandingBorrow
	}
	value := e.value
	*e = entry[T]{gen: e.gen + 1}
	t.freeList = append(t.freeList, int(handle&slotMask)-1)
	t.live--
	t.mu.Unlock()

	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: handle, Value: value})
	return value, nil
}

// Borrow marks handle as in use. It reports false for unknown handles.
func (t *Table[T]) Borrow(handle Handle) bool {
	t.mu.Lock()
	e := t.lookup(handle)
	if e == nil {
		t.mu.Unlock()
		return false
	}
	e.borrowCount++
	value := e.value
	t.mu.Unlock()

	t.notify(Event{Type: EventBorrowed, Handle: handle, Value: value})
	return true
}

// ReturnBorrow ends one borrow of handle.
func (t *Table[T]) ReturnBorrow(handle Handle) bool {
	t.mu.Lock()
	e := t.lookup(handle)
	if e == nil || e.borrowCount == 0 {
		t.mu.Unlock()
		return false
	}
	e.borrowCount--
	value := e.value
	t.mu.Unlock()

	t.notify(Event{Type: EventBorrowReturned, Handle: handle, Value: value})
	return true
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Each calls fn for every live value in handle order until fn returns false.
// fn must not modify the table.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, e := range t.entries {
		if e.valid && !fn(handleOf(i, e.gen), e.value) {
			return
		}
	}
}

// Close removes every value, borrowed or not, and stops accepting inserts.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	entries := t.entries
	t.entries = nil
	t.freeList = nil
	t.live = 0
	t.mu.Unlock()

	for i := range entries {
		if !entries[i].valid {
			continue
		}
		if d, ok := any(entries[i].value).(Dropper); ok {
			d.Drop()
		}
		t.notify(Event{Type: EventDropped, Handle: handleOf(i, entries[i].gen), Value: entries[i].value})
	}
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
