package boundary

import (
	"context"
	"encoding/binary"
	"math"

	revealbridge "github.com/wippyai/reveal-bridge"
	"github.com/wippyai/reveal-bridge/errors"
	"go.uber.org/zap"
)

// MaxAlloc caps a single guest allocation.
const MaxAlloc = 1 << 30

type allocation struct {
	ptr, size, align uint32
}

type lowerer struct {
	ctx    context.Context
	mem    revealbridge.Memory
	alloc  revealbridge.Allocator
	allocs []allocation
	bytes  uint64
}

// Lower writes v into guest memory and returns the address of its top-level
// storage. Records keep their fields at canonical offsets. Strings, bytes and
// lists are stored as (ptr, len) pairs pointing at separate allocations
// aligned for their element type. On failure every allocation made so far is
// freed.
func Lower(ctx context.Context, mem revealbridge.Memory, alloc revealbridge.Allocator, v Value) (uint32, error) {
	l := &lowerer{ctx: ctx, mem: mem, alloc: alloc}

	size, align := layout(v)
	ptr, err := l.allocate(size, align)
	if err != nil {
		return 0, err
	}
	if err := l.store(ptr, v); err != nil {
		l.free()
		return 0, err
	}

	Logger().Debug("value lowered",
		zap.Stringer("kind", v.Kind),
		zap.Uint32("ptr", ptr),
		zap.Int("allocations", len(l.allocs)),
		zap.Uint64("bytes", l.bytes))
	return ptr, nil
}

func (l *lowerer) allocate(size, align uint32) (uint32, error) {
	if size == 0 {
		return 0, nil
	}
	if err := l.ctx.Err(); err != nil {
		return 0, errors.AllocationFailed(errors.PhasePackage, size, align, err)
	}
	if size > MaxAlloc {
		return 0, errors.AllocationFailed(errors.PhasePackage, size, align, nil)
	}
	ptr, err := l.alloc.Alloc(size, align)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhasePackage, size, align, err)
	}
	l.allocs = append(l.allocs, allocation{ptr: ptr, size: size, align: align})
	l.bytes += uint64(size)
	return ptr, nil
}

func (l *lowerer) free() {
	for i := len(l.allocs) - 1; i >= 0; i-- {
		a := l.allocs[i]
		l.alloc.Free(a.ptr, a.size, a.align)
	}
	l.allocs = nil
}

func (l *lowerer) store(ptr uint32, v Value) error {
	switch v.Kind {
	case KindU8, KindBool:
		return l.check(ptr, 1, l.mem.WriteU8(ptr, uint8(v.Num)))
	case KindU32, KindF32, KindHandle:
		return l.check(ptr, 4, l.mem.WriteU32(ptr, uint32(v.Num)))
	case KindU64:
		return l.check(ptr, 8, l.mem.WriteU64(ptr, v.Num))
	case KindString:
		return l.storeBuffer(ptr, []byte(v.Str))
	case KindBytes:
		return l.storeBuffer(ptr, v.Bytes)
	case KindList:
		return l.storeList(ptr, v)
	case KindRecord:
		offset := uint32(0)
		for _, f := range v.Fields {
			size, align := layout(f.Value)
			offset = alignTo(offset, align)
			if err := l.store(ptr+offset, f.Value); err != nil {
				return err
			}
			offset += size
		}
		return nil
	}
	return errors.New(errors.PhasePackage, errors.KindUnsupported).
		Detail("cannot lower %s", v.Kind).
		Build()
}

func (l *lowerer) storeBuffer(ptr uint32, data []byte) error {
	if len(data) == 0 {
		return l.storePair(ptr, 0, 0)
	}
	if len(data) > MaxAlloc {
		return errors.AllocationFailed(errors.PhasePackage, math.MaxUint32, 1, nil)
	}
	n := uint32(len(data))
	base, err := l.allocate(n, 1)
	if err != nil {
		return err
	}
	if err := l.check(base, n, l.mem.Write(base, data)); err != nil {
		return err
	}
	return l.storePair(ptr, base, n)
}

func (l *lowerer) storeList(ptr uint32, v Value) error {
	n := v.Len()
	if n == 0 {
		return l.storePair(ptr, 0, 0)
	}
	elemSize, elemAlign := uint32(1), uint32(1)
	switch {
	case v.Elem != nil:
		elemSize, elemAlign = layout(*v.Elem)
	case len(v.Elems) > 0:
		elemSize, elemAlign = layout(v.Elems[0])
	}
	total := uint64(elemSize) * uint64(n)
	if total > MaxAlloc {
		return errors.AllocationFailed(errors.PhasePackage, math.MaxUint32, elemAlign, nil)
	}
	base, err := l.allocate(uint32(total), elemAlign)
	if err != nil {
		return err
	}

	if v.Packed() {
		if err := l.check(base, uint32(total), l.mem.Write(base, v.Bytes)); err != nil {
			return err
		}
		return l.storePair(ptr, base, uint32(n))
	}

	for i, e := range v.Elems {
		if err := l.store(base+uint32(i)*elemSize, e); err != nil {
			return err
		}
	}
	return l.storePair(ptr, base, uint32(n))
}

func (l *lowerer) storePair(ptr, addr, n uint32) error {
	var pair [8]byte
	binary.LittleEndian.PutUint32(pair[0:], addr)
	binary.LittleEndian.PutUint32(pair[4:], n)
	return l.check(ptr, 8, l.mem.Write(ptr, pair[:]))
}

func (l *lowerer) check(ptr, size uint32, err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhasePackage, errors.KindOutOfBounds).
		Value(ptr).
		Detail("write %d bytes at %d", size, ptr).
		Cause(err).
		Build()
}

// layout is SizeAlign(Schema(v)) without building the schema.
func layout(v Value) (size, align uint32) {
	switch v.Kind {
	case KindString, KindBytes, KindList:
		return 8, 4
	case KindRecord:
		var offset uint32
		maxAlign := uint32(1)
		for _, f := range v.Fields {
			s, a := layout(f.Value)
			offset = alignTo(offset, a)
			offset += s
			if a > maxAlign {
				maxAlign = a
			}
		}
		return alignTo(offset, maxAlign), maxAlign
	}
	if s := scalarSize(v.Kind); s > 0 {
		return s, s
	}
	return 0, 1
}

func scalarSize(k Kind) uint32 {
	switch k {
	case KindU8, KindBool:
		return 1
	case KindU32, KindF32, KindHandle:
		return 4
	case KindU64:
		return 8
	}
	return 0
}
