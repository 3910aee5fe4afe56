package boundary

import (
	revealbridge "github.com/wippyai/reveal-bridge"
	"github.com/wippyai/reveal-bridge/errors"
)

// Lift reads a value shaped like shape back out of guest memory at ptr.
// Strings, bytes and scalar lists are copied out of memory.
func Lift(mem revealbridge.Memory, ptr uint32, shape Value) (Value, error) {
	switch shape.Kind {
	case KindU8, KindBool:
		n, err := mem.ReadU8(ptr)
		return Value{Kind: shape.Kind, Num: uint64(n)}, readErr(ptr, err)
	case KindU32, KindF32, KindHandle:
		n, err := mem.ReadU32(ptr)
		return Value{Kind: shape.Kind, Num: uint64(n)}, readErr(ptr, err)
	case KindU64:
		n, err := mem.ReadU64(ptr)
		return U64(n), readErr(ptr, err)
	case KindString, KindBytes:
		data, err := readBuffer(mem, ptr, 1)
		if err != nil {
			return Value{}, err
		}
		if shape.Kind == KindString {
			return String(string(data)), nil
		}
		return Bytes(data), nil
	case KindList:
		return liftList(mem, ptr, shape)
	case KindRecord:
		out := Value{Kind: KindRecord, Name: shape.Name, Fields: make([]Field, len(shape.Fields))}
		offset := uint32(0)
		for i, f := range shape.Fields {
			size, align := layout(f.Value)
			offset = alignTo(offset, align)
			fv, err := Lift(mem, ptr+offset, f.Value)
			if err != nil {
				return Value{}, err
			}
			out.Fields[i] = Field{Name: f.Name, Value: fv}
			offset += size
		}
		return out, nil
	}
	return Value{}, errors.New(errors.PhasePackage, errors.KindUnsupported).
		Detail("cannot lift %s", shape.Kind).
		Build()
}

func liftList(mem revealbridge.Memory, ptr uint32, shape Value) (Value, error) {
	if shape.Elem == nil {
		return Value{}, errors.InvalidInput(errors.PhasePackage, "list shape has no element type")
	}
	elem := *shape.Elem
	out := Value{Kind: KindList, Elem: shape.Elem}
	size, _ := layout(elem)

	if elem.Kind.scalar() {
		data, err := readBuffer(mem, ptr, size)
		if err != nil {
			return Value{}, err
		}
		out.Bytes = data
		return out, nil
	}

	base, err := mem.ReadU32(ptr)
	if err != nil {
		return Value{}, readErr(ptr, err)
	}
	n, err := mem.ReadU32(ptr + 4)
	if err != nil {
		return Value{}, readErr(ptr+4, err)
	}
	out.Elems = make([]Value, n)
	for i := uint32(0); i < n; i++ {
		ev, err := Lift(mem, base+i*size, elem)
		if err != nil {
			return Value{}, err
		}
		out.Elems[i] = ev
	}
	return out, nil
}

// readBuffer copies the n elements of size bytes that a (ptr, len) pair at
// ptr points to.
func readBuffer(mem revealbridge.Memory, ptr, size uint32) ([]byte, error) {
	base, err := mem.ReadU32(ptr)
	if err != nil {
		return nil, readErr(ptr, err)
	}
	n, err := mem.ReadU32(ptr + 4)
	if err != nil {
		return nil, readErr(ptr+4, err)
	}
	total := uint64(n) * uint64(size)
	if total > MaxAlloc {
		return nil, errors.OutOfBounds(errors.PhasePackage, nil, int(n), MaxAlloc/int(size))
	}
	data, err := mem.Read(base, uint32(total))
	if err != nil {
		return nil, readErr(base, err)
	}
	return append([]byte{}, data...), nil
}

func readErr(ptr uint32, err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errors.PhasePackage, errors.KindOutOfBounds).
		Value(ptr).
		Detail("read at %d", ptr).
		Cause(err).
		Build()
}
