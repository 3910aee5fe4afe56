package boundary

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind is the shape of a Value.
type Kind uint8

const (
	KindRecord Kind = iota + 1
	KindList
	KindBytes
	KindU8
	KindU32
	KindU64
	KindF32
	KindBool
	KindString
	KindHandle
)

var kindNames = map[Kind]string{
	KindRecord: "record",
	KindList:   "list",
	KindBytes:  "bytes",
	KindU8:     "u8",
	KindU32:    "u32",
	KindU64:    "u64",
	KindF32:    "f32",
	KindBool:   "bool",
	KindString: "string",
	KindHandle: "handle",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// scalar reports whether values of k are stored inline without pointers.
func (k Kind) scalar() bool {
	switch k {
	case KindU8, KindU32, KindU64, KindF32, KindBool, KindHandle:
		return true
	}
	return false
}

// Handler is implemented by values that cross the boundary as an opaque
// u32 token.
type Handler interface {
	BoundaryHandle() uint32
}

// Field is a named record member.
type Field struct {
	Name  string
	Value Value
}

// Value is a packaged value.
type Value struct {
	// Elem is the element shape of a list. It carries no data and is
	// present even when the list is empty.
	Elem   *Value
	Fields []Field
	Elems  []Value
	Bytes  []byte
	Str    string
	// Name is the record's type name, empty for anonymous records.
	Name string
	// Num holds integer, bool and handle values, and the bits of an f32.
	Num  uint64
	Kind Kind
}

func U8(v uint8) Value      { return Value{Kind: KindU8, Num: uint64(v)} }
func U32(v uint32) Value    { return Value{Kind: KindU32, Num: uint64(v)} }
func U64(v uint64) Value    { return Value{Kind: KindU64, Num: v} }
func F32(v float32) Value   { return Value{Kind: KindF32, Num: uint64(math.Float32bits(v))} }
func Handle(v uint32) Value { return Value{Kind: KindHandle, Num: uint64(v)} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Bytes(b []byte) Value  { return Value{Kind: KindBytes, Bytes: b} }

// Record builds an anonymous record.
func Record(fields ...Field) Value { return Value{Kind: KindRecord, Fields: fields} }

func Bool(v bool) Value {
	if v {
		return Value{Kind: KindBool, Num: 1}
	}
	return Value{Kind: KindBool}
}

// List builds a list of elements shaped like elem.
func List(elem Value, elems ...Value) Value {
	return Value{Kind: KindList, Elem: &elem, Elems: elems}
}

// Float returns the value of an f32.
func (v Value) Float() float32 {
	return math.Float32frombits(uint32(v.Num))
}

// Field returns the named record member.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Packed reports whether a list keeps its scalar elements in Bytes as
// little-endian data instead of in Elems.
func (v Value) Packed() bool {
	return v.Kind == KindList && v.Elems == nil && v.Bytes != nil && v.Elem != nil && v.Elem.Kind.scalar()
}

// Index returns element i of a list.
func (v Value) Index(i int) Value {
	if !v.Packed() {
		return v.Elems[i]
	}
	size := int(scalarSize(v.Elem.Kind))
	b := v.Bytes[i*size : (i+1)*size]
	out := Value{Kind: v.Elem.Kind}
	switch size {
	case 1:
		out.Num = uint64(b[0])
	case 4:
		out.Num = uint64(binary.LittleEndian.Uint32(b))
	case 8:
		out.Num = binary.LittleEndian.Uint64(b)
	}
	return out
}

// Len returns the element count of a list or the byte count of bytes.
func (v Value) Len() int {
	switch v.Kind {
	case KindList:
		if v.Packed() {
			return len(v.Bytes) / int(scalarSize(v.Elem.Kind))
		}
		return len(v.Elems)
	case KindBytes:
		return len(v.Bytes)
	case KindString:
		return len(v.Str)
	}
	return 0
}
