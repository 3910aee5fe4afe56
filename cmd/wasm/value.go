//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/blob"
	"github.com/wippyai/reveal-bridge/boundary"
	"github.com/wippyai/reveal-bridge/errors"
	"github.com/wippyai/reveal-bridge/resource"
)

var (
	arrayBuffer  = js.Global().Get("ArrayBuffer")
	uint8Array   = js.Global().Get("Uint8Array")
	uint32Array  = js.Global().Get("Uint32Array")
	float32Array = js.Global().Get("Float32Array")
)

// binaryArg copies argument i out of an ArrayBuffer or Uint8Array straight
// into allocator-owned memory. Any other argument is a caller bug and aborts
// the module, as blob.Adapt does for Go callers.
func binaryArg(args []js.Value, i int) *blob.Reader {
	if i >= len(args) {
		panic(fmt.Sprintf("revealBridge: argument %d is missing, expected binary array", i))
	}
	v := args[i]
	switch {
	case v.InstanceOf(arrayBuffer):
		v = uint8Array.New(v)
	case v.InstanceOf(uint8Array):
	default:
		panic(fmt.Sprintf("revealBridge: argument %d: expected binary array, got %s", i, v.Type()))
	}
	return blob.Fill(alloc.Default(), v.Get("byteLength").Int(), func(dst []byte) {
		js.CopyBytesToGo(dst, v)
	})
}

func handleArg(args []js.Value, i int) (resource.Handle, error) {
	if i >= len(args) || args[i].Type() != js.TypeNumber {
		return 0, errors.InvalidInput(errors.PhaseHost, fmt.Sprintf("argument %d must be a sector handle", i))
	}
	return resource.Handle(args[i].Int()), nil
}

func toJS(v any) (js.Value, error) {
	bv, err := boundary.Marshal(v)
	if err != nil {
		return js.Undefined(), err
	}
	return jsValue(bv), nil
}

// jsValue mirrors a packaged value as plain objects, typed arrays for packed
// u8/u32/f32 lists and bytes, and numbers for everything scalar. u64 crosses
// as a number and loses precision above 2^53.
func jsValue(v boundary.Value) js.Value {
	switch v.Kind {
	case boundary.KindRecord:
		obj := js.Global().Get("Object").New()
		for _, f := range v.Fields {
			obj.Set(f.Name, jsValue(f.Value))
		}
		return obj
	case boundary.KindBytes:
		return bytesToJS(v.Bytes)
	case boundary.KindList:
		if v.Packed() {
			return packedToJS(v)
		}
		n := v.Len()
		arr := js.Global().Get("Array").New(n)
		for i := range n {
			arr.SetIndex(i, jsValue(v.Index(i)))
		}
		return arr
	case boundary.KindString:
		return js.ValueOf(v.Str)
	case boundary.KindBool:
		return js.ValueOf(v.Num != 0)
	case boundary.KindF32:
		return js.ValueOf(float64(v.Float()))
	default:
		return js.ValueOf(float64(v.Num))
	}
}

func bytesToJS(b []byte) js.Value {
	arr := uint8Array.New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

func packedToJS(v boundary.Value) js.Value {
	raw := bytesToJS(v.Bytes)
	switch v.Elem.Kind {
	case boundary.KindU8:
		return raw
	case boundary.KindU32, boundary.KindHandle:
		return uint32Array.New(raw.Get("buffer"))
	case boundary.KindF32:
		return float32Array.New(raw.Get("buffer"))
	}
	n := v.Len()
	arr := js.Global().Get("Array").New(n)
	for i := range n {
		arr.SetIndex(i, float64(v.Index(i).Num))
	}
	return arr
}
