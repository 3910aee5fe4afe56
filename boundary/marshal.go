package boundary

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/reveal-bridge/errors"
	"go.uber.org/zap"
)

// maxDepth bounds type nesting. Recursive types never terminate.
const maxDepth = 32

var handlerType = reflect.TypeOf((*Handler)(nil)).Elem()

type fieldInfo struct {
	name  string
	index int
	bytes bool
}

var fieldCache sync.Map // reflect.Type -> []fieldInfo

// Marshal packages v.
//
// Struct fields are named by their `boundary` tag, or by the snake_case
// Go name when untagged. A tag of "-" skips the field and the `bytes` option
// carries a []byte without copying it. Slices of u8, u32, u64 and f32 are
// packed into one little-endian buffer.
func Marshal(v any) (Value, error) {
	if v == nil {
		return Value{}, errors.New(errors.PhasePackage, errors.KindInvalidInput).
			Detail("cannot package nil").
			Build()
	}
	rv := reflect.ValueOf(v)
	out, err := marshal(rv, false, nil, 0)
	if err != nil {
		return Value{}, err
	}
	Logger().Debug("value packaged",
		zap.String("type", rv.Type().String()),
		zap.Stringer("kind", out.Kind))
	return out, nil
}

// Shape returns the prototype Value of a Go type: the tree Marshal would
// produce for it, with no data.
func Shape(t reflect.Type) (Value, error) {
	return shape(t, false, nil, 0)
}

func marshal(rv reflect.Value, asBytes bool, path []string, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, tooDeep(path, rv.Type())
	}
	t := rv.Type()

	if t.Implements(handlerType) {
		if t.Kind() == reflect.Pointer && rv.IsNil() {
			return Value{}, nilPointer(path, t)
		}
		return Handle(rv.Interface().(Handler).BoundaryHandle()), nil
	}

	if asBytes {
		if !isByteSlice(t) {
			return Value{}, errors.TypeMismatch(errors.PhasePackage, clonePath(path), t.String())
		}
		return Bytes(rv.Bytes()), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Uint8:
		return U8(uint8(rv.Uint())), nil
	case reflect.Uint32:
		return U32(uint32(rv.Uint())), nil
	case reflect.Uint64:
		return U64(rv.Uint()), nil
	case reflect.Float32:
		return F32(float32(rv.Float())), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Value{}, nilPointer(path, t)
		}
		return marshal(rv.Elem(), false, path, depth+1)
	case reflect.Struct:
		return marshalStruct(rv, path, depth)
	case reflect.Slice, reflect.Array:
		return marshalList(rv, path, depth)
	case reflect.Map:
		return marshalMap(rv, path, depth)
	}
	return Value{}, unsupported(path, t)
}

func marshalStruct(rv reflect.Value, path []string, depth int) (Value, error) {
	fields := structFields(rv.Type())
	out := Value{Kind: KindRecord, Name: kebab(snakeCase(rv.Type().Name())), Fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		fv, err := marshal(rv.Field(f.index), f.bytes, appendPath(path, f.name), depth+1)
		if err != nil {
			return Value{}, err
		}
		out.Fields = append(out.Fields, Field{Name: f.name, Value: fv})
	}
	return out, nil
}

func marshalList(rv reflect.Value, path []string, depth int) (Value, error) {
	et := rv.Type().Elem()
	elem, err := shape(et, false, appendPath(path, "[elem]"), depth+1)
	if err != nil {
		return Value{}, err
	}
	out := Value{Kind: KindList, Elem: &elem}
	n := rv.Len()

	if packed, ok := pack(rv, elem.Kind, n); ok {
		out.Bytes = packed
		return out, nil
	}

	out.Elems = make([]Value, n)
	for i := 0; i < n; i++ {
		ev, err := marshal(rv.Index(i), false, path, depth+1)
		if err != nil {
			return Value{}, err
		}
		out.Elems[i] = ev
	}
	return out, nil
}

// pack copies a scalar slice into little-endian bytes. Handler elements go
// element by element.
func pack(rv reflect.Value, k Kind, n int) ([]byte, bool) {
	if rv.Type().Elem().Implements(handlerType) {
		return nil, false
	}
	size := int(scalarSize(k))
	if k == KindBool || size == 0 {
		return nil, false
	}
	buf := make([]byte, n*size)
	switch k {
	case KindU8:
		for i := 0; i < n; i++ {
			buf[i] = uint8(rv.Index(i).Uint())
		}
	case KindU32:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(rv.Index(i).Uint()))
		}
	case KindU64:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint64(buf[i*8:], rv.Index(i).Uint())
		}
	case KindF32:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(rv.Index(i).Float())))
		}
	default:
		return nil, false
	}
	return buf, true
}

func marshalMap(rv reflect.Value, path []string, depth int) (Value, error) {
	t := rv.Type()
	if t.Key().Kind() != reflect.String {
		return Value{}, unsupported(path, t)
	}
	elem, err := shape(t, false, path, depth)
	if err != nil {
		return Value{}, err
	}

	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := Value{Kind: KindList, Elem: elem.Elem, Elems: make([]Value, 0, len(keys))}
	for _, k := range keys {
		vv, err := marshal(rv.MapIndex(k), false, appendPath(path, k.String()), depth+1)
		if err != nil {
			return Value{}, err
		}
		out.Elems = append(out.Elems, Record(
			Field{Name: "key", Value: String(k.String())},
			Field{Name: "value", Value: vv},
		))
	}
	return out, nil
}

func shape(t reflect.Type, asBytes bool, path []string, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, tooDeep(path, t)
	}
	if t.Implements(handlerType) {
		return Value{Kind: KindHandle}, nil
	}
	if asBytes {
		if !isByteSlice(t) {
			return Value{}, errors.TypeMismatch(errors.PhasePackage, clonePath(path), t.String())
		}
		return Value{Kind: KindBytes}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return Value{Kind: KindBool}, nil
	case reflect.Uint8:
		return Value{Kind: KindU8}, nil
	case reflect.Uint32:
		return Value{Kind: KindU32}, nil
	case reflect.Uint64:
		return Value{Kind: KindU64}, nil
	case reflect.Float32:
		return Value{Kind: KindF32}, nil
	case reflect.String:
		return Value{Kind: KindString}, nil
	case reflect.Pointer:
		return shape(t.Elem(), false, path, depth+1)
	case reflect.Struct:
		fields := structFields(t)
		out := Value{Kind: KindRecord, Name: kebab(snakeCase(t.Name())), Fields: make([]Field, 0, len(fields))}
		for _, f := range fields {
			fv, err := shape(t.Field(f.index).Type, f.bytes, appendPath(path, f.name), depth+1)
			if err != nil {
				return Value{}, err
			}
			out.Fields = append(out.Fields, Field{Name: f.name, Value: fv})
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		elem, err := shape(t.Elem(), false, appendPath(path, "[elem]"), depth+1)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindList, Elem: &elem}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return Value{}, unsupported(path, t)
		}
		vs, err := shape(t.Elem(), false, appendPath(path, "[value]"), depth+1)
		if err != nil {
			return Value{}, err
		}
		entry := Record(Field{Name: "key", Value: Value{Kind: KindString}}, Field{Name: "value", Value: vs})
		return Value{Kind: KindList, Elem: &entry}, nil
	}
	return Value{}, unsupported(path, t)
}

func structFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}

	fields := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("boundary")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = snakeCase(sf.Name)
		}
		fields = append(fields, fieldInfo{
			name:  name,
			index: i,
			bytes: opts == "bytes",
		})
	}

	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]fieldInfo)
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// snakeCase converts a Go identifier. Acronyms stay together, including a
// trailing plural s: NodeIDs becomes node_ids.
func snakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		if i > 0 && boundaryBefore(rs, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func boundaryBefore(rs []rune, i int) bool {
	prev := rs[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if i+1 >= len(rs) || !unicode.IsLower(rs[i+1]) {
		return false
	}
	plural := rs[i+1] == 's' && (i+2 == len(rs) || unicode.IsUpper(rs[i+2]))
	return !plural
}

func kebab(s string) string {
	return strings.ReplaceAll(s, "_", "-")
}

func appendPath(path []string, name string) []string {
	return append(path[:len(path):len(path)], name)
}

func clonePath(path []string) []string {
	return append([]string(nil), path...)
}

func unsupported(path []string, t reflect.Type) *errors.Error {
	err := errors.Unsupported(errors.PhasePackage, fmt.Sprintf("Go type %s has no boundary representation", t))
	err.Path = clonePath(path)
	return err
}

func nilPointer(path []string, t reflect.Type) *errors.Error {
	return errors.New(errors.PhasePackage, errors.KindInvalidInput).
		Path(clonePath(path)...).
		Detail("nil %s", t).
		Build()
}

func tooDeep(path []string, t reflect.Type) *errors.Error {
	return errors.New(errors.PhasePackage, errors.KindUnsupported).
		Path(clonePath(path)...).
		Detail("type %s nests deeper than %d levels", t, maxDepth).
		Build()
}
