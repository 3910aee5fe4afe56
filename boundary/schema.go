package boundary

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"
)

// Schema derives the WIT type of v. Bytes and list<u8> give the same type
// and handles are u32.
func Schema(v Value) wit.Type {
	switch v.Kind {
	case KindU8:
		return wit.U8{}
	case KindU32, KindHandle:
		return wit.U32{}
	case KindU64:
		return wit.U64{}
	case KindF32:
		return wit.F32{}
	case KindBool:
		return wit.Bool{}
	case KindString:
		return wit.String{}
	case KindBytes:
		return &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}
	case KindList:
		var elem wit.Type = wit.U8{}
		if v.Elem != nil {
			elem = Schema(*v.Elem)
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}
	case KindRecord:
		fields := make([]wit.Field, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = wit.Field{Name: kebab(f.Name), Type: Schema(f.Value)}
		}
		td := &wit.TypeDef{Kind: &wit.Record{Fields: fields}}
		if v.Name != "" {
			name := v.Name
			td.Name = &name
		}
		return td
	}
	return nil
}

// SizeAlign returns the canonical ABI size and alignment of t.
func SizeAlign(t wit.Type) (size, align uint32) {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return 1, 1
	case wit.U16, wit.S16:
		return 2, 2
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return 4, 4
	case wit.U64, wit.S64, wit.F64:
		return 8, 8
	case wit.String:
		return 8, 4
	case *wit.TypeDef:
		switch kind := typ.Kind.(type) {
		case *wit.List:
			return 8, 4
		case *wit.Record:
			var offset uint32
			maxAlign := uint32(1)
			for _, f := range kind.Fields {
				s, a := SizeAlign(f.Type)
				offset = alignTo(offset, a)
				offset += s
				if a > maxAlign {
					maxAlign = a
				}
			}
			return alignTo(offset, maxAlign), maxAlign
		case wit.Type:
			return SizeAlign(kind)
		}
	}
	return 0, 1
}

// TypeString renders t inline, naming records by their type name.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.U16:
		return "u16"
	case wit.U32:
		return "u32"
	case wit.U64:
		return "u64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch kind := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(kind.Type) + ">"
		case *wit.Record:
			return recordBody(kind)
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// Definitions renders every named record reachable from t, dependencies
// first, in WIT syntax.
func Definitions(t wit.Type) string {
	var b strings.Builder
	seen := map[string]bool{}
	writeDefinitions(&b, t, seen)
	return b.String()
}

func writeDefinitions(b *strings.Builder, t wit.Type, seen map[string]bool) {
	td, ok := t.(*wit.TypeDef)
	if !ok {
		return
	}
	switch kind := td.Kind.(type) {
	case *wit.List:
		writeDefinitions(b, kind.Type, seen)
	case *wit.Record:
		for _, f := range kind.Fields {
			writeDefinitions(b, f.Type, seen)
		}
		if td.Name == nil || seen[*td.Name] {
			return
		}
		seen[*td.Name] = true
		fmt.Fprintf(b, "record %s %s\n", *td.Name, recordBody(kind))
	}
}

func recordBody(r *wit.Record) string {
	if len(r.Fields) == 0 {
		return "{}"
	}
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.Name + ": " + TypeString(f.Type)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func alignTo(offset, align uint32) uint32 {
	return (offset + align - 1) &^ (align - 1)
}
