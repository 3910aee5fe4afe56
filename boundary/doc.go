// Package boundary packages Go values for a host boundary.
//
// Marshal reflects a value into a Value tree whose shape is driven by
// `boundary` struct tags. Schema derives the matching WIT type and Lower
// writes the tree into guest memory using the canonical ABI layout, so a
// guest sees ordinary records and lists.
//
// Byte slices tagged `bytes` are carried without copying until Lower writes
// them:
//
//	type Body struct {
//		Vertices []byte `boundary:"vertices,bytes"`
//		Normals  []byte `boundary:"normals"` // list<u8>, element by element
//	}
package boundary
