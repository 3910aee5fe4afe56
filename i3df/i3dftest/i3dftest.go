// Package i3dftest builds i3df sector streams for tests.
package i3dftest

import (
	"math"

	"github.com/wippyai/reveal-bridge/i3df"
	"github.com/wippyai/reveal-bridge/internal/wire"
)

// Group is a geometry group given by its coded indices, IndexWidth values
// per node id.
type Group struct {
	Type    i3df.GeometryType
	NodeIDs []uint64
	Indices []uint64

	// Width overrides the attribute count written to the group header.
	Width int
}

// Sector describes one sector to encode.
type Sector struct {
	Attributes *i3df.AttributeTable
	Groups     []Group
	ID         uint64
	ParentID   uint64
	BBoxMin    i3df.Vector3
	BBoxMax    i3df.Vector3
}

// Table returns a small attribute table the sample groups index into.
func Table() *i3df.AttributeTable {
	return &i3df.AttributeTable{
		Colors:       []i3df.Color{{R: 255, A: 255}},
		Sizes:        []float32{1},
		CenterX:      []float32{0, 1},
		CenterY:      []float32{0, 2},
		CenterZ:      []float32{0, 3},
		Normals:      []i3df.Vector3{{Z: 1}},
		Deltas:       []float32{1, 2},
		Heights:      []float32{2},
		Radii:        []float32{0.5, 1},
		Angles:       []float32{0, math.Pi / 2},
		TranslationX: []float32{0},
		TranslationY: []float32{0},
		TranslationZ: []float32{0},
		ScaleX:       []float32{1},
		ScaleY:       []float32{1},
		ScaleZ:       []float32{1},
		FileIDs:      []uint64{42},
		Textures:     []i3df.Texture{{FileID: 7, Width: 64, Height: 32}},
	}
}

// BoxGroup is one red box with tree index 5, centered at (1,2,3), normal +Z,
// delta (1,2,1) and a quarter turn rotation.
func BoxGroup() Group {
	return Group{
		Type:    i3df.Box,
		NodeIDs: []uint64{1000},
		Indices: []uint64{5, 1, 0, 1, 1, 1, 0, 0, 1, 0, 1},
	}
}

// SphereGroup is one default colored sphere with tree index 6 at the origin
// and radius 1.
func SphereGroup() Group {
	return Group{
		Type:    i3df.Sphere,
		NodeIDs: []uint64{2000},
		Indices: []uint64{6, 0, 0, 0, 0, 0, 1},
	}
}

// Root returns a root sector with the sample table and one box.
func Root() Sector {
	return Sector{
		ID:         0,
		Attributes: Table(),
		Groups:     []Group{BoxGroup()},
		BBoxMax:    i3df.Vector3{X: 10, Y: 10, Z: 10},
	}
}

// Child returns a table-less sector holding one sphere.
func Child(id, parent uint64) Sector {
	return Sector{
		ID:       id,
		ParentID: parent,
		Groups:   []Group{SphereGroup()},
		BBoxMax:  i3df.Vector3{X: 1, Y: 1, Z: 1},
	}
}

// Encode writes s with its length prefix.
func Encode(s Sector) []byte {
	body := wire.NewWriter()
	body.U32(i3df.Magic)
	body.U32(8)
	body.U32(1)
	body.U64(s.ID)
	body.U64(s.ParentID)
	vec3(body, s.BBoxMin)
	vec3(body, s.BBoxMax)
	if s.Attributes == nil {
		body.U32(0)
	} else {
		body.U32(18)
		writeTable(body, s.Attributes)
	}
	for _, g := range s.Groups {
		writeGroup(body, g)
	}

	w := wire.NewWriter()
	w.U32(uint32(body.Len()))
	w.WriteBytes(body.Bytes())
	return w.Bytes()
}

// EncodeScene concatenates encoded sectors.
func EncodeScene(sectors ...Sector) []byte {
	var out []byte
	for _, s := range sectors {
		out = append(out, Encode(s)...)
	}
	return out
}

func vec3(w *wire.Writer, v i3df.Vector3) {
	w.F32(v.X)
	w.F32(v.Y)
	w.F32(v.Z)
}

func floats(w *wire.Writer, fs []float32) {
	w.U32(uint32(len(fs)))
	w.Byte(4)
	for _, f := range fs {
		w.F32(f)
	}
}

func writeTable(w *wire.Writer, t *i3df.AttributeTable) {
	w.U32(uint32(len(t.Colors)))
	w.Byte(4)
	for _, c := range t.Colors {
		w.WriteBytes([]byte{c.R, c.G, c.B, c.A})
	}
	floats(w, t.Sizes)
	floats(w, t.CenterX)
	floats(w, t.CenterY)
	floats(w, t.CenterZ)
	w.U32(uint32(len(t.Normals)))
	w.Byte(12)
	for _, n := range t.Normals {
		vec3(w, n)
	}
	floats(w, t.Deltas)
	floats(w, t.Heights)
	floats(w, t.Radii)
	floats(w, t.Angles)
	floats(w, t.TranslationX)
	floats(w, t.TranslationY)
	floats(w, t.TranslationZ)
	floats(w, t.ScaleX)
	floats(w, t.ScaleY)
	floats(w, t.ScaleZ)
	w.U32(uint32(len(t.FileIDs)))
	w.Byte(8)
	for _, id := range t.FileIDs {
		w.U64(id)
	}
	w.U32(uint32(len(t.Textures)))
	w.Byte(16)
	for _, tex := range t.Textures {
		w.U64(tex.FileID)
		w.U16(tex.Width)
		w.U16(tex.Height)
		w.U32(0)
	}
}

func writeGroup(w *wire.Writer, g Group) {
	enc := &i3df.FibonacciEncoder{}
	for _, idx := range g.Indices {
		enc.Put(idx)
	}
	data := enc.Bytes()

	width := g.Width
	if width == 0 {
		width = g.Type.IndexWidth()
	}
	w.Byte(byte(g.Type))
	w.U32(uint32(len(g.NodeIDs)))
	w.Byte(byte(width))
	w.U32(uint32(len(data)))
	for _, id := range g.NodeIDs {
		w.U56BE(id)
	}
	w.WriteBytes(data)
}
