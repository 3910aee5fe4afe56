package i3df

// Magic identifies an i3df sector ("I3DF" little-endian).
const Magic uint32 = 0x46443349

// Vector3 is a three component float vector.
type Vector3 struct {
	X, Y, Z float32
}

// Color is an RGBA color with 8 bits per channel.
type Color struct {
	R, G, B, A uint8
}

// DefaultColor is used when a primitive's color index is zero.
var DefaultColor = Color{R: 0, G: 0, B: 100, A: 255}

// Texture references an image file stored next to the scene.
type Texture struct {
	FileID uint64
	Width  uint16
	Height uint16
}

// AttributeTable holds the uncompressed value arrays geometry indices refer to.
type AttributeTable struct {
	Colors       []Color
	Sizes        []float32
	CenterX      []float32
	CenterY      []float32
	CenterZ      []float32
	Normals      []Vector3
	Deltas       []float32
	Heights      []float32
	Radii        []float32
	Angles       []float32
	TranslationX []float32
	TranslationY []float32
	TranslationZ []float32
	ScaleX       []float32
	ScaleY       []float32
	ScaleZ       []float32
	FileIDs      []uint64
	Textures     []Texture
}

// Header is the fixed part of a sector.
type Header struct {
	Attributes       *AttributeTable
	SectorID         uint64
	ParentSectorID   uint64
	BBoxMin          Vector3
	BBoxMax          Vector3
	Magic            uint32
	FormatVersion    uint32
	OptimizerVersion uint32
}

// Primitive is one geometry instance with every property resolved against
// the attribute table. Fields a geometry type does not use stay zero.
type Primitive struct {
	DiffuseTexture *Texture
	NormalTexture  *Texture
	BumpTexture    *Texture

	NodeID    uint64
	TreeIndex uint64
	FileID    uint64

	TriangleOffset uint64
	TriangleCount  uint64

	Center      Vector3
	Normal      Vector3
	Delta       Vector3
	CapNormal   Vector3
	Translation Vector3
	Rotation    Vector3
	Scale       Vector3

	Size          float32
	Height        float32
	RadiusA       float32
	RadiusB       float32
	RotationAngle float32
	ArcAngle      float32
	Thickness     float32
	SlopeA        float32
	SlopeB        float32
	ZAngleA       float32
	ZAngleB       float32

	Color Color
}

// GeometryGroup is a run of primitives of one type.
type GeometryGroup struct {
	Primitives []Primitive
	Type       GeometryType
}

// Sector is one decoded sector.
type Sector struct {
	Groups []GeometryGroup
	Header Header
}

// PrimitiveCount returns the number of primitives across all groups.
func (s *Sector) PrimitiveCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Primitives)
	}
	return n
}

// Node is a sector placed in the scene tree.
type Node struct {
	Sector   *Sector
	Children []*Node
}

// Scene is every sector of one file, rooted at the first sector.
type Scene struct {
	Root  *Node
	index map[uint64]*Node
}

// Len returns the number of sectors in the scene.
func (s *Scene) Len() int {
	return len(s.index)
}

// Find returns the node for a sector id.
func (s *Scene) Find(id uint64) (*Node, bool) {
	n, ok := s.index[id]
	return n, ok
}

// Walk visits nodes depth first, parents before children. Returning false
// from fn stops the walk.
func (s *Scene) Walk(fn func(n *Node, depth int) bool) {
	if s.Root == nil {
		return
	}
	var walk func(n *Node, depth int) bool
	walk = func(n *Node, depth int) bool {
		if !fn(n, depth) {
			return false
		}
		for _, c := range n.Children {
			if !walk(c, depth+1) {
				return false
			}
		}
		return true
	}
	walk(s.Root, 0)
}
