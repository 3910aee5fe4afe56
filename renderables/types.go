package renderables

import "github.com/wippyai/reveal-bridge/i3df"

// Attributes are the per-instance values every collection carries.
type Attributes struct {
	NodeIDs     []uint64  `boundary:"node_ids"`
	TreeIndices []uint64  `boundary:"tree_indices"`
	Colors      []uint8   `boundary:"colors,bytes"`
	Sizes       []float32 `boundary:"sizes"`
}

// Len returns the number of instances.
func (a *Attributes) Len() int {
	return len(a.NodeIDs)
}

func (a *Attributes) add(p *i3df.Primitive) {
	a.NodeIDs = append(a.NodeIDs, p.NodeID)
	a.TreeIndices = append(a.TreeIndices, p.TreeIndex)
	a.Colors = append(a.Colors, p.Color.R, p.Color.G, p.Color.B, p.Color.A)
	a.Sizes = append(a.Sizes, p.Size)
}

type Boxes struct {
	Attributes     Attributes `boundary:"attributes"`
	Centers        []float32  `boundary:"centers"`
	Normals        []float32  `boundary:"normals"`
	Deltas         []float32  `boundary:"deltas"`
	RotationAngles []float32  `boundary:"rotation_angles"`
}

type Circles struct {
	Attributes Attributes `boundary:"attributes"`
	Centers    []float32  `boundary:"centers"`
	Normals    []float32  `boundary:"normals"`
	Radii      []float32  `boundary:"radii"`
}

type Cones struct {
	Attributes Attributes `boundary:"attributes"`
	CentersA   []float32  `boundary:"centers_a"`
	CentersB   []float32  `boundary:"centers_b"`
	RadiiA     []float32  `boundary:"radii_a"`
	RadiiB     []float32  `boundary:"radii_b"`
	Angles     []float32  `boundary:"angles"`
	ArcAngles  []float32  `boundary:"arc_angles"`
}

type EccentricCones struct {
	Attributes Attributes `boundary:"attributes"`
	CentersA   []float32  `boundary:"centers_a"`
	CentersB   []float32  `boundary:"centers_b"`
	RadiiA     []float32  `boundary:"radii_a"`
	RadiiB     []float32  `boundary:"radii_b"`
	Normals    []float32  `boundary:"normals"`
}

type EllipsoidSegments struct {
	Attributes      Attributes `boundary:"attributes"`
	Centers         []float32  `boundary:"centers"`
	Normals         []float32  `boundary:"normals"`
	HorizontalRadii []float32  `boundary:"horizontal_radii"`
	VerticalRadii   []float32  `boundary:"vertical_radii"`
	Heights         []float32  `boundary:"heights"`
}

type GeneralRings struct {
	Attributes  Attributes `boundary:"attributes"`
	Centers     []float32  `boundary:"centers"`
	Normals     []float32  `boundary:"normals"`
	LocalXAxes  []float32  `boundary:"local_x_axes"`
	RadiiX      []float32  `boundary:"radii_x"`
	RadiiY      []float32  `boundary:"radii_y"`
	Thicknesses []float32  `boundary:"thicknesses"`
	Angles      []float32  `boundary:"angles"`
	ArcAngles   []float32  `boundary:"arc_angles"`
}

type Nuts struct {
	Attributes     Attributes `boundary:"attributes"`
	CentersA       []float32  `boundary:"centers_a"`
	CentersB       []float32  `boundary:"centers_b"`
	Radii          []float32  `boundary:"radii"`
	RotationAngles []float32  `boundary:"rotation_angles"`
}

type Quads struct {
	Attributes Attributes `boundary:"attributes"`
	Vertices1  []float32  `boundary:"vertices1"`
	Vertices2  []float32  `boundary:"vertices2"`
	Vertices3  []float32  `boundary:"vertices3"`
	UpVectors  []float32  `boundary:"up_vectors"`
}

type SphericalSegments struct {
	Attributes Attributes `boundary:"attributes"`
	Centers    []float32  `boundary:"centers"`
	Normals    []float32  `boundary:"normals"`
	Radii      []float32  `boundary:"radii"`
	Heights    []float32  `boundary:"heights"`
}

type TorusSegments struct {
	Attributes     Attributes `boundary:"attributes"`
	Centers        []float32  `boundary:"centers"`
	Normals        []float32  `boundary:"normals"`
	Radii          []float32  `boundary:"radii"`
	TubeRadii      []float32  `boundary:"tube_radii"`
	RotationAngles []float32  `boundary:"rotation_angles"`
	ArcAngles      []float32  `boundary:"arc_angles"`
}

// MeshTextures are texture file ids; 0 means the texture is absent.
type MeshTextures struct {
	Diffuse uint64 `boundary:"diffuse"`
	Normal  uint64 `boundary:"normal"`
	Bump    uint64 `boundary:"bump"`
}

// MergedMesh maps runs of triangles in one mesh file to tree indices.
// Triangle offsets accumulate in file order.
type MergedMesh struct {
	Attributes      Attributes   `boundary:"attributes"`
	TriangleOffsets []uint64     `boundary:"triangle_offsets"`
	TriangleCounts  []uint64     `boundary:"triangle_counts"`
	Textures        MeshTextures `boundary:"textures"`
	FileID          uint64       `boundary:"file_id"`
}

// InstancedMesh places copies of a triangle range of one mesh file.
type InstancedMesh struct {
	Attributes      Attributes   `boundary:"attributes"`
	TriangleOffsets []uint64     `boundary:"triangle_offsets"`
	TriangleCounts  []uint64     `boundary:"triangle_counts"`
	Translations    []float32    `boundary:"translations"`
	Rotations       []float32    `boundary:"rotations"`
	Scales          []float32    `boundary:"scales"`
	Textures        MeshTextures `boundary:"textures"`
	FileID          uint64       `boundary:"file_id"`
}

// Sector holds every renderable collection converted from one i3df sector.
type Sector struct {
	Unconverted map[string]uint32 `boundary:"unconverted"`

	Boxes             Boxes             `boundary:"boxes"`
	Circles           Circles           `boundary:"circles"`
	Cones             Cones             `boundary:"cones"`
	EccentricCones    EccentricCones    `boundary:"eccentric_cones"`
	EllipsoidSegments EllipsoidSegments `boundary:"ellipsoid_segments"`
	GeneralRings      GeneralRings      `boundary:"general_rings"`
	Nuts              Nuts              `boundary:"nuts"`
	Quads             Quads             `boundary:"quads"`
	SphericalSegments SphericalSegments `boundary:"spherical_segments"`
	TorusSegments     TorusSegments     `boundary:"torus_segments"`

	MergedMeshes    []MergedMesh    `boundary:"merged_meshes"`
	InstancedMeshes []InstancedMesh `boundary:"instanced_meshes"`

	BBoxMin  [3]float32 `boundary:"bbox_min"`
	BBoxMax  [3]float32 `boundary:"bbox_max"`
	ID       uint64     `boundary:"id"`
	ParentID uint64     `boundary:"parent_id"`
}

// PrimitiveCount returns the number of converted instances across all
// collections, mesh mappings included.
func (s *Sector) PrimitiveCount() int {
	n := s.Boxes.Attributes.Len() + s.Circles.Attributes.Len() + s.Cones.Attributes.Len() +
		s.EccentricCones.Attributes.Len() + s.EllipsoidSegments.Attributes.Len() +
		s.GeneralRings.Attributes.Len() + s.Nuts.Attributes.Len() + s.Quads.Attributes.Len() +
		s.SphericalSegments.Attributes.Len() + s.TorusSegments.Attributes.Len()
	for i := range s.MergedMeshes {
		n += s.MergedMeshes[i].Attributes.Len()
	}
	for i := range s.InstancedMeshes {
		n += s.InstancedMeshes[i].Attributes.Len()
	}
	return n
}

// Counts returns the instance count of each non-empty collection.
func (s *Sector) Counts() map[string]int {
	counts := map[string]int{}
	put := func(name string, a *Attributes) {
		if a.Len() > 0 {
			counts[name] += a.Len()
		}
	}
	put("Box", &s.Boxes.Attributes)
	put("Circle", &s.Circles.Attributes)
	put("Cone", &s.Cones.Attributes)
	put("EccentricCone", &s.EccentricCones.Attributes)
	put("EllipsoidSegment", &s.EllipsoidSegments.Attributes)
	put("GeneralRing", &s.GeneralRings.Attributes)
	put("Nut", &s.Nuts.Attributes)
	put("Quad", &s.Quads.Attributes)
	put("SphericalSegment", &s.SphericalSegments.Attributes)
	put("TorusSegment", &s.TorusSegments.Attributes)
	for i := range s.MergedMeshes {
		put("MergedMesh", &s.MergedMeshes[i].Attributes)
	}
	for i := range s.InstancedMeshes {
		put("InstancedMesh", &s.InstancedMeshes[i].Attributes)
	}
	return counts
}

// Node places a converted sector in the scene tree.
type Node struct {
	Sector   *Sector
	Children []*Node
}

// Scene is a converted file. Sectors lists every sector depth first,
// parents before children, so the tree survives packaging through the
// parent ids.
type Scene struct {
	Root    *Node     `boundary:"-"`
	Sectors []*Sector `boundary:"sectors"`
}
