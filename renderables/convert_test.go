package renderables

import (
	"math"
	"testing"

	"github.com/wippyai/reveal-bridge/i3df"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func nearAll(t *testing.T, name string, got []float32, want ...float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
	for i := range want {
		if !near(got[i], want[i]) {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
	}
}

func sectorWith(groups ...i3df.GeometryGroup) *i3df.Sector {
	return &i3df.Sector{
		Header: i3df.Header{SectorID: 4, ParentSectorID: 1, BBoxMax: i3df.Vector3{X: 1, Y: 2, Z: 3}},
		Groups: groups,
	}
}

func TestConvertSector_Box(t *testing.T) {
	box := i3df.Primitive{
		NodeID:        9,
		TreeIndex:     3,
		Color:         i3df.Color{R: 1, G: 2, B: 3, A: 4},
		Size:          2,
		Center:        i3df.Vector3{X: 1, Y: 2, Z: 3},
		Normal:        i3df.Vector3{Z: 1},
		Delta:         i3df.Vector3{X: 1, Y: 1, Z: 1},
		RotationAngle: 0.5,
	}
	s := ConvertSector(sectorWith(i3df.GeometryGroup{Type: i3df.Box, Primitives: []i3df.Primitive{box}}))

	if s.ID != 4 || s.ParentID != 1 || s.BBoxMax != [3]float32{1, 2, 3} {
		t.Errorf("unexpected sector identity %d/%d %v", s.ID, s.ParentID, s.BBoxMax)
	}
	b := s.Boxes
	if b.Attributes.Len() != 1 || b.Attributes.NodeIDs[0] != 9 || b.Attributes.TreeIndices[0] != 3 {
		t.Fatalf("Attributes = %+v", b.Attributes)
	}
	nearAll(t, "colors", []float32{
		float32(b.Attributes.Colors[0]), float32(b.Attributes.Colors[1]),
		float32(b.Attributes.Colors[2]), float32(b.Attributes.Colors[3]),
	}, 1, 2, 3, 4)
	nearAll(t, "centers", b.Centers, 1, 2, 3)
	nearAll(t, "normals", b.Normals, 0, 0, 1)
	nearAll(t, "rotation", b.RotationAngles, 0.5)
	if s.PrimitiveCount() != 1 {
		t.Errorf("PrimitiveCount = %d", s.PrimitiveCount())
	}
}

func TestConvertSector_ClosedCylinder(t *testing.T) {
	cyl := i3df.Primitive{
		Center:  i3df.Vector3{X: 1},
		Normal:  i3df.Vector3{Z: 1},
		Height:  4,
		RadiusA: 0.5,
	}
	s := ConvertSector(sectorWith(i3df.GeometryGroup{Type: i3df.ClosedCylinder, Primitives: []i3df.Primitive{cyl}}))

	nearAll(t, "centers_a", s.Cones.CentersA, 1, 0, 2)
	nearAll(t, "centers_b", s.Cones.CentersB, 1, 0, -2)
	nearAll(t, "radii_a", s.Cones.RadiiA, 0.5)
	nearAll(t, "radii_b", s.Cones.RadiiB, 0.5)
	nearAll(t, "arc", s.Cones.ArcAngles, 2*math.Pi)
	if s.Circles.Attributes.Len() != 2 {
		t.Fatalf("expected two caps, got %d", s.Circles.Attributes.Len())
	}
	nearAll(t, "cap centers", s.Circles.Centers, 1, 0, 2, 1, 0, -2)
}

func TestConvertSector_ClosedCone(t *testing.T) {
	cone := i3df.Primitive{Normal: i3df.Vector3{Y: 1}, Height: 2, RadiusA: 1, RadiusB: 0.25}
	s := ConvertSector(sectorWith(i3df.GeometryGroup{Type: i3df.ClosedCone, Primitives: []i3df.Primitive{cone}}))

	nearAll(t, "radii_b", s.Cones.RadiiB, 0.25)
	nearAll(t, "cap radii", s.Circles.Radii, 1, 0.25)
	nearAll(t, "cap centers", s.Circles.Centers, 0, 1, 0, 0, -1, 0)
}

func TestConvertSector_EccentricConeFlipsCapNormal(t *testing.T) {
	cone := i3df.Primitive{
		Normal:    i3df.Vector3{Z: 1},
		CapNormal: i3df.Vector3{Z: -1},
		Height:    2,
		RadiusA:   1,
		RadiusB:   2,
	}
	s := ConvertSector(sectorWith(i3df.GeometryGroup{Type: i3df.ClosedEccentricCone, Primitives: []i3df.Primitive{cone}}))

	nearAll(t, "normals", s.EccentricCones.Normals, 0, 0, 1)
	nearAll(t, "cap normals", s.Circles.Normals, 0, 0, 1, 0, 0, 1)
}

func TestConvertSector_SpheresAndEllipsoids(t *testing.T) {
	sphere := i3df.Primitive{Center: i3df.Vector3{X: 5}, RadiusA: 2}
	closed := i3df.Primitive{Normal: i3df.Vector3{Z: 1}, RadiusA: 2, Height: 1}
	ellipsoid := i3df.Primitive{Normal: i3df.Vector3{Z: 1}, RadiusA: 3, RadiusB: 1.5}
	s := ConvertSector(sectorWith(
		i3df.GeometryGroup{Type: i3df.Sphere, Primitives: []i3df.Primitive{sphere}},
		i3df.GeometryGroup{Type: i3df.ClosedSphericalSegment, Primitives: []i3df.Primitive{closed}},
		i3df.GeometryGroup{Type: i3df.Ellipsoid, Primitives: []i3df.Primitive{ellipsoid}},
	))

	ss := s.SphericalSegments
	nearAll(t, "sphere normals", ss.Normals, 0, 0, 1, 0, 0, 1)
	nearAll(t, "sphere heights", ss.Heights, 4, 1)
	// cap of a radius 2 sphere cut 1 below the top: r = sqrt(4 - 1)
	nearAll(t, "cap radius", s.Circles.Radii, float32(math.Sqrt(3)))
	nearAll(t, "cap center", s.Circles.Centers, 0, 0, 1)
	nearAll(t, "ellipsoid height", s.EllipsoidSegments.Heights, 3)
}

func TestConvertSector_ExtrudedRingSegment(t *testing.T) {
	ring := i3df.Primitive{
		Normal:        i3df.Vector3{Z: 1},
		Height:        2,
		RadiusA:       1,
		RadiusB:       2,
		RotationAngle: 0,
		ArcAngle:      math.Pi / 2,
	}
	s := ConvertSector(sectorWith(i3df.GeometryGroup{Type: i3df.ClosedExtrudedRingSegment, Primitives: []i3df.Primitive{ring}}))

	if s.GeneralRings.Attributes.Len() != 2 || s.Cones.Attributes.Len() != 2 || s.Quads.Attributes.Len() != 2 {
		t.Fatalf("Counts = %v", s.Counts())
	}
	nearAll(t, "thickness", s.GeneralRings.Thicknesses, 1, 1)
	nearAll(t, "local x", s.GeneralRings.LocalXAxes, 1, 0, 0, 1, 0, 0)
	nearAll(t, "wall radii", s.Cones.RadiiA, 1, 2)
	// first quad at angle 0: inner bottom, outer top, outer bottom
	nearAll(t, "quad1 v1", s.Quads.Vertices1[:3], 1, 0, -1)
	nearAll(t, "quad1 v2", s.Quads.Vertices2[:3], 2, 0, 1)
	nearAll(t, "quad1 v3", s.Quads.Vertices3[:3], 2, 0, -1)
	nearAll(t, "quad2 v1", s.Quads.Vertices1[3:], 0, 2, 1)
}

func TestConvertSector_RingAndTorus(t *testing.T) {
	ring := i3df.Primitive{Normal: i3df.Vector3{Z: 1}, RadiusA: 3, RadiusB: 1}
	torus := i3df.Primitive{Normal: i3df.Vector3{Z: 1}, RadiusA: 3, RadiusB: 1}
	s := ConvertSector(sectorWith(
		i3df.GeometryGroup{Type: i3df.Ring, Primitives: []i3df.Primitive{ring}},
		i3df.GeometryGroup{Type: i3df.Torus, Primitives: []i3df.Primitive{torus}},
	))
	nearAll(t, "ring thickness", s.GeneralRings.Thicknesses, 2)
	nearAll(t, "ring radii", s.GeneralRings.RadiiY, 3)
	nearAll(t, "torus arc", s.TorusSegments.ArcAngles, 2*math.Pi)
	nearAll(t, "tube", s.TorusSegments.TubeRadii, 1)
}

func TestConvertSector_Unconverted(t *testing.T) {
	prims := make([]i3df.Primitive, 3)
	s := ConvertSector(sectorWith(
		i3df.GeometryGroup{Type: i3df.OpenGeneralCylinder, Primitives: prims},
		i3df.GeometryGroup{Type: i3df.SolidClosedGeneralCone, Primitives: prims[:1]},
	))
	if s.Unconverted["OpenGeneralCylinder"] != 3 || s.Unconverted["SolidClosedGeneralCone"] != 1 {
		t.Fatalf("Unconverted = %v", s.Unconverted)
	}
	if s.PrimitiveCount() != 0 {
		t.Errorf("PrimitiveCount = %d, want 0", s.PrimitiveCount())
	}
}

func TestConvertSector_MergedMeshOffsets(t *testing.T) {
	tex := &i3df.Texture{FileID: 77}
	prims := []i3df.Primitive{
		{FileID: 1, TriangleCount: 10, TreeIndex: 1, DiffuseTexture: tex},
		{FileID: 2, TriangleCount: 5, TreeIndex: 2},
		{FileID: 1, TriangleCount: 7, TreeIndex: 3},
	}
	s := ConvertSector(sectorWith(i3df.GeometryGroup{Type: i3df.MergedMesh, Primitives: prims}))

	if len(s.MergedMeshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(s.MergedMeshes))
	}
	m := s.MergedMeshes[0]
	if m.FileID != 1 || m.Textures.Diffuse != 77 {
		t.Errorf("first mesh file/texture = %d/%d", m.FileID, m.Textures.Diffuse)
	}
	if len(m.TriangleOffsets) != 2 || m.TriangleOffsets[0] != 0 || m.TriangleOffsets[1] != 10 {
		t.Errorf("TriangleOffsets = %v, want [0 10]", m.TriangleOffsets)
	}
	if s.MergedMeshes[1].TriangleOffsets[0] != 0 {
		t.Errorf("offsets should restart per file id")
	}
}

func TestConvertSector_InstancedMesh(t *testing.T) {
	prims := []i3df.Primitive{
		{FileID: 3, TriangleOffset: 4, TriangleCount: 8, Translation: i3df.Vector3{X: 1}, Scale: i3df.Vector3{X: 1, Y: 1, Z: 1}},
		{FileID: 3, TriangleOffset: 12, TriangleCount: 2, Rotation: i3df.Vector3{Z: 1}},
	}
	s := ConvertSector(sectorWith(i3df.GeometryGroup{Type: i3df.InstancedMesh, Primitives: prims}))
	if len(s.InstancedMeshes) != 1 {
		t.Fatalf("expected one mesh per file id, got %d", len(s.InstancedMeshes))
	}
	m := s.InstancedMeshes[0]
	if len(m.TriangleOffsets) != 2 || m.TriangleOffsets[1] != 12 {
		t.Errorf("TriangleOffsets = %v", m.TriangleOffsets)
	}
	nearAll(t, "translations", m.Translations, 1, 0, 0, 0, 0, 0)
	nearAll(t, "rotations", m.Rotations, 0, 0, 0, 0, 0, 1)
}

func TestConvertScene(t *testing.T) {
	root := &i3df.Node{Sector: &i3df.Sector{Header: i3df.Header{SectorID: 0}}}
	child := &i3df.Node{Sector: &i3df.Sector{Header: i3df.Header{SectorID: 1}}}
	grandchild := &i3df.Node{Sector: &i3df.Sector{Header: i3df.Header{SectorID: 2, ParentSectorID: 1}}}
	child.Children = []*i3df.Node{grandchild}
	root.Children = []*i3df.Node{child}

	sc := ConvertScene(&i3df.Scene{Root: root})
	if len(sc.Sectors) != 3 {
		t.Fatalf("expected 3 sectors, got %d", len(sc.Sectors))
	}
	for i, s := range sc.Sectors {
		if s.ID != uint64(i) {
			t.Errorf("Sectors[%d].ID = %d", i, s.ID)
		}
	}
	if sc.Root.Children[0].Children[0].Sector.ParentID != 1 {
		t.Error("tree not preserved")
	}
	if empty := ConvertScene(nil); len(empty.Sectors) != 0 {
		t.Error("nil scene should convert to empty")
	}
}

func TestRotationFromZ(t *testing.T) {
	tests := []struct {
		dir  vec3
		want vec3
	}{
		{vec3{0, 0, 1}, vec3{1, 0, 0}},
		{vec3{0, 0, -1}, vec3{-1, 0, 0}},
		{vec3{1, 0, 0}, vec3{0, 0, -1}},
	}
	for _, tt := range tests {
		got := rotationFromZ(tt.dir).rotate(xAxis)
		if got.sub(tt.want).length() > 1e-9 {
			t.Errorf("rotationFromZ(%v) x axis = %v, want %v", tt.dir, got, tt.want)
		}
	}
	if got := rotationFromZ(vec3{0, 3, 0}).rotate(zAxis); got.sub(vec3{0, 1, 0}).length() > 1e-9 {
		t.Errorf("z should map onto the normalized direction, got %v", got)
	}
}
