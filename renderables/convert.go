package renderables

import (
	"math"

	"github.com/wippyai/reveal-bridge/i3df"
	"go.uber.org/zap"
)

const fullTurn = 2 * math.Pi

// ConvertSector converts every geometry group of s.
func ConvertSector(s *i3df.Sector) *Sector {
	out := &Sector{
		ID:          s.Header.SectorID,
		ParentID:    s.Header.ParentSectorID,
		BBoxMin:     [3]float32{s.Header.BBoxMin.X, s.Header.BBoxMin.Y, s.Header.BBoxMin.Z},
		BBoxMax:     [3]float32{s.Header.BBoxMax.X, s.Header.BBoxMax.Y, s.Header.BBoxMax.Z},
		Unconverted: map[string]uint32{},
	}
	c := &converter{out: out}
	for i := range s.Groups {
		c.group(&s.Groups[i])
	}

	for name, n := range out.Unconverted {
		Logger().Warn("geometry left unconverted",
			zap.Uint64("sector_id", out.ID),
			zap.String("type", name),
			zap.Uint32("count", n))
	}
	Logger().Debug("sector converted",
		zap.Uint64("sector_id", out.ID),
		zap.Int("primitives", out.PrimitiveCount()))
	return out
}

// ConvertScene converts every sector of sc and keeps its tree.
func ConvertScene(sc *i3df.Scene) *Scene {
	out := &Scene{}
	if sc == nil || sc.Root == nil {
		return out
	}
	var conv func(n *i3df.Node) *Node
	conv = func(n *i3df.Node) *Node {
		node := &Node{Sector: ConvertSector(n.Sector)}
		out.Sectors = append(out.Sectors, node.Sector)
		for _, child := range n.Children {
			node.Children = append(node.Children, conv(child))
		}
		return node
	}
	out.Root = conv(sc.Root)
	return out
}

type converter struct {
	out *Sector
}

func (c *converter) group(g *i3df.GeometryGroup) {
	switch g.Type {
	case i3df.MergedMesh:
		c.mergedMeshes(g.Primitives)
		return
	case i3df.InstancedMesh:
		c.instancedMeshes(g.Primitives)
		return
	case i3df.OpenGeneralCylinder, i3df.ClosedGeneralCylinder,
		i3df.SolidOpenGeneralCylinder, i3df.SolidClosedGeneralCylinder,
		i3df.SolidOpenGeneralCone, i3df.SolidClosedGeneralCone:
		if len(g.Primitives) > 0 {
			c.out.Unconverted[g.Type.String()] += uint32(len(g.Primitives))
		}
		return
	}
	for i := range g.Primitives {
		c.primitive(g.Type, &g.Primitives[i])
	}
}

func (c *converter) primitive(t i3df.GeometryType, p *i3df.Primitive) {
	center := fromI3DF(p.Center)
	normal := fromI3DF(p.Normal)
	rA, rB := float64(p.RadiusA), float64(p.RadiusB)

	switch t {
	case i3df.Box:
		c.box(p)
	case i3df.Circle:
		c.circle(p, center, normal, rA)
	case i3df.OpenCone:
		a, b := ends(p)
		c.cone(p, a, b, rA, rB, 0, fullTurn)
	case i3df.ClosedCone:
		a, b := ends(p)
		c.cone(p, a, b, rA, rB, 0, fullTurn)
		c.circle(p, a, normal, rA)
		c.circle(p, b, normal, rB)
	case i3df.OpenCylinder:
		a, b := ends(p)
		c.cone(p, a, b, rA, rA, 0, fullTurn)
	case i3df.ClosedCylinder:
		a, b := ends(p)
		c.cone(p, a, b, rA, rA, 0, fullTurn)
		c.circle(p, a, normal, rA)
		c.circle(p, b, normal, rA)
	case i3df.OpenEccentricCone:
		c.eccentricCone(p)
	case i3df.ClosedEccentricCone:
		a, b, capNormal := c.eccentricCone(p)
		c.circle(p, a, capNormal, rA)
		c.circle(p, b, capNormal, rB)
	case i3df.Ellipsoid:
		c.ellipsoidSegment(p, center, normal, rA, rB, 2*rB)
	case i3df.OpenEllipsoidSegment:
		c.ellipsoidSegment(p, center, normal, rA, rB, float64(p.Height))
	case i3df.ClosedEllipsoidSegment:
		h := float64(p.Height)
		c.ellipsoidSegment(p, center, normal, rA, rB, h)
		length := rB - h
		radius := math.Sqrt(rB*rB-length*length) * rA / rB
		c.circle(p, center.add(normal.normalize().scale(length)), normal, radius)
	case i3df.Sphere:
		c.sphericalSegment(p, center, zAxis, rA, 2*rA)
	case i3df.OpenSphericalSegment:
		c.sphericalSegment(p, center, normal, rA, float64(p.Height))
	case i3df.ClosedSphericalSegment:
		h := float64(p.Height)
		c.sphericalSegment(p, center, normal, rA, h)
		length := rA - h
		radius := math.Sqrt(rA*rA - length*length)
		c.circle(p, center.add(normal.normalize().scale(length)), normal, radius)
	case i3df.Ring:
		c.generalRing(p, center, normal, xAxis, rA, rA, rA-rB, 0, fullTurn)
	case i3df.Torus:
		c.torusSegment(p, 0, fullTurn)
	case i3df.OpenTorusSegment, i3df.ClosedTorusSegment:
		c.torusSegment(p, float64(p.RotationAngle), float64(p.ArcAngle))
	case i3df.ExtrudedRing:
		c.extrudedRing(p, 0, fullTurn)
	case i3df.OpenExtrudedRingSegment:
		c.extrudedRing(p, float64(p.RotationAngle), float64(p.ArcAngle))
	case i3df.ClosedExtrudedRingSegment:
		angle, arc := float64(p.RotationAngle), float64(p.ArcAngle)
		a, b := c.extrudedRing(p, angle, arc)
		c.ringQuad(p, a, b, angle, true)
		c.ringQuad(p, a, b, angle+arc, false)
	case i3df.Nut:
		a, b := ends(p)
		n := &c.out.Nuts
		n.Attributes.add(p)
		n.CentersA = appendVec(n.CentersA, a)
		n.CentersB = appendVec(n.CentersB, b)
		n.Radii = append(n.Radii, p.RadiusA)
		n.RotationAngles = append(n.RotationAngles, p.RotationAngle)
	case i3df.OpenGeneralCone:
		a, b := ends(p)
		c.cone(p, a, b, rA, rB, float64(p.RotationAngle), float64(p.ArcAngle))
	case i3df.ClosedGeneralCone:
		angle, arc := float64(p.RotationAngle), float64(p.ArcAngle)
		a, b := ends(p)
		c.cone(p, a, b, rA, rB, angle, arc)
		x := rotationFromZ(normal).rotate(xAxis)
		th := float64(p.Thickness)
		c.generalRing(p, a, normal, x, rA, rA, th, angle, arc)
		c.generalRing(p, b, normal, x, rB, rB, th, angle, arc)
	default:
		c.out.Unconverted[t.String()]++
	}
}

// ends returns the cap centers half a height along the normal on each side
// of the center.
func ends(p *i3df.Primitive) (a, b vec3) {
	center := fromI3DF(p.Center)
	normal := fromI3DF(p.Normal)
	half := float64(p.Height) / 2
	return center.add(normal.scale(half)), center.add(normal.scale(-half))
}

func (c *converter) box(p *i3df.Primitive) {
	b := &c.out.Boxes
	b.Attributes.add(p)
	b.Centers = appendVec(b.Centers, fromI3DF(p.Center))
	b.Normals = appendVec(b.Normals, fromI3DF(p.Normal))
	b.Deltas = appendVec(b.Deltas, fromI3DF(p.Delta))
	b.RotationAngles = append(b.RotationAngles, p.RotationAngle)
}

func (c *converter) circle(p *i3df.Primitive, center, normal vec3, radius float64) {
	ci := &c.out.Circles
	ci.Attributes.add(p)
	ci.Centers = appendVec(ci.Centers, center)
	ci.Normals = appendVec(ci.Normals, normal)
	ci.Radii = append(ci.Radii, float32(radius))
}

func (c *converter) cone(p *i3df.Primitive, a, b vec3, rA, rB, angle, arc float64) {
	co := &c.out.Cones
	co.Attributes.add(p)
	co.CentersA = appendVec(co.CentersA, a)
	co.CentersB = appendVec(co.CentersB, b)
	co.RadiiA = append(co.RadiiA, float32(rA))
	co.RadiiB = append(co.RadiiB, float32(rB))
	co.Angles = append(co.Angles, float32(angle))
	co.ArcAngles = append(co.ArcAngles, float32(arc))
}

// eccentricCone adds the cone and returns its ends and the cap normal,
// flipped to point from B towards A.
func (c *converter) eccentricCone(p *i3df.Primitive) (a, b, capNormal vec3) {
	a, b = ends(p)
	capNormal = fromI3DF(p.CapNormal)
	if capNormal.dot(a.sub(b)) < 0 {
		capNormal = capNormal.negate()
	}
	e := &c.out.EccentricCones
	e.Attributes.add(p)
	e.CentersA = appendVec(e.CentersA, a)
	e.CentersB = appendVec(e.CentersB, b)
	e.RadiiA = append(e.RadiiA, p.RadiusA)
	e.RadiiB = append(e.RadiiB, p.RadiusB)
	e.Normals = appendVec(e.Normals, capNormal)
	return a, b, capNormal
}

func (c *converter) ellipsoidSegment(p *i3df.Primitive, center, normal vec3, rA, rB, height float64) {
	e := &c.out.EllipsoidSegments
	e.Attributes.add(p)
	e.Centers = appendVec(e.Centers, center)
	e.Normals = appendVec(e.Normals, normal)
	e.HorizontalRadii = append(e.HorizontalRadii, float32(rA))
	e.VerticalRadii = append(e.VerticalRadii, float32(rB))
	e.Heights = append(e.Heights, float32(height))
}

func (c *converter) sphericalSegment(p *i3df.Primitive, center, normal vec3, radius, height float64) {
	s := &c.out.SphericalSegments
	s.Attributes.add(p)
	s.Centers = appendVec(s.Centers, center)
	s.Normals = appendVec(s.Normals, normal)
	s.Radii = append(s.Radii, float32(radius))
	s.Heights = append(s.Heights, float32(height))
}

func (c *converter) generalRing(p *i3df.Primitive, center, normal, localX vec3, rX, rY, thickness, angle, arc float64) {
	g := &c.out.GeneralRings
	g.Attributes.add(p)
	g.Centers = appendVec(g.Centers, center)
	g.Normals = appendVec(g.Normals, normal)
	g.LocalXAxes = appendVec(g.LocalXAxes, localX)
	g.RadiiX = append(g.RadiiX, float32(rX))
	g.RadiiY = append(g.RadiiY, float32(rY))
	g.Thicknesses = append(g.Thicknesses, float32(thickness))
	g.Angles = append(g.Angles, float32(angle))
	g.ArcAngles = append(g.ArcAngles, float32(arc))
}

func (c *converter) torusSegment(p *i3df.Primitive, angle, arc float64) {
	t := &c.out.TorusSegments
	t.Attributes.add(p)
	t.Centers = appendVec(t.Centers, fromI3DF(p.Center))
	t.Normals = appendVec(t.Normals, fromI3DF(p.Normal))
	t.Radii = append(t.Radii, p.RadiusA)
	t.TubeRadii = append(t.TubeRadii, p.RadiusB)
	t.RotationAngles = append(t.RotationAngles, float32(angle))
	t.ArcAngles = append(t.ArcAngles, float32(arc))
}

// extrudedRing adds the two end rings and the inner and outer walls.
func (c *converter) extrudedRing(p *i3df.Primitive, angle, arc float64) (a, b vec3) {
	a, b = ends(p)
	normal := fromI3DF(p.Normal)
	rA, rB := float64(p.RadiusA), float64(p.RadiusB)
	x := rotationFromZ(normal).rotate(xAxis)

	c.generalRing(p, a, normal, x, rB, rB, rB-rA, angle, arc)
	c.generalRing(p, b, normal, x, rB, rB, rB-rA, angle, arc)
	c.cone(p, a, b, rA, rA, angle, arc)
	c.cone(p, a, b, rB, rB, angle, arc)
	return a, b
}

// ringQuad closes an extruded ring segment at angle. The first and second
// quads list their first two vertices in opposite order so both face out.
func (c *converter) ringQuad(p *i3df.Primitive, a, b vec3, angle float64, first bool) {
	up := a.sub(b).normalize()
	dir := rotationFromZ(up).rotate(vec3{math.Cos(angle), math.Sin(angle), 0}).normalize()
	rA, rB := float64(p.RadiusA), float64(p.RadiusB)

	v1 := dir.scale(rB).add(a)
	v2 := dir.scale(rA).add(b)
	v3 := dir.scale(rB).add(b)
	if first {
		v1, v2 = v2, v1
	}

	q := &c.out.Quads
	q.Attributes.add(p)
	q.Vertices1 = appendVec(q.Vertices1, v1)
	q.Vertices2 = appendVec(q.Vertices2, v2)
	q.Vertices3 = appendVec(q.Vertices3, v3)
	q.UpVectors = appendVec(q.UpVectors, up)
}

func textures(p *i3df.Primitive) MeshTextures {
	var t MeshTextures
	if p.DiffuseTexture != nil {
		t.Diffuse = p.DiffuseTexture.FileID
	}
	if p.NormalTexture != nil {
		t.Normal = p.NormalTexture.FileID
	}
	if p.BumpTexture != nil {
		t.Bump = p.BumpTexture.FileID
	}
	return t
}

// mergedMeshes groups mappings by file id in order of first appearance and
// assigns each mapping the running triangle offset of its file.
func (c *converter) mergedMeshes(prims []i3df.Primitive) {
	byFile := map[uint64]int{}
	offsets := map[uint64]uint64{}
	for i := range prims {
		p := &prims[i]
		idx, ok := byFile[p.FileID]
		if !ok {
			idx = len(c.out.MergedMeshes)
			byFile[p.FileID] = idx
			c.out.MergedMeshes = append(c.out.MergedMeshes, MergedMesh{FileID: p.FileID, Textures: textures(p)})
		}
		m := &c.out.MergedMeshes[idx]
		m.Attributes.add(p)
		m.TriangleOffsets = append(m.TriangleOffsets, offsets[p.FileID])
		m.TriangleCounts = append(m.TriangleCounts, p.TriangleCount)
		offsets[p.FileID] += p.TriangleCount
	}
}

func (c *converter) instancedMeshes(prims []i3df.Primitive) {
	byFile := map[uint64]int{}
	for i := range prims {
		p := &prims[i]
		idx, ok := byFile[p.FileID]
		if !ok {
			idx = len(c.out.InstancedMeshes)
			byFile[p.FileID] = idx
			c.out.InstancedMeshes = append(c.out.InstancedMeshes, InstancedMesh{FileID: p.FileID, Textures: textures(p)})
		}
		m := &c.out.InstancedMeshes[idx]
		m.Attributes.add(p)
		m.TriangleOffsets = append(m.TriangleOffsets, p.TriangleOffset)
		m.TriangleCounts = append(m.TriangleCounts, p.TriangleCount)
		m.Translations = appendVec(m.Translations, fromI3DF(p.Translation))
		m.Rotations = appendVec(m.Rotations, fromI3DF(p.Rotation))
		m.Scales = appendVec(m.Scales, fromI3DF(p.Scale))
	}
}
