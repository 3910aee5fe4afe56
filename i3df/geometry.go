package i3df

import "fmt"

// GeometryType is the type id of a geometry group.
type GeometryType uint8

const (
	Box                        GeometryType = 1
	Circle                     GeometryType = 2
	ClosedCone                 GeometryType = 3
	ClosedCylinder             GeometryType = 4
	ClosedEccentricCone        GeometryType = 5
	ClosedEllipsoidSegment     GeometryType = 6
	ClosedExtrudedRingSegment  GeometryType = 7
	ClosedSphericalSegment     GeometryType = 9
	ClosedTorusSegment         GeometryType = 10
	Ellipsoid                  GeometryType = 11
	ExtrudedRing               GeometryType = 12
	Nut                        GeometryType = 13
	OpenCone                   GeometryType = 14
	OpenCylinder               GeometryType = 15
	OpenEccentricCone          GeometryType = 16
	OpenEllipsoidSegment       GeometryType = 17
	OpenExtrudedRingSegment    GeometryType = 18
	OpenSphericalSegment       GeometryType = 20
	OpenTorusSegment           GeometryType = 21
	Ring                       GeometryType = 22
	Sphere                     GeometryType = 23
	Torus                      GeometryType = 24
	OpenGeneralCylinder        GeometryType = 30
	ClosedGeneralCylinder      GeometryType = 31
	SolidOpenGeneralCylinder   GeometryType = 32
	SolidClosedGeneralCylinder GeometryType = 33
	OpenGeneralCone            GeometryType = 34
	ClosedGeneralCone          GeometryType = 35
	SolidOpenGeneralCone       GeometryType = 36
	SolidClosedGeneralCone     GeometryType = 37
	MergedMesh                 GeometryType = 100
	InstancedMesh              GeometryType = 101
)

// Property is one logical field of a primitive.
type Property uint8

const (
	PropTreeIndex Property = iota
	PropColor
	PropSize
	PropCenter
	PropNormal
	PropDelta
	PropHeight
	PropRadiusA
	PropRadiusB
	PropCapNormal
	PropRotationAngle
	PropArcAngle
	PropThickness
	PropSlopeA
	PropSlopeB
	PropZAngleA
	PropZAngleB
	PropFileID
	PropTriangleOffset
	PropTriangleCount
	PropTranslation
	PropRotation3
	PropScale
	PropDiffuseTexture
	PropNormalTexture
	PropBumpTexture
)

var propertyNames = [...]string{
	PropTreeIndex:      "treeIndex",
	PropColor:          "color",
	PropSize:           "size",
	PropCenter:         "center",
	PropNormal:         "normal",
	PropDelta:          "delta",
	PropHeight:         "height",
	PropRadiusA:        "radiusA",
	PropRadiusB:        "radiusB",
	PropCapNormal:      "capNormal",
	PropRotationAngle:  "rotationAngle",
	PropArcAngle:       "arcAngle",
	PropThickness:      "thickness",
	PropSlopeA:         "slopeA",
	PropSlopeB:         "slopeB",
	PropZAngleA:        "zAngleA",
	PropZAngleB:        "zAngleB",
	PropFileID:         "fileId",
	PropTriangleOffset: "triangleOffset",
	PropTriangleCount:  "triangleCount",
	PropTranslation:    "translation",
	PropRotation3:      "rotation3",
	PropScale:          "scale",
	PropDiffuseTexture: "diffuseTexture",
	PropNormalTexture:  "normalTexture",
	PropBumpTexture:    "bumpTexture",
}

func (p Property) String() string {
	if int(p) < len(propertyNames) {
		return propertyNames[p]
	}
	return fmt.Sprintf("property(%d)", uint8(p))
}

// Width is the number of coded indices the property consumes.
func (p Property) Width() int {
	switch p {
	case PropCenter, PropDelta, PropTranslation, PropRotation3, PropScale:
		return 3
	default:
		return 1
	}
}

type geometryInfo struct {
	name  string
	props []Property
}

var (
	coneProps          = []Property{PropCenter, PropNormal, PropHeight, PropRadiusA, PropRadiusB}
	cylinderProps      = []Property{PropCenter, PropNormal, PropHeight, PropRadiusA}
	eccentricConeProps = []Property{PropCenter, PropNormal, PropHeight, PropRadiusA, PropRadiusB, PropCapNormal}
	extrudedRingProps  = []Property{PropCenter, PropNormal, PropHeight, PropRadiusA, PropRadiusB, PropRotationAngle, PropArcAngle}
	torusSegmentProps  = []Property{PropCenter, PropNormal, PropRadiusA, PropRadiusB, PropRotationAngle, PropArcAngle}
	ringProps          = []Property{PropCenter, PropNormal, PropRadiusA, PropRadiusB}

	generalCylinderProps = []Property{PropCenter, PropNormal, PropHeight, PropRadiusA,
		PropRotationAngle, PropArcAngle, PropSlopeA, PropSlopeB, PropZAngleA, PropZAngleB}
	solidGeneralCylinderProps = []Property{PropCenter, PropNormal, PropHeight, PropRadiusA, PropThickness,
		PropRotationAngle, PropArcAngle, PropSlopeA, PropSlopeB, PropZAngleA, PropZAngleB}
	generalConeProps = []Property{PropCenter, PropNormal, PropHeight, PropRadiusA, PropRadiusB,
		PropRotationAngle, PropArcAngle, PropSlopeA, PropSlopeB, PropZAngleA, PropZAngleB}
	solidGeneralConeProps = []Property{PropCenter, PropNormal, PropHeight, PropRadiusA, PropRadiusB, PropThickness,
		PropRotationAngle, PropArcAngle, PropSlopeA, PropSlopeB, PropZAngleA, PropZAngleB}
)

func primitive(name string, props ...Property) geometryInfo {
	all := append([]Property{PropTreeIndex, PropColor, PropSize}, props...)
	return geometryInfo{name: name, props: all}
}

var geometries = map[GeometryType]geometryInfo{
	Box:                        primitive("Box", PropCenter, PropNormal, PropDelta, PropRotationAngle),
	Circle:                     primitive("Circle", PropCenter, PropNormal, PropRadiusA),
	ClosedCone:                 primitive("ClosedCone", coneProps...),
	ClosedCylinder:             primitive("ClosedCylinder", cylinderProps...),
	ClosedEccentricCone:        primitive("ClosedEccentricCone", eccentricConeProps...),
	ClosedEllipsoidSegment:     primitive("ClosedEllipsoidSegment", coneProps...),
	ClosedExtrudedRingSegment:  primitive("ClosedExtrudedRingSegment", extrudedRingProps...),
	ClosedSphericalSegment:     primitive("ClosedSphericalSegment", cylinderProps...),
	ClosedTorusSegment:         primitive("ClosedTorusSegment", torusSegmentProps...),
	Ellipsoid:                  primitive("Ellipsoid", ringProps...),
	ExtrudedRing:               primitive("ExtrudedRing", coneProps...),
	Nut:                        primitive("Nut", PropCenter, PropNormal, PropHeight, PropRadiusA, PropRotationAngle),
	OpenCone:                   primitive("OpenCone", coneProps...),
	OpenCylinder:               primitive("OpenCylinder", cylinderProps...),
	OpenEccentricCone:          primitive("OpenEccentricCone", eccentricConeProps...),
	OpenEllipsoidSegment:       primitive("OpenEllipsoidSegment", coneProps...),
	OpenExtrudedRingSegment:    primitive("OpenExtrudedRingSegment", extrudedRingProps...),
	OpenSphericalSegment:       primitive("OpenSphericalSegment", cylinderProps...),
	OpenTorusSegment:           primitive("OpenTorusSegment", torusSegmentProps...),
	Ring:                       primitive("Ring", ringProps...),
	Sphere:                     primitive("Sphere", PropCenter, PropRadiusA),
	Torus:                      primitive("Torus", ringProps...),
	OpenGeneralCylinder:        primitive("OpenGeneralCylinder", generalCylinderProps...),
	ClosedGeneralCylinder:      primitive("ClosedGeneralCylinder", generalCylinderProps...),
	SolidOpenGeneralCylinder:   primitive("SolidOpenGeneralCylinder", solidGeneralCylinderProps...),
	SolidClosedGeneralCylinder: primitive("SolidClosedGeneralCylinder", solidGeneralCylinderProps...),
	OpenGeneralCone:            primitive("OpenGeneralCone", generalConeProps...),
	ClosedGeneralCone:          primitive("ClosedGeneralCone", generalConeProps...),
	SolidOpenGeneralCone:       primitive("SolidOpenGeneralCone", solidGeneralConeProps...),
	SolidClosedGeneralCone:     primitive("SolidClosedGeneralCone", solidGeneralConeProps...),
	MergedMesh: {name: "MergedMesh", props: []Property{
		PropTreeIndex, PropFileID, PropDiffuseTexture, PropNormalTexture, PropBumpTexture,
		PropTriangleCount, PropColor, PropSize,
	}},
	InstancedMesh: {name: "InstancedMesh", props: []Property{
		PropTreeIndex, PropFileID, PropDiffuseTexture, PropNormalTexture, PropBumpTexture,
		PropTriangleOffset, PropTriangleCount, PropColor, PropSize,
		PropTranslation, PropRotation3, PropScale,
	}},
}

// Known reports whether t is a defined geometry type.
func (t GeometryType) Known() bool {
	_, ok := geometries[t]
	return ok
}

func (t GeometryType) String() string {
	if g, ok := geometries[t]; ok {
		return g.name
	}
	return fmt.Sprintf("GeometryType(%d)", uint8(t))
}

// Properties returns the ordered property list instances of t are coded with.
func (t GeometryType) Properties() []Property {
	return geometries[t].props
}

// IndexWidth returns the number of coded indices one instance of t consumes.
func (t GeometryType) IndexWidth() int {
	n := 0
	for _, p := range geometries[t].props {
		n += p.Width()
	}
	return n
}
