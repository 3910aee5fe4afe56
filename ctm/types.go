package ctm

// Method is the compression method tag from the file header.
type Method string

const (
	MethodRAW Method = "RAW"
	MethodMG1 Method = "MG1"
	MethodMG2 Method = "MG2"
)

// FlagNormals is set in Header.Flags when the file carries per-vertex normals.
const FlagNormals = 0x00000001

// Magic is the four byte file identifier.
const Magic = "OCTM"

// Version is the only file format version this package reads.
const Version = 5

// Header is the fixed preamble of an OpenCTM file.
type Header struct {
	Method         Method
	Comment        string
	Version        int32
	VertexCount    int32
	TriangleCount  int32
	UVMapCount     int32
	AttribMapCount int32
	Flags          int32
}

// HasNormals reports whether the normals chunk is present.
func (h Header) HasNormals() bool {
	return h.Flags&FlagNormals != 0
}

// Vertex is one position or normal record.
type Vertex struct {
	X, Y, Z float32
}

// UVMap is a named per-vertex texture coordinate set, two values per vertex.
type UVMap struct {
	Name     string
	Filename string
	Coords   []float32
}

// AttribMap is a named per-vertex attribute set, four values per vertex.
type AttribMap struct {
	Name   string
	Values []float32
}

// Mesh is a decoded OpenCTM file. Indices holds three entries per triangle.
type Mesh struct {
	Vertices   []Vertex
	Normals    []Vertex
	Indices    []uint32
	UVMaps     []UVMap
	AttribMaps []AttribMap
	Header     Header
}
