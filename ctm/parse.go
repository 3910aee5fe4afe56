package ctm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ulikunitz/xz/lzma"
	"github.com/wippyai/reveal-bridge/internal/wire"
	"go.uber.org/zap"
)

// ParseError reports where in the OpenCTM stream decoding failed.
type ParseError = wire.ParseError

var (
	ErrBadMagic        = errors.New("not an OpenCTM file")
	ErrUnsupported     = errors.New("unsupported OpenCTM feature")
	ErrIndexOutOfRange = errors.New("triangle index out of range")
	ErrCountOutOfRange = errors.New("element count out of range")
	ErrTruncatedLZMA   = errors.New("packed array shorter than declared")
)

const (
	maxElements = 1 << 26

	lzmaPropsSize = 5
	// props, dictionary size and the u64 unpacked size
	lzmaClassicHeaderLen = 13
)

type lener interface {
	Len() int
}

// Parse decodes a complete OpenCTM stream.
func Parse(r io.Reader) (*Mesh, error) {
	p := &parser{r: wire.NewReader(r, "openctm"), src: r}
	if err := p.header(); err != nil {
		return nil, err
	}

	switch p.mesh.Header.Method {
	case MethodRAW:
		p.arr = rawArrays{p}
	case MethodMG1:
		p.arr = mg1Arrays{p}
	default:
		return nil, p.r.WrapError("header", fmt.Errorf("%w: method %s", ErrUnsupported, p.mesh.Header.Method))
	}

	if err := p.body(); err != nil {
		return nil, err
	}

	Logger().Debug("openctm parsed",
		zap.String("method", string(p.mesh.Header.Method)),
		zap.Int("vertices", len(p.mesh.Vertices)),
		zap.Int("triangles", len(p.mesh.Indices)/3))
	return &p.mesh, nil
}

type parser struct {
	r    *wire.Reader
	src  io.Reader
	arr  arrays
	mesh Mesh
}

// arrays reads the numeric payload of one chunk. count is the number of
// elements and size the number of components per element.
type arrays interface {
	ints(section string, count, size int) ([]uint32, error)
	floats(section string, count, size int) ([]float32, error)
}

func (p *parser) header() error {
	if err := p.r.Expect("header", Magic); err != nil {
		return notCTM(err)
	}

	h := &p.mesh.Header
	var err error
	if h.Version, err = p.r.I32(); err != nil {
		return p.r.WrapError("header", err)
	}
	if h.Version != Version {
		return p.r.WrapError("header", fmt.Errorf("%w: version %d", ErrUnsupported, h.Version))
	}
	tag, err := p.r.Tag()
	if err != nil {
		return p.r.WrapError("header", err)
	}
	h.Method = Method(trimTag(tag))

	for _, f := range []*int32{&h.VertexCount, &h.TriangleCount, &h.UVMapCount, &h.AttribMapCount, &h.Flags} {
		if *f, err = p.r.I32(); err != nil {
			return p.r.WrapError("header", err)
		}
	}
	if h.VertexCount <= 0 || int(h.VertexCount) > maxElements {
		return p.r.WrapError("header", fmt.Errorf("%w: %d vertices", ErrCountOutOfRange, h.VertexCount))
	}
	if h.TriangleCount <= 0 || int(h.TriangleCount) > maxElements {
		return p.r.WrapError("header", fmt.Errorf("%w: %d triangles", ErrCountOutOfRange, h.TriangleCount))
	}
	if h.UVMapCount < 0 || h.AttribMapCount < 0 {
		return p.r.WrapError("header", fmt.Errorf("%w: negative map count", ErrCountOutOfRange))
	}

	h.Comment, err = p.str("comment")
	return err
}

func notCTM(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) && !errors.Is(err, io.ErrUnexpectedEOF) {
		pe.Err = fmt.Errorf("%w: %v", ErrBadMagic, pe.Err)
	}
	return err
}

func trimTag(tag string) string {
	return string(bytes.TrimRight([]byte(tag), "\x00"))
}

func (p *parser) body() error {
	h := p.mesh.Header
	vc, tc := int(h.VertexCount), int(h.TriangleCount)

	if err := p.r.Expect("indices", "INDX"); err != nil {
		return err
	}
	indices, err := p.arr.ints("indices", tc, 3)
	if err != nil {
		return err
	}
	if h.Method == MethodMG1 {
		restoreIndices(indices)
	}
	for i, idx := range indices {
		if int(idx) >= vc {
			return p.r.WrapError("indices", fmt.Errorf("%w: indices[%d]=%d, %d vertices", ErrIndexOutOfRange, i, idx, vc))
		}
	}
	p.mesh.Indices = indices

	if err := p.r.Expect("vertices", "VERT"); err != nil {
		return err
	}
	coords, err := p.arr.floats("vertices", vc*3, 1)
	if err != nil {
		return err
	}
	p.mesh.Vertices = toVertices(coords)

	if h.HasNormals() {
		if err := p.r.Expect("normals", "NORM"); err != nil {
			return err
		}
		normals, err := p.arr.floats("normals", vc, 3)
		if err != nil {
			return err
		}
		p.mesh.Normals = toVertices(normals)
	}

	for i := 0; i < int(h.UVMapCount); i++ {
		section := fmt.Sprintf("uv_maps[%d]", i)
		if err := p.r.Expect(section, "TEXC"); err != nil {
			return err
		}
		var m UVMap
		if m.Name, err = p.str(section); err != nil {
			return err
		}
		if m.Filename, err = p.str(section); err != nil {
			return err
		}
		if m.Coords, err = p.arr.floats(section, vc, 2); err != nil {
			return err
		}
		p.mesh.UVMaps = append(p.mesh.UVMaps, m)
	}

	for i := 0; i < int(h.AttribMapCount); i++ {
		section := fmt.Sprintf("attrib_maps[%d]", i)
		if err := p.r.Expect(section, "ATTR"); err != nil {
			return err
		}
		var m AttribMap
		if m.Name, err = p.str(section); err != nil {
			return err
		}
		if m.Values, err = p.arr.floats(section, vc, 4); err != nil {
			return err
		}
		p.mesh.AttribMaps = append(p.mesh.AttribMaps, m)
	}
	return nil
}

func (p *parser) str(section string) (string, error) {
	n, err := p.r.I32()
	if err != nil {
		return "", p.r.WrapError(section, err)
	}
	if err := p.fits(section, int(n)); err != nil {
		return "", err
	}
	b, err := p.r.ReadBytes(int(n))
	if err != nil {
		return "", p.r.WrapError(section, err)
	}
	return string(b), nil
}

// fits rejects lengths that cannot be satisfied by the rest of the stream,
// before anything is allocated for them.
func (p *parser) fits(section string, n int) error {
	if n < 0 {
		return p.r.Errorf(section, "negative length %d", n)
	}
	if l, ok := p.src.(lener); ok && n > l.Len() {
		return p.r.WrapError(section, io.ErrUnexpectedEOF)
	}
	return nil
}

func toVertices(coords []float32) []Vertex {
	out := make([]Vertex, len(coords)/3)
	for i := range out {
		out[i] = Vertex{X: coords[i*3], Y: coords[i*3+1], Z: coords[i*3+2]}
	}
	return out
}

type rawArrays struct{ p *parser }

func (a rawArrays) words(section string, n int) ([]uint32, error) {
	if err := a.p.fits(section, n*4); err != nil {
		return nil, err
	}
	buf, err := a.p.r.ReadBytes(n * 4)
	if err != nil {
		return nil, a.p.r.WrapError(section, err)
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out, nil
}

func (a rawArrays) ints(section string, count, size int) ([]uint32, error) {
	return a.words(section, count*size)
}

func (a rawArrays) floats(section string, count, size int) ([]float32, error) {
	words, err := a.words(section, count*size)
	if err != nil {
		return nil, err
	}
	return wordsToFloats(words), nil
}

type mg1Arrays struct{ p *parser }

func (a mg1Arrays) ints(section string, count, size int) ([]uint32, error) {
	tmp, err := a.p.packed(section, count*size*4)
	if err != nil {
		return nil, err
	}
	return deinterleave(tmp, count, size), nil
}

func (a mg1Arrays) floats(section string, count, size int) ([]float32, error) {
	tmp, err := a.p.packed(section, count*size*4)
	if err != nil {
		return nil, err
	}
	return wordsToFloats(deinterleave(tmp, count, size)), nil
}

// packed reads one LZMA packed array: u32 packed size, five property bytes
// and the compressed stream, which must expand to exactly n bytes.
func (p *parser) packed(section string, n int) ([]byte, error) {
	packedSize, err := p.r.U32()
	if err != nil {
		return nil, p.r.WrapError(section, err)
	}
	if err := p.fits(section, int(packedSize)+lzmaPropsSize); err != nil {
		return nil, err
	}

	hdr := make([]byte, lzmaClassicHeaderLen)
	if err := p.r.ReadFull(hdr[:lzmaPropsSize]); err != nil {
		return nil, p.r.WrapError(section, err)
	}
	binary.LittleEndian.PutUint64(hdr[lzmaPropsSize:], uint64(n))

	start := p.r.Position()
	data, err := p.r.ReadBytes(int(packedSize))
	if err != nil {
		return nil, p.r.WrapError(section, err)
	}

	lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(hdr), bytes.NewReader(data)))
	if err != nil {
		return nil, &ParseError{Format: "openctm", Section: section, Position: start, Err: err}
	}
	// n comes from header counts; the output only grows as the stream
	// actually expands.
	out, err := io.ReadAll(io.LimitReader(lr, int64(n)+1))
	switch {
	case len(out) < n:
		short := fmt.Errorf("%w: %d of %d bytes", ErrTruncatedLZMA, len(out), n)
		if err != nil {
			short = fmt.Errorf("%w (%v)", short, err)
		}
		return nil, &ParseError{Format: "openctm", Section: section, Position: start, Err: short}
	case len(out) > n:
		return nil, &ParseError{Format: "openctm", Section: section, Position: start,
			Err: fmt.Errorf("packed array longer than declared %d bytes", n)}
	case err != nil:
		return nil, &ParseError{Format: "openctm", Section: section, Position: start, Err: err}
	}
	return out, nil
}

// deinterleave rebuilds count×size 32-bit words from byte planes. Plane 0
// holds the most significant byte of every word.
func deinterleave(tmp []byte, count, size int) []uint32 {
	out := make([]uint32, count*size)
	plane := count * size
	for i := 0; i < count; i++ {
		for k := 0; k < size; k++ {
			at := i + k*count
			out[i*size+k] = uint32(tmp[at])<<24 |
				uint32(tmp[at+plane])<<16 |
				uint32(tmp[at+2*plane])<<8 |
				uint32(tmp[at+3*plane])
		}
	}
	return out
}

// restoreIndices undoes MG1 delta coding in place.
func restoreIndices(idx []uint32) {
	for i := 0; i < len(idx)/3; i++ {
		if i >= 1 {
			idx[i*3] += idx[(i-1)*3]
		}
		idx[i*3+2] += idx[i*3]
		if i >= 1 && idx[i*3] == idx[(i-1)*3] {
			idx[i*3+1] += idx[(i-1)*3+1]
		} else {
			idx[i*3+1] += idx[i*3]
		}
	}
}

func wordsToFloats(words []uint32) []float32 {
	out := make([]float32, len(words))
	for i, w := range words {
		out[i] = math.Float32frombits(w)
	}
	return out
}
