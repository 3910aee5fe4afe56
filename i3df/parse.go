package i3df

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wippyai/reveal-bridge/internal/wire"
	"go.uber.org/zap"
)

// ParseError reports where in the sector stream decoding failed.
type ParseError = wire.ParseError

var (
	ErrBadMagic        = errors.New("bad sector magic")
	ErrUnknownGeometry = errors.New("unknown geometry type")
	ErrAttributeLayout = errors.New("unexpected attribute layout")
	ErrIndexOutOfRange = errors.New("attribute index out of range")
	ErrNoAttributes    = errors.New("geometry requires an attribute table")
	ErrSectorLength    = errors.New("sector contents exceed declared length")
	ErrMissingParent   = errors.New("parent sector not found")
	ErrDuplicateSector = errors.New("duplicate sector id")
)

const (
	format = "i3df"

	// fields after the length prefix, up to and including the array count
	headerSize = 3*4 + 2*8 + 2*12 + 4

	groupHeaderSize     = 1 + 4 + 1 + 4
	nodeIDSize          = 7
	attributeArrayCount = 18
)

type lener interface {
	Len() int
}

// ParseRootSector decodes one sector that needs no external attribute table.
// Its geometry, if any, is resolved against its own table.
func ParseRootSector(r io.Reader) (*Sector, error) {
	p := newParser(r)
	return p.sector(nil, true)
}

// ParseSector decodes one sector whose geometry is resolved against attrs,
// normally the root sector's table.
func ParseSector(attrs *AttributeTable, r io.Reader) (*Sector, error) {
	p := newParser(r)
	return p.sector(attrs, false)
}

// ParseScene decodes every sector of a file. The first sector is the root.
// Later sectors are resolved against its attribute table, so a root without
// one is only accepted when nothing follows it. Each later sector is linked
// under its parent, which must already have been read.
func ParseScene(r io.Reader) (*Scene, error) {
	if _, ok := r.(lener); !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	p := newParser(r)

	root, err := p.sector(nil, true)
	if err != nil {
		return nil, err
	}

	scene := &Scene{
		Root:  &Node{Sector: root},
		index: make(map[uint64]*Node),
	}
	scene.index[root.Header.SectorID] = scene.Root

	for p.remaining() > 0 {
		start := p.r.Position()
		if root.Header.Attributes == nil {
			return nil, &ParseError{Format: format, Section: "scene", Position: start, Err: ErrNoAttributes}
		}
		s, err := p.sector(root.Header.Attributes, false)
		if err != nil {
			return nil, err
		}
		id := s.Header.SectorID
		if _, dup := scene.index[id]; dup {
			return nil, &ParseError{Format: format, Section: "scene", Position: start,
				Err: fmt.Errorf("%w: %d", ErrDuplicateSector, id)}
		}
		parent, ok := scene.index[s.Header.ParentSectorID]
		if !ok {
			return nil, &ParseError{Format: format, Section: "scene", Position: start,
				Err: fmt.Errorf("%w: sector %d wants parent %d", ErrMissingParent, id, s.Header.ParentSectorID)}
		}
		node := &Node{Sector: s}
		parent.Children = append(parent.Children, node)
		scene.index[id] = node
	}

	Logger().Debug("i3df scene parsed", zap.Int("sectors", scene.Len()))
	return scene, nil
}

type parser struct {
	r   *wire.Reader
	src io.Reader
	end int
}

func newParser(r io.Reader) *parser {
	return &parser{r: wire.NewReader(r, format), src: r}
}

func (p *parser) remaining() int {
	if l, ok := p.src.(lener); ok {
		return l.Len()
	}
	return -1
}

// need checks that n more bytes fit both the sector and the input.
func (p *parser) need(section string, n int) error {
	if n < 0 || p.r.Position()+n > p.end {
		return p.r.Errorf(section, "%w: %d bytes requested, %d left", ErrSectorLength, n, p.end-p.r.Position())
	}
	if left := p.remaining(); left >= 0 && n > left {
		return p.r.WrapError(section, io.ErrUnexpectedEOF)
	}
	return nil
}

func (p *parser) sector(attrs *AttributeTable, root bool) (*Sector, error) {
	length, err := p.r.U32()
	if err != nil {
		return nil, p.r.WrapError("header", err)
	}
	p.end = p.r.Position() + int(length)
	if err := p.need("header", headerSize); err != nil {
		return nil, err
	}

	s := &Sector{}
	if err := p.header(&s.Header); err != nil {
		return nil, err
	}
	if root {
		attrs = s.Header.Attributes
	}

	for p.r.Position() < p.end {
		g, err := p.group(attrs)
		if err != nil {
			return nil, err
		}
		s.Groups = append(s.Groups, g)
	}

	Logger().Debug("i3df sector parsed",
		zap.Uint64("sector_id", s.Header.SectorID),
		zap.Uint64("parent_id", s.Header.ParentSectorID),
		zap.Bool("root", root),
		zap.Bool("attributes", s.Header.Attributes != nil),
		zap.Int("groups", len(s.Groups)))
	return s, nil
}

func (p *parser) header(h *Header) error {
	start := p.r.Position()
	var err error
	if h.Magic, err = p.r.U32(); err != nil {
		return p.r.WrapError("header", err)
	}
	if h.Magic != Magic {
		return &ParseError{Format: format, Section: "header", Position: start,
			Err: fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic)}
	}
	if h.FormatVersion, err = p.r.U32(); err != nil {
		return p.r.WrapError("header", err)
	}
	if h.OptimizerVersion, err = p.r.U32(); err != nil {
		return p.r.WrapError("header", err)
	}
	if h.SectorID, err = p.r.U64(); err != nil {
		return p.r.WrapError("header", err)
	}
	if h.ParentSectorID, err = p.r.U64(); err != nil {
		return p.r.WrapError("header", err)
	}
	if h.BBoxMin, err = p.vec3(); err != nil {
		return p.r.WrapError("header", err)
	}
	if h.BBoxMax, err = p.vec3(); err != nil {
		return p.r.WrapError("header", err)
	}
	arrays, err := p.r.U32()
	if err != nil {
		return p.r.WrapError("header", err)
	}

	switch arrays {
	case 0:
		return nil
	case attributeArrayCount:
		h.Attributes, err = p.attributes()
		return err
	default:
		return p.r.Errorf("header", "%w: %d attribute arrays, want 0 or %d", ErrAttributeLayout, arrays, attributeArrayCount)
	}
}

func (p *parser) vec3() (Vector3, error) {
	v, err := p.r.Vec3()
	return Vector3{X: v[0], Y: v[1], Z: v[2]}, err
}

type attributeArray struct {
	set   func(t *AttributeTable, data []byte, n int)
	name  string
	width int
}

func floatArray(name string, field func(t *AttributeTable) *[]float32) attributeArray {
	return attributeArray{name: name, width: 4, set: func(t *AttributeTable, data []byte, n int) {
		*field(t) = decodeFloats(data, n)
	}}
}

var attributeArrays = [attributeArrayCount]attributeArray{
	{name: "color", width: 4, set: func(t *AttributeTable, data []byte, n int) {
		t.Colors = make([]Color, n)
		for i := range t.Colors {
			b := data[i*4:]
			t.Colors[i] = Color{R: b[0], G: b[1], B: b[2], A: b[3]}
		}
	}},
	floatArray("size", func(t *AttributeTable) *[]float32 { return &t.Sizes }),
	floatArray("centerX", func(t *AttributeTable) *[]float32 { return &t.CenterX }),
	floatArray("centerY", func(t *AttributeTable) *[]float32 { return &t.CenterY }),
	floatArray("centerZ", func(t *AttributeTable) *[]float32 { return &t.CenterZ }),
	{name: "normal", width: 12, set: func(t *AttributeTable, data []byte, n int) {
		f := decodeFloats(data, n*3)
		t.Normals = make([]Vector3, n)
		for i := range t.Normals {
			t.Normals[i] = Vector3{X: f[i*3], Y: f[i*3+1], Z: f[i*3+2]}
		}
	}},
	floatArray("delta", func(t *AttributeTable) *[]float32 { return &t.Deltas }),
	floatArray("height", func(t *AttributeTable) *[]float32 { return &t.Heights }),
	floatArray("radius", func(t *AttributeTable) *[]float32 { return &t.Radii }),
	floatArray("angle", func(t *AttributeTable) *[]float32 { return &t.Angles }),
	floatArray("translationX", func(t *AttributeTable) *[]float32 { return &t.TranslationX }),
	floatArray("translationY", func(t *AttributeTable) *[]float32 { return &t.TranslationY }),
	floatArray("translationZ", func(t *AttributeTable) *[]float32 { return &t.TranslationZ }),
	floatArray("scaleX", func(t *AttributeTable) *[]float32 { return &t.ScaleX }),
	floatArray("scaleY", func(t *AttributeTable) *[]float32 { return &t.ScaleY }),
	floatArray("scaleZ", func(t *AttributeTable) *[]float32 { return &t.ScaleZ }),
	{name: "fileId", width: 8, set: func(t *AttributeTable, data []byte, n int) {
		t.FileIDs = make([]uint64, n)
		for i := range t.FileIDs {
			t.FileIDs[i] = binary.LittleEndian.Uint64(data[i*8:])
		}
	}},
	{name: "texture", width: 16, set: func(t *AttributeTable, data []byte, n int) {
		t.Textures = make([]Texture, n)
		for i := range t.Textures {
			b := data[i*16:]
			t.Textures[i] = Texture{
				FileID: binary.LittleEndian.Uint64(b),
				Width:  binary.LittleEndian.Uint16(b[8:]),
				Height: binary.LittleEndian.Uint16(b[10:]),
			}
		}
	}},
}

// AttributeArrayNames lists the attribute arrays in file order.
func AttributeArrayNames() []string {
	names := make([]string, len(attributeArrays))
	for i, a := range attributeArrays {
		names[i] = a.name
	}
	return names
}

func (p *parser) attributes() (*AttributeTable, error) {
	t := &AttributeTable{}
	for _, a := range attributeArrays {
		section := "attributes." + a.name
		count, err := p.r.U32()
		if err != nil {
			return nil, p.r.WrapError(section, err)
		}
		width, err := p.r.U8()
		if err != nil {
			return nil, p.r.WrapError(section, err)
		}
		if int(width) != a.width {
			return nil, p.r.Errorf(section, "%w: %d bytes per element, want %d", ErrAttributeLayout, width, a.width)
		}
		size := int(count) * a.width
		if err := p.need(section, size); err != nil {
			return nil, err
		}
		data, err := p.r.ReadBytes(size)
		if err != nil {
			return nil, p.r.WrapError(section, err)
		}
		a.set(t, data, int(count))
	}
	return t, nil
}

func decodeFloats(data []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func (p *parser) group(attrs *AttributeTable) (GeometryGroup, error) {
	start := p.r.Position()
	if err := p.need("geometry", groupHeaderSize); err != nil {
		return GeometryGroup{}, err
	}
	typeID, err := p.r.U8()
	if err != nil {
		return GeometryGroup{}, p.r.WrapError("geometry", err)
	}
	gt := GeometryType(typeID)
	if !gt.Known() {
		return GeometryGroup{}, &ParseError{Format: format, Section: "geometry", Position: start,
			Err: fmt.Errorf("%w: %d", ErrUnknownGeometry, typeID)}
	}
	section := "geometry." + gt.String()

	count, err := p.r.U32()
	if err != nil {
		return GeometryGroup{}, p.r.WrapError(section, err)
	}
	width, err := p.r.U8()
	if err != nil {
		return GeometryGroup{}, p.r.WrapError(section, err)
	}
	byteCount, err := p.r.U32()
	if err != nil {
		return GeometryGroup{}, p.r.WrapError(section, err)
	}
	if int(width) != gt.IndexWidth() {
		return GeometryGroup{}, p.r.Errorf(section, "%w: %d indices per instance, want %d",
			ErrAttributeLayout, width, gt.IndexWidth())
	}

	if err := p.need(section, int(count)*nodeIDSize); err != nil {
		return GeometryGroup{}, err
	}
	ids := make([]uint64, count)
	for i := range ids {
		if ids[i], err = p.r.U56BE(); err != nil {
			return GeometryGroup{}, p.r.WrapError(section, err)
		}
	}

	if err := p.need(section, int(byteCount)); err != nil {
		return GeometryGroup{}, err
	}
	dataStart := p.r.Position()
	data, err := p.r.ReadBytes(int(byteCount))
	if err != nil {
		return GeometryGroup{}, p.r.WrapError(section, err)
	}

	g := GeometryGroup{Type: gt}
	if count == 0 {
		return g, nil
	}
	if attrs == nil {
		return GeometryGroup{}, &ParseError{Format: format, Section: section, Position: start, Err: ErrNoAttributes}
	}

	l := &loader{t: attrs, dec: NewFibonacciDecoder(data, int(count)*int(width))}
	g.Primitives = make([]Primitive, count)
	for i := range g.Primitives {
		prim := &g.Primitives[i]
		prim.NodeID = ids[i]
		for _, prop := range gt.Properties() {
			if err := l.load(prim, prop); err != nil {
				return GeometryGroup{}, &ParseError{Format: format, Position: dataStart,
					Section: fmt.Sprintf("%s[%d].%s", section, i, prop), Err: err}
			}
		}
	}
	return g, nil
}
