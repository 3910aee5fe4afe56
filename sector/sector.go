package sector

import (
	"io"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/blob"
	"github.com/wippyai/reveal-bridge/errors"
	"github.com/wippyai/reveal-bridge/i3df"
	"github.com/wippyai/reveal-bridge/renderables"
	"go.uber.org/zap"
)

// Codec parses sectors.
type Codec interface {
	ParseRootSector(r io.ReadSeeker) (*i3df.Sector, error)
	ParseSector(attrs *i3df.AttributeTable, r io.ReadSeeker) (*i3df.Sector, error)
}

type i3dfCodec struct{}

func (i3dfCodec) ParseRootSector(r io.ReadSeeker) (*i3df.Sector, error) {
	return i3df.ParseRootSector(r)
}

func (i3dfCodec) ParseSector(attrs *i3df.AttributeTable, r io.ReadSeeker) (*i3df.Sector, error) {
	return i3df.ParseSector(attrs, r)
}

// I3DF is the default codec.
var I3DF Codec = i3dfCodec{}

// State records how a handle was produced.
type State int

const (
	RootDecoded State = iota + 1
	ChildDecoded
)

func (s State) String() string {
	switch s {
	case RootDecoded:
		return "root"
	case ChildDecoded:
		return "child"
	default:
		return "unknown"
	}
}

// Handle exclusively owns one decoded sector.
type Handle struct {
	sector *i3df.Sector
	state  State
}

// State reports whether h holds a root or a child sector.
func (h *Handle) State() State {
	return h.state
}

// Sector returns the owned sector.
func (h *Handle) Sector() *i3df.Sector {
	return h.sector
}

// Attributes returns the sector's own attribute table, which may be nil.
func (h *Handle) Attributes() *i3df.AttributeTable {
	return h.sector.Header.Attributes
}

// Decoder runs a codec over adapted blobs.
type Decoder struct {
	codec Codec
	alloc *alloc.Allocator
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithAllocator makes the decoder copy blobs with a instead of the
// process-wide allocator.
func WithAllocator(a *alloc.Allocator) Option {
	return func(d *Decoder) {
		d.alloc = a
	}
}

// NewDecoder creates a decoder for codec.
func NewDecoder(codec Codec, opts ...Option) *Decoder {
	d := &Decoder{codec: codec}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder(I3DF)

// DecodeRoot decodes v as a root sector with the i3df codec.
func DecodeRoot(v any) (*Handle, error) {
	return defaultDecoder.DecodeRoot(v)
}

// DecodeChild decodes v against root's attribute table with the i3df codec.
func DecodeChild(root *Handle, v any) (*Handle, error) {
	return defaultDecoder.DecodeChild(root, v)
}

// Convert produces the renderable collections for h's sector.
func Convert(h *Handle) *renderables.Sector {
	return defaultDecoder.Convert(h)
}

func (d *Decoder) adapt(v any) *blob.Reader {
	if d.alloc != nil {
		return blob.AdaptWith(d.alloc, v)
	}
	return blob.Adapt(v)
}

// DecodeRoot adapts v and parses it as a root sector. A root without an
// attribute table decodes, but no child can be decoded against it.
func (d *Decoder) DecodeRoot(v any) (*Handle, error) {
	r := d.adapt(v)
	defer r.Release()

	s, err := d.codec.ParseRootSector(r)
	if err != nil {
		return nil, parseError(errors.StageRoot, err)
	}
	Logger().Debug("root sector decoded",
		zap.Uint64("sector_id", s.Header.SectorID),
		zap.Bool("attributes", s.Header.Attributes != nil))
	return &Handle{sector: s, state: RootDecoded}, nil
}

// DecodeChild adapts v and parses it against root's attribute table. The
// codec is not run when root is nil, is itself a child, or has no table.
func (d *Decoder) DecodeChild(root *Handle, v any) (*Handle, error) {
	r := d.adapt(v)
	defer r.Release()

	switch {
	case root == nil:
		return nil, errors.MissingAttributes("no root sector given")
	case root.state != RootDecoded:
		return nil, errors.MissingAttributes("child sectors cannot parent other sectors")
	case root.Attributes() == nil:
		return nil, errors.MissingAttributes("root sector has no attribute table")
	}

	s, err := d.codec.ParseSector(root.Attributes(), r)
	if err != nil {
		return nil, parseError(errors.StageChild, err)
	}
	Logger().Debug("child sector decoded",
		zap.Uint64("sector_id", s.Header.SectorID),
		zap.Uint64("parent_id", s.Header.ParentSectorID))
	return &Handle{sector: s, state: ChildDecoded}, nil
}

// Convert produces the renderable collections for h's sector, or nil for a
// nil handle.
func (d *Decoder) Convert(h *Handle) *renderables.Sector {
	if h == nil {
		return nil
	}
	return renderables.ConvertSector(h.sector)
}

func parseError(stage errors.Stage, err error) *errors.Error {
	b := errors.New(errors.PhaseSector, errors.KindParser).Stage(stage)
	switch {
	case errors.Is(err, i3df.ErrIndexOutOfRange):
		b.Detail("parse %s: attribute index out of bounds", stage)
	case errors.Is(err, i3df.ErrNoAttributes):
		b.Detail("parse %s: geometry without attribute table", stage)
	default:
		b.Detail("parse %s", stage)
	}
	return b.Cause(err).Build()
}
