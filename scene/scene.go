// Package scene decodes a complete i3df file into renderable sectors.
package scene

import (
	"io"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/blob"
	"github.com/wippyai/reveal-bridge/errors"
	"github.com/wippyai/reveal-bridge/i3df"
	"github.com/wippyai/reveal-bridge/renderables"
	"go.uber.org/zap"
)

// Parser reads every sector of a file.
type Parser interface {
	ParseScene(r io.ReadSeeker) (*i3df.Scene, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(r io.ReadSeeker) (*i3df.Scene, error)

func (f ParserFunc) ParseScene(r io.ReadSeeker) (*i3df.Scene, error) {
	return f(r)
}

// Converter turns a parsed scene into renderables.
type Converter interface {
	ConvertScene(sc *i3df.Scene) *renderables.Scene
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(sc *i3df.Scene) *renderables.Scene

func (f ConverterFunc) ConvertScene(sc *i3df.Scene) *renderables.Scene {
	return f(sc)
}

var (
	// I3DF parses with i3df.ParseScene.
	I3DF Parser = ParserFunc(func(r io.ReadSeeker) (*i3df.Scene, error) {
		return i3df.ParseScene(r)
	})
	// Renderables converts with renderables.ConvertScene.
	Renderables Converter = ConverterFunc(renderables.ConvertScene)
)

// Decoder parses and converts whole files.
type Decoder struct {
	parser     Parser
	converter  Converter
	alloc      *alloc.Allocator
	maxSectors int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithAllocator makes the decoder copy blobs with a.
func WithAllocator(a *alloc.Allocator) Option {
	return func(d *Decoder) {
		d.alloc = a
	}
}

// WithMaxSectors rejects files holding more than n sectors. Zero means no
// limit.
func WithMaxSectors(n int) Option {
	return func(d *Decoder) {
		d.maxSectors = n
	}
}

// NewDecoder creates a decoder from its collaborators.
func NewDecoder(parser Parser, converter Converter, opts ...Option) *Decoder {
	d := &Decoder{parser: parser, converter: converter}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode decodes and converts a whole i3df file.
func Decode(v any) (*renderables.Scene, error) {
	return NewDecoder(I3DF, Renderables).Decode(v)
}

// Decode adapts v, parses every sector and converts the result. Parse
// failures are reported as scene parser errors.
func (d *Decoder) Decode(v any) (*renderables.Scene, error) {
	a := d.alloc
	if a == nil {
		a = alloc.Default()
	}
	r := blob.AdaptWith(a, v)
	defer r.Release()

	sc, err := d.parser.ParseScene(r)
	if err != nil {
		return nil, errors.Parser(errors.PhaseScene, errors.StageScene, err)
	}
	if d.maxSectors > 0 && sc.Len() > d.maxSectors {
		return nil, errors.New(errors.PhaseScene, errors.KindParser).
			Stage(errors.StageScene).
			Value(sc.Len()).
			Detail("scene holds %d sectors, limit is %d", sc.Len(), d.maxSectors).
			Build()
	}

	out := d.converter.ConvertScene(sc)
	Logger().Debug("scene decoded", zap.Int("sectors", len(out.Sectors)))
	return out, nil
}
