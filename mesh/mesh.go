// Package mesh decodes OpenCTM blobs and flattens them into little-endian
// buffers that can cross a host boundary without further conversion.
package mesh

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/blob"
	"github.com/wippyai/reveal-bridge/ctm"
	"github.com/wippyai/reveal-bridge/errors"
	"go.uber.org/zap"
)

// Codec decodes a mesh from a seekable stream.
type Codec interface {
	Decode(r io.ReadSeeker) (*ctm.Mesh, error)
}

// CodecFunc adapts a function to Codec.
type CodecFunc func(r io.ReadSeeker) (*ctm.Mesh, error)

func (f CodecFunc) Decode(r io.ReadSeeker) (*ctm.Mesh, error) {
	return f(r)
}

// OpenCTM is the default codec.
var OpenCTM Codec = CodecFunc(func(r io.ReadSeeker) (*ctm.Mesh, error) {
	return ctm.Parse(r)
})

// UvMap holds one texture coordinate set.
type UvMap struct {
	UV []byte `boundary:"uv,bytes"`
}

// Body holds the flattened mesh buffers. Normals and UVMaps are part of the
// packaged shape but are never populated.
type Body struct {
	Indices  []byte  `boundary:"indices,bytes"`
	Vertices []byte  `boundary:"vertices,bytes"`
	Normals  []byte  `boundary:"normals"`
	UVMaps   []UvMap `boundary:"uv_maps"`
}

// Ctm is the packaged result of a mesh decode.
type Ctm struct {
	Body Body `boundary:"body"`
}

// Decoder runs a codec over adapted blobs.
type Decoder struct {
	codec Codec
	alloc *alloc.Allocator
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithAllocator makes the decoder take its buffers from a instead of the
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

// Decode decodes v with the OpenCTM codec. v must be a []byte or blob.Raw.
func Decode(v any) (*Ctm, error) {
	return NewDecoder(OpenCTM).Decode(v)
}

func (d *Decoder) allocator() *alloc.Allocator {
	if d.alloc != nil {
		return d.alloc
	}
	return alloc.Default()
}

// Decode adapts v, decodes it and flattens the result. Any codec failure is
// reported as a codec_decode error and no partial result is returned.
func (d *Decoder) Decode(v any) (*Ctm, error) {
	a := d.allocator()
	r := blob.AdaptWith(a, v)
	defer r.Release()

	m, err := d.codec.Decode(r)
	if err != nil {
		Logger().Debug("mesh decode failed", zap.Error(err))
		return nil, errors.CodecDecode(err)
	}

	out := &Ctm{Body: Flatten(m, a)}
	Logger().Debug("mesh decoded",
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("indices", len(m.Indices)))
	return out, nil
}

// Flatten serializes m's vertices as consecutive x,y,z float32 values and
// its indices as uint32 values, all little-endian and unpadded. Buffers come
// from a and every byte is written.
func Flatten(m *ctm.Mesh, a *alloc.Allocator) Body {
	vertices := a.Bytes(len(m.Vertices) * 12)
	for i, v := range m.Vertices {
		b := vertices[i*12:]
		binary.LittleEndian.PutUint32(b, math.Float32bits(v.X))
		binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v.Z))
	}

	indices := a.Bytes(len(m.Indices) * 4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(indices[i*4:], idx)
	}

	return Body{
		Indices:  indices,
		Vertices: vertices,
		Normals:  []byte{},
		UVMaps:   []UvMap{},
	}
}

// Vertices reads a flattened vertex buffer back into float32 triples.
func Vertices(b Body) []ctm.Vertex {
	out := make([]ctm.Vertex, len(b.Vertices)/12)
	for i := range out {
		p := b.Vertices[i*12:]
		out[i] = ctm.Vertex{
			X: math.Float32frombits(binary.LittleEndian.Uint32(p)),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(p[4:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(p[8:])),
		}
	}
	return out
}

// Indices reads a flattened index buffer back into uint32 values.
func Indices(b Body) []uint32 {
	out := make([]uint32, len(b.Indices)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b.Indices[i*4:])
	}
	return out
}
