// Package ctmtest builds OpenCTM streams for tests.
package ctmtest

import (
	"bytes"
	"fmt"
	"math"

	"github.com/ulikunitz/xz/lzma"
	"github.com/wippyai/reveal-bridge/ctm"
	"github.com/wippyai/reveal-bridge/internal/wire"
)

// Quad returns the two-triangle unit square used across the test suites.
func Quad() *ctm.Mesh {
	return &ctm.Mesh{
		Vertices: []ctm.Vertex{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}},
		Indices:  []uint32{0, 1, 2, 1, 3, 2},
	}
}

// Encode writes m using the given method. Header counts are derived from m.
func Encode(m *ctm.Mesh, method ctm.Method) ([]byte, error) {
	w := wire.NewWriter()
	vc := len(m.Vertices)

	w.Tag(ctm.Magic)
	w.I32(ctm.Version)
	w.Tag(string(method))
	w.I32(int32(vc))
	w.I32(int32(len(m.Indices) / 3))
	w.I32(int32(len(m.UVMaps)))
	w.I32(int32(len(m.AttribMaps)))
	var flags int32
	if len(m.Normals) > 0 {
		flags |= ctm.FlagNormals
	}
	w.I32(flags)
	writeString(w, m.Header.Comment)

	var put func(words []uint32, count, size int) error
	switch method {
	case ctm.MethodRAW:
		put = func(words []uint32, _, _ int) error {
			for _, v := range words {
				w.U32(v)
			}
			return nil
		}
	case ctm.MethodMG1:
		put = func(words []uint32, count, size int) error {
			return writePacked(w, interleave(words, count, size))
		}
	default:
		return nil, fmt.Errorf("ctmtest: cannot encode method %s", method)
	}

	indices := append([]uint32(nil), m.Indices...)
	if method == ctm.MethodMG1 {
		deltaIndices(indices)
	}
	w.Tag("INDX")
	if err := put(indices, len(indices)/3, 3); err != nil {
		return nil, err
	}

	w.Tag("VERT")
	if err := put(vertexWords(m.Vertices), vc*3, 1); err != nil {
		return nil, err
	}

	if len(m.Normals) > 0 {
		w.Tag("NORM")
		if err := put(vertexWords(m.Normals), vc, 3); err != nil {
			return nil, err
		}
	}
	for _, uv := range m.UVMaps {
		w.Tag("TEXC")
		writeString(w, uv.Name)
		writeString(w, uv.Filename)
		if err := put(floatWords(uv.Coords), vc, 2); err != nil {
			return nil, err
		}
	}
	for _, am := range m.AttribMaps {
		w.Tag("ATTR")
		writeString(w, am.Name)
		if err := put(floatWords(am.Values), vc, 4); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// MustEncode is Encode that panics on error.
func MustEncode(m *ctm.Mesh, method ctm.Method) []byte {
	b, err := Encode(m, method)
	if err != nil {
		panic(err)
	}
	return b
}

func writeString(w *wire.Writer, s string) {
	w.I32(int32(len(s)))
	w.WriteBytes([]byte(s))
}

func vertexWords(vs []ctm.Vertex) []uint32 {
	out := make([]uint32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, math.Float32bits(v.X), math.Float32bits(v.Y), math.Float32bits(v.Z))
	}
	return out
}

func floatWords(fs []float32) []uint32 {
	out := make([]uint32, len(fs))
	for i, f := range fs {
		out[i] = math.Float32bits(f)
	}
	return out
}

// interleave splits words into four byte planes, most significant first.
func interleave(words []uint32, count, size int) []byte {
	plane := count * size
	tmp := make([]byte, plane*4)
	for i := 0; i < count; i++ {
		for k := 0; k < size; k++ {
			v := words[i*size+k]
			at := i + k*count
			tmp[at] = byte(v >> 24)
			tmp[at+plane] = byte(v >> 16)
			tmp[at+2*plane] = byte(v >> 8)
			tmp[at+3*plane] = byte(v)
		}
	}
	return tmp
}

// writePacked LZMA compresses data and writes it in the OpenCTM packed
// layout: u32 packed size, five property bytes, compressed stream.
func writePacked(w *wire.Writer, data []byte) error {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{
		SizeInHeader: true,
		Size:         int64(len(data)),
		EOSMarker:    false,
	}
	lw, err := cfg.NewWriter(&buf)
	if err != nil {
		return err
	}
	if _, err := lw.Write(data); err != nil {
		return err
	}
	if err := lw.Close(); err != nil {
		return err
	}

	out := buf.Bytes()
	const headerLen = 13
	stream := out[headerLen:]
	w.U32(uint32(len(stream)))
	w.WriteBytes(out[:5])
	w.WriteBytes(stream)
	return nil
}

// deltaIndices applies the MG1 index coding in place.
func deltaIndices(idx []uint32) {
	orig := append([]uint32(nil), idx...)
	for i := 0; i < len(idx)/3; i++ {
		a, b, c := orig[i*3], orig[i*3+1], orig[i*3+2]
		if i >= 1 {
			idx[i*3] = a - orig[(i-1)*3]
		} else {
			idx[i*3] = a
		}
		idx[i*3+2] = c - a
		if i >= 1 && a == orig[(i-1)*3] {
			idx[i*3+1] = b - orig[(i-1)*3+1]
		} else {
			idx[i*3+1] = b - a
		}
	}
}
