package mesh_test

import (
	"io"
	"reflect"
	"testing"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/blob"
	"github.com/wippyai/reveal-bridge/ctm"
	"github.com/wippyai/reveal-bridge/ctm/ctmtest"
	"github.com/wippyai/reveal-bridge/errors"
	"github.com/wippyai/reveal-bridge/mesh"
)

func TestDecode_Quad(t *testing.T) {
	data := ctmtest.MustEncode(ctmtest.Quad(), ctm.MethodRAW)

	out, err := mesh.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Body.Vertices) != 48 {
		t.Errorf("vertex buffer is %d bytes, want 48", len(out.Body.Vertices))
	}
	if len(out.Body.Indices) != 24 {
		t.Errorf("index buffer is %d bytes, want 24", len(out.Body.Indices))
	}

	want := ctmtest.Quad()
	if got := mesh.Vertices(out.Body); !reflect.DeepEqual(got, want.Vertices) {
		t.Errorf("Vertices = %v, want %v", got, want.Vertices)
	}
	if got := mesh.Indices(out.Body); !reflect.DeepEqual(got, want.Indices) {
		t.Errorf("Indices = %v, want %v", got, want.Indices)
	}
	if out.Body.Normals == nil || len(out.Body.Normals) != 0 {
		t.Errorf("Normals = %v, want empty", out.Body.Normals)
	}
	if out.Body.UVMaps == nil || len(out.Body.UVMaps) != 0 {
		t.Errorf("UVMaps = %v, want empty", out.Body.UVMaps)
	}
}

func TestDecode_LittleEndianLayout(t *testing.T) {
	m := &ctm.Mesh{Vertices: []ctm.Vertex{{X: 1, Y: 2, Z: -1}}, Indices: []uint32{0, 0, 0x01020304}}
	d := mesh.NewDecoder(mesh.CodecFunc(func(io.ReadSeeker) (*ctm.Mesh, error) { return m, nil }))
	out, err := d.Decode(blob.Raw("ignored"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	wantVerts := []byte{
		0x00, 0x00, 0x80, 0x3f, // 1.0
		0x00, 0x00, 0x00, 0x40, // 2.0
		0x00, 0x00, 0x80, 0xbf, // -1.0
	}
	if !reflect.DeepEqual(out.Body.Vertices, wantVerts) {
		t.Errorf("Vertices = % x, want % x", out.Body.Vertices, wantVerts)
	}
	if got := out.Body.Indices[8:]; !reflect.DeepEqual(got, []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Errorf("last index = % x", got)
	}
}

func TestDecode_DropsUVMaps(t *testing.T) {
	src := ctmtest.Quad()
	src.UVMaps = []ctm.UVMap{{Name: "uv", Coords: make([]float32, 8)}}
	out, err := mesh.Decode(ctmtest.MustEncode(src, ctm.MethodMG1))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.Body.UVMaps) != 0 {
		t.Errorf("UVMaps should stay empty, got %d", len(out.Body.UVMaps))
	}
}

func TestDecode_CodecFailure(t *testing.T) {
	data := ctmtest.MustEncode(ctmtest.Quad(), ctm.MethodRAW)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", data[:len(data)-5]},
		{"garbage", []byte("not a mesh")},
		{"empty", []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := mesh.Decode(tt.data)
			if out != nil {
				t.Fatal("expected nil result on failure")
			}
			if !errors.Is(err, errors.ErrCodecDecode) {
				t.Fatalf("expected codec_decode error, got %v", err)
			}
			if !errors.IsKind(err, errors.KindCodecDecode) {
				t.Fatalf("IsKind(codec_decode) = false for %v", err)
			}
		})
	}
}

func TestDecode_NonBinaryPanics(t *testing.T) {
	called := false
	d := mesh.NewDecoder(mesh.CodecFunc(func(io.ReadSeeker) (*ctm.Mesh, error) {
		called = true
		return nil, nil
	}))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for string input")
		}
		if called {
			t.Fatal("codec must not run for non-binary input")
		}
	}()
	_, _ = d.Decode("vertices")
}

func TestDecode_InjectedCodec(t *testing.T) {
	d := mesh.NewDecoder(mesh.CodecFunc(func(r io.ReadSeeker) (*ctm.Mesh, error) {
		b, _ := io.ReadAll(r)
		if string(b) != "abc" {
			t.Errorf("codec saw %q", b)
		}
		return &ctm.Mesh{Vertices: []ctm.Vertex{{X: 3}}, Indices: []uint32{7}}, nil
	}))
	out, err := d.Decode([]byte("abc"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := mesh.Indices(out.Body); len(got) != 1 || got[0] != 7 {
		t.Errorf("Indices = %v", got)
	}
}

// Pooled buffers are handed out dirty; flattening must overwrite them fully.
func TestDecode_PooledBuffersOverwritten(t *testing.T) {
	a, err := alloc.New(alloc.Config{Strategy: alloc.Pooled})
	if err != nil {
		t.Fatalf("alloc.New: %v", err)
	}
	for i := 0; i < 8; i++ {
		dirty := a.Bytes(48)
		for j := range dirty {
			dirty[j] = 0xee
		}
		a.Release(dirty)
	}

	d := mesh.NewDecoder(mesh.OpenCTM, mesh.WithAllocator(a))
	want := ctmtest.Quad()
	for i := 0; i < 4; i++ {
		out, err := d.Decode(ctmtest.MustEncode(want, ctm.MethodRAW))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got := mesh.Vertices(out.Body); !reflect.DeepEqual(got, want.Vertices) {
			t.Fatalf("round %d: Vertices = %v, want %v", i, got, want.Vertices)
		}
		if got := mesh.Indices(out.Body); !reflect.DeepEqual(got, want.Indices) {
			t.Fatalf("round %d: Indices = %v, want %v", i, got, want.Indices)
		}
	}
}

func TestDecode_FilledBlob(t *testing.T) {
	data := ctmtest.MustEncode(ctmtest.Quad(), ctm.MethodMG1)
	r := blob.Fill(alloc.Default(), len(data), func(dst []byte) { copy(dst, data) })

	out, err := mesh.Decode(r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := mesh.Indices(out.Body); !reflect.DeepEqual(got, ctmtest.Quad().Indices) {
		t.Errorf("Indices = %v", got)
	}
	if r.Bytes() != nil {
		t.Error("Expected Decode to release the filled blob")
	}
}
