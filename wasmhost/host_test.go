package wasmhost_test

import (
	"context"
	"encoding/binary"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/reveal-bridge/boundary"
	"github.com/wippyai/reveal-bridge/config"
	"github.com/wippyai/reveal-bridge/ctm"
	"github.com/wippyai/reveal-bridge/ctm/ctmtest"
	"github.com/wippyai/reveal-bridge/errors"
	"github.com/wippyai/reveal-bridge/i3df/i3dftest"
	"github.com/wippyai/reveal-bridge/mesh"
	"github.com/wippyai/reveal-bridge/renderables"
	"github.com/wippyai/reveal-bridge/wasmhost"
)

const (
	inputPtr = 1024
	retptr   = 8
	heapBase = 32 << 10
)

type fixture struct {
	host  *wasmhost.Host
	mem   *testMemory
	alloc *bumpAllocator
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	h, err := wasmhost.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { h.Close(context.Background()) })
	return &fixture{host: h, mem: newTestMemory(256 << 10), alloc: &bumpAllocator{offset: heapBase}}
}

// put copies data into the input region and returns its length.
func (f *fixture) put(data []byte) uint32 {
	copy(f.mem.data[inputPtr:], data)
	return uint32(len(data))
}

func (f *fixture) result() uint32 {
	return binary.LittleEndian.Uint32(f.mem.data[retptr:])
}

func (f *fixture) lift(t *testing.T, proto any) boundary.Value {
	t.Helper()
	shape, err := boundary.Shape(reflect.TypeOf(proto))
	if err != nil {
		t.Fatalf("Shape failed: %v", err)
	}
	v, err := boundary.Lift(f.mem, f.result(), shape)
	if err != nil {
		t.Fatalf("Lift failed: %v", err)
	}
	return v
}

func field(t *testing.T, v boundary.Value, path ...string) boundary.Value {
	t.Helper()
	for _, name := range path {
		next, ok := v.Field(name)
		if !ok {
			t.Fatalf("missing field %q", name)
		}
		v = next
	}
	return v
}

func TestHost_DecodeMesh(t *testing.T) {
	f := newFixture(t, config.Default())
	n := f.put(ctmtest.MustEncode(ctmtest.Quad(), ctm.MethodRAW))

	if st := f.host.DecodeMesh(context.Background(), f.mem, f.alloc, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("DecodeMesh status %s: %s", st, f.host.LastError().Message)
	}

	v := f.lift(t, mesh.Ctm{})
	body := mesh.Body{
		Vertices: field(t, v, "body", "vertices").Bytes,
		Indices:  field(t, v, "body", "indices").Bytes,
	}
	if len(body.Vertices) != 48 || len(body.Indices) != 24 {
		t.Fatalf("Expected 48 and 24 bytes, got %d and %d", len(body.Vertices), len(body.Indices))
	}
	want := ctmtest.Quad()
	if got := mesh.Vertices(body); !reflect.DeepEqual(got, want.Vertices) {
		t.Errorf("Vertices = %v, want %v", got, want.Vertices)
	}
	if got := mesh.Indices(body); !reflect.DeepEqual(got, want.Indices) {
		t.Errorf("Indices = %v, want %v", got, want.Indices)
	}
	if field(t, v, "body", "uv_maps").Len() != 0 || field(t, v, "body", "normals").Len() != 0 {
		t.Error("normals and uv_maps should be empty")
	}
}

func TestHost_DecodeMesh_CodecFailure(t *testing.T) {
	f := newFixture(t, config.Default())
	n := f.put([]byte("OCTM garbage"))

	st := f.host.DecodeMesh(context.Background(), f.mem, f.alloc, inputPtr, n, retptr)
	if st != wasmhost.StatusCodec {
		t.Fatalf("Expected codec status, got %s", st)
	}
	rec := f.host.LastError()
	if rec.Status != uint32(wasmhost.StatusCodec) || !strings.Contains(rec.Message, "codec_decode") {
		t.Errorf("LastError = %+v", rec)
	}

	if st := f.host.LowerLastError(context.Background(), f.mem, f.alloc, retptr); st != wasmhost.StatusOK {
		t.Fatalf("LowerLastError status %s", st)
	}
	v := f.lift(t, wasmhost.ErrorRecord{})
	if msg := field(t, v, "message").Str; msg != rec.Message {
		t.Errorf("lowered message %q, want %q", msg, rec.Message)
	}
}

func TestHost_SectorChain(t *testing.T) {
	f := newFixture(t, config.Default())
	ctx := context.Background()

	n := f.put(i3dftest.Encode(i3dftest.Root()))
	if st := f.host.DecodeRootSector(ctx, f.mem, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("DecodeRootSector status %s: %s", st, f.host.LastError().Message)
	}
	root := f.result()
	if root == 0 {
		t.Fatal("Expected non-zero root handle")
	}

	n = f.put(i3dftest.Encode(i3dftest.Child(1, 0)))
	if st := f.host.DecodeChildSector(ctx, f.mem, root, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("DecodeChildSector status %s: %s", st, f.host.LastError().Message)
	}
	child := f.result()
	if child == root {
		t.Fatal("child and root share a handle")
	}
	if f.host.Sectors() != 2 {
		t.Fatalf("Expected 2 live sectors, got %d", f.host.Sectors())
	}

	if st := f.host.ConvertSector(ctx, f.mem, f.alloc, child, retptr); st != wasmhost.StatusOK {
		t.Fatalf("ConvertSector status %s: %s", st, f.host.LastError().Message)
	}
	v := f.lift(t, renderables.Sector{})
	ids := field(t, v, "spherical_segments", "attributes", "node_ids")
	if ids.Len() != 1 || ids.Index(0).Num != 2000 {
		t.Errorf("Expected one sphere for node 2000, got %d entries", ids.Len())
	}
	if id := field(t, v, "parent_id"); id.Num != 0 {
		t.Errorf("parent_id = %d", id.Num)
	}

	if st := f.host.ConvertSector(ctx, f.mem, f.alloc, root, retptr); st != wasmhost.StatusOK {
		t.Fatalf("ConvertSector(root) status %s", st)
	}
	v = f.lift(t, renderables.Sector{})
	if got := field(t, v, "boxes", "attributes", "node_ids").Len(); got != 1 {
		t.Errorf("Expected one box in the root, got %d", got)
	}

	if st := f.host.DropSector(child); st != wasmhost.StatusOK {
		t.Fatalf("DropSector status %s", st)
	}
	if st := f.host.DropSector(child); st != wasmhost.StatusInvalidHandle {
		t.Fatalf("second DropSector status %s, want invalid_handle", st)
	}
	if f.host.Sectors() != 1 {
		t.Errorf("Expected 1 live sector, got %d", f.host.Sectors())
	}
}

func TestHost_ChildErrors(t *testing.T) {
	f := newFixture(t, config.Default())
	ctx := context.Background()

	n := f.put(i3dftest.Encode(i3dftest.Sector{ID: 0}))
	if st := f.host.DecodeRootSector(ctx, f.mem, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("DecodeRootSector status %s: %s", st, f.host.LastError().Message)
	}
	bare := f.result()

	n = f.put(i3dftest.Encode(i3dftest.Child(1, 0)))
	if st := f.host.DecodeChildSector(ctx, f.mem, bare, inputPtr, n, retptr); st != wasmhost.StatusMissingAttributes {
		t.Errorf("tableless root: status %s, want missing_attributes", st)
	}
	if st := f.host.DecodeChildSector(ctx, f.mem, 99, inputPtr, n, retptr); st != wasmhost.StatusInvalidHandle {
		t.Errorf("unknown root: status %s, want invalid_handle", st)
	}
	if st := f.host.ConvertSector(ctx, f.mem, f.alloc, 99, retptr); st != wasmhost.StatusInvalidHandle {
		t.Errorf("unknown sector: status %s, want invalid_handle", st)
	}

	// The failed decode returned its borrow, so the root can be dropped.
	if st := f.host.DropSector(bare); st != wasmhost.StatusOK {
		t.Errorf("DropSector after failed child decode: status %s", st)
	}
}

func TestHost_StaleTokenAfterReuse(t *testing.T) {
	f := newFixture(t, config.Default())
	ctx := context.Background()

	n := f.put(i3dftest.Encode(i3dftest.Root()))
	if st := f.host.DecodeRootSector(ctx, f.mem, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("DecodeRootSector status %s: %s", st, f.host.LastError().Message)
	}
	stale := f.result()
	if st := f.host.DropSector(stale); st != wasmhost.StatusOK {
		t.Fatalf("DropSector status %s", st)
	}

	n = f.put(i3dftest.Encode(i3dftest.Sector{ID: 0}))
	if st := f.host.DecodeRootSector(ctx, f.mem, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("DecodeRootSector status %s: %s", st, f.host.LastError().Message)
	}
	fresh := f.result()
	if fresh == stale {
		t.Fatalf("reused slot issued the dropped token %d again", stale)
	}
	if st := f.host.ConvertSector(ctx, f.mem, f.alloc, stale, retptr); st != wasmhost.StatusInvalidHandle {
		t.Errorf("stale token: status %s, want invalid_handle", st)
	}
	if st := f.host.DropSector(fresh); st != wasmhost.StatusOK {
		t.Errorf("DropSector(fresh) status %s", st)
	}
}

func TestHost_ParserFailure(t *testing.T) {
	f := newFixture(t, config.Default())
	n := f.put([]byte{8, 0, 0, 0, 'n', 'o', 'p', 'e', 0, 0, 0, 0})

	st := f.host.DecodeRootSector(context.Background(), f.mem, inputPtr, n, retptr)
	if st != wasmhost.StatusParser {
		t.Fatalf("Expected parser status, got %s", st)
	}
	if f.host.Sectors() != 0 {
		t.Error("failed decode should not allocate a handle")
	}
}

func TestHost_DecodeScene(t *testing.T) {
	f := newFixture(t, config.Default())
	n := f.put(i3dftest.EncodeScene(i3dftest.Root(), i3dftest.Child(1, 0), i3dftest.Child(2, 1)))

	if st := f.host.DecodeScene(context.Background(), f.mem, f.alloc, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("DecodeScene status %s: %s", st, f.host.LastError().Message)
	}
	v := f.lift(t, renderables.Scene{})
	sectors := field(t, v, "sectors")
	if sectors.Len() != 3 {
		t.Fatalf("Expected 3 sectors, got %d", sectors.Len())
	}
	last := sectors.Index(2)
	if id := field(t, last, "id").Num; id != 2 {
		t.Errorf("sectors[2].id = %d", id)
	}
	if parent := field(t, last, "parent_id").Num; parent != 1 {
		t.Errorf("sectors[2].parent_id = %d", parent)
	}
}

func TestHost_Limits(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxBlobBytes = 4
	f := newFixture(t, cfg)
	n := f.put(ctmtest.MustEncode(ctmtest.Quad(), ctm.MethodRAW))

	st := f.host.DecodeMesh(context.Background(), f.mem, f.alloc, inputPtr, n, retptr)
	if st != wasmhost.StatusInternal {
		t.Fatalf("Expected internal status for oversized blob, got %s", st)
	}
	if msg := f.host.LastError().Message; !strings.Contains(msg, "exceeds limit") {
		t.Errorf("message %q should mention the limit", msg)
	}
}

func TestHost_OutOfBoundsInput(t *testing.T) {
	f := newFixture(t, config.Default())
	st := f.host.DecodeMesh(context.Background(), f.mem, f.alloc, uint32(len(f.mem.data)-2), 16, retptr)
	if st != wasmhost.StatusInternal {
		t.Fatalf("Expected internal status, got %s", st)
	}
}

func TestHost_Close(t *testing.T) {
	h, err := wasmhost.New(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	mem := newTestMemory(64 << 10)
	copy(mem.data[inputPtr:], i3dftest.Encode(i3dftest.Root()))
	n := uint32(len(i3dftest.Encode(i3dftest.Root())))
	if st := h.DecodeRootSector(context.Background(), mem, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("status %s", st)
	}
	if err := h.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if h.Sectors() != 0 {
		t.Errorf("Expected no live sectors after Close, got %d", h.Sectors())
	}
	if st := h.DecodeRootSector(context.Background(), mem, inputPtr, n, retptr); st != wasmhost.StatusInternal {
		t.Errorf("decode on closed host: status %s, want internal", st)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Host.ModuleName = ""
	if _, err := wasmhost.New(cfg); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Expected invalid input, got %v", err)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want wasmhost.Status
	}{
		{nil, wasmhost.StatusOK},
		{errors.CodecDecode(nil), wasmhost.StatusCodec},
		{errors.Parser(errors.PhaseSector, errors.StageRoot, nil), wasmhost.StatusParser},
		{errors.Parser(errors.PhaseScene, errors.StageScene, nil), wasmhost.StatusParser},
		{errors.MissingAttributes("x"), wasmhost.StatusMissingAttributes},
		{errors.InvalidHandle(errors.PhaseHost, 3), wasmhost.StatusInvalidHandle},
		{errors.InvalidInput(errors.PhaseHost, "x"), wasmhost.StatusInternal},
	}
	for _, tt := range tests {
		if got := wasmhost.StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
