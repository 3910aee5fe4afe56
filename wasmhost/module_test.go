package wasmhost_test

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/reveal-bridge/boundary"
	"github.com/wippyai/reveal-bridge/config"
	"github.com/wippyai/reveal-bridge/ctm"
	"github.com/wippyai/reveal-bridge/ctm/ctmtest"
	"github.com/wippyai/reveal-bridge/i3df/i3dftest"
	"github.com/wippyai/reveal-bridge/internal/wire"
	"github.com/wippyai/reveal-bridge/mesh"
	"github.com/wippyai/reveal-bridge/renderables"
	"github.com/wippyai/reveal-bridge/wasmhost"
)

// guestModule builds a core module that imports every host function and
// re-exports each one as "call-<name>". It exports its memory and a bump
// allocator as cabi_realloc.
func guestModule(module string, funcs map[string]int, order []string) []byte {
	const i32 = 0x7f

	out := wire.NewWriter()
	out.WriteBytes([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	section := func(id byte, fill func(w *wire.Writer)) {
		body := wire.NewWriter()
		fill(body)
		out.Byte(id)
		out.LEB32(uint32(body.Len()))
		out.WriteBytes(body.Bytes())
	}

	// Type n-1 is (i32 x n) -> i32.
	section(1, func(w *wire.Writer) {
		w.LEB32(4)
		for n := 1; n <= 4; n++ {
			w.Byte(0x60)
			w.LEB32(uint32(n))
			for i := 0; i < n; i++ {
				w.Byte(i32)
			}
			w.LEB32(1)
			w.Byte(i32)
		}
	})

	section(2, func(w *wire.Writer) {
		w.LEB32(uint32(len(order)))
		for _, name := range order {
			w.Name(module)
			w.Name(name)
			w.Byte(0x00)
			w.LEB32(uint32(funcs[name] - 1))
		}
	})

	imported := uint32(len(order))
	section(3, func(w *wire.Writer) {
		w.LEB32(imported + 1)
		for _, name := range order {
			w.LEB32(uint32(funcs[name] - 1))
		}
		w.LEB32(3) // cabi_realloc
	})

	section(5, func(w *wire.Writer) {
		w.LEB32(1)
		w.Byte(0x00)
		w.LEB32(4) // pages
	})

	section(6, func(w *wire.Writer) {
		w.LEB32(1)
		w.Byte(i32)
		w.Byte(0x01) // mutable
		w.Byte(0x41)
		w.SLEB64(heapBase)
		w.Byte(0x0b)
	})

	section(7, func(w *wire.Writer) {
		w.LEB32(imported + 2)
		for i, name := range order {
			w.Name("call-" + name)
			w.Byte(0x00)
			w.LEB32(imported + uint32(i))
		}
		w.Name(wasmhost.ReallocExport)
		w.Byte(0x00)
		w.LEB32(imported * 2)
		w.Name("memory")
		w.Byte(0x02)
		w.LEB32(0)
	})

	section(10, func(w *wire.Writer) {
		w.LEB32(imported + 1)
		for i, name := range order {
			body := wire.NewWriter()
			body.LEB32(0) // no locals
			for p := 0; p < funcs[name]; p++ {
				body.Byte(0x20) // local.get
				body.LEB32(uint32(p))
			}
			body.Byte(0x10) // call
			body.LEB32(uint32(i))
			body.Byte(0x0b)
			w.LEB32(uint32(body.Len()))
			w.WriteBytes(body.Bytes())
		}

		// cabi_realloc(old, old_size, align, size): bump the heap global.
		body := wire.NewWriter()
		body.LEB32(1) // one local group
		body.LEB32(1)
		body.Byte(i32)
		body.WriteBytes([]byte{
			0x23, 0x00, // global.get 0
			0x20, 0x02, // local.get align
			0x6a,       // i32.add
			0x41, 0x01, // i32.const 1
			0x6b,       // i32.sub
			0x41, 0x00, // i32.const 0
			0x20, 0x02, // local.get align
			0x6b,       // i32.sub
			0x71,       // i32.and
			0x22, 0x04, // local.tee 4
			0x20, 0x04, // local.get 4
			0x20, 0x03, // local.get size
			0x6a,       // i32.add
			0x24, 0x00, // global.set 0
			0x0b,
		})
		w.LEB32(uint32(body.Len()))
		w.WriteBytes(body.Bytes())
	})

	return out.Bytes()
}

var hostParams = map[string]int{
	"decode-mesh":         3,
	"decode-root-sector":  3,
	"decode-child-sector": 4,
	"convert-sector":      2,
	"decode-scene":        3,
	"drop-sector":         1,
	"last-error":          1,
}

type guestRun struct {
	t   *testing.T
	ctx context.Context
	mod api.Module
	mem *wasmhost.Memory
}

func startGuest(t *testing.T) *guestRun {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	h, err := wasmhost.New(config.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := h.Instantiate(ctx, rt); err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}

	mod, err := rt.Instantiate(ctx, guestModule(config.DefaultModuleName, hostParams, h.FuncNames()))
	if err != nil {
		t.Fatalf("guest instantiate failed: %v", err)
	}
	return &guestRun{t: t, ctx: ctx, mod: mod, mem: wasmhost.WrapMemory(mod.Memory())}
}

func (g *guestRun) call(name string, params ...uint64) wasmhost.Status {
	g.t.Helper()
	fn := g.mod.ExportedFunction("call-" + name)
	if fn == nil {
		g.t.Fatalf("guest does not export call-%s", name)
	}
	res, err := fn.Call(g.ctx, params...)
	if err != nil {
		g.t.Fatalf("call-%s trapped: %v", name, err)
	}
	return wasmhost.Status(api.DecodeU32(res[0]))
}

func (g *guestRun) put(data []byte) uint64 {
	g.t.Helper()
	if err := g.mem.Write(inputPtr, data); err != nil {
		g.t.Fatal(err)
	}
	return uint64(len(data))
}

func (g *guestRun) result() uint32 {
	g.t.Helper()
	v, err := g.mem.ReadU32(retptr)
	if err != nil {
		g.t.Fatal(err)
	}
	return v
}

func (g *guestRun) lift(proto boundary.Value) boundary.Value {
	g.t.Helper()
	v, err := boundary.Lift(g.mem, g.result(), proto)
	if err != nil {
		g.t.Fatalf("Lift failed: %v", err)
	}
	return v
}

func TestGuest_DecodeMesh(t *testing.T) {
	g := startGuest(t)
	n := g.put(ctmtest.MustEncode(ctmtest.Quad(), ctm.MethodMG1))

	if st := g.call("decode-mesh", inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("decode-mesh status %s", st)
	}
	if ptr := g.result(); ptr < heapBase {
		t.Fatalf("result %d should live in the guest heap", ptr)
	}

	shape, err := boundary.Marshal(mesh.Ctm{})
	if err != nil {
		t.Fatal(err)
	}
	v := g.lift(shape)
	body, _ := v.Field("body")
	verts, _ := body.Field("vertices")
	idx, _ := body.Field("indices")
	if len(verts.Bytes) != 48 || len(idx.Bytes) != 24 {
		t.Fatalf("Expected 48 and 24 bytes, got %d and %d", len(verts.Bytes), len(idx.Bytes))
	}
	got := mesh.Indices(mesh.Body{Indices: idx.Bytes})
	want := ctmtest.Quad().Indices
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestGuest_SectorChainAndErrors(t *testing.T) {
	g := startGuest(t)

	n := g.put(i3dftest.Encode(i3dftest.Root()))
	if st := g.call("decode-root-sector", inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("decode-root-sector status %s", st)
	}
	root := uint64(g.result())

	n = g.put(i3dftest.Encode(i3dftest.Child(1, 0)))
	if st := g.call("decode-child-sector", root, inputPtr, n, retptr); st != wasmhost.StatusOK {
		t.Fatalf("decode-child-sector status %s", st)
	}
	child := uint64(g.result())

	if st := g.call("convert-sector", child, retptr); st != wasmhost.StatusOK {
		t.Fatalf("convert-sector status %s", st)
	}
	shape, err := boundary.Marshal(renderables.Sector{})
	if err != nil {
		t.Fatal(err)
	}
	v := g.lift(shape)
	segs, _ := v.Field("spherical_segments")
	attrs, _ := segs.Field("attributes")
	ids, _ := attrs.Field("node_ids")
	if ids.Len() != 1 {
		t.Errorf("Expected one spherical segment, got %d", ids.Len())
	}

	if st := g.call("drop-sector", child); st != wasmhost.StatusOK {
		t.Fatalf("drop-sector status %s", st)
	}
	if st := g.call("convert-sector", child, retptr); st != wasmhost.StatusInvalidHandle {
		t.Fatalf("convert-sector on dropped handle: status %s", st)
	}

	if st := g.call("last-error", retptr); st != wasmhost.StatusOK {
		t.Fatalf("last-error status %s", st)
	}
	errShape, err := boundary.Marshal(wasmhost.ErrorRecord{})
	if err != nil {
		t.Fatal(err)
	}
	rec := g.lift(errShape)
	msg, _ := rec.Field("message")
	if msg.Str == "" {
		t.Error("Expected a lowered error message")
	}
	status, _ := rec.Field("status")
	if wasmhost.Status(status.Num) != wasmhost.StatusInvalidHandle {
		t.Errorf("lowered status %d", status.Num)
	}
}

func TestGuest_DropUnknownHandle(t *testing.T) {
	g := startGuest(t)
	if st := g.call("drop-sector", 77); st != wasmhost.StatusInvalidHandle {
		t.Errorf("drop-sector(77) = %s, want invalid_handle", st)
	}
}

func TestGuest_HostModuleName(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	cfg := config.Default()
	cfg.Host.ModuleName = "custom:decode"
	h, err := wasmhost.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Instantiate(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if rt.Module("custom:decode") == nil {
		t.Fatal("host module not registered under the configured name")
	}
	if _, err := rt.Instantiate(ctx, guestModule(config.DefaultModuleName, hostParams, h.FuncNames())); err == nil {
		t.Fatal("guest importing the default name should fail to link")
	}
}
