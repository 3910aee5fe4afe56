package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	revealbridge "github.com/wippyai/reveal-bridge"
	"github.com/wippyai/reveal-bridge/errors"
)

// ReallocExport is the guest export used to allocate result storage.
const ReallocExport = "cabi_realloc"

type guest struct {
	mem   revealbridge.Memory
	alloc revealbridge.Allocator
}

type hostFunc struct {
	call   func(ctx context.Context, g guest, p []uint32) Status
	name   string
	params int
	// memory is false for functions that never touch guest memory.
	memory bool
}

func (h *Host) funcs() []hostFunc {
	return []hostFunc{
		{name: "decode-mesh", params: 3, memory: true, call: func(ctx context.Context, g guest, p []uint32) Status {
			return h.DecodeMesh(ctx, g.mem, g.alloc, p[0], p[1], p[2])
		}},
		{name: "decode-root-sector", params: 3, memory: true, call: func(ctx context.Context, g guest, p []uint32) Status {
			return h.DecodeRootSector(ctx, g.mem, p[0], p[1], p[2])
		}},
		{name: "decode-child-sector", params: 4, memory: true, call: func(ctx context.Context, g guest, p []uint32) Status {
			return h.DecodeChildSector(ctx, g.mem, p[0], p[1], p[2], p[3])
		}},
		{name: "convert-sector", params: 2, memory: true, call: func(ctx context.Context, g guest, p []uint32) Status {
			return h.ConvertSector(ctx, g.mem, g.alloc, p[0], p[1])
		}},
		{name: "decode-scene", params: 3, memory: true, call: func(ctx context.Context, g guest, p []uint32) Status {
			return h.DecodeScene(ctx, g.mem, g.alloc, p[0], p[1], p[2])
		}},
		{name: "drop-sector", params: 1, call: func(_ context.Context, _ guest, p []uint32) Status {
			return h.DropSector(p[0])
		}},
		{name: "last-error", params: 1, memory: true, call: func(ctx context.Context, g guest, p []uint32) Status {
			return h.LowerLastError(ctx, g.mem, g.alloc, p[0])
		}},
	}
}

// FuncNames lists the exported host functions in registration order.
func (h *Host) FuncNames() []string {
	fs := h.funcs()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.name
	}
	return names
}

// Instantiate registers the host module in rt. Guests importing it must
// export "memory" and cabi_realloc.
func (h *Host) Instantiate(ctx context.Context, rt wazero.Runtime) error {
	builder := rt.NewHostModuleBuilder(h.name)
	for _, f := range h.funcs() {
		params := make([]api.ValueType, f.params)
		for i := range params {
			params[i] = api.ValueTypeI32
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(h.handler(f), params, []api.ValueType{api.ValueTypeI32}).
			WithName(f.name).
			Export(f.name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "instantiate host module "+h.name)
	}
	h.module = mod
	Logger().Info("host module instantiated")
	return nil
}

func (h *Host) handler(f hostFunc) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		p := make([]uint32, f.params)
		for i := range p {
			p[i] = api.DecodeU32(stack[i])
		}

		var g guest
		if f.memory {
			var err error
			if g, err = guestOf(ctx, mod); err != nil {
				stack[0] = api.EncodeU32(uint32(h.fail(f.name, err)))
				return
			}
		}
		stack[0] = api.EncodeU32(uint32(f.call(ctx, g, p)))
	}
}

func guestOf(ctx context.Context, mod api.Module) (guest, error) {
	mem := mod.Memory()
	if mem == nil {
		return guest{}, errors.NotFound(errors.PhaseHost, "guest export", "memory")
	}
	fn := mod.ExportedFunction(ReallocExport)
	if fn == nil {
		return guest{}, errors.NotFound(errors.PhaseHost, "guest export", ReallocExport)
	}
	return guest{
		mem:   WrapMemory(mem),
		alloc: &GuestAllocator{Ctx: ctx, Fn: fn},
	}, nil
}
