package wasmhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	revealbridge "github.com/wippyai/reveal-bridge"
	"github.com/wippyai/reveal-bridge/boundary"
	"github.com/wippyai/reveal-bridge/config"
	"github.com/wippyai/reveal-bridge/errors"
	"github.com/wippyai/reveal-bridge/mesh"
	"github.com/wippyai/reveal-bridge/resource"
	"github.com/wippyai/reveal-bridge/scene"
	"github.com/wippyai/reveal-bridge/sector"
	"go.uber.org/zap"
)

// Status is the i32 each host function returns.
type Status uint32

const (
	StatusOK Status = iota
	StatusCodec
	StatusParser
	StatusMissingAttributes
	StatusInvalidHandle
	StatusInternal
)

var statusNames = [...]string{"ok", "codec", "parser", "missing_attributes", "invalid_handle", "internal"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint32(s))
}

// StatusOf classifies err.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.IsKind(err, errors.KindMissingAttributes):
		return StatusMissingAttributes
	case errors.IsKind(err, errors.KindCodecDecode):
		return StatusCodec
	case errors.IsKind(err, errors.KindParser):
		return StatusParser
	case errors.IsKind(err, errors.KindInvalidHandle):
		return StatusInvalidHandle
	default:
		return StatusInternal
	}
}

// ErrorRecord is the value last-error lowers.
type ErrorRecord struct {
	Message string `boundary:"message"`
	Status  uint32 `boundary:"status"`
}

// Host holds the decoders and the sector handle table shared by every guest
// that imports the module.
type Host struct {
	sectors *resource.Table[*sector.Handle]
	meshes  *mesh.Decoder
	decoder *sector.Decoder
	scenes  *scene.Decoder
	module  api.Module
	name    string
	maxBlob int

	mu      sync.Mutex
	lastErr ErrorRecord
}

// New creates a host from cfg. The process-wide allocator is used for all
// host-side buffers.
func New(cfg config.Config) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Host{
		sectors: resource.NewTable[*sector.Handle](),
		meshes:  mesh.NewDecoder(mesh.OpenCTM),
		decoder: sector.NewDecoder(sector.I3DF),
		scenes:  scene.NewDecoder(scene.I3DF, scene.Renderables, scene.WithMaxSectors(cfg.Limits.MaxSectors)),
		name:    cfg.Host.ModuleName,
		maxBlob: cfg.Limits.MaxBlobBytes,
	}
	h.sectors.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventCreated || e.Type == resource.EventDropped {
			Logger().Debug("sector handle", zap.Stringer("event", e.Type), zap.Uint32("handle", uint32(e.Handle)))
		}
	}))
	return h, nil
}

// Sectors returns the number of live sector handles.
func (h *Host) Sectors() int {
	return h.sectors.Len()
}

// LastError returns the most recent failure recorded by a host function.
func (h *Host) LastError() ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// DecodeMesh decodes the OpenCTM blob at [ptr, ptr+length) and lowers the
// mesh envelope.
func (h *Host) DecodeMesh(ctx context.Context, mem revealbridge.Memory, alloc revealbridge.Allocator, ptr, length, retptr uint32) Status {
	return h.run("decode-mesh", mem, retptr, func() (uint32, error) {
		data, err := h.input(mem, ptr, length)
		if err != nil {
			return 0, err
		}
		out, err := h.meshes.Decode(data)
		if err != nil {
			return 0, err
		}
		return lower(ctx, mem, alloc, out)
	})
}

// DecodeRootSector decodes a root sector and stores its handle at retptr.
func (h *Host) DecodeRootSector(ctx context.Context, mem revealbridge.Memory, ptr, length, retptr uint32) Status {
	return h.run("decode-root-sector", mem, retptr, func() (uint32, error) {
		data, err := h.input(mem, ptr, length)
		if err != nil {
			return 0, err
		}
		root, err := h.decoder.DecodeRoot(data)
		if err != nil {
			return 0, err
		}
		return h.insert(root)
	})
}

// DecodeChildSector decodes a child sector against the root behind token
// and stores the child's handle at retptr. The root is borrowed for the
// duration of the call.
func (h *Host) DecodeChildSector(ctx context.Context, mem revealbridge.Memory, token, ptr, length, retptr uint32) Status {
	return h.run("decode-child-sector", mem, retptr, func() (uint32, error) {
		root, release, err := h.borrow(token)
		if err != nil {
			return 0, err
		}
		defer release()

		data, err := h.input(mem, ptr, length)
		if err != nil {
			return 0, err
		}
		child, err := h.decoder.DecodeChild(root, data)
		if err != nil {
			return 0, err
		}
		return h.insert(child)
	})
}

// ConvertSector lowers the renderable collections of the sector behind token.
func (h *Host) ConvertSector(ctx context.Context, mem revealbridge.Memory, alloc revealbridge.Allocator, token, retptr uint32) Status {
	return h.run("convert-sector", mem, retptr, func() (uint32, error) {
		s, release, err := h.borrow(token)
		if err != nil {
			return 0, err
		}
		defer release()
		return lower(ctx, mem, alloc, h.decoder.Convert(s))
	})
}

// DecodeScene decodes a whole i3df file and lowers the renderable scene.
func (h *Host) DecodeScene(ctx context.Context, mem revealbridge.Memory, alloc revealbridge.Allocator, ptr, length, retptr uint32) Status {
	return h.run("decode-scene", mem, retptr, func() (uint32, error) {
		data, err := h.input(mem, ptr, length)
		if err != nil {
			return 0, err
		}
		sc, err := h.scenes.Decode(data)
		if err != nil {
			return 0, err
		}
		return lower(ctx, mem, alloc, sc)
	})
}

// DropSector releases the handle token.
func (h *Host) DropSector(token uint32) Status {
	_, err := h.sectors.Remove(resource.Handle(token))
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, resource.ErrInvalidHandle):
		return h.fail("drop-sector", errors.InvalidHandle(errors.PhaseHost, token))
	default:
		return h.fail("drop-sector", errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "drop-sector"))
	}
}

// LowerLastError lowers the most recent failure and stores its address at
// retptr.
func (h *Host) LowerLastError(ctx context.Context, mem revealbridge.Memory, alloc revealbridge.Allocator, retptr uint32) Status {
	rec := h.LastError()
	ptr, err := lower(ctx, mem, alloc, rec)
	if err != nil {
		Logger().Warn("last-error failed", zap.Error(err))
		return StatusInternal
	}
	if err := mem.WriteU32(retptr, ptr); err != nil {
		return StatusInternal
	}
	return StatusOK
}

// Close drops every sector handle.
func (h *Host) Close(ctx context.Context) error {
	if err := h.sectors.Close(); err != nil {
		return err
	}
	if h.module != nil {
		return h.module.Close(ctx)
	}
	return nil
}

func (h *Host) run(name string, mem revealbridge.Memory, retptr uint32, fn func() (uint32, error)) Status {
	result, err := fn()
	if err != nil {
		return h.fail(name, err)
	}
	if err := mem.WriteU32(retptr, result); err != nil {
		return h.fail(name, errors.New(errors.PhaseHost, errors.KindOutOfBounds).
			Value(retptr).
			Detail("store result at %d", retptr).
			Cause(err).
			Build())
	}
	Logger().Debug("host call", zap.String("func", name), zap.Uint32("result", result))
	return StatusOK
}

func (h *Host) fail(name string, err error) Status {
	st := StatusOf(err)
	h.mu.Lock()
	h.lastErr = ErrorRecord{Message: err.Error(), Status: uint32(st)}
	h.mu.Unlock()
	Logger().Debug("host call failed",
		zap.String("func", name),
		zap.Stringer("status", st),
		zap.String("stage", string(errors.StageOf(err))),
		zap.Error(err))
	return st
}

func (h *Host) input(mem revealbridge.Memory, ptr, length uint32) ([]byte, error) {
	if h.maxBlob > 0 && int64(length) > int64(h.maxBlob) {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Value(length).
			Detail("blob of %d bytes exceeds limit of %d", length, h.maxBlob).
			Build()
	}
	data, err := mem.Read(ptr, length)
	if err != nil {
		return nil, errors.New(errors.PhaseHost, errors.KindOutOfBounds).
			Value(ptr).
			Detail("read blob [%d, %d)", ptr, uint64(ptr)+uint64(length)).
			Cause(err).
			Build()
	}
	return data, nil
}

func (h *Host) insert(s *sector.Handle) (uint32, error) {
	token := h.sectors.Insert(s)
	if token == 0 {
		return 0, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Detail("host is closed or its sector table is full").
			Build()
	}
	return token.BoundaryHandle(), nil
}

func (h *Host) borrow(token uint32) (*sector.Handle, func(), error) {
	handle := resource.Handle(token)
	if !h.sectors.Borrow(handle) {
		return nil, nil, errors.InvalidHandle(errors.PhaseHost, token)
	}
	s, _ := h.sectors.Get(handle)
	return s, func() { h.sectors.ReturnBorrow(handle) }, nil
}

func lower(ctx context.Context, mem revealbridge.Memory, alloc revealbridge.Allocator, v any) (uint32, error) {
	packed, err := boundary.Marshal(v)
	if err != nil {
		return 0, err
	}
	return boundary.Lower(ctx, mem, alloc, packed)
}
