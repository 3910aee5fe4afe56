// Package blob adapts host-provided binary blobs into owned, seekable readers.
package blob

import (
	"bytes"
	"fmt"

	"github.com/wippyai/reveal-bridge/alloc"
	"go.uber.org/zap"
)

// Raw is a host blob that has already been identified as binary.
type Raw []byte

// Reader is an owned copy of a blob. It supports io.Reader, io.ReaderAt,
// io.Seeker and io.ByteReader through the embedded bytes.Reader.
type Reader struct {
	*bytes.Reader
	data  []byte
	alloc *alloc.Allocator
}

// Adapt copies v into process-owned memory and returns a reader positioned
// at the start. v must be a []byte, a Raw or a *Reader from Fill; anything
// else is a caller bug and panics before any decode work starts. A *Reader
// is returned as is and the caller's Release takes it over.
func Adapt(v any) *Reader {
	return AdaptWith(alloc.Default(), v)
}

// AdaptWith is Adapt using the given allocator for the owned copy.
func AdaptWith(a *alloc.Allocator, v any) *Reader {
	var src []byte
	switch b := v.(type) {
	case *Reader:
		return b
	case []byte:
		src = b
	case Raw:
		src = b
	default:
		panic(fmt.Sprintf("blob: expected binary array, got %T", v))
	}

	data := a.Bytes(len(src))
	copy(data, src)
	Logger().Debug("blob adapted", zap.Int("bytes", len(data)))

	return &Reader{
		Reader: bytes.NewReader(data),
		data:   data,
		alloc:  a,
	}
}

// Fill allocates n bytes from a and lets fill write the whole blob into
// them. It is the single copy for hosts whose bytes live outside Go memory.
// The result can be passed to any decoder in place of a []byte.
func Fill(a *alloc.Allocator, n int, fill func(dst []byte)) *Reader {
	data := a.Bytes(n)
	fill(data)
	Logger().Debug("blob filled", zap.Int("bytes", n))

	return &Reader{
		Reader: bytes.NewReader(data),
		data:   data,
		alloc:  a,
	}
}

// Bytes returns the owned copy. It stays valid until Release.
func (r *Reader) Bytes() []byte {
	return r.data
}

// Release hands the owned copy back to the allocator. The reader must not be
// used afterwards.
func (r *Reader) Release() {
	if r.data == nil {
		return
	}
	r.alloc.Release(r.data)
	r.data = nil
	r.Reader = bytes.NewReader(nil)
}
