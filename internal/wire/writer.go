package wire

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writer provides buffered writing utilities for the codec layouts and for
// WASM binary encoding.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// Tag writes a 4-byte ASCII tag, padding with zero bytes.
func (w *Writer) Tag(tag string) {
	var b [4]byte
	copy(b[:], tag)
	w.buf.Write(b[:])
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// F32 writes a little-endian IEEE-754 float32.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// U56BE writes the low 7 bytes of v big-endian.
func (w *Writer) U56BE(v uint64) {
	for shift := 48; shift >= 0; shift -= 8 {
		w.buf.WriteByte(byte(v >> uint(shift)))
	}
}

// LEB32 writes an unsigned LEB128 encoded uint32.
func (w *Writer) LEB32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// SLEB64 writes a signed LEB128 encoded int64.
func (w *Writer) SLEB64(v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && (b&0x40) == 0) || (v == -1 && (b&0x40) != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.buf.WriteByte(b)
	}
}

// Name writes a LEB128 length-prefixed UTF-8 name.
func (w *Writer) Name(s string) {
	w.LEB32(uint32(len(s)))
	w.buf.WriteString(s)
}
