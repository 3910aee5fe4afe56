package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrNotSeekable is returned by Seek when the underlying reader cannot seek.
var ErrNotSeekable = errors.New("seek not supported on this reader type")

// Reader wraps an io.Reader with position tracking and fixed-width read methods.
// All multi-byte reads are little-endian unless the method name says otherwise.
type Reader struct {
	r       io.Reader
	format  string
	pos     int
	scratch [8]byte
}

// NewReader creates a Reader. When r is an io.Seeker the starting position is
// its current offset, so positions in errors match offsets in the input.
func NewReader(r io.Reader, format string) *Reader {
	rd := &Reader{r: r, format: format}
	if s, ok := r.(io.Seeker); ok {
		if off, err := s.Seek(0, io.SeekCurrent); err == nil {
			rd.pos = int(off)
		}
	}
	return rd
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Seek moves to an absolute position. Only works when the source is an io.Seeker.
func (r *Reader) Seek(pos int) error {
	s, ok := r.r.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}
	if _, err := s.Seek(int64(pos), io.SeekStart); err != nil {
		return err
	}
	r.pos = pos
	return nil
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if br, ok := r.r.(io.ByteReader); ok {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		r.pos++
		return b, nil
	}
	if _, err := io.ReadFull(r.r, r.scratch[:1]); err != nil {
		return 0, err
	}
	r.pos++
	return r.scratch[0], nil
}

// ReadBytes reads exactly n bytes into a new slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadFull fills buf completely. A short read reports io.ErrUnexpectedEOF.
func (r *Reader) ReadFull(buf []byte) error {
	n, err := io.ReadFull(r.r, buf)
	r.pos += n
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) error {
	if _, ok := r.r.(io.Seeker); ok {
		return r.Seek(r.pos + n)
	}
	copied, err := io.CopyN(io.Discard, r.r, int64(n))
	r.pos += int(copied)
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (r *Reader) fixed(n int) ([]byte, error) {
	buf := r.scratch[:n]
	if err := r.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	return r.ReadByte()
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	buf, err := r.fixed(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	buf, err := r.fixed(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	buf, err := r.fixed(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// F32 reads a little-endian IEEE-754 float32.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Vec3 reads three consecutive little-endian float32 values.
func (r *Reader) Vec3() ([3]float32, error) {
	var v [3]float32
	for i := range v {
		f, err := r.F32()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// U56BE reads a 7-byte big-endian unsigned integer.
func (r *Reader) U56BE() (uint64, error) {
	buf, err := r.fixed(7)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// Tag reads a 4-byte ASCII chunk tag.
func (r *Reader) Tag() (string, error) {
	buf, err := r.fixed(4)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Expect reads a 4-byte tag and fails when it differs from want.
func (r *Reader) Expect(section, want string) error {
	start := r.pos
	got, err := r.Tag()
	if err != nil {
		return r.WrapError(section, err)
	}
	if got != want {
		return &ParseError{
			Format:   r.format,
			Section:  section,
			Position: start,
			Err:      fmt.Errorf("expected tag %q, got %q", want, got),
		}
	}
	return nil
}

// ParseError represents an error during binary parsing with position information.
type ParseError struct {
	Err      error
	Format   string
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("%s: %s at position %d: %v", e.Format, e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("%s: at position %d: %v", e.Format, e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Pos returns the byte offset where parsing failed.
func (e *ParseError) Pos() int {
	return e.Position
}

// WrapError creates a ParseError with the current position. Errors that are
// already a *ParseError pass through unchanged.
func (r *Reader) WrapError(section string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{
		Format:   r.format,
		Position: r.pos,
		Section:  section,
		Err:      err,
	}
}

// Errorf creates a ParseError at the current position.
func (r *Reader) Errorf(section, format string, args ...any) error {
	return &ParseError{
		Format:   r.format,
		Position: r.pos,
		Section:  section,
		Err:      fmt.Errorf(format, args...),
	}
}
