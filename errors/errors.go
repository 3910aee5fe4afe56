package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAdapt   Phase = "adapt"   // host blob intake
	PhaseMesh    Phase = "mesh"    // mesh decode and flatten
	PhaseSector  Phase = "sector"  // root/child sector decode
	PhaseScene   Phase = "scene"   // whole-file decode
	PhaseConvert Phase = "convert" // renderable conversion
	PhasePackage Phase = "package" // boundary packaging
	PhaseHost    Phase = "host"    // host function plumbing
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindCodecDecode       Kind = "codec_decode"
	KindParser            Kind = "parser"
	KindMissingAttributes Kind = "missing_attributes"
	KindInvalidInput      Kind = "invalid_input"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindUnsupported       Kind = "unsupported"
	KindNotFound          Kind = "not_found"
	KindAllocation        Kind = "allocation"
	KindTypeMismatch      Kind = "type_mismatch"
	KindInvalidHandle     Kind = "invalid_handle"
)

// Stage names the decode step that failed.
type Stage string

const (
	StageRoot  Stage = "root"
	StageChild Stage = "child"
	StageScene Stage = "scene"
	StageMesh  Stage = "mesh"
)

// Sentinels for errors.Is. Matching uses Phase and Kind only.
var (
	ErrCodecDecode       = &Error{Phase: PhaseMesh, Kind: KindCodecDecode}
	ErrMissingAttributes = &Error{Phase: PhaseSector, Kind: KindMissingAttributes}
	ErrSectorParser      = &Error{Phase: PhaseSector, Kind: KindParser}
	ErrSceneParser       = &Error{Phase: PhaseScene, Kind: KindParser}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Stage  Stage
	Detail string
	Path   []string
	// Offset is the byte offset into the input, or -1 when unknown.
	Offset int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Stage != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Stage))
		b.WriteByte(')')
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Offset >= 0 {
		fmt.Fprintf(&b, " @%d", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Stage sets the failing decode stage
func (b *Builder) Stage(s Stage) *Builder {
	b.err.Stage = s
	return b
}

// Offset sets the byte offset into the input
func (b *Builder) Offset(off int64) *Builder {
	b.err.Offset = off
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	if b.err.Offset < 0 {
		var p positioned
		if errors.As(err, &p) {
			b.err.Offset = int64(p.Pos())
		}
	}
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// positioned is implemented by codec parse errors that know their byte offset.
type positioned interface {
	error
	Pos() int
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// StageOf returns the stage recorded on the outermost *Error, if any.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// Convenience constructors for common error patterns

// CodecDecode wraps a mesh codec failure
func CodecDecode(cause error) *Error {
	return New(PhaseMesh, KindCodecDecode).
		Stage(StageMesh).
		Detail("mesh codec rejected input").
		Cause(cause).
		Build()
}

// Parser wraps a sector codec failure for the given stage.
func Parser(phase Phase, stage Stage, cause error) *Error {
	return New(phase, KindParser).
		Stage(stage).
		Detail("parse %s", stage).
		Cause(cause).
		Build()
}

// MissingAttributes reports a child decode against a root without an attribute table
func MissingAttributes(detail string) *Error {
	return New(PhaseSector, KindMissingAttributes).
		Stage(StageChild).
		Detail("%s", detail).
		Build()
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
		Offset: -1,
	}
}

// InvalidHandle creates an error for unknown or mistyped handle tokens
func InvalidHandle(phase Phase, handle uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("handle %d is not a live sector", handle),
		Value:  handle,
		Offset: -1,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
		Offset: -1,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
		Offset: -1,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
		Offset: -1,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("Go type %s has no boundary representation", goType),
		Offset: -1,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Offset: -1,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return New(phase, kind).Detail("%s", detail).Cause(cause).Build()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
