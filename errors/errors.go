package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseMarshal  Phase = "marshal"  // host value to native value
	PhaseDelegate Phase = "delegate" // native delegate execution
	PhaseLoad     Phase = "load"     // native module loading
	PhaseRuntime  Phase = "runtime"  // adapter runtime operations
	PhaseConfig   Phase = "config"   // configuration loading and validation
	PhaseHost     Phase = "host"     // host function binding
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidArgument   Kind = "invalid_argument"
	KindOverflow          Kind = "overflow"
	KindDelegateFailure   Kind = "delegate_failure"
	KindNotFound          Kind = "not_found"
	KindNotInitialized    Kind = "not_initialized"
	KindClosed            Kind = "closed"
	KindInvalidData       Kind = "invalid_data"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindQueueFull         Kind = "queue_full"
	KindCancelled         Kind = "cancelled"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	WitType string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.WitType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.WitType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", WIT type ")
			b.WriteString(e.WitType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WitType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
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

// Convenience constructors for common error patterns

// InvalidArgument creates an error for a host value that cannot be marshaled
// to the native type witType.
func InvalidArgument(path []string, goType, witType string, cause error) *Error {
	return &Error{
		Phase:   PhaseMarshal,
		Kind:    KindInvalidArgument,
		Path:    path,
		GoType:  goType,
		WitType: witType,
		Cause:   cause,
	}
}

// MissingArgument creates an error for a nil host value
func MissingArgument(path []string, witType string) *Error {
	return &Error{
		Phase:   PhaseMarshal,
		Kind:    KindInvalidArgument,
		Path:    path,
		WitType: witType,
		Detail:  "argument is missing",
	}
}

// Overflow creates an overflow error
func Overflow(path []string, value any, targetType string) *Error {
	return &Error{
		Phase:   PhaseMarshal,
		Kind:    KindOverflow,
		Path:    path,
		WitType: targetType,
		Detail:  fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:   value,
	}
}

// DelegateFailure wraps an error raised on the native side of the boundary
func DelegateFailure(delegate, op string, cause error) *Error {
	return &Error{
		Phase:  PhaseDelegate,
		Kind:   KindDelegateFailure,
		Path:   []string{op},
		Detail: fmt.Sprintf("%s delegate failed", delegate),
		Cause:  cause,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// SignatureMismatch creates an error for a native export whose core
// signature does not match its WIT declaration
func SignatureMismatch(export, want, got string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSignatureMismatch,
		Path:   []string{export},
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Closed creates an error for use after close
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", component),
	}
}

// QueueFull creates an error for a non-blocking enqueue that found no room
func QueueFull(component string, capacity int) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindQueueFull,
		Detail: fmt.Sprintf("%s queue is full (capacity %d)", component, capacity),
	}
}

// Cancelled wraps a context error that ended an operation early
func Cancelled(op string, cause error) *Error {
	return &Error{
		Phase: PhaseRuntime,
		Kind:  KindCancelled,
		Path:  []string{op},
		Cause: cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Config creates a configuration error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// IsInvalidArgument reports whether err was caused by a rejected host value.
// Overflow counts as an invalid argument.
func IsInvalidArgument(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == KindInvalidArgument || e.Kind == KindOverflow
}

// IsDelegateFailure reports whether err originated in the native delegate
func IsDelegateFailure(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == KindDelegateFailure
}

// MissingExportsError is returned when a native module lacks required exports
type MissingExportsError struct {
	Exports []string
}

func (e *MissingExportsError) Error() string {
	if len(e.Exports) == 0 {
		return "[load] not_found: no exports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "native module is missing %d export(s):", len(e.Exports))
	for _, name := range e.Exports {
		b.WriteString("\n  - ")
		b.WriteString(name)
	}
	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingExportsError) Is(target error) bool {
	_, ok := target.(*MissingExportsError)
	return ok
}
