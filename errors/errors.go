package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseNormalize Phase = "normalize" // enum argument normalization
	PhaseMarshal   Phase = "marshal"   // Go to engine buffers
	PhaseCall      Phase = "call"      // engine invocation
	PhaseDecode    Phase = "decode"    // engine buffers to Go
	PhaseLoad      Phase = "load"      // library/module loading
	PhaseConfig    Phase = "config"    // run file parsing and validation
	PhaseScenario  Phase = "scenario"  // scenario execution
)

// Kind categorizes the error
type Kind string

const (
	KindUnrecognizedType Kind = "unrecognized_type"
	KindInvalidInput     Kind = "invalid_input"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindAllocation       Kind = "allocation"
	KindMissingSymbol    Kind = "missing_symbol"
	KindNotFound         Kind = "not_found"
	KindNotInitialized   Kind = "not_initialized"
	KindUnsupported      Kind = "unsupported"
	KindInvalidData      Kind = "invalid_data"
	KindTrap             Kind = "trap"
)

// WarningThreshold separates engine warnings (below) from fatal codes.
const WarningThreshold = 100

// Error is the structured error type raised by this module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
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
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
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

// UnrecognizedType creates the caller-input error for an enum argument that
// matches neither a symbolic name nor an integer code.
func UnrecognizedType(op, enumType string, value any) *Error {
	return &Error{
		Phase:  PhaseNormalize,
		Kind:   KindUnrecognizedType,
		Op:     op,
		Detail: fmt.Sprintf("unrecognized %s %v", enumType, value),
		Value:  value,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, op, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Op:     op,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error for guest memory access
func OutOfBounds(phase Phase, op string, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Op:     op,
		Detail: fmt.Sprintf("offset=%d length=%d out of bounds", offset, length),
		Value:  offset,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(op string, size uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindAllocation,
		Op:     op,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// MissingSymbol creates an error for an engine entry point the loaded library
// does not export.
func MissingSymbol(symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingSymbol,
		Op:     symbol,
		Detail: fmt.Sprintf("symbol %q not exported", symbol),
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
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

// NotInitialized creates a not-initialized error for a released handle
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Trap creates an error for a guest trap or host-side call failure that
// prevented the engine from producing a status.
func Trap(op string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindTrap,
		Op:     op,
		Detail: "engine call did not complete",
		Cause:  cause,
	}
}

// Load creates a library loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
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

// EngineError is returned when an engine entry point reports a non-zero status.
type EngineError struct {
	Op      string
	Message string
	Code    int
	Warning bool
}

// UndocumentedMessage is the text used when the engine has no message for a
// non-zero code.
func UndocumentedMessage(code int) string {
	return fmt.Sprintf("MSX toolkit undocumented error %d", code)
}

// Engine creates an EngineError, substituting the undocumented-code message
// when the engine returned no text.
func Engine(op string, code int, message string) *EngineError {
	if message == "" && code != 0 {
		message = UndocumentedMessage(code)
	}
	return &EngineError{
		Op:      op,
		Code:    code,
		Message: message,
		Warning: code < WarningThreshold,
	}
}

func (e *EngineError) Error() string {
	severity := "error"
	if e.Warning {
		severity = "warning"
	}
	if e.Op == "" {
		return fmt.Sprintf("msx %s %d: %s", severity, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: msx %s %d: %s", e.Op, severity, e.Code, e.Message)
}

// Is reports whether target is an EngineError with the same code. A target
// with code 0 matches any EngineError.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Code == 0 || t.Code == e.Code
}

// Code returns the engine status carried by err, or 0 if err is not an
// EngineError.
func Code(err error) int {
	var ee *EngineError
	if stderrors.As(err, &ee) {
		return ee.Code
	}
	return 0
}

// IsWarning reports whether err carries an engine warning (code < 100).
func IsWarning(err error) bool {
	var ee *EngineError
	return stderrors.As(err, &ee) && ee.Warning
}

// IsFatal reports whether err carries a fatal engine status (code >= 100).
func IsFatal(err error) bool {
	var ee *EngineError
	return stderrors.As(err, &ee) && !ee.Warning
}

// IsUnrecognizedType reports whether err is the caller-input error raised for
// an unknown enum argument.
func IsUnrecognizedType(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == KindUnrecognizedType
}
