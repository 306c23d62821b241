package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which bridge operation the error occurred in
type Phase string

const (
	PhaseLoad        Phase = "load"        // bytecode compilation
	PhaseInstantiate Phase = "instantiate" // hook registration and instantiation
	PhaseCall        Phase = "call"        // exported function invocation
	PhaseResume      Phase = "resume"      // answering a suspended import
	PhaseMemory      Phase = "memory"      // linear memory access
	PhaseMarshal     Phase = "marshal"     // host <-> engine value conversion
)

// Kind categorizes the error
type Kind string

const (
	KindCompile        Kind = "compile"
	KindInstantiation  Kind = "instantiation"
	KindRegistration   Kind = "hook_registration"
	KindAlreadyRunning Kind = "already_running"
	KindNotRunning     Kind = "not_running"
	KindNotFound       Kind = "not_found"
	KindArityMismatch  Kind = "arity_mismatch"
	KindConversion     Kind = "conversion"
	KindInvalidResult  Kind = "invalid_result"
	KindOutOfBounds    Kind = "access_out_of_bounds"
	KindNoMemory       Kind = "no_memory"
	KindUnsupported    Kind = "unsupported"
	KindInvalidInput   Kind = "invalid_input"
	KindClosed         Kind = "closed"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	SigCode string
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

	if e.GoType != "" || e.SigCode != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.SigCode != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", signature code ")
			b.WriteString(e.SigCode)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("signature code ")
			b.WriteString(e.SigCode)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.SigCode != "" {
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

// Is reports whether target matches this error. Two bridge errors match
// when their Phase and Kind agree, so callers can probe with sentinels:
//
//	errors.Is(err, &errors.Error{Phase: PhaseCall, Kind: KindAlreadyRunning})
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Convenience constructors, one per failure label

// Compile wraps an engine compilation diagnostic
func Compile(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindCompile,
		Detail: "compile module",
		Cause:  cause,
	}
}

// Instantiation wraps an engine instantiation failure
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Registration reports a failed host-module (hook namespace) registration
func Registration(namespace string, cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register hook namespace %q", namespace),
		Cause:  cause,
	}
}

// AlreadyRunning reports a call on a non-idle instance
func AlreadyRunning() *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindAlreadyRunning,
		Detail: "instance already running",
	}
}

// NotRunning reports a resume/abandon on an instance with no pending import
func NotRunning(detail string) *Error {
	return &Error{
		Phase:  PhaseResume,
		Kind:   KindNotRunning,
		Detail: detail,
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

// Arity reports an argument-count mismatch against the declared parameters
func Arity(want, got int) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindArityMismatch,
		Detail: fmt.Sprintf("function declares %d parameter(s), got %d argument(s)", want, got),
		Value:  got,
	}
}

// Conversion reports a host value that does not fit its signature code
func Conversion(phase Phase, path []string, goType, sigCode string, value any) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindConversion,
		Path:    path,
		GoType:  goType,
		SigCode: sigCode,
		Value:   value,
	}
}

// InvalidResult reports a resume value that does not fit the pending
// import's declared result code. The instance stays suspended.
func InvalidResult(sigCode string, cause error) *Error {
	return &Error{
		Phase:   PhaseResume,
		Kind:    KindInvalidResult,
		SigCode: sigCode,
		Detail:  "result value does not match pending import result type",
		Cause:   cause,
	}
}

// OutOfBounds reports a memory access outside the linear memory
func OutOfBounds(offset, length, size uint32) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access [%d, %d) exceeds memory size %d", offset, uint64(offset)+uint64(length), size),
	}
}

// NoMemory reports a memory operation on a module that exports no memory
func NoMemory() *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindNoMemory,
		Detail: "module exports no linear memory",
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

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Closed reports an operation on a released resource
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}
