package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // text format parsing
	PhaseVerify  Phase = "verify"  // module structural checks
	PhaseAnalyze Phase = "analyze" // provenance analysis
	PhaseGrow    Phase = "grow"    // region growth
	PhaseExtract Phase = "extract" // region outlining
	PhaseRun     Phase = "run"     // interpretation
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax          Kind = "syntax"
	KindVersionMismatch Kind = "version_mismatch"
	KindInvalidIR       Kind = "invalid_ir"
	KindAmbiguousMerge  Kind = "ambiguous_merge"
	KindEscapedUse      Kind = "escaped_use"
	KindEscapedBranch   Kind = "escaped_branch"
	KindUnsupported     Kind = "unsupported"
	KindInternal        Kind = "internal"
	KindNotFound        Kind = "not_found"
	KindStepLimit       Kind = "step_limit"
	KindBadAddress      Kind = "bad_address"
)

// Error is the structured error type used throughout the toolchain
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Func   string // function being processed, "" if none
	Region int    // region id, -1 if none
	Instr  string // offending instruction in printed form
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Func != "" {
		b.WriteString(" in @")
		b.WriteString(e.Func)
	}
	if e.Region >= 0 {
		fmt.Fprintf(&b, " region d%d", e.Region)
	}
	if e.Instr != "" {
		b.WriteString(" at ")
		b.WriteString(e.Instr)
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

// New creates an error with no location attached
func New(phase Phase, kind Kind, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Phase: phase, Kind: kind, Region: -1, Detail: detail}
}

// Convenience constructors for common error patterns

// Syntax creates a parse error at the given line
func Syntax(line int, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Region: -1,
		Detail: fmt.Sprintf("line %d: %s", line, detail),
	}
}

// VersionMismatch creates a format version gate error
func VersionMismatch(got, supported string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindVersionMismatch,
		Region: -1,
		Detail: fmt.Sprintf("file format %q is not compatible with supported format %q", got, supported),
	}
}

// InvalidIR creates a structural verification error
func InvalidIR(cause error) *Error {
	return &Error{Phase: PhaseVerify, Kind: KindInvalidIR, Region: -1, Cause: cause}
}

// AmbiguousMerge creates the fatal condition raised when region growth
// reaches the same exit boundary through two different frontier values
func AmbiguousMerge(fn string, region int, boundary string) *Error {
	return &Error{
		Phase:  PhaseGrow,
		Kind:   KindAmbiguousMerge,
		Func:   fn,
		Region: region,
		Instr:  boundary,
		Detail: "exit boundary reached with conflicting frontier values",
	}
}

// EscapedUse creates the post-extraction integrity error for a value
// referenced across the outlined unit's boundary
func EscapedUse(fn string, region int, instr string) *Error {
	return &Error{
		Phase:  PhaseExtract,
		Kind:   KindEscapedUse,
		Func:   fn,
		Region: region,
		Instr:  instr,
		Detail: "value used across the outlined unit boundary",
	}
}

// EscapedBranch creates the post-extraction integrity error for a
// branch entering the detached region from outside
func EscapedBranch(fn string, region int, block string) *Error {
	return &Error{
		Phase:  PhaseExtract,
		Kind:   KindEscapedBranch,
		Func:   fn,
		Region: region,
		Detail: fmt.Sprintf("block %s still targeted by a branch outside the region", block),
	}
}

// Internal creates an internal-consistency error
func Internal(phase Phase, fn string, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Phase: phase, Kind: KindInternal, Func: fn, Region: -1, Detail: detail}
}

// NotFound creates a lookup failure error
func NotFound(phase Phase, what string) *Error {
	return &Error{Phase: phase, Kind: KindNotFound, Region: -1, Detail: what + " not found"}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{Phase: phase, Kind: KindUnsupported, Region: -1, Detail: what}
}

// StepLimit creates the interpreter budget error
func StepLimit(fn string, steps int) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindStepLimit,
		Func:   fn,
		Region: -1,
		Detail: fmt.Sprintf("exceeded %d execution steps", steps),
	}
}

// BadAddress creates an interpreter memory fault
func BadAddress(fn string, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Phase: PhaseRun, Kind: KindBadAddress, Func: fn, Region: -1, Detail: detail}
}
