package bf

import (
	"errors"
	"fmt"
	"strings"
)

// RuntimeKind classifies a RuntimeError.
type RuntimeKind string

const (
	KindPointer  RuntimeKind = "PointerError"
	KindInput    RuntimeKind = "InputError"
	KindOutput   RuntimeKind = "OutputError"
	KindQuota    RuntimeKind = "QuotaError"
	KindCanceled RuntimeKind = "CanceledError"
)

var (
	ErrPointerOutOfBounds = errors.New("data pointer out of bounds")
	ErrInputExhausted     = errors.New("input exhausted")
	ErrOutputFailed       = errors.New("output failed")
	ErrStepQuotaExceeded  = errors.New("step quota exceeded")
)

// RuntimeError stops execution. Output written before the failure is not
// rolled back.
type RuntimeError struct {
	Kind      RuntimeKind
	Message   string
	Pos       Position
	Pointer   int
	CodeFrame string

	causes []error
}

func (re *RuntimeError) Error() string {
	var b strings.Builder
	if re.Pos.Line > 0 {
		fmt.Fprintf(&b, "%s at %d:%d: %s", re.Kind, re.Pos.Line, re.Pos.Column, re.Message)
	} else {
		fmt.Fprintf(&b, "%s: %s", re.Kind, re.Message)
	}
	fmt.Fprintf(&b, " (pointer %d)", re.Pointer)
	if re.CodeFrame != "" {
		b.WriteString("\n")
		b.WriteString(re.CodeFrame)
	}
	return b.String()
}

// Unwrap exposes the sentinel for the error kind and, when present, the
// underlying I/O or context error.
func (re *RuntimeError) Unwrap() []error {
	return re.causes
}

func (exec *Execution) errorAt(kind RuntimeKind, pos Position, message string, causes ...error) error {
	return &RuntimeError{
		Kind:      kind,
		Message:   message,
		Pos:       pos,
		Pointer:   exec.machine.Pointer,
		CodeFrame: formatCodeFrame(exec.source, pos),
		causes:    causes,
	}
}
