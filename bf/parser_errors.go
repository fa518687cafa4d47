package bf

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxKind classifies a SyntaxError.
type SyntaxKind int

const (
	UnmatchedClose SyntaxKind = iota + 1
	UnmatchedOpen
)

var (
	ErrUnmatchedClose = errors.New("unmatched ']'")
	ErrUnmatchedOpen  = errors.New("unmatched '['")
)

// SyntaxError reports an unbalanced bracket. It is returned before any
// instruction runs.
type SyntaxError struct {
	Kind   SyntaxKind
	Pos    Position
	source string
}

func newSyntaxError(kind SyntaxKind, pos Position) *SyntaxError {
	return &SyntaxError{Kind: kind, Pos: pos}
}

// Message is the error text without position or code frame.
func (e *SyntaxError) Message() string {
	switch e.Kind {
	case UnmatchedClose:
		return "unexpected token ']'"
	case UnmatchedOpen:
		return "unexpected token '['"
	default:
		return "invalid syntax"
	}
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message())
	if frame := formatCodeFrame(e.source, e.Pos); frame != "" {
		b.WriteString("\n")
		b.WriteString(frame)
	}
	return b.String()
}

func (e *SyntaxError) Unwrap() error {
	switch e.Kind {
	case UnmatchedClose:
		return ErrUnmatchedClose
	case UnmatchedOpen:
		return ErrUnmatchedOpen
	default:
		return nil
	}
}
