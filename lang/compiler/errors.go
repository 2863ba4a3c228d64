package compiler

import (
	"strconv"
	"strings"
)

// Error is a single compile-time diagnostic, formatted the way the
// reference implementation's error_at does: a file+line prefix, the
// offending lexeme (when there is one to show), and the message.
type Error struct {
	Path   string
	Line   int
	Lexeme string
	AtEnd  bool
	Msg    string
}

func (e *Error) Error() string {
	prefix := "[file " + e.Path + ", line " + strconv.Itoa(e.Line) + "] Error"
	switch {
	case e.AtEnd:
		return prefix + " at end: " + e.Msg
	case e.Lexeme == "":
		return prefix + ": " + e.Msg
	default:
		return prefix + " at '" + e.Lexeme + "': " + e.Msg
	}
}

// ErrorList accumulates every diagnostic produced while compiling one
// chunk, in the style of go/scanner.ErrorList: a single value satisfying
// error that can still be unwrapped into its constituents.
type ErrorList struct {
	errs []*Error
}

// Add appends a new diagnostic.
func (l *ErrorList) Add(e *Error) { l.errs = append(l.errs, e) }

// Len reports how many diagnostics have been recorded.
func (l *ErrorList) Len() int { return len(l.errs) }

// Err returns l as an error if it holds any diagnostics, nil otherwise.
// This is the value compile entry points return, so a clean compile
// reports a nil error rather than a non-nil ErrorList with zero entries.
func (l *ErrorList) Err() error {
	if l == nil || len(l.errs) == 0 {
		return nil
	}
	return l
}

func (l *ErrorList) Error() string {
	var b strings.Builder
	for i, e := range l.errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors, so callers using errors.Is/As can
// inspect any one diagnostic.
func (l *ErrorList) Unwrap() []error {
	out := make([]error, len(l.errs))
	for i, e := range l.errs {
		out[i] = e
	}
	return out
}
