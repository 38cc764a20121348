// Package errors formats Buzz compile- and run-time diagnostics with
// source context, generalizing the teacher's CompilerError (message +
// position + caret-pointing source line) into the error kinds spec.md §7
// names.
package errors

import (
	"fmt"
	"strings"

	"github.com/buzzlang/buzz/internal/token"
)

// Kind classifies a diagnostic (spec.md §7).
type Kind int

const (
	LexError Kind = iota
	ParseError
	TypeError
	ResolutionError
	CompileError
	RuntimeError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "LexError"
	case ParseError:
		return "ParseError"
	case TypeError:
		return "TypeError"
	case ResolutionError:
		return "ResolutionError"
	case CompileError:
		return "CompileError"
	case RuntimeError:
		return "RuntimeError"
	default:
		return "Error"
	}
}

// Diagnostic is a single reported problem with its source position.
type Diagnostic struct {
	Kind    Kind
	Message string
	Pos     token.Position
	Source  string // the full source text, for caret rendering
	File    string
}

func (d *Diagnostic) Error() string { return d.Format(false) }

// Format renders the diagnostic with a source-line excerpt and a caret
// pointing at the column, mirroring the teacher's CompilerError.Format.
func (d *Diagnostic) Format(color bool) string {
	var sb strings.Builder

	if d.File != "" {
		fmt.Fprintf(&sb, "%s in %s:%d:%d: %s\n", d.Kind, d.File, d.Pos.Line, d.Pos.Column, d.Message)
	} else {
		fmt.Fprintf(&sb, "%s at %d:%d: %s\n", d.Kind, d.Pos.Line, d.Pos.Column, d.Message)
	}

	line := sourceLine(d.Source, d.Pos.Line)
	if line != "" {
		fmt.Fprintf(&sb, "  %s\n", line)
		fmt.Fprintf(&sb, "  %s^\n", strings.Repeat(" ", max(0, d.Pos.Column-1)))
	}
	return sb.String()
}

func sourceLine(source string, line int) string {
	if source == "" {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Diagnostics accumulates errors during one compilation pass and exposes
// the teacher's "recoverable" compile status: the VM must not execute code
// from a unit whose Diagnostics carries any entry (spec.md §4.2 "Errors").
type Diagnostics struct {
	entries []*Diagnostic
	source  string
	file    string
}

// NewDiagnostics creates an accumulator bound to one source file's text,
// used to render caret excerpts.
func NewDiagnostics(source, file string) *Diagnostics {
	return &Diagnostics{source: source, file: file}
}

// Add reports a new diagnostic.
func (d *Diagnostics) Add(kind Kind, pos token.Position, format string, args ...any) {
	d.entries = append(d.entries, &Diagnostic{
		Kind: kind, Pos: pos, Source: d.source, File: d.file,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.entries) > 0 }

// All returns every recorded diagnostic in report order.
func (d *Diagnostics) All() []*Diagnostic { return d.entries }

// Error implements the error interface by joining every diagnostic.
func (d *Diagnostics) Error() string {
	var sb strings.Builder
	for _, e := range d.entries {
		sb.WriteString(e.Format(false))
	}
	return sb.String()
}
