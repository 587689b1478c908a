// Package diagnostics defines diagnostic types for load, validation and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/scoping/pkg/ast"
)

// Diagnostic code constants.
const (
	EParse       = "E_PARSE"
	EAst         = "E_AST"
	EUnknownExpr = "E_UNKNOWN_EXPR"
	EBadName     = "E_BAD_NAME"
	EUnbound     = "E_UNBOUND"
	ENotCallable = "E_NOT_CALLABLE"
	EStack       = "E_STACK"
	ENoValue     = "E_NO_VALUE"
	EMode        = "E_MODE"
	EIO          = "E_IO"
	EConfig      = "E_CONFIG"
	ECanceled    = "E_CANCELED"
)

// Process exit codes used by the CLI.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitInvalid = 2
	ExitStack   = 3
	ExitRuntime = 4
)

// Diagnostic represents a load, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		file := d.Span.File
		if file == "" {
			file = "<program>"
		}
		loc = fmt.Sprintf("%s:%d:%d", file, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// HasCode reports whether any diagnostic carries code.
func HasCode(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

// ExitCode maps a diagnostic code to the CLI exit status.
func ExitCode(code string) int {
	switch code {
	case EParse, EAst, EUnknownExpr, EBadName:
		return ExitInvalid
	case EStack:
		return ExitStack
	case EIO, EConfig, EMode:
		return ExitUsage
	default:
		return ExitRuntime
	}
}
