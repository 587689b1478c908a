// Package runtime provides the top-level orchestrator: load, validate and
// execute a program document under a scoping mode.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thomasrohde/scoping/pkg/ast"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
	"github.com/thomasrohde/scoping/pkg/evaluator"
	"github.com/thomasrohde/scoping/pkg/formatter"
	"github.com/thomasrohde/scoping/pkg/parser"
	"github.com/thomasrohde/scoping/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Value evaluator.Value
	// Env is the global environment. It is set even when execution failed.
	Env   *evaluator.Env
	Stats evaluator.BudgetTracker
}

// Runtime wires together the loader, validator and evaluator.
type Runtime struct {
	output   evaluator.Sink
	runID    string
	maxDepth int
	trace    func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithOutput sets the sink that receives printed values.
func WithOutput(s evaluator.Sink) Option {
	return func(rt *Runtime) {
		rt.output = s
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithMaxDepth bounds call nesting. Zero leaves it unbounded.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// New creates a new Runtime with the given options.
// By default printed values are discarded and call nesting is unbounded.
func New(opts ...Option) *Runtime {
	rt := &Runtime{runID: "cli"}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Load parses a program and rejects it if it is structurally invalid.
// Names that are unbound or not callable are left for execution to report,
// since output printed before the failure is part of the run.
func (rt *Runtime) Load(source, filename string) (*ast.Program, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	var blocking []diagnostics.Diagnostic
	for _, d := range validator.Validate(program) {
		if structural(d.Code) {
			blocking = append(blocking, d)
		}
	}
	if len(blocking) > 0 {
		return nil, &DiagnosticError{Diagnostics: blocking}
	}
	return program, nil
}

func structural(code string) bool {
	switch code {
	case diagnostics.EAst, diagnostics.EUnknownExpr, diagnostics.EBadName:
		return true
	}
	return false
}

// Run loads and executes a program under mode. If entry is non-empty, a
// call of entry is executed against the resulting global environment, the
// way a caller would issue a standalone call statement.
func (rt *Runtime) Run(ctx context.Context, source, filename string, mode evaluator.Mode, entry string) (*Result, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	program, err := rt.Load(source, filename)
	if err != nil {
		return nil, err
	}
	return rt.Execute(ctx, program, mode, entry)
}

// Execute runs an already loaded program. See Run.
func (rt *Runtime) Execute(ctx context.Context, program *ast.Program, mode evaluator.Mode, entry string) (*Result, error) {
	opts := rt.buildExecOptions(rt.output, rt.runID, rt.trace)
	result, err := evaluator.Execute(ctx, withEntry(program, entry), mode, opts)
	if result == nil {
		return nil, err
	}
	return &Result{Value: result.Value, Env: result.Env, Stats: result.Stats}, err
}

// withEntry appends a top-level call of entry. The call runs in the global
// environment with the global environment as its call site.
func withEntry(program *ast.Program, entry string) *ast.Program {
	if entry == "" {
		return program
	}
	stmts := make([]ast.Stmt, 0, len(program.Statements)+1)
	stmts = append(stmts, program.Statements...)
	stmts = append(stmts, &ast.CallStmt{Span: ast.Span{File: program.Span.File}, Name: entry})
	return &ast.Program{Span: program.Span, Statements: stmts}
}

// Check parses and validates a program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}

	vDiags := validator.Validate(program)
	return vDiags
}

// Format parses a program and renders it as pseudo-source.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Canonical parses a program and re-encodes it as a canonical document.
func (rt *Runtime) Canonical(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	out, err := parser.Marshal(program)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (rt *Runtime) buildExecOptions(out evaluator.Sink, runID string, trace func(evaluator.TraceEvent)) evaluator.Options {
	return evaluator.Options{
		Output:   out,
		Trace:    trace,
		RunID:    runID,
		MaxDepth: rt.maxDepth,
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Diagnose converts any error from this package, the evaluator or the config
// loader into diagnostics. Unrecognized errors become E_IO.
func Diagnose(err error) []diagnostics.Diagnostic {
	if err == nil {
		return nil
	}
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		return diagErr.Diagnostics
	}
	var d interface{ Diagnostic() diagnostics.Diagnostic }
	if errors.As(err, &d) {
		return []diagnostics.Diagnostic{d.Diagnostic()}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")}
}

// ExitCode maps an error to the CLI exit status.
func ExitCode(err error) int {
	diags := Diagnose(err)
	if len(diags) == 0 {
		return diagnostics.ExitOK
	}
	return diagnostics.ExitCode(diags[0].Code)
}
