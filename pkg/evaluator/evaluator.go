package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/thomasrohde/scoping/pkg/ast"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceStmtStart   TraceEventType = "stmt_start"
	TraceStmtEnd     TraceEventType = "stmt_end"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
	TracePrint       TraceEventType = "print"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// Options configures an Interpreter.
type Options struct {
	// Output receives printed values. Nil discards them.
	Output Sink
	Trace  func(event TraceEvent)
	RunID  string
	// MaxDepth bounds call nesting; exceeding it fails with E_STACK.
	// Zero means no bound.
	MaxDepth int
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Value Value
	// Env is the global environment the program ran in. It is set even when
	// execution failed part way through.
	Env   *Env
	Stats BudgetTracker
}

// RuntimeError represents an error raised while evaluating a program.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	// Name is the identifier involved, when there is one.
	Name string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

// ErrorCode returns the diagnostic code carried by err, or "" if err is not
// a *RuntimeError.
func ErrorCode(err error) string {
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) {
		return rtErr.Code
	}
	return ""
}

// Interpreter executes statements against environments. It keeps only call
// accounting; the scoping mode is passed to every method. An Interpreter is
// not safe for concurrent use; give each independent run its own.
type Interpreter struct {
	ctx     context.Context
	opts    Options
	budget  Budget
	tracker BudgetTracker
}

// NewInterpreter creates an interpreter. ctx is checked between statements.
func NewInterpreter(ctx context.Context, opts Options) *Interpreter {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Output == nil {
		opts.Output = discardSink{}
	}
	return &Interpreter{
		ctx:    ctx,
		opts:   opts,
		budget: Budget{MaxDepth: opts.MaxDepth},
	}
}

// Stats returns the call accounting gathered so far.
func (in *Interpreter) Stats() BudgetTracker {
	return in.tracker
}

func (in *Interpreter) emit(event TraceEventType, span *ast.Span, data map[string]string) {
	if in.opts.Trace != nil {
		in.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     in.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// Execute runs program against a fresh global environment.
func Execute(ctx context.Context, program *ast.Program, mode Mode, opts Options) (*ExecResult, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	in := NewInterpreter(ctx, opts)
	global := NewEnv(nil)

	span := program.Span
	in.emit(TraceRunStart, &span, map[string]string{"mode": mode.String()})

	val, err := in.execBlock(program.Statements, global, mode)

	in.emit(TraceRunEnd, &span, map[string]string{"mode": mode.String()})

	if err != nil {
		return &ExecResult{Env: global, Stats: in.tracker}, err
	}
	return &ExecResult{Value: val, Env: global, Stats: in.tracker}, nil
}

// RunProgram executes stmts against a fresh global environment and returns
// it, so later statements can run against the same state.
func (in *Interpreter) RunProgram(stmts []ast.Stmt, mode Mode) (*Env, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	global := NewEnv(nil)
	_, err := in.execBlock(stmts, global, mode)
	return global, err
}

// ExecStmt executes a single statement in env.
func (in *Interpreter) ExecStmt(stmt ast.Stmt, env *Env, mode Mode) (Value, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	return in.execStmt(stmt, env, mode)
}

// ExecBlock executes stmts in order and returns the value of the last one,
// or NoValue when stmts is empty.
func (in *Interpreter) ExecBlock(stmts []ast.Stmt, env *Env, mode Mode) (Value, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	return in.execBlock(stmts, env, mode)
}

// EvalExpr evaluates an expression in env.
func (in *Interpreter) EvalExpr(expr ast.Expr, env *Env, mode Mode) (Value, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	return in.evalExpr(expr, env, mode)
}

// Call invokes fn with callEnv as the call site.
func (in *Interpreter) Call(fn *Function, callEnv *Env, mode Mode) (Value, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	return in.call(fn, callEnv, mode, nil)
}

func (in *Interpreter) execBlock(stmts []ast.Stmt, env *Env, mode Mode) (Value, error) {
	var lastVal Value = NoValue{}

	for _, stmt := range stmts {
		val, err := in.execStmt(stmt, env, mode)
		if err != nil {
			return nil, err
		}
		lastVal = val
	}

	return lastVal, nil
}

func (in *Interpreter) execStmt(stmt ast.Stmt, env *Env, mode Mode) (Value, error) {
	if err := in.ctx.Err(); err != nil {
		return nil, &RuntimeError{
			Code:    diagnostics.ECanceled,
			Message: fmt.Sprintf("execution canceled: %s", err),
		}
	}
	if stmt == nil {
		return nil, &RuntimeError{Code: diagnostics.EAst, Message: "nil statement"}
	}

	span := stmt.NodeSpan()
	in.emit(TraceStmtStart, &span, map[string]string{"kind": stmt.Kind()})

	var (
		val Value
		err error
	)
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		val, err = in.evalExpr(s.Value, env, mode)
		if err == nil {
			env.Set(s.Name, val)
		}

	case *ast.PrintStmt:
		val, err = in.evalExpr(s.Value, env, mode)
		if err == nil {
			err = in.print(val, &span)
		}

	case *ast.CallStmt:
		val, err = in.execCall(s, env, mode)

	case *ast.DefStmt:
		fn := NewFunction(s.Name, s.Body, env)
		env.Set(s.Name, fn)
		val = fn

	default:
		err = &RuntimeError{
			Code:    diagnostics.EAst,
			Message: fmt.Sprintf("unsupported statement type: %T", stmt),
			Span:    &span,
		}
	}
	if err != nil {
		return nil, err
	}

	in.emit(TraceStmtEnd, &span, nil)
	return val, nil
}

func (in *Interpreter) print(val Value, span *ast.Span) error {
	in.tracker.Prints++
	in.emit(TracePrint, span, map[string]string{"value": FormatValue(val)})
	if err := in.opts.Output.Emit(val); err != nil {
		var rtErr *RuntimeError
		if errors.As(err, &rtErr) {
			if rtErr.Span == nil {
				rtErr.Span = span
			}
			return rtErr
		}
		return &RuntimeError{
			Code:    diagnostics.EIO,
			Message: fmt.Sprintf("print: %s", err),
			Span:    span,
		}
	}
	return nil
}

func (in *Interpreter) execCall(s *ast.CallStmt, env *Env, mode Mode) (Value, error) {
	span := s.Span
	callee, err := env.Lookup(s.Name)
	if err != nil {
		return nil, withSpan(err, &span)
	}
	fn, ok := callee.(*Function)
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.ENotCallable,
			Message: fmt.Sprintf("'%s' is not a function (got %s)", s.Name, TypeName(callee)),
			Span:    &span,
			Name:    s.Name,
		}
	}
	// The current environment is always the call site; Frame decides whether
	// it matters.
	return in.call(fn, env, mode, &span)
}

func (in *Interpreter) call(fn *Function, callEnv *Env, mode Mode, span *ast.Span) (Value, error) {
	if in.budget.MaxDepth > 0 && in.tracker.Depth >= in.budget.MaxDepth {
		return nil, &RuntimeError{
			Code:    diagnostics.EStack,
			Message: fmt.Sprintf("stack exhausted calling '%s' (max depth %d)", fn.Name(), in.budget.MaxDepth),
			Span:    span,
			Name:    fn.Name(),
		}
	}
	in.tracker.Depth++
	in.tracker.Calls++
	if in.tracker.Depth > in.tracker.MaxDepth {
		in.tracker.MaxDepth = in.tracker.Depth
	}
	defer func() { in.tracker.Depth-- }()

	data := map[string]string{
		"fn":    fn.Name(),
		"mode":  mode.String(),
		"depth": strconv.Itoa(in.tracker.Depth),
	}
	in.emit(TraceFnCallStart, span, data)

	frame := fn.Frame(callEnv, mode)
	val, err := in.execBlock(fn.Body(), frame, mode)
	if err != nil {
		return nil, err
	}

	in.emit(TraceFnCallEnd, span, data)
	return val, nil
}

func (in *Interpreter) evalExpr(expr ast.Expr, env *Env, mode Mode) (Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return Int{Value: e.Value}, nil

	case *ast.Ident:
		val, err := env.Lookup(e.Name)
		if err != nil {
			span := e.Span
			return nil, withSpan(err, &span)
		}
		return val, nil

	default:
		return nil, &RuntimeError{
			Code:    diagnostics.EUnknownExpr,
			Message: fmt.Sprintf("unrecognized expression: %T", expr),
		}
	}
}

func withSpan(err error, span *ast.Span) error {
	var rtErr *RuntimeError
	if errors.As(err, &rtErr) && rtErr.Span == nil {
		rtErr.Span = span
	}
	return err
}
