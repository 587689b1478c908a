// Package demo holds the canonical program that shows static and dynamic
// scoping disagreeing, and a runner that prints both outputs.
package demo

import (
	"context"
	"fmt"
	"io"

	"github.com/thomasrohde/scoping/pkg/ast"
	"github.com/thomasrohde/scoping/pkg/evaluator"
)

// Entry is the function called after the canonical program has run.
const Entry = "g"

// Canonical returns a fresh copy of
//
//	x = 10
//	def f():
//	  print(x)
//	def g():
//	  x = 20
//	  f()
func Canonical() *ast.Program {
	return &ast.Program{Statements: []ast.Stmt{
		ast.Assign("x", ast.Int(10)),
		ast.Def("f",
			ast.Print(ast.Name("x")),
		),
		ast.Def("g",
			ast.Assign("x", ast.Int(20)),
			ast.Call("f"),
		),
	}}
}

// Run executes program under mode, then calls entry (if non-empty) against
// the returned global environment. Printed values go to out.
func Run(ctx context.Context, program *ast.Program, entry string, mode evaluator.Mode, opts evaluator.Options) (*evaluator.Env, error) {
	in := evaluator.NewInterpreter(ctx, opts)
	env, err := in.RunProgram(program.Statements, mode)
	if err != nil {
		return env, err
	}
	if entry != "" {
		if _, err := in.ExecStmt(ast.Call(entry), env, mode); err != nil {
			return env, err
		}
	}
	return env, nil
}

// Write prints the canonical demonstration to w: a heading and the output of
// each mode, separated by a blank line.
func Write(ctx context.Context, w io.Writer, maxDepth int) error {
	for i, mode := range evaluator.Modes() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s Scoping Output:\n", Heading(mode))
		opts := evaluator.Options{
			Output:   evaluator.NewWriterSink(w),
			RunID:    "demo-" + mode.String(),
			MaxDepth: maxDepth,
		}
		if _, err := Run(ctx, Canonical(), Entry, mode, opts); err != nil {
			return err
		}
	}
	return nil
}

// Heading is the capitalized mode name used in output section titles.
func Heading(mode evaluator.Mode) string {
	switch mode {
	case evaluator.Static:
		return "Static"
	case evaluator.Dynamic:
		return "Dynamic"
	}
	return mode.String()
}
