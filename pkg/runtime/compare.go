package runtime

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"

	"github.com/thomasrohde/scoping/pkg/ast"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
	"github.com/thomasrohde/scoping/pkg/evaluator"
)

// ModeRun is the outcome of one mode in a comparison.
type ModeRun struct {
	Mode  evaluator.Mode
	Lines []string
	Env   *evaluator.Env
	Stats evaluator.BudgetTracker
	// Err is the runtime error that stopped this mode, if any.
	Err error
}

// Code returns the diagnostic code of Err, or "" for a clean run.
func (r *ModeRun) Code() string {
	if r.Err == nil {
		return ""
	}
	return Diagnose(r.Err)[0].Code
}

// Comparison holds the outcome of running one program under every mode.
type Comparison struct {
	Static  *ModeRun
	Dynamic *ModeRun
}

// Diverged reports whether the modes printed different output or stopped
// with different errors.
func (c *Comparison) Diverged() bool {
	if c.Static.Code() != c.Dynamic.Code() {
		return true
	}
	if len(c.Static.Lines) != len(c.Dynamic.Lines) {
		return true
	}
	for i := range c.Static.Lines {
		if c.Static.Lines[i] != c.Dynamic.Lines[i] {
			return true
		}
	}
	return false
}

// Diff renders a line diff from the static output to the dynamic output.
// Lines only printed under static are prefixed "- ", lines only printed
// under dynamic "+ ", shared lines "  ".
func (c *Comparison) Diff() string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(joinLines(c.Static.Lines), joinLines(c.Dynamic.Lines))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}
	return sb.String()
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Compare loads a program once and runs it under both modes concurrently,
// each against its own global environment and output. Runtime errors are
// recorded per mode; only load failures and cancellation are returned.
func (rt *Runtime) Compare(ctx context.Context, source, filename, entry string) (*Comparison, error) {
	program, err := rt.Load(source, filename)
	if err != nil {
		return nil, err
	}
	return rt.CompareProgram(ctx, program, entry)
}

// CompareProgram is Compare for an already loaded program.
func (rt *Runtime) CompareProgram(ctx context.Context, program *ast.Program, entry string) (*Comparison, error) {
	program = withEntry(program, entry)

	var trace func(evaluator.TraceEvent)
	if rt.trace != nil {
		var mu sync.Mutex
		trace = func(ev evaluator.TraceEvent) {
			mu.Lock()
			defer mu.Unlock()
			rt.trace(ev)
		}
	}

	modes := evaluator.Modes()
	runs := make([]*ModeRun, len(modes))
	g, gctx := errgroup.WithContext(ctx)
	for i, mode := range modes {
		i, mode := i, mode
		g.Go(func() error {
			rec := &evaluator.RecordingSink{}
			opts := rt.buildExecOptions(rec, rt.runID+"-"+mode.String(), trace)
			result, err := evaluator.Execute(gctx, program, mode, opts)
			run := &ModeRun{Mode: mode, Lines: rec.Lines(), Err: err}
			if result != nil {
				run.Env = result.Env
				run.Stats = result.Stats
			}
			runs[i] = run
			if canceled(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Comparison{Static: runs[0], Dynamic: runs[1]}, nil
}

func canceled(err error) bool {
	if err == nil {
		return false
	}
	var rtErr *evaluator.RuntimeError
	return errors.As(err, &rtErr) && rtErr.Code == diagnostics.ECanceled
}
