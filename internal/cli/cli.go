// Package cli implements the scoping command line. It is separate from
// cmd/scoping so the conformance suite can drive it in-process.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/thomasrohde/scoping/pkg/config"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
	"github.com/thomasrohde/scoping/pkg/evaluator"
	"github.com/thomasrohde/scoping/pkg/runtime"
)

// IO holds the streams a command reads from and writes to.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Dir is searched for the project config file. Empty means the
	// working directory.
	Dir string
}

// StdIO returns the process streams.
func StdIO() IO {
	return IO{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

const usageLine = "usage: scoping <command> [options]\ncommands: run, compare, check, fmt, demo, trace, help"

// Run executes the command in args (without the program name) and returns
// the process exit code.
func Run(ctx context.Context, args []string, stdio IO) int {
	if len(args) < 1 {
		fmt.Fprintln(stdio.Stderr, usageLine)
		return diagnostics.ExitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help", "--help", "-h":
		return cmdHelp(rest, stdio)
	case "trace":
		return cmdTrace(rest, stdio)
	}

	var handler func(context.Context, *invocation) int
	switch cmd {
	case "run":
		handler = cmdRun
	case "compare":
		handler = cmdCompare
	case "check":
		handler = cmdCheck
	case "fmt":
		handler = cmdFmt
	case "demo":
		handler = cmdDemo
	default:
		fmt.Fprintf(stdio.Stderr, "Unknown command: %s\n%s\n", cmd, usageLine)
		return diagnostics.ExitUsage
	}

	inv, code := newInvocation(cmd, rest, stdio)
	if inv == nil {
		return code
	}
	return handler(ctx, inv)
}

// flags holds every option any command accepts. Commands ignore the ones
// that do not apply to them.
type flags struct {
	positional []string
	mode       string
	call       string
	pretty     *bool
	maxDepth   *int
	tracePath  string
	runID      string
	dumpEnv    bool
	result     bool
	write      bool
	source     bool
	jsonOut    bool
	textOut    bool
}

func parseFlags(args []string) (*flags, error) {
	f := &flags{}
	setBool := func(b bool) *bool { return &b }

	for i := 0; i < len(args); i++ {
		arg := args[i]
		value := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("flag %s needs a value", arg)
			}
			i++
			return args[i], nil
		}

		var err error
		switch arg {
		case "--pretty":
			f.pretty = setBool(true)
		case "--json":
			f.pretty = setBool(false)
			f.jsonOut = true
		case "--text":
			f.textOut = true
		case "--dump-env":
			f.dumpEnv = true
		case "--result":
			f.result = true
		case "--write":
			f.write = true
		case "--source":
			f.source = true
		case "--mode":
			f.mode, err = value()
		case "--call":
			f.call, err = value()
		case "--trace":
			f.tracePath, err = value()
		case "--run-id":
			f.runID, err = value()
		case "--max-depth":
			var s string
			if s, err = value(); err == nil {
				var n int
				if n, err = strconv.Atoi(s); err != nil {
					err = fmt.Errorf("--max-depth: %q is not an integer", s)
				} else {
					f.maxDepth = &n
				}
			}
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return nil, fmt.Errorf("unknown flag %s", arg)
			}
			f.positional = append(f.positional, arg)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// invocation is a parsed command line merged with configuration.
type invocation struct {
	cmd      string
	flags    *flags
	stdio    IO
	pretty   bool
	mode     evaluator.Mode
	maxDepth int
	runID    string
}

func newInvocation(cmd string, args []string, stdio IO) (*invocation, int) {
	f, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n%s\n", err, usageFor(cmd))
		return nil, diagnostics.ExitUsage
	}

	dir := stdio.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	cfg, _, err := config.Load(dir)
	if err != nil {
		pretty := f.pretty == nil || *f.pretty
		fmt.Fprintln(stdio.Stderr, diagnostics.FormatDiagnostics(runtime.Diagnose(err), pretty))
		return nil, diagnostics.ExitUsage
	}

	inv := &invocation{
		cmd:      cmd,
		flags:    f,
		stdio:    stdio,
		pretty:   cfg.PrettyOutput(),
		mode:     cfg.Mode,
		maxDepth: cfg.DepthLimit(),
		runID:    cfg.RunID,
	}
	if f.pretty != nil {
		inv.pretty = *f.pretty
	}
	if f.maxDepth != nil {
		inv.maxDepth = config.DepthLimit(*f.maxDepth)
	}
	if f.runID != "" {
		inv.runID = f.runID
	}
	if f.mode != "" {
		mode, err := evaluator.ParseMode(f.mode)
		if err != nil {
			inv.report(err)
			return nil, diagnostics.ExitUsage
		}
		inv.mode = mode
	}
	return inv, diagnostics.ExitOK
}

func usageFor(cmd string) string {
	switch cmd {
	case "run":
		return "usage: scoping run <file> [--mode static|dynamic] [--call name] [--dump-env] [--result] [--trace file] [--max-depth N] [--pretty|--json]"
	case "compare":
		return "usage: scoping compare <file> [--call name] [--trace file] [--max-depth N] [--pretty|--json]"
	case "check":
		return "usage: scoping check <file> [--pretty|--json]"
	case "fmt":
		return "usage: scoping fmt <file> [--write] [--source]"
	case "demo":
		return "usage: scoping demo [--max-depth N]"
	}
	return usageLine
}

// file returns the single positional argument or reports a usage error.
func (inv *invocation) file() (string, bool) {
	if len(inv.flags.positional) != 1 {
		fmt.Fprintln(inv.stdio.Stderr, usageFor(inv.cmd))
		return "", false
	}
	return inv.flags.positional[0], true
}

// readSource reads a program from file, or from stdin when file is "-".
func (inv *invocation) readSource(file string) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(inv.stdio.Stdin)
		if err != nil {
			inv.reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read stdin: %s", err), nil, ""))
			return "", "", diagnostics.ExitUsage
		}
		return string(data), "<stdin>", diagnostics.ExitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		inv.reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, ""))
		return "", "", diagnostics.ExitUsage
	}
	return string(source), file, diagnostics.ExitOK
}

// report prints err as diagnostics and returns its exit code.
func (inv *invocation) report(err error) int {
	diags := runtime.Diagnose(err)
	fmt.Fprintln(inv.stdio.Stderr, diagnostics.FormatDiagnostics(diags, inv.pretty))
	return runtime.ExitCode(err)
}

func (inv *invocation) reportDiag(d diagnostics.Diagnostic) {
	fmt.Fprintln(inv.stdio.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{d}, inv.pretty))
}
