package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/thomasrohde/scoping/pkg/demo"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
	"github.com/thomasrohde/scoping/pkg/evaluator"
	"github.com/thomasrohde/scoping/pkg/formatter"
	"github.com/thomasrohde/scoping/pkg/help"
	"github.com/thomasrohde/scoping/pkg/runtime"
)

func (inv *invocation) newRuntime(opts ...runtime.Option) (*runtime.Runtime, func(), int) {
	base := []runtime.Option{
		runtime.WithRunID(inv.runID),
		runtime.WithMaxDepth(inv.maxDepth),
	}
	closeTrace := func() {}
	if inv.flags.tracePath != "" {
		tw, err := openTrace(inv.flags.tracePath)
		if err != nil {
			inv.reportDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot write trace: %s", err), nil, ""))
			return nil, nil, diagnostics.ExitUsage
		}
		base = append(base, runtime.WithTrace(tw.Write))
		closeTrace = func() {
			if err := tw.Close(); err != nil {
				fmt.Fprintf(inv.stdio.Stderr, "warning: trace file: %s\n", err)
			}
		}
	}
	return runtime.New(append(base, opts...)...), closeTrace, diagnostics.ExitOK
}

func cmdRun(ctx context.Context, inv *invocation) int {
	file, ok := inv.file()
	if !ok {
		return diagnostics.ExitUsage
	}
	source, filename, code := inv.readSource(file)
	if code != diagnostics.ExitOK {
		return code
	}

	rt, closeTrace, code := inv.newRuntime(runtime.WithOutput(evaluator.NewWriterSink(inv.stdio.Stdout)))
	if rt == nil {
		return code
	}
	defer closeTrace()

	result, err := rt.Run(ctx, source, filename, inv.mode, inv.flags.call)
	if err != nil {
		return inv.report(err)
	}

	if inv.flags.result {
		val, err := evaluator.Require(result.Value)
		if err != nil {
			return inv.report(err)
		}
		fmt.Fprintln(inv.stdio.Stdout, evaluator.ValueToJSONString(val))
	}
	if inv.flags.dumpEnv {
		b, err := evaluator.EnvToJSON(result.Env)
		if err != nil {
			return inv.report(err)
		}
		fmt.Fprintln(inv.stdio.Stdout, string(b))
	}
	return diagnostics.ExitOK
}

type compareRunJSON struct {
	Output []string                   `json:"output"`
	Error  *diagnostics.Diagnostic    `json:"error,omitempty"`
	Env    map[string]json.RawMessage `json:"env,omitempty"`
}

type compareJSON struct {
	Static   compareRunJSON `json:"static"`
	Dynamic  compareRunJSON `json:"dynamic"`
	Diverged bool           `json:"diverged"`
}

func cmdCompare(ctx context.Context, inv *invocation) int {
	file, ok := inv.file()
	if !ok {
		return diagnostics.ExitUsage
	}
	source, filename, code := inv.readSource(file)
	if code != diagnostics.ExitOK {
		return code
	}

	rt, closeTrace, code := inv.newRuntime()
	if rt == nil {
		return code
	}
	defer closeTrace()

	cmp, err := rt.Compare(ctx, source, filename, inv.flags.call)
	if err != nil {
		return inv.report(err)
	}

	if inv.flags.jsonOut {
		out := compareJSON{
			Static:   runJSON(cmp.Static),
			Dynamic:  runJSON(cmp.Dynamic),
			Diverged: cmp.Diverged(),
		}
		b, _ := json.Marshal(out)
		fmt.Fprintln(inv.stdio.Stdout, string(b))
		return diagnostics.ExitOK
	}

	w := inv.stdio.Stdout
	for i, run := range []*runtime.ModeRun{cmp.Static, cmp.Dynamic} {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s Scoping Output:\n", demo.Heading(run.Mode))
		for _, line := range run.Lines {
			fmt.Fprintln(w, line)
		}
		if run.Err != nil {
			fmt.Fprintln(w, diagnostics.FormatDiagnostics(runtime.Diagnose(run.Err), true))
		}
	}
	fmt.Fprintln(w)
	if cmp.Diverged() {
		fmt.Fprintln(w, "Diverged (static -> dynamic):")
		fmt.Fprint(w, cmp.Diff())
	} else {
		fmt.Fprintln(w, "Outputs agree.")
	}
	return diagnostics.ExitOK
}

func runJSON(run *runtime.ModeRun) compareRunJSON {
	out := compareRunJSON{Output: run.Lines}
	if out.Output == nil {
		out.Output = []string{}
	}
	if run.Err != nil {
		d := runtime.Diagnose(run.Err)[0]
		out.Error = &d
	}
	if run.Env != nil {
		if b, err := evaluator.EnvToJSON(run.Env); err == nil {
			_ = json.Unmarshal(b, &out.Env)
		}
	}
	return out
}

func cmdCheck(ctx context.Context, inv *invocation) int {
	file, ok := inv.file()
	if !ok {
		return diagnostics.ExitUsage
	}
	source, filename, code := inv.readSource(file)
	if code != diagnostics.ExitOK {
		return code
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(inv.stdio.Stderr, diagnostics.FormatDiagnostics(diags, inv.pretty))
		return diagnostics.ExitInvalid
	}

	if inv.pretty {
		fmt.Fprintln(inv.stdio.Stdout, "No errors found.")
	} else {
		fmt.Fprintln(inv.stdio.Stdout, "[]")
	}
	return diagnostics.ExitOK
}

func cmdFmt(ctx context.Context, inv *invocation) int {
	file, ok := inv.file()
	if !ok {
		return diagnostics.ExitUsage
	}
	if inv.flags.write && (inv.flags.source || file == "-") {
		fmt.Fprintln(inv.stdio.Stderr, "--write rewrites a program file in canonical form; it cannot be combined with --source or stdin")
		return diagnostics.ExitUsage
	}
	source, filename, code := inv.readSource(file)
	if code != diagnostics.ExitOK {
		return code
	}

	rt := runtime.New()
	var formatted string
	var err error
	if inv.flags.source {
		formatted, err = rt.Format(source, filename)
	} else {
		formatted, err = rt.Canonical(source, filename)
	}
	if err != nil {
		inv.report(err)
		return diagnostics.ExitInvalid
	}

	if !inv.flags.source && formatter.HasComments(source) {
		fmt.Fprintln(inv.stdio.Stderr, "warning: comments are not preserved by the formatter")
	}

	if inv.flags.write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(inv.stdio.Stderr, "error writing file: %s\n", err)
			return diagnostics.ExitUsage
		}
		return diagnostics.ExitOK
	}
	fmt.Fprint(inv.stdio.Stdout, formatted)
	return diagnostics.ExitOK
}

func cmdDemo(ctx context.Context, inv *invocation) int {
	if len(inv.flags.positional) != 0 {
		fmt.Fprintln(inv.stdio.Stderr, usageFor(inv.cmd))
		return diagnostics.ExitUsage
	}
	if err := demo.Write(ctx, inv.stdio.Stdout, inv.maxDepth); err != nil {
		return inv.report(err)
	}
	return diagnostics.ExitOK
}

func cmdHelp(args []string, stdio IO) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Fprint(stdio.Stdout, help.QUICKREF)
		return diagnostics.ExitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return diagnostics.ExitUsage
	}
	fmt.Fprint(stdio.Stdout, content)
	return diagnostics.ExitOK
}
