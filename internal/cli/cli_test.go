package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/thomasrohde/scoping/pkg/diagnostics"
)

const canonicalProgram = `# the classic example
- [assign, x, 10]
- [def, f, [[print, x]]]
- [def, g, [[assign, x, 20], [call, f]]]
`

type session struct {
	t      *testing.T
	dir    string
	stdin  string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newSession(t *testing.T) *session {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return &session{t: t, dir: t.TempDir()}
}

func (s *session) file(name, content string) string {
	s.t.Helper()
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		s.t.Fatal(err)
	}
	return path
}

func (s *session) run(args ...string) int {
	s.t.Helper()
	s.stdout.Reset()
	s.stderr.Reset()
	return Run(context.Background(), args, IO{
		Stdin:  strings.NewReader(s.stdin),
		Stdout: &s.stdout,
		Stderr: &s.stderr,
		Dir:    s.dir,
	})
}

func (s *session) expectExit(got, want int) {
	s.t.Helper()
	if got != want {
		s.t.Errorf("exit code = %d, want %d\nstdout: %s\nstderr: %s", got, want, s.stdout.String(), s.stderr.String())
	}
}

// --- run ---

func TestRun_Modes(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", canonicalProgram)

	s.expectExit(s.run("run", prog, "--mode", "static", "--call", "g"), 0)
	if s.stdout.String() != "10\n" {
		t.Errorf("static stdout = %q", s.stdout.String())
	}
	s.expectExit(s.run("run", prog, "--mode", "dynamic", "--call", "g"), 0)
	if s.stdout.String() != "20\n" {
		t.Errorf("dynamic stdout = %q", s.stdout.String())
	}
}

func TestRun_Stdin(t *testing.T) {
	s := newSession(t)
	s.stdin = canonicalProgram
	s.expectExit(s.run("run", "-", "--mode", "dynamic", "--call", "g"), 0)
	if s.stdout.String() != "20\n" {
		t.Errorf("stdout = %q", s.stdout.String())
	}
}

func TestRun_DumpEnvAndResult(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", "- [assign, x, 10]\n- [def, f, [[assign, y, 1]]]\n")
	s.expectExit(s.run("run", prog, "--call", "f", "--result", "--dump-env"), 0)
	lines := strings.Split(strings.TrimSpace(s.stdout.String()), "\n")
	want := []string{"1", `{"f":{"function":"f"},"x":10}`}
	if diff := deep.Equal(lines, want); diff != nil {
		t.Error(diff)
	}
}

func TestRun_ResultOfEmptyBody(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", "- [def, f, []]\n")
	s.expectExit(s.run("run", prog, "--call", "f", "--result", "--json"), diagnostics.ExitRuntime)
	if !strings.Contains(s.stderr.String(), diagnostics.ENoValue) {
		t.Errorf("stderr = %s", s.stderr.String())
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		program string
		args    []string
		exit    int
		code    string
		stdout  string
	}{
		{"parse", "- [print", nil, diagnostics.ExitInvalid, diagnostics.EParse, ""},
		{"unknown expr", "- [print, 1.5]", nil, diagnostics.ExitInvalid, diagnostics.EUnknownExpr, ""},
		{"undefined", "- [print, 1]\n- [print, nope]\n", nil, diagnostics.ExitRuntime, diagnostics.EUnbound, "1\n"},
		{"not callable", "- [assign, x, 1]\n- [call, x]\n", nil, diagnostics.ExitRuntime, diagnostics.ENotCallable, ""},
		{"stack", "- [def, r, [[call, r]]]\n", []string{"--call", "r", "--max-depth", "50"}, diagnostics.ExitStack, diagnostics.EStack, ""},
		{"bad mode", "[]", []string{"--mode", "sideways"}, diagnostics.ExitUsage, diagnostics.EMode, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t)
			prog := s.file("prog.yaml", tt.program)
			args := append([]string{"run", prog, "--json"}, tt.args...)
			s.expectExit(s.run(args...), tt.exit)

			var diags []diagnostics.Diagnostic
			if err := json.Unmarshal(s.stderr.Bytes(), &diags); err != nil {
				t.Fatalf("stderr is not JSON diagnostics: %v\n%s", err, s.stderr.String())
			}
			if len(diags) == 0 || diags[0].Code != tt.code {
				t.Errorf("diagnostics = %+v, want %s", diags, tt.code)
			}
			if s.stdout.String() != tt.stdout {
				t.Errorf("stdout = %q, want %q", s.stdout.String(), tt.stdout)
			}
		})
	}
}

func TestRun_MissingFile(t *testing.T) {
	s := newSession(t)
	s.expectExit(s.run("run", filepath.Join(s.dir, "absent.yaml")), diagnostics.ExitUsage)
	if !strings.Contains(s.stderr.String(), diagnostics.EIO) {
		t.Errorf("stderr = %s", s.stderr.String())
	}
}

func TestRun_Usage(t *testing.T) {
	s := newSession(t)
	s.expectExit(s.run(), diagnostics.ExitUsage)
	s.expectExit(s.run("launch"), diagnostics.ExitUsage)
	s.expectExit(s.run("run"), diagnostics.ExitUsage)
	s.expectExit(s.run("run", "a.yaml", "--bogus"), diagnostics.ExitUsage)
	s.expectExit(s.run("run", "a.yaml", "--mode"), diagnostics.ExitUsage)
	s.expectExit(s.run("run", "a.yaml", "--max-depth", "ten"), diagnostics.ExitUsage)
}

func TestRun_ConfigSuppliesMode(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", canonicalProgram)
	s.file(".scoping.yaml", "mode: dynamic\n")

	s.expectExit(s.run("run", prog, "--call", "g"), 0)
	if s.stdout.String() != "20\n" {
		t.Errorf("config mode not applied, stdout = %q", s.stdout.String())
	}
	s.expectExit(s.run("run", prog, "--call", "g", "--mode", "static"), 0)
	if s.stdout.String() != "10\n" {
		t.Errorf("flag should override config, stdout = %q", s.stdout.String())
	}
}

func TestRun_ConfigMaxDepth(t *testing.T) {
	s := newSession(t)
	prog := s.file("chain.yaml", `
- [assign, a, 1]
- [def, f, [[print, a]]]
- [def, g, [[call, f]]]
- [def, h, [[call, g]]]
`)
	home := os.Getenv("HOME")
	if err := os.MkdirAll(filepath.Join(home, ".scoping"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".scoping", "config.yaml"), []byte("maxDepth: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s.expectExit(s.run("run", prog, "--call", "h"), diagnostics.ExitStack)

	s.file(".scoping.yaml", "maxDepth: 0\n")
	s.expectExit(s.run("run", prog, "--call", "h"), 0)
	if s.stdout.String() != "1\n" {
		t.Errorf("maxDepth: 0 should lift the user bound, stdout = %q", s.stdout.String())
	}

	s.expectExit(s.run("run", prog, "--call", "h", "--max-depth", "2"), diagnostics.ExitStack)
}

func TestRun_BadConfig(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", canonicalProgram)
	s.file(".scoping.yaml", "mood: dynamic\n")
	s.expectExit(s.run("run", prog), diagnostics.ExitUsage)
	if !strings.Contains(s.stderr.String(), diagnostics.EConfig) {
		t.Errorf("stderr = %s", s.stderr.String())
	}
}

// --- compare ---

func TestCompare_Text(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", canonicalProgram)
	s.expectExit(s.run("compare", prog, "--call", "g"), 0)
	want := `Static Scoping Output:
10

Dynamic Scoping Output:
20

Diverged (static -> dynamic):
- 10
+ 20
`
	if s.stdout.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", s.stdout.String(), want)
	}
}

func TestCompare_JSON(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", "- [def, f, [[print, y]]]\n- [def, h, [[assign, y, 3], [call, f]]]\n")
	s.expectExit(s.run("compare", prog, "--call", "h", "--json"), 0)

	var out compareJSON
	if err := json.Unmarshal(s.stdout.Bytes(), &out); err != nil {
		t.Fatalf("%v\n%s", err, s.stdout.String())
	}
	if !out.Diverged {
		t.Error("expected divergence")
	}
	if out.Static.Error == nil || out.Static.Error.Code != diagnostics.EUnbound {
		t.Errorf("static error = %+v", out.Static.Error)
	}
	if diff := deep.Equal(out.Dynamic.Output, []string{"3"}); diff != nil {
		t.Error(diff)
	}
	if _, ok := out.Dynamic.Env["h"]; !ok {
		t.Errorf("dynamic env = %v", out.Dynamic.Env)
	}
}

func TestCompare_Agree(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", canonicalProgram)
	s.expectExit(s.run("compare", prog, "--call", "f"), 0)
	if !strings.HasSuffix(s.stdout.String(), "Outputs agree.\n") {
		t.Errorf("stdout = %s", s.stdout.String())
	}
}

// --- check / fmt ---

func TestCheck(t *testing.T) {
	s := newSession(t)
	good := s.file("good.yaml", canonicalProgram)
	bad := s.file("bad.yaml", "- [print, ghost]\n")

	s.expectExit(s.run("check", good), 0)
	if s.stdout.String() != "No errors found.\n" {
		t.Errorf("stdout = %q", s.stdout.String())
	}
	s.expectExit(s.run("check", good, "--json"), 0)
	if s.stdout.String() != "[]\n" {
		t.Errorf("stdout = %q", s.stdout.String())
	}
	s.expectExit(s.run("check", bad), diagnostics.ExitInvalid)
	if !strings.Contains(s.stderr.String(), "error[E_UNBOUND]") || !strings.Contains(s.stderr.String(), "bad.yaml:1:") {
		t.Errorf("stderr = %s", s.stderr.String())
	}
}

func TestFmt(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", canonicalProgram)

	s.expectExit(s.run("fmt", prog), 0)
	canonical := "- [assign, x, 10]\n- [def, f, [[print, x]]]\n- [def, g, [[assign, x, 20], [call, f]]]\n"
	if s.stdout.String() != canonical {
		t.Errorf("stdout = %q", s.stdout.String())
	}
	if !strings.Contains(s.stderr.String(), "comments are not preserved") {
		t.Errorf("expected a comment warning, stderr = %q", s.stderr.String())
	}

	s.expectExit(s.run("fmt", prog, "--source"), 0)
	if !strings.HasPrefix(s.stdout.String(), "x = 10\ndef f():\n") {
		t.Errorf("stdout = %q", s.stdout.String())
	}

	s.expectExit(s.run("fmt", prog, "--write"), 0)
	data, err := os.ReadFile(prog)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != canonical {
		t.Errorf("rewritten file = %q", data)
	}

	s.expectExit(s.run("fmt", prog, "--write", "--source"), diagnostics.ExitUsage)
	bad := s.file("bad.yaml", "- [print]\n")
	s.expectExit(s.run("fmt", bad), diagnostics.ExitInvalid)
}

// --- demo / help ---

func TestDemo(t *testing.T) {
	s := newSession(t)
	s.expectExit(s.run("demo"), 0)
	want := "Static Scoping Output:\n10\n\nDynamic Scoping Output:\n20\n"
	if s.stdout.String() != want {
		t.Errorf("got %q, want %q", s.stdout.String(), want)
	}
	s.expectExit(s.run("demo", "extra"), diagnostics.ExitUsage)
}

func TestHelp(t *testing.T) {
	s := newSession(t)
	s.expectExit(s.run("help"), 0)
	if !strings.Contains(s.stdout.String(), "scoping run") {
		t.Errorf("stdout = %s", s.stdout.String())
	}
	s.expectExit(s.run("help", "modes"), 0)
	if !strings.Contains(s.stdout.String(), "SCOPING MODES") {
		t.Errorf("stdout = %s", s.stdout.String())
	}
	s.expectExit(s.run("help", "nope"), diagnostics.ExitUsage)
}

// --- trace ---

func TestTrace_WriteAndSummarize(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", canonicalProgram)
	tracePath := filepath.Join(s.dir, "run.jsonl")

	s.expectExit(s.run("run", prog, "--mode", "dynamic", "--call", "g", "--trace", tracePath, "--run-id", "r1"), 0)

	s.expectExit(s.run("trace", tracePath), 0)
	var summary TraceSummary
	if err := json.Unmarshal(s.stdout.Bytes(), &summary); err != nil {
		t.Fatalf("%v\n%s", err, s.stdout.String())
	}
	if diff := deep.Equal(summary.RunIDs, []string{"r1"}); diff != nil {
		t.Error(diff)
	}
	want := []FunctionCalls{{Name: "f", Calls: 1}, {Name: "g", Calls: 1}}
	if diff := deep.Equal(summary.CallsByName, want); diff != nil {
		t.Error(diff)
	}
	if summary.Calls != 2 || summary.MaxDepth != 2 || summary.Prints != 1 {
		t.Errorf("summary = %+v", summary)
	}
	// assign, def, def, call g, then assign and call f in g, then print in f
	if summary.Statements != 7 {
		t.Errorf("statements = %d, want 7", summary.Statements)
	}

	s.expectExit(s.run("trace", tracePath, "--text"), 0)
	if !strings.Contains(s.stdout.String(), "Calls: 2 (max depth 2)") {
		t.Errorf("text summary = %s", s.stdout.String())
	}
}

func TestTrace_CompareTagsBothRuns(t *testing.T) {
	s := newSession(t)
	prog := s.file("prog.yaml", canonicalProgram)
	tracePath := filepath.Join(s.dir, "cmp.jsonl")
	s.expectExit(s.run("compare", prog, "--call", "g", "--trace", tracePath, "--run-id", "c"), 0)

	f, err := os.Open(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	summary := computeTraceSummary(f)
	if len(summary.RunIDs) != 2 {
		t.Errorf("run ids = %v", summary.RunIDs)
	}
	if summary.Calls != 4 {
		t.Errorf("calls = %d, want 4", summary.Calls)
	}
}

func TestTraceSummary_SkipsGarbage(t *testing.T) {
	in := strings.NewReader(`
{"event":"run_start","runId":"x","ts":"2024-01-01T00:00:00Z"}
not json
{"event":"fn_call_start","runId":"x","ts":"2024-01-01T00:00:00Z","data":{"fn":"b","depth":"3"}}
{"event":"fn_call_start","runId":"x","ts":"2024-01-01T00:00:00Z","data":{"fn":"a","depth":"1"}}
{"event":"run_end","runId":"x","ts":"2024-01-01T00:00:00.5Z"}
`)
	summary := computeTraceSummary(in)
	if summary.TotalEvents != 4 {
		t.Errorf("events = %d", summary.TotalEvents)
	}
	want := []FunctionCalls{{Name: "a", Calls: 1}, {Name: "b", Calls: 1}}
	if diff := deep.Equal(summary.CallsByName, want); diff != nil {
		t.Error(diff)
	}
	if summary.MaxDepth != 3 || summary.DurationMs != 500 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestTrace_Usage(t *testing.T) {
	s := newSession(t)
	s.expectExit(s.run("trace"), diagnostics.ExitUsage)
	s.expectExit(s.run("trace", filepath.Join(s.dir, "missing.jsonl")), diagnostics.ExitUsage)
}
