package validator_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/scoping/pkg/ast"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
	"github.com/thomasrohde/scoping/pkg/parser"
	"github.com/thomasrohde/scoping/pkg/validator"
)

// helper parses source and validates, returning diagnostics from validation only.
// It fatals on parse errors so test cases focus on validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, parseErrs := parser.Parse(source, "test.yaml")
	if len(parseErrs) > 0 {
		t.Fatalf("unexpected parse error: %s", parseErrs[0].Message)
	}
	return validator.Validate(prog)
}

// assertNoDiags asserts zero diagnostics were produced.
func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertDiagCount asserts the expected number of diagnostics.
func assertDiagCount(t *testing.T, diags []diagnostics.Diagnostic, expected int) {
	t.Helper()
	if len(diags) != expected {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected %d diagnostics, got %d:\n  %s", expected, len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertHasCode asserts that at least one diagnostic with the given code exists.
func assertHasCode(t *testing.T, diags []diagnostics.Diagnostic, code string) {
	t.Helper()
	if diagnostics.HasCode(diags, code) {
		return
	}
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	t.Errorf("expected diagnostic code %s, got codes: %v", code, codes)
}

// --- 1. Valid programs ---

func TestValid_Canonical(t *testing.T) {
	diags := mustParseAndValidate(t, `
- [assign, x, 10]
- [def, f, [[print, x]]]
- [def, g, [[assign, x, 20], [call, f]]]
- [call, g]
`)
	assertNoDiags(t, diags)
}

func TestValid_Empty(t *testing.T) {
	assertNoDiags(t, mustParseAndValidate(t, "[]"))
	assertNoDiags(t, validator.Validate(nil))
}

func TestValid_BindingOnlyInsideBody(t *testing.T) {
	// y is bound only inside h; under dynamic scoping f can see it when
	// called from h, so this is not a guaranteed failure.
	diags := mustParseAndValidate(t, `
- [def, f, [[print, y]]]
- [def, h, [[assign, y, 1], [call, f]]]
- [call, h]
`)
	assertNoDiags(t, diags)
}

func TestValid_FunctionAlias(t *testing.T) {
	diags := mustParseAndValidate(t, `
- [def, f, [[print, 1]]]
- [assign, alias, f]
- [call, alias]
`)
	assertNoDiags(t, diags)
}

func TestValid_UseBeforeDef(t *testing.T) {
	// Ordering is a runtime concern: h is bound later in the program.
	diags := mustParseAndValidate(t, `
- [def, f, [[call, h]]]
- [def, h, []]
- [call, f]
`)
	assertNoDiags(t, diags)
}

func TestValid_Underscores(t *testing.T) {
	diags := mustParseAndValidate(t, `
- [assign, _x1, 1]
- [print, _x1]
`)
	assertNoDiags(t, diags)
}

// --- 2. Unbound names ---

func TestUnbound_Read(t *testing.T) {
	diags := mustParseAndValidate(t, "- [print, missing]\n")
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EUnbound)
	if diags[0].Span == nil || diags[0].Span.StartLine != 1 {
		t.Errorf("expected a span on line 1, got %+v", diags[0].Span)
	}
}

func TestUnbound_Call(t *testing.T) {
	diags := mustParseAndValidate(t, `
- [def, f, [[call, nowhere]]]
`)
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EUnbound)
	if !strings.Contains(diags[0].Message, "nowhere") {
		t.Errorf("message should name the function: %s", diags[0].Message)
	}
}

func TestUnbound_AssignFromUnbound(t *testing.T) {
	diags := mustParseAndValidate(t, "- [assign, x, y]\n")
	assertHasCode(t, diags, diagnostics.EUnbound)
}

// --- 3. Not callable ---

func TestNotCallable_IntegerOnly(t *testing.T) {
	diags := mustParseAndValidate(t, `
- [assign, x, 10]
- [call, x]
`)
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.ENotCallable)
}

func TestNotCallable_SometimesFunction(t *testing.T) {
	diags := mustParseAndValidate(t, `
- [assign, x, 10]
- [def, x, []]
- [call, x]
`)
	assertNoDiags(t, diags)
}

// --- 4. Names ---

func TestBadName(t *testing.T) {
	tests := []string{
		"- [assign, 1x, 1]",
		"- [assign, 'a b', 1]",
		"- [def, 'f-g', []]",
		"- [call, 'f()']",
	}
	for _, src := range tests {
		diags := mustParseAndValidate(t, src)
		assertHasCode(t, diags, diagnostics.EBadName)
	}
}

func TestBadName_Read(t *testing.T) {
	diags := mustParseAndValidate(t, "- [print, 'x y']\n")
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EBadName)
}

func TestIsIdent(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"x", true},
		{"_", true},
		{"camelCase9", true},
		{"", false},
		{"9lives", false},
		{"dot.ted", false},
		{"héllo", false},
	}
	for _, tt := range tests {
		if got := validator.IsIdent(tt.name); got != tt.want {
			t.Errorf("IsIdent(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// --- 5. Programmatic trees ---

func TestNilExpression(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{&ast.PrintStmt{}}}
	diags := validator.Validate(prog)
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EUnknownExpr)
}

func TestNilStatement(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{nil, ast.Def("f", nil)}}
	diags := validator.Validate(prog)
	assertDiagCount(t, diags, 2)
	assertHasCode(t, diags, diagnostics.EAst)
}

func TestMultipleProblems(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Stmt{
		ast.Assign("n", ast.Int(1)),
		ast.Def("f", ast.Print(ast.Name("a")), ast.Call("n")),
		ast.Call("g"),
	}}
	diags := validator.Validate(prog)
	assertDiagCount(t, diags, 3)
	assertHasCode(t, diags, diagnostics.EUnbound)
	assertHasCode(t, diags, diagnostics.ENotCallable)
}
