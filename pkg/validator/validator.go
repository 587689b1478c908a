// Package validator implements static checks on scoping programs.
//
// The checks only report problems that fail under both scoping modes, so a
// program that validates cleanly may still diverge between static and
// dynamic execution.
package validator

import (
	"fmt"
	"regexp"

	"github.com/thomasrohde/scoping/pkg/ast"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// binding records how a name is bound somewhere in the program.
type binding struct {
	def   bool // bound by a def
	alias bool // bound by an assign from another name, may hold a function
}

func (b binding) callable() bool {
	return b.def || b.alias
}

type validator struct {
	diags    []diagnostics.Diagnostic
	bindings map[string]*binding
}

// Validate performs static analysis on a program and returns diagnostics.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{bindings: make(map[string]*binding)}
	if program == nil {
		return nil
	}

	v.collect(program.Statements)
	v.validateStatements(program.Statements)

	return v.diags
}

// IsIdent reports whether name is usable as a variable or function name.
func IsIdent(name string) bool {
	return identRe.MatchString(name)
}

func (v *validator) addDiag(code, msg string, span ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (v *validator) bind(name string) *binding {
	b, ok := v.bindings[name]
	if !ok {
		b = &binding{}
		v.bindings[name] = b
	}
	return b
}

// collect records every name bound anywhere in the program. Frames are not
// tracked: under dynamic scoping any binding may be visible at a use site.
func (v *validator) collect(stmts []ast.Stmt) {
	ast.Walk(stmts, func(s ast.Stmt) bool {
		switch n := s.(type) {
		case *ast.AssignStmt:
			b := v.bind(n.Name)
			if _, ok := n.Value.(*ast.Ident); ok {
				b.alias = true
			}
		case *ast.DefStmt:
			v.bind(n.Name).def = true
		}
		return true
	})
}

func (v *validator) validateStatements(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		v.validateStmt(stmt)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		v.checkName(s.Name, s.Span)
		v.validateExpr(s.Value, s.Span)

	case *ast.PrintStmt:
		v.validateExpr(s.Value, s.Span)

	case *ast.CallStmt:
		if !v.checkName(s.Name, s.Span) {
			return
		}
		b, ok := v.bindings[s.Name]
		switch {
		case !ok:
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("call of undefined function '%s'", s.Name), s.Span,
				fmt.Sprintf("no statement in the program defines '%s'", s.Name))
		case !b.callable():
			v.addDiag(diagnostics.ENotCallable, fmt.Sprintf("'%s' is only ever bound to an integer", s.Name), s.Span,
				fmt.Sprintf("add [def, %s, [...]] or call a function", s.Name))
		}

	case *ast.DefStmt:
		v.checkName(s.Name, s.Span)
		v.validateStatements(s.Body)

	case nil:
		v.diags = append(v.diags, diagnostics.MakeDiag(diagnostics.EAst, "missing statement", nil, ""))

	default:
		span := stmt.NodeSpan()
		v.addDiag(diagnostics.EAst, fmt.Sprintf("unknown statement %s", stmt.Kind()), span, "")
	}
}

func (v *validator) validateExpr(expr ast.Expr, at ast.Span) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		// literals are always valid

	case *ast.Ident:
		if !v.checkName(e.Name, e.Span) {
			return
		}
		if _, ok := v.bindings[e.Name]; !ok {
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("undefined variable '%s'", e.Name), e.Span,
				fmt.Sprintf("no statement in the program binds '%s'", e.Name))
		}

	case nil:
		v.addDiag(diagnostics.EUnknownExpr, "missing expression", at, "")

	default:
		v.addDiag(diagnostics.EUnknownExpr, fmt.Sprintf("unrecognized expression: %s", expr.Kind()), expr.NodeSpan(), "")
	}
}

func (v *validator) checkName(name string, span ast.Span) bool {
	if IsIdent(name) {
		return true
	}
	v.addDiag(diagnostics.EBadName, fmt.Sprintf("'%s' is not a valid name", name), span,
		"names start with a letter or underscore, followed by letters, digits or underscores")
	return false
}
