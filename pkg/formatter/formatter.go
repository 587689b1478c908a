// Package formatter renders scoping programs as readable pseudo-source.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/scoping/pkg/ast"
)

const indent = "  "

// Format pretty-prints a program:
//
//	x = 10
//	def f():
//	  print(x)
//	f()
//
// The output is for reading only; programs are loaded from documents.
func Format(program *ast.Program) string {
	if program == nil || len(program.Statements) == 0 {
		return ""
	}
	var lines []string
	for _, s := range program.Statements {
		lines = append(lines, formatStmt(s, 0))
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments reports whether a program document contains YAML comments,
// which a canonical rewrite drops.
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		inSingle, inDouble := false, false
		for i := 0; i < len(line); i++ {
			switch c := line[i]; {
			case c == '\'' && !inDouble:
				inSingle = !inSingle
			case c == '"' && !inSingle:
				inDouble = !inDouble
			case c == '#' && !inSingle && !inDouble:
				// '#' only starts a comment at line start or after whitespace
				if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
					return true
				}
			}
		}
	}
	return false
}

func formatStmt(stmt ast.Stmt, depth int) string {
	pad := strings.Repeat(indent, depth)

	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return fmt.Sprintf("%s%s = %s", pad, s.Name, FormatExpr(s.Value))

	case *ast.PrintStmt:
		return fmt.Sprintf("%sprint(%s)", pad, FormatExpr(s.Value))

	case *ast.CallStmt:
		return fmt.Sprintf("%s%s()", pad, s.Name)

	case *ast.DefStmt:
		lines := []string{fmt.Sprintf("%sdef %s():", pad, s.Name)}
		if len(s.Body) == 0 {
			lines = append(lines, pad+indent+"pass")
		}
		for _, inner := range s.Body {
			lines = append(lines, formatStmt(inner, depth+1))
		}
		return strings.Join(lines, "\n")
	}
	return pad + "<?>"
}

// FormatExpr renders a single expression.
func FormatExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(e.Value, 10)
	case *ast.Ident:
		return e.Name
	}
	return "<?>"
}
