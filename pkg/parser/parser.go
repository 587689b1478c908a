// Package parser decodes program documents into an AST.
//
// A program document is a YAML sequence of statement tuples:
//
//	- [assign, x, 10]
//	- [def, f, [[print, x]]]
//	- [def, g, [[assign, x, 20], [call, f]]]
//
// JSON documents are accepted as well, since JSON is a subset of YAML.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/scoping/pkg/ast"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
)

const kindHint = "statement kinds are assign, print, call and def"

// MaxStatements bounds the number of statements a document may expand to
// once aliases are followed.
const MaxStatements = 1 << 16

type parser struct {
	file  string
	diags []diagnostics.Diagnostic
	// active holds the statement nodes on the current expansion path.
	active   map[*yaml.Node]bool
	expanded int
	overflow bool
}

// Parse decodes source into a program. Diagnostics are returned instead of a
// program when the document is malformed; all problems found are reported.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	p := &parser{file: filename, active: make(map[*yaml.Node]bool)}

	dec := yaml.NewDecoder(strings.NewReader(source))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &ast.Program{Span: ast.Span{File: filename}}, nil
		}
		return nil, []diagnostics.Diagnostic{p.decodeError(err)}
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		span := p.span(&extra)
		return nil, []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EParse, "a program file holds exactly one document", &span, ""),
		}
	} else if !errors.Is(err, io.EOF) {
		return nil, []diagnostics.Diagnostic{p.decodeError(err)}
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	root = resolve(root)

	prog := &ast.Program{Span: p.span(root)}
	switch {
	case root.Kind == yaml.DocumentNode,
		root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		// empty program
	case root.Kind == yaml.SequenceNode:
		prog.Statements = p.parseBlock(root)
	default:
		p.addError(diagnostics.EAst, fmt.Sprintf("program must be a sequence of statements, got %s", describe(root)), root, "")
	}

	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) decodeError(err error) diagnostics.Diagnostic {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	return diagnostics.MakeDiag(diagnostics.EParse, fmt.Sprintf("cannot decode program: %s", msg), &ast.Span{File: p.file}, "")
}

func (p *parser) addError(code, msg string, n *yaml.Node, hint string) {
	span := p.span(n)
	p.diags = append(p.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (p *parser) span(n *yaml.Node) ast.Span {
	endLine, endCol := end(n)
	return ast.Span{
		File:      p.file,
		StartLine: n.Line,
		StartCol:  n.Column,
		EndLine:   endLine,
		EndCol:    endCol,
	}
}

// end approximates where a node stops: the end of its last scalar.
func end(n *yaml.Node) (int, int) {
	if len(n.Content) > 0 {
		return end(n.Content[len(n.Content)-1])
	}
	return n.Line, n.Column + len(n.Value)
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func (p *parser) parseBlock(n *yaml.Node) []ast.Stmt {
	var stmts []ast.Stmt
	for _, child := range n.Content {
		if p.overflow {
			return nil
		}
		if stmt := p.parseStmt(resolve(child)); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func (p *parser) parseStmt(n *yaml.Node) ast.Stmt {
	if p.active[n] {
		p.addError(diagnostics.EAst, "recursive alias: a statement contains itself", n, "")
		return nil
	}
	p.expanded++
	if p.expanded > MaxStatements {
		p.overflow = true
		p.addError(diagnostics.EAst, fmt.Sprintf("program expands to more than %d statements", MaxStatements), n,
			"aliases are expanded in place; avoid nesting them")
		return nil
	}
	p.active[n] = true
	defer delete(p.active, n)

	if n.Kind != yaml.SequenceNode || len(n.Content) == 0 {
		p.addError(diagnostics.EAst, fmt.Sprintf("statement must be a non-empty sequence [kind, ...], got %s", describe(n)), n, kindHint)
		return nil
	}
	head := resolve(n.Content[0])
	if head.Kind != yaml.ScalarNode || head.ShortTag() != "!!str" {
		p.addError(diagnostics.EAst, fmt.Sprintf("statement kind must be a string, got %s", describe(head)), head, kindHint)
		return nil
	}
	args := n.Content[1:]
	span := p.span(n)

	switch head.Value {
	case ast.KindAssign:
		if !p.arity(n, head.Value, args, 2) {
			return nil
		}
		name, ok := p.parseName(args[0])
		value := p.parseExpr(resolve(args[1]))
		if !ok || value == nil {
			return nil
		}
		return &ast.AssignStmt{Span: span, Name: name, Value: value}

	case ast.KindPrint:
		if !p.arity(n, head.Value, args, 1) {
			return nil
		}
		value := p.parseExpr(resolve(args[0]))
		if value == nil {
			return nil
		}
		return &ast.PrintStmt{Span: span, Value: value}

	case ast.KindCall:
		if !p.arity(n, head.Value, args, 1) {
			return nil
		}
		name, ok := p.parseName(args[0])
		if !ok {
			return nil
		}
		return &ast.CallStmt{Span: span, Name: name}

	case ast.KindDef:
		if !p.arity(n, head.Value, args, 2) {
			return nil
		}
		name, ok := p.parseName(args[0])
		body := resolve(args[1])
		if body.Kind != yaml.SequenceNode {
			p.addError(diagnostics.EAst, fmt.Sprintf("body of '%s' must be a sequence of statements, got %s", name, describe(body)), body, "")
			return nil
		}
		before := len(p.diags)
		stmts := p.parseBlock(body)
		if !ok || len(p.diags) > before {
			return nil
		}
		return &ast.DefStmt{Span: span, Name: name, Body: stmts}
	}

	p.addError(diagnostics.EAst, fmt.Sprintf("unknown statement kind '%s'", head.Value), head, kindHint)
	return nil
}

func (p *parser) arity(n *yaml.Node, kind string, args []*yaml.Node, want int) bool {
	if len(args) == want {
		return true
	}
	p.addError(diagnostics.EAst, fmt.Sprintf("'%s' takes %d operand(s), got %d", kind, want, len(args)), n, usage(kind))
	return false
}

func (p *parser) parseName(n *yaml.Node) (string, bool) {
	n = resolve(n)
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" || n.Value == "" {
		p.addError(diagnostics.EAst, fmt.Sprintf("expected a name, got %s", describe(n)), n, "")
		return "", false
	}
	return n.Value, true
}

func (p *parser) parseExpr(n *yaml.Node) ast.Expr {
	span := p.span(n)
	if n.Kind == yaml.ScalarNode {
		switch n.ShortTag() {
		case "!!int":
			var v int64
			if err := n.Decode(&v); err != nil {
				p.addError(diagnostics.EAst, fmt.Sprintf("integer literal %s out of range", n.Value), n, "")
				return nil
			}
			return &ast.IntLiteral{Span: span, Value: v}
		case "!!str":
			return &ast.Ident{Span: span, Name: n.Value}
		}
	}
	p.addError(diagnostics.EUnknownExpr, fmt.Sprintf("unrecognized expression: %s", describe(n)), n,
		"expressions are integer literals or names")
	return nil
}

func usage(kind string) string {
	switch kind {
	case ast.KindAssign:
		return "usage: [assign, name, expr]"
	case ast.KindPrint:
		return "usage: [print, expr]"
	case ast.KindCall:
		return "usage: [call, name]"
	case ast.KindDef:
		return "usage: [def, name, [statements...]]"
	}
	return ""
}

func describe(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.MappingNode:
		return "a mapping"
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return "null"
		case "!!bool":
			return fmt.Sprintf("boolean %s", n.Value)
		case "!!float":
			return fmt.Sprintf("float %s", n.Value)
		case "!!int":
			return fmt.Sprintf("integer %s", n.Value)
		case "!!str":
			return fmt.Sprintf("string %q", n.Value)
		}
		return fmt.Sprintf("%s %s", n.ShortTag(), n.Value)
	}
	return "an empty node"
}
