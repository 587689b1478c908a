package parser

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/scoping/pkg/ast"
)

// Marshal renders a program as a canonical document: one flow-style tuple
// per top-level statement. Parse(Marshal(p)) yields p up to spans.
func Marshal(program *ast.Program) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, stmt := range program.Statements {
		n, err := stmtNode(stmt)
		if err != nil {
			return nil, err
		}
		root.Content = append(root.Content, n)
	}
	if len(root.Content) == 0 {
		root.Style = yaml.FlowStyle
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tuple(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle, Content: items}
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func stmtNode(stmt ast.Stmt) (*yaml.Node, error) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		value, err := exprNode(s.Value)
		if err != nil {
			return nil, err
		}
		return tuple(str(ast.KindAssign), str(s.Name), value), nil

	case *ast.PrintStmt:
		value, err := exprNode(s.Value)
		if err != nil {
			return nil, err
		}
		return tuple(str(ast.KindPrint), value), nil

	case *ast.CallStmt:
		return tuple(str(ast.KindCall), str(s.Name)), nil

	case *ast.DefStmt:
		body := tuple()
		for _, inner := range s.Body {
			n, err := stmtNode(inner)
			if err != nil {
				return nil, err
			}
			body.Content = append(body.Content, n)
		}
		return tuple(str(ast.KindDef), str(s.Name), body), nil
	}
	return nil, fmt.Errorf("cannot encode statement %T", stmt)
}

func exprNode(expr ast.Expr) (*yaml.Node, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(e.Value, 10)}, nil
	case *ast.Ident:
		return str(e.Name), nil
	}
	return nil, fmt.Errorf("cannot encode expression %T", expr)
}
