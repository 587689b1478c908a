// Package ast defines the node types of a scoping program.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// Statement kind tags as they appear in program documents.
const (
	KindAssign = "assign"
	KindPrint  = "print"
	KindCall   = "call"
	KindDef    = "def"
)

// Program is an ordered list of top-level statements.
type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }

// --- Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}

// Ident is a reference to a bound name.
type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

// --- Statements ---

// AssignStmt binds Name in the current frame.
type AssignStmt struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *AssignStmt) Kind() string   { return KindAssign }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

type PrintStmt struct {
	Span  Span
	Value Expr
}

func (n *PrintStmt) Kind() string   { return KindPrint }
func (n *PrintStmt) NodeSpan() Span { return n.Span }
func (n *PrintStmt) stmtNode()      {}

// CallStmt invokes the function bound to Name. Calls take no arguments.
type CallStmt struct {
	Span Span
	Name string
}

func (n *CallStmt) Kind() string   { return KindCall }
func (n *CallStmt) NodeSpan() Span { return n.Span }
func (n *CallStmt) stmtNode()      {}

type DefStmt struct {
	Span Span
	Name string
	Body []Stmt
}

func (n *DefStmt) Kind() string   { return KindDef }
func (n *DefStmt) NodeSpan() Span { return n.Span }
func (n *DefStmt) stmtNode()      {}

// Builders for programs assembled in Go rather than loaded from a document.

func Assign(name string, value Expr) *AssignStmt { return &AssignStmt{Name: name, Value: value} }
func Print(value Expr) *PrintStmt                { return &PrintStmt{Value: value} }
func Call(name string) *CallStmt                 { return &CallStmt{Name: name} }
func Def(name string, body ...Stmt) *DefStmt     { return &DefStmt{Name: name, Body: body} }
func Int(v int64) *IntLiteral                    { return &IntLiteral{Value: v} }
func Name(name string) *Ident                    { return &Ident{Name: name} }

// Walk visits every statement in stmts depth-first, descending into def
// bodies. Returning false from fn skips the body of that statement.
func Walk(stmts []Stmt, fn func(Stmt) bool) {
	for _, s := range stmts {
		if !fn(s) {
			continue
		}
		if d, ok := s.(*DefStmt); ok {
			Walk(d.Body, fn)
		}
	}
}
