package evaluator

import (
	"github.com/thomasrohde/scoping/pkg/ast"
)

// Function is a closure produced by a def statement. Its definition
// environment is fixed at construction.
type Function struct {
	name   string
	body   []ast.Stmt
	defEnv *Env
}

func (*Function) value() {}

// NewFunction creates a closure over defEnv.
func NewFunction(name string, body []ast.Stmt, defEnv *Env) *Function {
	return &Function{name: name, body: body, defEnv: defEnv}
}

// Name is used for diagnostics only; resolution goes through bindings.
func (f *Function) Name() string { return f.name }

func (f *Function) Body() []ast.Stmt { return f.body }

// DefinitionEnv returns the environment captured when the function was defined.
func (f *Function) DefinitionEnv() *Env { return f.defEnv }

// Frame creates the local environment for one call: a child of the
// definition environment under Static, a child of callEnv under Dynamic.
func (f *Function) Frame(callEnv *Env, mode Mode) *Env {
	if mode == Static {
		return NewEnv(f.defEnv)
	}
	return NewEnv(callEnv)
}
