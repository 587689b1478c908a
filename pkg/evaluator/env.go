package evaluator

import (
	"fmt"
	"sort"

	"github.com/thomasrohde/scoping/pkg/diagnostics"
)

// Env is a scoped environment for variable bindings.
// Lookups walk the parent chain; writes always land in the local frame.
// Parents are plain pointers: a frame stays reachable for as long as any
// child frame or captured *Function refers to it.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Parent returns the enclosing scope, or nil for a global environment.
func (e *Env) Parent() *Env {
	return e.parent
}

// Get looks up a variable by name, traversing parent scopes.
// The binding nearest to e wins.
func (e *Env) Get(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if val, ok := cur.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Lookup is Get with an E_UNBOUND error when no frame binds name.
func (e *Env) Lookup(name string) (Value, error) {
	if val, ok := e.Get(name); ok {
		return val, nil
	}
	return nil, &RuntimeError{
		Code:    diagnostics.EUnbound,
		Message: fmt.Sprintf("undefined variable '%s'", name),
		Name:    name,
	}
}

// Set binds a variable in this scope, shadowing any binding in a parent.
func (e *Env) Set(name string, val Value) {
	e.bindings[name] = val
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// HasLocal checks whether a variable is defined in this scope only.
func (e *Env) HasLocal(name string) bool {
	_, ok := e.bindings[name]
	return ok
}

// Names returns the names bound in this scope, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Depth is the number of ancestors above e.
func (e *Env) Depth() int {
	n := 0
	for cur := e.parent; cur != nil; cur = cur.parent {
		n++
	}
	return n
}
