// Package evaluator implements environments, closures and the statement
// evaluator, parameterised by a scoping mode.
package evaluator

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/scoping/pkg/diagnostics"
)

// Value is the interface for all runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Int represents an integer value.
type Int struct {
	Value int64
}

func (Int) value() {}

// NoValue is the result of calling a function whose body is empty.
type NoValue struct{}

func (NoValue) value() {}

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return Int{Value: n}
}

// FormatValue renders a value the way print emits it.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case Int:
		return strconv.FormatInt(val.Value, 10)
	case *Function:
		return fmt.Sprintf("<function %s>", val.Name())
	case NoValue:
		return "<no value>"
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%v", v)
}

// Require returns v unless it is the no-value sentinel, in which case it
// returns an E_NO_VALUE error. Callers that consume a call's result use it.
func Require(v Value) (Value, error) {
	if _, ok := v.(NoValue); ok || v == nil {
		return nil, &RuntimeError{
			Code:    diagnostics.ENoValue,
			Message: "function produced no value",
		}
	}
	return v, nil
}

// TypeName returns a short name for the kind of v, used in messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Int:
		return "integer"
	case *Function:
		return "function"
	case NoValue:
		return "no value"
	}
	return "unknown"
}
