package evaluator

import (
	"encoding/json"
)

// ValueToJSON marshals a Value to JSON bytes. Integers are numbers,
// functions are {"function": name}, and the no-value sentinel is null.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v Value) any {
	switch val := v.(type) {
	case Int:
		return val.Value
	case *Function:
		return map[string]string{"function": val.Name()}
	}
	return nil
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// EnvToJSON marshals the local bindings of env as a JSON object with keys
// in sorted order. Parent frames are not included.
func EnvToJSON(env *Env) ([]byte, error) {
	raw := make(map[string]any, len(env.bindings))
	for name, val := range env.bindings {
		raw[name] = valueToRaw(val)
	}
	return json.Marshal(raw)
}
