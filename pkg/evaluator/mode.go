package evaluator

import (
	"fmt"
	"strings"

	"github.com/thomasrohde/scoping/pkg/diagnostics"
)

// Mode selects which environment a function body resolves free names in.
// The zero value is not a valid mode; entry points reject it.
type Mode int

const (
	// Static resolves free names in the environment the function was defined in.
	Static Mode = iota + 1
	// Dynamic resolves free names in the environment of the call site.
	Dynamic
)

// Modes lists every valid mode in display order.
func Modes() []Mode {
	return []Mode{Static, Dynamic}
}

func (m Mode) String() string {
	switch m {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Validate returns an E_MODE error for anything but Static or Dynamic.
func (m Mode) Validate() error {
	if m == Static || m == Dynamic {
		return nil
	}
	return &RuntimeError{
		Code:    diagnostics.EMode,
		Message: fmt.Sprintf("invalid scoping mode %s", m),
	}
}

// ParseMode parses "static" or "dynamic" (case-insensitive). No other
// names are accepted.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return Static, nil
	case "dynamic":
		return Dynamic, nil
	}
	return 0, &RuntimeError{
		Code:    diagnostics.EMode,
		Message: fmt.Sprintf("unknown scoping mode %q (want static or dynamic)", s),
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
