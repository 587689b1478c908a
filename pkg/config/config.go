// Package config loads CLI defaults from project and user configuration files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/scoping/pkg/ast"
	"github.com/thomasrohde/scoping/pkg/diagnostics"
	"github.com/thomasrohde/scoping/pkg/evaluator"
)

const (
	// ProjectFile is looked up in the project directory.
	ProjectFile = ".scoping.yaml"
	// DefaultMaxDepth bounds call nesting when no file sets maxDepth.
	DefaultMaxDepth = 10000
)

// Config holds driver defaults. Unset fields are filled from the next file in
// precedence order, then from Default.
type Config struct {
	Mode evaluator.Mode `yaml:"mode,omitempty"`
	// MaxDepth bounds call nesting. Zero or a negative value disables the
	// guard. A pointer so an explicit 0 is not mistaken for unset.
	MaxDepth *int   `yaml:"maxDepth,omitempty"`
	Pretty   *bool  `yaml:"pretty,omitempty"`
	RunID    string `yaml:"runId,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	pretty := true
	maxDepth := DefaultMaxDepth
	return &Config{
		Mode:     evaluator.Static,
		MaxDepth: &maxDepth,
		Pretty:   &pretty,
		RunID:    "cli",
	}
}

// PrettyOutput reports whether diagnostics are rendered for humans.
func (c *Config) PrettyOutput() bool {
	return c.Pretty != nil && *c.Pretty
}

// DepthLimit converts MaxDepth to the evaluator's convention, where 0 means
// unbounded. An unset MaxDepth yields DefaultMaxDepth.
func (c *Config) DepthLimit() int {
	if c.MaxDepth == nil {
		return DefaultMaxDepth
	}
	return DepthLimit(*c.MaxDepth)
}

// DepthLimit maps a user-supplied bound to the evaluator's convention:
// zero and negative values mean unbounded.
func DepthLimit(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Error reports an unreadable or malformed configuration file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic converts the error for CLI output.
func (e *Error) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(diagnostics.EConfig, e.Error(), &ast.Span{File: e.Path}, "")
}

// Load reads configuration with precedence: project (.scoping.yaml) →
// user (~/.scoping/config.yaml) → built-in defaults. Missing files are
// skipped; the paths that were read are returned in precedence order.
func Load(projectDir string) (*Config, []string, error) {
	paths := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, UserPath(home))
	}

	cfg := &Config{}
	var sources []string
	for _, path := range paths {
		layer, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, sources, err
		}
		if err := mergo.Merge(cfg, layer, mergo.WithoutDereference); err != nil {
			return nil, sources, &Error{Path: path, Err: err}
		}
		sources = append(sources, path)
	}
	if err := mergo.Merge(cfg, Default(), mergo.WithoutDereference); err != nil {
		return nil, sources, err
	}
	return cfg, sources, nil
}

// UserPath returns the user configuration file under home.
func UserPath(home string) string {
	return filepath.Join(home, ".scoping", "config.yaml")
}

// LoadFile decodes a single configuration file. Unknown keys are rejected.
// A missing file yields an error matching fs.ErrNotExist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, &Error{Path: path, Err: err}
	}
	cfg, err := Decode(data)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

// Decode parses configuration YAML. An empty document is an empty config.
func Decode(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.Mode != 0 {
		if err := cfg.Mode.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
