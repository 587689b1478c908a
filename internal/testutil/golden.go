// Package testutil provides shared test helpers for the conformance suite.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the scenario root relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.yaml file.
type Scenario struct {
	// Cmd is the command line without the program name. The token
	// "{dir}" is replaced by the scenario directory.
	Cmd   []string `yaml:"cmd"`
	Stdin string   `yaml:"stdin,omitempty"`
	// Config is written to the project config file before the run.
	Config string         `yaml:"config,omitempty"`
	Meta   *ScenarioMeta  `yaml:"meta,omitempty"`
	Expect ExpectedResult `yaml:"expect"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode         int      `yaml:"exitCode"`
	StdoutText       *string  `yaml:"stdoutText,omitempty"`
	StdoutLines      []string `yaml:"stdoutLines,omitempty"`
	StdoutContains   string   `yaml:"stdoutContains,omitempty"`
	StdoutJSONSubset any      `yaml:"stdoutJsonSubset,omitempty"`
	StderrContains   string   `yaml:"stderrContains,omitempty"`
	StderrJSONSubset any      `yaml:"stderrJsonSubset,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yaml.
// Unknown keys are rejected so typos in fixtures fail loudly.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.yaml"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.yaml")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ExpandArgs substitutes the scenario directory into cmd.
func ExpandArgs(scenarioDir string, cmd []string) []string {
	out := make([]string, len(cmd))
	for i, arg := range cmd {
		out[i] = strings.ReplaceAll(arg, "{dir}", scenarioDir)
	}
	return out
}
