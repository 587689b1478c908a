// Package help holds the CLI help text.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// Version is the CLI version shown in the quick reference.
const Version = "v0.1"

// QUICKREF is printed by `scoping help` with no topic.
const QUICKREF = `scoping ` + Version + ` - run one program under static and dynamic scoping

USAGE
  scoping run <file> [--mode static|dynamic] [--call name] [--dump-env] [--result]
  scoping compare <file> [--call name]
  scoping check <file>
  scoping fmt <file> [--write] [--source]
  scoping demo
  scoping trace <file.jsonl> [--json|--text]
  scoping help [topic]

COMMON FLAGS
  --pretty / --json     human-readable or JSON diagnostics
  --max-depth N         bound call nesting (0 = unbounded)
  --trace <file.jsonl>  write execution trace events as NDJSON
  --run-id <id>         run id recorded in trace events

TOPICS
  program      document format: assign, print, call, def
  modes        static vs dynamic scoping
  diagnostics  error codes and exit codes
  config       .scoping.yaml and ~/.scoping/config.yaml
  examples     worked programs

Run 'scoping help <topic>' for details.
`

// Topics maps a topic name to its text.
var Topics = map[string]string{
	"program": `PROGRAM DOCUMENTS

A program is a YAML (or JSON) sequence of statement tuples:

  - [assign, x, 10]            x = 10
  - [print, x]                 print(x)
  - [def, f, [[print, x]]]     def f(): print(x)
  - [call, f]                  f()

Expressions are integer literals (10, -3, 0x1F) or names (x).
Quote a name that YAML would read as something else: "true", "null".
Any other expression (floats, booleans, null, lists, maps) is E_UNKNOWN_EXPR.

Statements run in order. The value of a call is the value of the last
statement in the body; a function with an empty body has no value.
def binds a function that captures the environment it is defined in.
Redefining a name overwrites it silently.
`,

	"modes": `SCOPING MODES

Every call creates a fresh frame for the function body. Assignments in the
body always bind in that frame; they never write through to an outer frame.
The modes differ only in the frame's parent:

  static    the environment where the function was defined
  dynamic   the environment of the call site

Free names in a body are therefore resolved along the definition chain under
static scoping and along the chain of active callers under dynamic scoping.

  x = 10
  def f(): print(x)
  def g(): x = 20; f()
  g()       static prints 10, dynamic prints 20

Select the mode with --mode, or set 'mode' in the config file.
The only mode names are static and dynamic.
`,

	"diagnostics": `DIAGNOSTICS

Load and validation (exit 2):
  E_PARSE          the document cannot be decoded
  E_AST            unknown statement kind, wrong arity, malformed name or body
  E_UNKNOWN_EXPR   an expression that is neither an integer nor a name
  E_BAD_NAME       a name that is not an identifier

Runtime (exit 4):
  E_UNBOUND        undefined variable; check reports names bound nowhere
  E_NOT_CALLABLE   call of a name that is not bound to a function
  E_NO_VALUE       a result was required from a call with an empty body
  E_CANCELED       execution was interrupted

Stack (exit 3):
  E_STACK          call nesting exceeded --max-depth

Usage (exit 1):
  E_IO, E_CONFIG, E_MODE

Output printed before an error is kept.
`,

	"config": `CONFIGURATION

Settings are read from, in order of precedence:
  1. command-line flags
  2. .scoping.yaml in the current directory
  3. ~/.scoping/config.yaml
  4. built-in defaults

  mode: static        # or dynamic
  maxDepth: 10000     # 0 or negative disables the guard
  pretty: true        # false prints diagnostics as JSON
  runId: cli          # recorded in trace events

Unknown keys are rejected with E_CONFIG.
`,

	"examples": `EXAMPLES

Scoping divergence (scoping run prog.yaml --call g --mode dynamic):
  - [assign, x, 10]
  - [def, f, [[print, x]]]
  - [def, g, [[assign, x, 20], [call, f]]]

Unbounded recursion stops with E_STACK (exit 3):
  - [def, loop, [[call, loop]]]
  - [call, loop]

Both modes side by side:
  scoping compare prog.yaml --call g
`,
}

// TopicList is the display order of Topics.
var TopicList = []string{"program", "modes", "diagnostics", "config", "examples"}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var matches []string
	if q != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, q) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	}
	sort.Strings(matches)
	return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
}
