package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/thomasrohde/scoping/pkg/diagnostics"
	"github.com/thomasrohde/scoping/pkg/evaluator"
)

// traceWriter appends trace events to a file as NDJSON.
type traceWriter struct {
	f   *os.File
	enc *json.Encoder
	err error
}

func openTrace(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &traceWriter{f: f, enc: json.NewEncoder(f)}, nil
}

// Write records one event. The first write error is kept and reported by Close.
func (tw *traceWriter) Write(ev evaluator.TraceEvent) {
	if tw.err != nil {
		return
	}
	tw.err = tw.enc.Encode(ev)
}

func (tw *traceWriter) Close() error {
	closeErr := tw.f.Close()
	if tw.err != nil {
		return tw.err
	}
	return closeErr
}

func cmdTrace(args []string, stdio IO) int {
	f, err := parseFlags(args)
	if err != nil || len(f.positional) != 1 {
		fmt.Fprintln(stdio.Stderr, "usage: scoping trace <file.jsonl> [--json|--text]")
		return diagnostics.ExitUsage
	}
	file := f.positional[0]

	in, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(stdio.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return diagnostics.ExitUsage
	}
	defer in.Close()

	summary := computeTraceSummary(in)

	if f.textOutput() {
		printTraceSummaryText(stdio.Stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(stdio.Stdout, string(b))
	}
	return diagnostics.ExitOK
}

func (f *flags) textOutput() bool {
	return f.textOut && !f.jsonOut
}

// TraceSummary aggregates a trace file.
type TraceSummary struct {
	RunIDs      []string        `json:"runIds"`
	TotalEvents int             `json:"totalEvents"`
	Statements  int             `json:"statements"`
	Calls       int             `json:"calls"`
	CallsByName []FunctionCalls `json:"callsByName"`
	Prints      int             `json:"prints"`
	MaxDepth    int             `json:"maxDepth"`
	StartTime   string          `json:"startTime,omitempty"`
	EndTime     string          `json:"endTime,omitempty"`
	DurationMs  float64         `json:"durationMs"`
}

// FunctionCalls counts the calls of one function.
type FunctionCalls struct {
	Name  string `json:"name"`
	Calls int    `json:"calls"`
}

type traceEvent struct {
	Event string            `json:"event"`
	RunID string            `json:"runId"`
	TS    string            `json:"ts"`
	Data  map[string]string `json:"data,omitempty"`
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{RunIDs: []string{}, CallsByName: []FunctionCalls{}}
	byName := treemap.NewWithStringComparator()
	seenRuns := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if event.RunID != "" && !seenRuns[event.RunID] {
			seenRuns[event.RunID] = true
			summary.RunIDs = append(summary.RunIDs, event.RunID)
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
		case evaluator.TraceStmtStart:
			summary.Statements++
		case evaluator.TraceFnCallStart:
			summary.Calls++
			if name := event.Data["fn"]; name != "" {
				n := 0
				if v, ok := byName.Get(name); ok {
					n = v.(int)
				}
				byName.Put(name, n+1)
			}
			if d, err := strconv.Atoi(event.Data["depth"]); err == nil && d > summary.MaxDepth {
				summary.MaxDepth = d
			}
		case evaluator.TracePrint:
			summary.Prints++
		}
	}

	it := byName.Iterator()
	for it.Next() {
		summary.CallsByName = append(summary.CallsByName, FunctionCalls{Name: it.Key().(string), Calls: it.Value().(int)})
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Runs: %s\n", strings.Join(s.RunIDs, ", "))
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	fmt.Fprintf(w, "Calls: %d (max depth %d)\n", s.Calls, s.MaxDepth)
	for _, fc := range s.CallsByName {
		fmt.Fprintf(w, "  %s: %d\n", fc.Name, fc.Calls)
	}
	fmt.Fprintf(w, "Prints: %d\n", s.Prints)
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
