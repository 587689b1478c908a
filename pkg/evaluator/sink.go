package evaluator

import (
	"fmt"
	"io"
)

// Sink receives the value of every print statement, in execution order.
type Sink interface {
	Emit(v Value) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(v Value) error

func (f SinkFunc) Emit(v Value) error { return f(v) }

// WriterSink writes one formatted value per line.
type WriterSink struct {
	W io.Writer
}

// NewWriterSink returns a line-oriented sink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{W: w}
}

func (s *WriterSink) Emit(v Value) error {
	if _, err := Require(v); err != nil {
		return err
	}
	_, err := fmt.Fprintln(s.W, FormatValue(v))
	return err
}

// RecordingSink keeps every emitted value. Like WriterSink it rejects the
// no-value sentinel.
type RecordingSink struct {
	Values []Value
}

func (s *RecordingSink) Emit(v Value) error {
	if _, err := Require(v); err != nil {
		return err
	}
	s.Values = append(s.Values, v)
	return nil
}

// Lines returns the recorded values formatted as print would write them.
func (s *RecordingSink) Lines() []string {
	lines := make([]string, len(s.Values))
	for i, v := range s.Values {
		lines[i] = FormatValue(v)
	}
	return lines
}

type discardSink struct{}

func (discardSink) Emit(Value) error { return nil }
