// Package sink provides destinations for solutions emitted by the search
// driver: an in-memory collector, a text writer and a compressed archive.
package sink

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fortiblox/regsort/pkg/machine"
	"github.com/fortiblox/regsort/pkg/search"
)

// ErrUnknownFormat is returned for an unrecognised output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects how a program is rendered.
type Format string

// Output formats.
const (
	// FormatHuman renders one "OP dst src" line per instruction, 1-indexed.
	FormatHuman Format = "human"

	// FormatAsm renders x86 assembly with the source operand first.
	FormatAsm Format = "asm"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatHuman, FormatAsm:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Render renders prog in format f.
func Render(l machine.Layout, prog []machine.Instruction, f Format) string {
	var b strings.Builder
	for _, ins := range prog {
		if f == FormatAsm {
			b.WriteString(ins.Asm(l))
		} else {
			b.WriteString(ins.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Collector keeps every solution in memory.
type Collector struct {
	mu        sync.Mutex
	solutions []search.Solution
}

// Emit implements search.Sink.
func (c *Collector) Emit(s search.Solution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.solutions = append(c.solutions, s)
	return nil
}

// Solutions returns the collected solutions in emission order.
func (c *Collector) Solutions() []search.Solution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]search.Solution(nil), c.solutions...)
}

// Writer prints each solution to an io.Writer.
type Writer struct {
	w      io.Writer
	format Format
}

// NewWriter creates a text sink.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// Emit implements search.Sink.
func (w *Writer) Emit(s search.Solution) error {
	_, err := fmt.Fprintf(w.w, "; solution %d, %d instructions, %s\n%s",
		s.Index, s.Length, s.Layout, Render(s.Layout, s.Program, w.format))
	return err
}

// Multi fans a solution out to several sinks and stops at the first error.
type Multi []search.Sink

// Emit implements search.Sink.
func (m Multi) Emit(s search.Solution) error {
	for _, sink := range m {
		if err := sink.Emit(s); err != nil {
			return err
		}
	}
	return nil
}
