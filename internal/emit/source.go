// Package emit renders kernel source text from an operation template and,
// on the strided path, a traversal plan. Emission builds a structured list
// of statements and nested blocks first; indentation happens only in the
// final render step, so the emission logic itself is testable without any
// text-formatting concerns.
package emit

import (
	"fmt"
	"strings"
)

const indentUnit = "    "

type node interface {
	render(sb *strings.Builder, depth int)
}

// line is a single statement or declaration.
type line string

func (l line) render(sb *strings.Builder, depth int) {
	if l == "" {
		sb.WriteByte('\n')
		return
	}
	for i := 0; i < depth; i++ {
		sb.WriteString(indentUnit)
	}
	sb.WriteString(string(l))
	sb.WriteByte('\n')
}

// raw is caller-supplied text included verbatim, without reindentation.
type raw string

func (r raw) render(sb *strings.Builder, _ int) {
	text := strings.TrimRight(string(r), "\n")
	if text == "" {
		return
	}
	sb.WriteString(text)
	sb.WriteByte('\n')
}

// block is a brace-delimited region whose children render one level deeper.
type block struct {
	head string
	body *Source
	tail string
}

func (b *block) render(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString(indentUnit)
	}
	sb.WriteString(b.head)
	sb.WriteByte('\n')
	b.body.renderInto(sb, depth+1)
	for i := 0; i < depth; i++ {
		sb.WriteString(indentUnit)
	}
	sb.WriteString(b.tail)
	sb.WriteByte('\n')
}

// Source is an ordered list of statements, verbatim text, and nested blocks.
type Source struct {
	nodes []node
}

// Line appends one formatted statement.
func (s *Source) Line(format string, args ...any) {
	if len(args) == 0 {
		s.nodes = append(s.nodes, line(format))
		return
	}
	s.nodes = append(s.nodes, line(fmt.Sprintf(format, args...)))
}

// Blank appends an empty line.
func (s *Source) Blank() {
	s.nodes = append(s.nodes, line(""))
}

// Raw appends caller-supplied text verbatim. Empty text appends nothing.
func (s *Source) Raw(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.nodes = append(s.nodes, raw(text))
}

// Block appends a nested brace-delimited region and returns its body.
func (s *Source) Block(head, tail string) *Source {
	b := &block{head: head, body: &Source{}, tail: tail}
	s.nodes = append(s.nodes, b)
	return b.body
}

// Append splices another Source's nodes at this point.
func (s *Source) Append(other *Source) {
	s.nodes = append(s.nodes, other.nodes...)
}

// Empty reports whether nothing has been emitted.
func (s *Source) Empty() bool {
	return len(s.nodes) == 0
}

// Render produces the final text.
func (s *Source) Render() string {
	var sb strings.Builder
	s.renderInto(&sb, 0)
	return sb.String()
}

func (s *Source) renderInto(sb *strings.Builder, depth int) {
	for _, n := range s.nodes {
		n.render(sb, depth)
	}
}
