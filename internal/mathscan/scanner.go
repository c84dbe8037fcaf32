// Package mathscan classifies LaTeX source into prose and math regions.
//
// The scanner walks a document once, left to right and top to bottom, keeping
// a single state (prose, inline math or display math). Control symbols such as
// \$ or \\ are consumed as a pair, so an escaped dollar never opens math and
// the line break \\[2pt] is not mistaken for \[.
package mathscan

import (
	"strings"

	"offleaf/internal/logger"
	"offleaf/internal/types"
)

// State is the scanner state between two characters.
type State int

const (
	// StateProse is ordinary text
	StateProse State = iota
	// StateInline is inside $...$ or \(...\)
	StateInline
	// StateDisplay is inside $$...$$ or \[...\]
	StateDisplay
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateProse:
		return "PROSE"
	case StateInline:
		return "IN_INLINE_MATH"
	case StateDisplay:
		return "IN_DISPLAY_MATH"
	default:
		return "UNKNOWN"
	}
}

// scanner holds the walk state for one Scan call.
type scanner struct {
	state   State
	start   types.Position
	content strings.Builder
	spans   []types.MathSpan
}

// Scan returns the math spans of document in document order.
// An opening delimiter that is never closed produces no span.
func Scan(document string) []types.MathSpan {
	s := &scanner{}

	for lineNum, line := range SplitLines(document) {
		runes := []rune(line)
		for col := 0; col < len(runes); {
			col += s.step(runes, lineNum, col)
		}
		if s.state != StateProse {
			s.content.WriteByte('\n')
		}
	}

	if s.state != StateProse {
		logger.Debug("discarding unterminated math",
			logger.String("state", s.state.String()),
			logger.Int("line", s.start.Line),
			logger.Int("column", s.start.Column))
	}

	logger.Debug("math scan completed", logger.Int("spanCount", len(s.spans)))
	return s.spans
}

// step consumes the delimiter or character at col and returns its width.
func (s *scanner) step(runes []rune, lineNum, col int) int {
	ch := runes[col]
	var next rune
	if col+1 < len(runes) {
		next = runes[col+1]
	}

	switch s.state {
	case StateProse:
		switch {
		case ch == '$' && next == '$':
			s.open(StateDisplay, lineNum, col)
			return 2
		case ch == '$':
			s.open(StateInline, lineNum, col)
			return 1
		case ch == '\\' && next == '[':
			s.open(StateDisplay, lineNum, col)
			return 2
		case ch == '\\' && next == '(':
			s.open(StateInline, lineNum, col)
			return 2
		case ch == '\\' && next != 0:
			return 2
		}
		return 1

	case StateDisplay:
		switch {
		case ch == '$' && next == '$', ch == '\\' && next == ']':
			s.close(true, lineNum, col+1)
			return 2
		}

	case StateInline:
		switch {
		case ch == '$':
			s.close(false, lineNum, col)
			return 1
		case ch == '\\' && next == ')':
			s.close(false, lineNum, col+1)
			return 2
		}
	}

	// Inside math: a backslash takes the following character with it so that
	// \$ and \\ never end the span.
	s.content.WriteRune(ch)
	if ch == '\\' && next != 0 {
		s.content.WriteRune(next)
		return 2
	}
	return 1
}

func (s *scanner) open(state State, lineNum, col int) {
	s.state = state
	s.start = types.Position{Line: lineNum, Column: col}
	s.content.Reset()
}

func (s *scanner) close(display bool, lineNum, endCol int) {
	s.spans = append(s.spans, types.MathSpan{
		Start:     s.start,
		End:       types.Position{Line: lineNum, Column: endCol},
		Content:   s.content.String(),
		IsDisplay: display,
	})
	s.state = StateProse
	s.content.Reset()
}

// FindSpanAtPosition returns the first span containing the zero-based
// line/column position, or nil when the position is in prose.
func FindSpanAtPosition(spans []types.MathSpan, line, column int) *types.MathSpan {
	pos := types.Position{Line: line, Column: column}
	for i := range spans {
		if spans[i].Contains(pos) {
			return &spans[i]
		}
		// spans are ordered, nothing later can contain pos
		if pos.Before(spans[i].Start) {
			return nil
		}
	}
	return nil
}

// SplitLines splits a document on \n, dropping a trailing \r from each line.
func SplitLines(document string) []string {
	lines := strings.Split(document, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Mask returns document with every character covered by spans, delimiters
// included, replaced by a space. Line structure and columns are preserved.
func Mask(document string, spans []types.MathSpan) string {
	if len(spans) == 0 {
		return document
	}

	lines := SplitLines(document)
	for lineNum, line := range lines {
		runes := []rune(line)
		changed := false
		for _, span := range spans {
			if lineNum < span.Start.Line || lineNum > span.End.Line {
				continue
			}
			from, to := 0, len(runes)-1
			if lineNum == span.Start.Line {
				from = span.Start.Column
			}
			if lineNum == span.End.Line {
				to = span.End.Column
			}
			for c := from; c <= to && c < len(runes); c++ {
				runes[c] = ' '
				changed = true
			}
		}
		if changed {
			lines[lineNum] = string(runes)
		}
	}
	return strings.Join(lines, "\n")
}
