// Package report renders scanner, search and spell results for terminals
// and as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"offleaf/internal/compilelog"
	"offleaf/internal/packages"
	"offleaf/internal/types"
	"offleaf/internal/workspace"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiDim   = "\x1b[2m"
)

// contextLead is how many characters before a match stay visible when a long
// line has to be shortened.
const contextLead = 20

// Printer writes human-readable results.
type Printer struct {
	w     io.Writer
	width int
	color bool
}

// NewPrinter creates a Printer. width <= 0 uses DefaultWidth.
func NewPrinter(w io.Writer, width int, color bool) *Printer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Printer{w: w, width: width, color: color}
}

func (p *Printer) paint(code, s string) string {
	if !p.color || s == "" {
		return s
	}
	return code + s + ansiReset
}

// fit prints prefix followed by as much of body as fits the width.
func (p *Printer) fit(prefix, body string) {
	room := p.width - VisibleWidth(prefix)
	if room < 10 {
		room = 10
	}
	fmt.Fprintln(p.w, prefix+Truncate(body, room, "…"))
}

// Matches prints one line per match: "file:line:col: context".
func (p *Printer) Matches(matches []types.SearchMatch) {
	for _, m := range matches {
		prefix := fmt.Sprintf("%s:%d:%d: ", p.paint(ansiBold, m.FileID), m.Line, m.Column)
		p.fit(prefix, p.excerpt(m.LineContent, m.MatchStart, m.MatchEnd))
	}
	fmt.Fprintf(p.w, "%d match(es)\n", len(matches))
}

// excerpt returns line with the match highlighted, dropping leading text when
// the match starts far to the right.
func (p *Printer) excerpt(line string, start, end int) string {
	runes := []rune(line)
	if start < 0 || end > len(runes) || start > end {
		return strings.TrimSpace(line)
	}

	from := 0
	lead := ""
	if start > contextLead {
		from = start - contextLead
		lead = "…"
	}
	before := strings.TrimLeft(string(runes[from:start]), " \t")
	if lead != "" {
		before = lead + before
	}
	return before + p.paint(ansiRed+ansiBold, string(runes[start:end])) + string(runes[end:])
}

// Issues prints spelling issues of one file: "file:line:col: word → fixes".
func (p *Printer) Issues(fileID string, issues []types.SpellIssue) {
	for _, is := range issues {
		prefix := fmt.Sprintf("%s:%d:%d: ", p.paint(ansiBold, fileID), is.Line, is.StartColumn)
		body := p.paint(ansiRed, is.Word)
		if len(is.Suggestions) > 0 {
			body += " → " + p.paint(ansiGreen, strings.Join(is.Suggestions, ", "))
		}
		p.fit(prefix, body)
	}
}

// Spans prints math spans with 1-based positions.
func (p *Printer) Spans(spans []types.MathSpan) {
	for _, s := range spans {
		kind := "inline "
		if s.IsDisplay {
			kind = "display"
		}
		prefix := fmt.Sprintf("%d:%d-%d:%d %s ", s.Start.Line+1, s.Start.Column+1, s.End.Line+1, s.End.Column+1, kind)
		p.fit(prefix, p.paint(ansiDim, strings.ReplaceAll(s.Content, "\n", "⏎")))
	}
	fmt.Fprintf(p.w, "%d span(s)\n", len(spans))
}

// Diffs prints replace previews.
func (p *Printer) Diffs(diffs []workspace.FileDiff) {
	for _, d := range diffs {
		fmt.Fprintf(p.w, "%s (+%d -%d)\n", p.paint(ansiBold, d.FileID), d.Insertions, d.Deletions)
		diff := d.Diff
		if !p.color {
			diff = stripANSI(diff)
		}
		fmt.Fprintln(p.w, diff)
	}
}

// Packages prints a package resolution.
func (p *Printer) Packages(res packages.Resolution, checked bool) {
	for _, pkg := range res.Packages {
		line := pkg.Name
		if pkg.Options != "" {
			line += " [" + pkg.Options + "]"
		}
		if checked {
			if pkg.Installed {
				line = p.paint(ansiGreen, "✓ ") + line
			} else {
				line = p.paint(ansiRed, "✗ ") + line
			}
		}
		p.fit("", line)
	}
	if checked && len(res.Missing) > 0 {
		fmt.Fprintf(p.w, "missing: %s\n", strings.Join(res.Missing, ", "))
	}
}

// Log prints compile log diagnostics.
func (p *Printer) Log(res compilelog.Result) {
	emit := func(label, code string, entries []types.LogEntry) {
		for _, e := range entries {
			loc := e.File
			if e.Line > 0 {
				loc = fmt.Sprintf("%s:%d", loc, e.Line)
			}
			if loc != "" {
				loc += ": "
			}
			p.fit(p.paint(code, label)+" "+loc, e.Message)
		}
	}
	emit("error", ansiRed, res.Errors)
	emit("warning", ansiDim, res.Warnings)
	fmt.Fprintf(p.w, "%d error(s), %d warning(s)\n", len(res.Errors), len(res.Warnings))
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
