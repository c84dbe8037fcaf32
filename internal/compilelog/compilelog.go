// Package compilelog extracts errors and warnings from TeX engine logs.
package compilelog

import (
	"regexp"
	"strconv"
	"strings"

	"offleaf/internal/types"
)

var (
	// (./chapter1.tex or (/abs/path/main.tex opens a file
	fileRe = regexp.MustCompile(`\(\.?/?([^()\s]+\.tex)`)
	// l.42 \foo{bar}
	lineRe      = regexp.MustCompile(`^l\.(\d+)(?:\s(.*))?$`)
	inputLineRe = regexp.MustCompile(`on input line (\d+)`)
)

// Result holds the diagnostics found in a log.
type Result struct {
	Errors   []types.LogEntry `json:"errors"`
	Warnings []types.LogEntry `json:"warnings"`
}

// HasErrors reports whether any error was found.
func (r Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Parse scans a TeX log line by line.
//
//   - "! msg" starts an error.
//   - "l.N text" gives the pending "!" error its line number; when there is
//     none, it becomes an error of its own unless text is empty.
//   - lines containing "Warning:" are warnings, with the line number taken
//     from "on input line N" when present.
//   - other lines containing "LaTeX Error:" are errors.
//
// Entries carry the most recently opened .tex file.
func Parse(log string) Result {
	var (
		res         Result
		currentFile string
		pending     = -1 // index into res.Errors of a "!" error still without a line
	)

	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := fileRe.FindAllStringSubmatch(line, -1); len(m) > 0 {
			currentFile = m[len(m)-1][1]
		}

		switch {
		case strings.HasPrefix(line, "!"):
			res.Errors = append(res.Errors, types.LogEntry{
				File:    currentFile,
				Message: strings.TrimSpace(strings.TrimLeft(line, "!")),
			})
			pending = len(res.Errors) - 1

		case lineRe.MatchString(line):
			m := lineRe.FindStringSubmatch(line)
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if pending >= 0 {
				res.Errors[pending].Line = n
				pending = -1
				continue
			}
			if text := strings.TrimSpace(m[2]); text != "" {
				res.Errors = append(res.Errors, types.LogEntry{File: currentFile, Line: n, Message: text})
			}

		case strings.Contains(line, "Warning:"):
			entry := types.LogEntry{File: currentFile, Message: strings.TrimSpace(line)}
			if m := inputLineRe.FindStringSubmatch(line); m != nil {
				entry.Line, _ = strconv.Atoi(m[1])
			}
			res.Warnings = append(res.Warnings, entry)

		case strings.Contains(line, "LaTeX Error:"):
			res.Errors = append(res.Errors, types.LogEntry{File: currentFile, Message: strings.TrimSpace(line)})
		}
	}
	return res
}
