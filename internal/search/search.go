// Package search finds and replaces literal or regular-expression patterns
// across a corpus of named text buffers.
package search

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"offleaf/internal/logger"
	"offleaf/internal/mathscan"
	"offleaf/internal/types"
)

var (
	// ErrInvalidPattern is returned when a regular expression fails to compile
	ErrInvalidPattern = errors.New("invalid search pattern")
	// ErrEmptyPattern is returned for an empty pattern
	ErrEmptyPattern = errors.New("empty search pattern")
)

// Query describes what to look for.
type Query struct {
	Pattern       string `json:"pattern"`
	UseRegex      bool   `json:"use_regex"`
	CaseSensitive bool   `json:"case_sensitive"`
	// MaxResults stops the search after this many matches, 0 means unlimited.
	MaxResults int `json:"max_results,omitempty"`
}

// Compile builds the regular expression for q. Literal patterns are escaped.
func Compile(q Query) (*regexp.Regexp, error) {
	if q.Pattern == "" {
		return nil, ErrEmptyPattern
	}

	pattern := q.Pattern
	if !q.UseRegex {
		pattern = regexp.QuoteMeta(pattern)
	}
	if !q.CaseSensitive {
		pattern = "(?i)" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}

// Find returns every match of q in corpus, in corpus order, then line order,
// then column order. An empty pattern yields no matches and no error; a
// regular expression that does not compile yields ErrInvalidPattern.
func Find(corpus []types.FileBuffer, q Query) ([]types.SearchMatch, error) {
	re, err := Compile(q)
	if errors.Is(err, ErrEmptyPattern) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var matches []types.SearchMatch
	for _, file := range corpus {
		matches = appendFileMatches(matches, file, re)
		if q.MaxResults > 0 && len(matches) >= q.MaxResults {
			matches = matches[:q.MaxResults]
			break
		}
	}

	logger.Debug("search completed",
		logger.String("pattern", q.Pattern),
		logger.Bool("regex", q.UseRegex),
		logger.Int("files", len(corpus)),
		logger.Int("matches", len(matches)))
	return matches, nil
}

// Search is Find with invalid patterns collapsed into an empty result.
func Search(corpus []types.FileBuffer, pattern string, useRegex, caseSensitive bool) []types.SearchMatch {
	matches, err := Find(corpus, Query{Pattern: pattern, UseRegex: useRegex, CaseSensitive: caseSensitive})
	if err != nil {
		logger.Debug("search aborted", logger.String("pattern", pattern), logger.Err(err))
		return nil
	}
	return matches
}

// appendFileMatches scans one buffer line by line.
//
// FindAllStringIndex resumes after the end of the previous match and steps
// one character past an empty match, so patterns such as a* or the empty
// regex terminate on every line.
func appendFileMatches(matches []types.SearchMatch, file types.FileBuffer, re *regexp.Regexp) []types.SearchMatch {
	for lineIdx, line := range mathscan.SplitLines(file.Content) {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			start := utf8.RuneCountInString(line[:loc[0]])
			end := start + utf8.RuneCountInString(line[loc[0]:loc[1]])
			matches = append(matches, types.SearchMatch{
				FileID:      file.FileID,
				FileName:    file.FileName,
				Line:        lineIdx + 1,
				Column:      start + 1,
				LineContent: line,
				MatchStart:  start,
				MatchEnd:    end,
			})
		}
	}
	return matches
}
