// Package spell flags likely misspellings in the prose of LaTeX documents.
//
// Each line goes through a fixed stripping pipeline before tokenization:
// comments, math, non-prose command arguments, remaining command names and
// grouping punctuation are blanked out. Blanking keeps the byte layout of the
// line, so reported columns always refer to the original text.
package spell

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"offleaf/internal/logger"
	"offleaf/internal/mathscan"
	"offleaf/internal/types"
)

const (
	// DefaultMaxSuggestions is the number of suggestions Suggest returns at most
	DefaultMaxSuggestions = 5
	// DefaultMaxDistance is the largest edit distance Suggest accepts
	DefaultMaxDistance = 2
	// minWordLength is the shortest token that is ever checked
	minWordLength = 3
)

var (
	// escaped symbols such as \$, \%, \& and the line break \\
	escapeRe = regexp.MustCompile(`\\[^a-zA-Z()\[\]]`)

	mathRes = []*regexp.Regexp{
		regexp.MustCompile(`\$\$.*?\$\$`),
		regexp.MustCompile(`\\\[.*?\\\]`),
		regexp.MustCompile(`\\\(.*?\\\)`),
		regexp.MustCompile(`\$[^$]*\$`),
	}

	// commands whose first argument is never prose
	argCommandRe = regexp.MustCompile(`\\(?:documentclass|usepackage|RequirePackage|begin|end|label|ref|eqref|pageref|autoref|cref|Cref|cite|citep|citet|nocite|includegraphics|input|include|bibliography|bibliographystyle|url)\*?(?:\[[^\]]*\])?\{[^}]*\}`)

	commandRe  = regexp.MustCompile(`\\[a-zA-Z]+\*?(?:\[[^\]]*\])?`)
	groupingRe = regexp.MustCompile(`[{}\[\]]`)
	wordRe     = regexp.MustCompile(`[a-zA-Z]+`)

	digitsRe    = regexp.MustCompile(`^[0-9]+$`)
	variableRe  = regexp.MustCompile(`^[a-z]+[0-9]+$`)
	camelCaseRe = regexp.MustCompile(`^[A-Z][a-z]+[A-Z]`)
)

// Options tunes a Checker.
type Options struct {
	// UnifiedMath removes math found by mathscan before the line pipeline,
	// which also excludes math spanning several lines.
	UnifiedMath bool
	// MaxSuggestions caps Suggest results, DefaultMaxSuggestions when zero.
	MaxSuggestions int
	// MaxDistance is the largest accepted score, DefaultMaxDistance when zero.
	MaxDistance int
}

// Checker finds dictionary misspellings in LaTeX source.
// A Checker holds no mutable state and may be shared between goroutines.
type Checker struct {
	dict   *Dictionary
	scorer Scorer
	opts   Options
}

// NewChecker creates a Checker. A nil dict uses Default(), a nil scorer uses
// LevenshteinScorer.
func NewChecker(dict *Dictionary, scorer Scorer, opts Options) *Checker {
	if dict == nil {
		dict = Default()
	}
	if scorer == nil {
		scorer = LevenshteinScorer{}
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = DefaultMaxDistance
	}
	return &Checker{dict: dict, scorer: scorer, opts: opts}
}

// Dictionary returns the dictionary the checker consults.
func (c *Checker) Dictionary() *Dictionary {
	return c.dict
}

// Check returns every dictionary misspelling found in the prose of document,
// in line then column order. The result is rebuilt from scratch on each call.
func (c *Checker) Check(document string) []types.SpellIssue {
	text := document
	if c.opts.UnifiedMath {
		text = mathscan.Mask(document, mathscan.Scan(document))
	}

	var issues []types.SpellIssue
	for i, line := range mathscan.SplitLines(text) {
		issues = append(issues, c.checkLine(line, i+1)...)
	}

	logger.Debug("spell check completed",
		logger.Bool("unifiedMath", c.opts.UnifiedMath),
		logger.Int("issues", len(issues)))
	return issues
}

func (c *Checker) checkLine(line string, lineNum int) []types.SpellIssue {
	cleaned := StripMarkup(line)

	var issues []types.SpellIssue
	for _, loc := range wordRe.FindAllStringIndex(cleaned, -1) {
		word := cleaned[loc[0]:loc[1]]
		if shouldSkip(word) {
			continue
		}
		correction, ok := c.dict.Lookup(word)
		if !ok {
			continue
		}

		start := utf8.RuneCountInString(line[:loc[0]]) + 1
		issues = append(issues, types.SpellIssue{
			Word:        word,
			Line:        lineNum,
			StartColumn: start,
			EndColumn:   start + len(word),
			Suggestions: []string{matchCase(word, correction)},
		})
	}
	return issues
}

// StripMarkup blanks everything in a single line of LaTeX that is not prose.
// The returned string has the same byte length as line.
func StripMarkup(line string) string {
	if idx := findUnescapedPercent(line); idx >= 0 {
		line = line[:idx] + strings.Repeat(" ", len(line)-idx)
	}

	line = blank(escapeRe, line)
	for _, re := range mathRes {
		line = blank(re, line)
	}
	line = blank(argCommandRe, line)
	line = blank(commandRe, line)
	return blank(groupingRe, line)
}

func blank(re *regexp.Regexp, s string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

// findUnescapedPercent finds the position of the first unescaped % in a line.
// Returns -1 if no unescaped % is found.
func findUnescapedPercent(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != '%' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i
		}
	}
	return -1
}

// shouldSkip filters tokens that are technical rather than prose.
func shouldSkip(word string) bool {
	switch {
	case len(word) < minWordLength:
		return true
	case strings.HasPrefix(word, `\`):
		return true
	case digitsRe.MatchString(word):
		return true
	case strings.ToUpper(word) == word:
		return true
	case variableRe.MatchString(word):
		return true
	case camelCaseRe.MatchString(word):
		return true
	}
	return false
}

// matchCase capitalizes the first letter of suggestion when original starts
// with an upper-case letter. The rest of suggestion is left as is.
func matchCase(original, suggestion string) string {
	first, _ := utf8.DecodeRuneInString(original)
	if !unicode.IsUpper(first) || suggestion == "" {
		return suggestion
	}
	r, size := utf8.DecodeRuneInString(suggestion)
	return string(unicode.ToUpper(r)) + suggestion[size:]
}

// Suggest returns up to MaxSuggestions corrections for word, best first: the
// dictionary correction when word is a known misspelling, then the closest
// dictionary corrections within MaxDistance.
func (c *Checker) Suggest(word string) []string {
	if strings.TrimSpace(word) == "" {
		return nil
	}
	lower := strings.ToLower(word)

	var out []string
	seen := make(map[string]struct{})
	if correction, ok := c.dict.Lookup(word); ok {
		out = append(out, matchCase(word, correction))
		seen[strings.ToLower(correction)] = struct{}{}
	}

	type candidate struct {
		word     string
		distance int
	}
	var candidates []candidate
	for _, correction := range c.dict.corrections {
		key := strings.ToLower(correction)
		if _, dup := seen[key]; dup {
			continue
		}
		if d := c.scorer.Distance(lower, key); d <= c.opts.MaxDistance {
			candidates = append(candidates, candidate{word: correction, distance: d})
		}
	}
	// corrections are already sorted, a stable sort keeps ties alphabetical
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	for _, cand := range candidates {
		if len(out) >= c.opts.MaxSuggestions {
			break
		}
		out = append(out, matchCase(word, cand.word))
	}

	logger.Debug("suggestions computed",
		logger.String("word", word),
		logger.Int("count", len(out)))
	return out
}

var (
	defaultChecker     *Checker
	defaultCheckerOnce sync.Once
)

// CheckSpelling checks document with the default dictionary and options.
func CheckSpelling(document string) []types.SpellIssue {
	return standardChecker().Check(document)
}

// Suggest returns suggestions for word from the default checker.
func Suggest(word string) []string {
	return standardChecker().Suggest(word)
}

func standardChecker() *Checker {
	defaultCheckerOnce.Do(func() {
		defaultChecker = NewChecker(nil, nil, Options{})
	})
	return defaultChecker
}
