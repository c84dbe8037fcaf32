package spell

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offleaf/internal/types"
)

func TestCheckSpelling(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     []types.SpellIssue
	}{
		{
			name:     "dictionary hit",
			document: "This is teh document.",
			want: []types.SpellIssue{
				{Word: "teh", Line: 1, StartColumn: 9, EndColumn: 12, Suggestions: []string{"the"}},
			},
		},
		{
			name:     "capitalized word gets capitalized suggestion",
			document: "Teh cat",
			want: []types.SpellIssue{
				{Word: "Teh", Line: 1, StartColumn: 1, EndColumn: 4, Suggestions: []string{"The"}},
			},
		},
		{
			name:     "package name is not prose",
			document: `\usepackage{xcolor}`,
			want:     nil,
		},
		{
			name:     "misspelling not in general use",
			document: "The qick fox",
			want: []types.SpellIssue{
				{Word: "qick", Line: 1, StartColumn: 5, EndColumn: 9, Suggestions: []string{"quick"}},
			},
		},
		{
			name:     "comment is stripped",
			document: "fine text % teh",
			want:     nil,
		},
		{
			name:     "escaped percent is not a comment",
			document: `50\% teh`,
			want: []types.SpellIssue{
				{Word: "teh", Line: 1, StartColumn: 6, EndColumn: 9, Suggestions: []string{"the"}},
			},
		},
		{
			name:     "inline math is stripped",
			document: "$teh$ and teh",
			want: []types.SpellIssue{
				{Word: "teh", Line: 1, StartColumn: 11, EndColumn: 14, Suggestions: []string{"the"}},
			},
		},
		{
			name:     "bracket and paren math are stripped",
			document: `\[teh\] \(teh\) $$teh$$`,
			want:     nil,
		},
		{
			name:     "prose inside formatting command is checked",
			document: `\textbf{teh}`,
			want: []types.SpellIssue{
				{Word: "teh", Line: 1, StartColumn: 9, EndColumn: 12, Suggestions: []string{"the"}},
			},
		},
		{
			name:     "label, ref and cite arguments are skipped",
			document: `\label{teh} \ref{teh} \cite[p.~3]{teh} \begin{teh}`,
			want:     nil,
		},
		{
			name:     "acronyms are skipped",
			document: "TEH is fine",
			want:     nil,
		},
		{
			name:     "second line and unicode columns",
			document: "ok\ncafé teh",
			want: []types.SpellIssue{
				{Word: "teh", Line: 2, StartColumn: 6, EndColumn: 9, Suggestions: []string{"the"}},
			},
		},
		{
			name:     "academic terms",
			document: "By the theorm and its corolary.",
			want: []types.SpellIssue{
				{Word: "theorm", Line: 1, StartColumn: 8, EndColumn: 14, Suggestions: []string{"theorem"}},
				{Word: "corolary", Line: 1, StartColumn: 23, EndColumn: 31, Suggestions: []string{"corollary"}},
			},
		},
		{
			name:     "multi-line math is checked line by line",
			document: "$$\nteh\n$$",
			want: []types.SpellIssue{
				{Word: "teh", Line: 2, StartColumn: 1, EndColumn: 4, Suggestions: []string{"the"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckSpelling(tt.document)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CheckSpelling(%q) mismatch (-want +got):\n%s", tt.document, diff)
			}
		})
	}
}

func TestChecker_UnifiedMath(t *testing.T) {
	doc := "$$\nteh\n$$ and teh"
	c := NewChecker(nil, nil, Options{UnifiedMath: true})

	got := c.Check(doc)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Line)
	assert.Equal(t, 8, got[0].StartColumn)
}

func TestChecker_CustomDictionarySkipsTechnicalTokens(t *testing.T) {
	dict := NewDictionary(map[string]string{"latex": "LaTeX", "foo": "bar"})
	c := NewChecker(dict, nil, Options{})

	got := c.Check("LaTex and latex")
	require.Len(t, got, 1)
	assert.Equal(t, "latex", got[0].Word)
	assert.Equal(t, []string{"LaTeX"}, got[0].Suggestions)
}

func TestCheckSpelling_RecomputedEachCall(t *testing.T) {
	doc := "teh end"
	first := CheckSpelling(doc)
	second := CheckSpelling(doc)
	assert.Equal(t, first, second)
	second[0].Word = "changed"
	assert.Equal(t, "teh", CheckSpelling(doc)[0].Word)
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"ab", true},
		{"a", true},
		{`\cmd`, true},
		{"123", true},
		{"NASA", true},
		{"var1", true},
		{"LaTeX", true},
		{"McDonald", true},
		{"word", false},
		{"Word", false},
		{"teh", false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldSkip(tt.word))
		})
	}
}

func TestMatchCase(t *testing.T) {
	assert.Equal(t, "The", matchCase("Teh", "the"))
	assert.Equal(t, "the", matchCase("teh", "the"))
	assert.Equal(t, "LaTeX", matchCase("latex", "LaTeX"))
	assert.Equal(t, "LaTeX", matchCase("Latex", "LaTeX"))
	assert.Equal(t, "", matchCase("Teh", ""))
}

func TestStripMarkup_PreservesLength(t *testing.T) {
	lines := []string{
		`\section*[short]{A title} with $x^2$ and \(y\) % comment`,
		`naïve \emph{café} \\[2pt] text`,
		`\documentclass[11pt]{article}`,
		"",
	}
	for _, line := range lines {
		assert.Len(t, StripMarkup(line), len(line), "line %q", line)
	}
}

func TestStripMarkup(t *testing.T) {
	got := StripMarkup(`\emph{word} $x$ \cite{key} more`)
	assert.Equal(t, "      word                 more", got)
}

func TestSuggest(t *testing.T) {
	t.Run("known misspelling first", func(t *testing.T) {
		got := Suggest("teh")
		require.NotEmpty(t, got)
		assert.Equal(t, "the", got[0])
		assert.LessOrEqual(t, len(got), DefaultMaxSuggestions)
	})

	t.Run("capitalization follows the input", func(t *testing.T) {
		got := Suggest("Teorem")
		require.NotEmpty(t, got)
		assert.Equal(t, "Theorem", got[0])
	})

	t.Run("empty word", func(t *testing.T) {
		assert.Nil(t, Suggest(""))
		assert.Nil(t, Suggest("   "))
	})

	t.Run("no duplicates", func(t *testing.T) {
		got := Suggest("qick")
		seen := map[string]bool{}
		for _, s := range got {
			assert.False(t, seen[s], "duplicate suggestion %q", s)
			seen[s] = true
		}
	})
}

func TestChecker_SuggestFallback(t *testing.T) {
	dict := NewDictionary(map[string]string{"teorem": "theorem", "lemmma": "lemma"})
	c := NewChecker(dict, nil, Options{})

	assert.Equal(t, []string{"theorem"}, c.Suggest("theorm"))
	assert.Equal(t, []string{"Theorem"}, c.Suggest("Theorm"))
	assert.Equal(t, []string{"theorem"}, c.Suggest("theorem"))
	assert.Empty(t, c.Suggest("zzzzzzzz"))
}

func TestChecker_SuggestCorrectWordComesFirst(t *testing.T) {
	dict := NewDictionary(map[string]string{"teh": "the", "thier": "their", "taht": "that"})
	c := NewChecker(dict, nil, Options{})

	// the=0, that=2, their=2
	assert.Equal(t, []string{"the", "that", "their"}, c.Suggest("the"))
	assert.Equal(t, []string{"The", "That", "Their"}, c.Suggest("The"))

	got := Suggest("the")
	require.NotEmpty(t, got)
	assert.Equal(t, "the", got[0])
}

func TestChecker_PluggableScorer(t *testing.T) {
	dict := NewDictionary(map[string]string{"aa": "gamma", "bb": "alpha", "cc": "beta"})
	always := ScorerFunc(func(word, candidate string) int { return 0 })
	c := NewChecker(dict, always, Options{MaxSuggestions: 2})

	assert.Equal(t, []string{"alpha", "beta"}, c.Suggest("zzz"))
}

func TestChecker_SuggestOrdersByDistance(t *testing.T) {
	dict := NewDictionary(map[string]string{"x1": "cart", "x2": "cat", "x3": "chart"})
	c := NewChecker(dict, nil, Options{})

	// cat=1, cart=2, chart=3 (dropped)
	assert.Equal(t, []string{"cat", "cart"}, c.Suggest("ca"))
}
