package spell

import (
	"sort"
	"strings"
	"sync"

	"offleaf/internal/types"
)

// IgnoreList is a session-scoped set of words the user dismissed. Words are
// stored lower-cased. The checker never consults it; callers filter issues
// with Filter after each check.
type IgnoreList struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

// NewIgnoreList creates an IgnoreList seeded with words.
func NewIgnoreList(words ...string) *IgnoreList {
	l := &IgnoreList{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		l.Add(w)
	}
	return l
}

// Add dismisses word for the rest of the session.
func (l *IgnoreList) Add(word string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.words[word] = struct{}{}
}

// Contains reports whether word was dismissed, ignoring case.
func (l *IgnoreList) Contains(word string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.words[strings.ToLower(word)]
	return ok
}

// Clear forgets every dismissed word.
func (l *IgnoreList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.words = make(map[string]struct{})
}

// Words returns the dismissed words in sorted order.
func (l *IgnoreList) Words() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.words))
	for w := range l.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Filter returns the issues whose word is not dismissed. The input slice is
// not modified.
func (l *IgnoreList) Filter(issues []types.SpellIssue) []types.SpellIssue {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.SpellIssue, 0, len(issues))
	for _, issue := range issues {
		if _, ok := l.words[strings.ToLower(issue.Word)]; ok {
			continue
		}
		out = append(out, issue)
	}
	return out
}
