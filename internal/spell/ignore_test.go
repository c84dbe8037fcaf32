package spell

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"offleaf/internal/types"
)

func TestIgnoreList(t *testing.T) {
	l := NewIgnoreList("Teh", "  ")

	assert.True(t, l.Contains("teh"))
	assert.True(t, l.Contains("TEH"))
	assert.False(t, l.Contains("qick"))
	assert.Equal(t, []string{"teh"}, l.Words())

	l.Add("qick")
	l.Add("")
	assert.Equal(t, []string{"qick", "teh"}, l.Words())

	l.Clear()
	assert.False(t, l.Contains("teh"))
	assert.Empty(t, l.Words())
}

func TestIgnoreList_Filter(t *testing.T) {
	issues := []types.SpellIssue{
		{Word: "teh", Line: 1, StartColumn: 1, EndColumn: 4},
		{Word: "Qick", Line: 1, StartColumn: 5, EndColumn: 9},
	}
	l := NewIgnoreList("qick")

	got := l.Filter(issues)
	assert.Equal(t, issues[:1], got)
	assert.Len(t, issues, 2)
}

func TestIgnoreList_DoesNotChangeChecker(t *testing.T) {
	doc := "teh end"
	before := CheckSpelling(doc)

	l := NewIgnoreList()
	l.Add("teh")

	assert.Equal(t, before, CheckSpelling(doc))
	assert.Empty(t, l.Filter(CheckSpelling(doc)))
}

func TestIgnoreList_Concurrent(t *testing.T) {
	l := NewIgnoreList()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Add("teh")
			_ = l.Contains("teh")
			_ = l.Words()
		}()
	}
	wg.Wait()
	assert.True(t, l.Contains("teh"))
}
