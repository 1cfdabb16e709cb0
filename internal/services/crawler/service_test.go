package crawler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordScrape_RedirectAliasNotInActiveSet(t *testing.T) {
	var mu sync.Mutex
	visited := make(map[string]bool)
	saved := make(map[string]bool)
	summary := &RunSummary{}

	requested := "https://grand.example.com/rooms"
	final := "https://grand.example.com/en/rooms"

	ok := recordScrape(&mu, visited, saved, summary, requested, final)
	assert.True(t, ok)

	assert.True(t, visited[requested], "requested URL dedupes later queue items")
	assert.True(t, visited[final])
	assert.True(t, saved[final])
	assert.False(t, saved[requested], "pre-redirect alias is never part of the active set")
	assert.Equal(t, 1, summary.PagesScraped)
}

func TestRecordScrape_DuplicateFinalURLSkipped(t *testing.T) {
	var mu sync.Mutex
	visited := make(map[string]bool)
	saved := make(map[string]bool)
	summary := &RunSummary{}

	final := "https://grand.example.com/en/dining"

	assert.True(t, recordScrape(&mu, visited, saved, summary, "https://grand.example.com/dining", final))
	assert.False(t, recordScrape(&mu, visited, saved, summary, "https://grand.example.com/restaurant", final))

	assert.Equal(t, 1, summary.PagesScraped)
	assert.Equal(t, 1, summary.PagesSkipped)
	assert.Len(t, saved, 1)
}
