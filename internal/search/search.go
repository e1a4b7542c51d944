package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/tagmark/tagmark/internal/tagindex"
)

// Result represents a fuzzy search match.
type Result struct {
	Entry          tagindex.Entry
	MatchedIndexes []int
	Score          int
}

// entryTitles implements fuzzy.Source over index entries.
type entryTitles []tagindex.Entry

func (et entryTitles) String(i int) string {
	return et[i].Title
}

func (et entryTitles) Len() int {
	return len(et)
}

// Entries flattens the index to one entry per URL. A bookmark carrying five
// tags appears five times in the index but only once here; tags are walked
// in popularity order, so the surviving copy comes from the bookmark's most
// popular tag.
func Entries(ix *tagindex.Index) []tagindex.Entry {
	seen := map[string]bool{}
	var entries []tagindex.Entry
	for _, tag := range ix.TagsByCount() {
		for _, e := range ix.Tags[tag] {
			if seen[e.URL] {
				continue
			}
			seen[e.URL] = true
			entries = append(entries, e)
		}
	}
	return entries
}

// Fuzzy searches the index by bookmark title using fuzzy matching.
// Returns results sorted by match score (best first).
func Fuzzy(ix *tagindex.Index, query string) []Result {
	if query == "" {
		return nil
	}

	entries := entryTitles(Entries(ix))
	matches := fuzzy.FindFrom(query, entries)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Entry:          entries[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}
