package tagindex

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tagmark/tagmark/internal/model"
)

// Entry is one bookmark reference under a tag.
type Entry struct {
	ID    int64  `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Index is the local tag-to-bookmarks cache used for browsing without a
// network call. It is not authoritative: it can drift from the server
// (a remotely renamed tag keeps its old name here as a separate key) and
// is only guaranteed consistent right after a full resync.
type Index struct {
	Tags     map[string][]Entry `json:"tags"`
	LastSync time.Time          `json:"lastSync"`
}

// New creates an empty index.
func New() *Index {
	return &Index{Tags: map[string][]Entry{}}
}

// Load reads the index from the JSON file.
// Returns an empty index if the file doesn't exist.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, err
	}

	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, err
	}
	if ix.Tags == nil {
		ix.Tags = map[string][]Entry{}
	}
	return &ix, nil
}

// Save writes the index to the JSON file.
// Creates the directory if it doesn't exist.
func (ix *Index) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Merge appends the bookmark under each of its tag names, unless that URL
// is already present under the tag. Display names are taken as-is, so a
// tag renamed remotely lands under a new key.
func (ix *Index) Merge(b model.BookmarkResponse) {
	for _, tag := range b.Tags {
		if ix.contains(tag.Name, b.URL) {
			continue
		}
		ix.Tags[tag.Name] = append(ix.Tags[tag.Name], Entry{
			ID:    b.ID,
			URL:   b.URL,
			Title: b.Title,
		})
	}
	ix.LastSync = time.Now()
}

// ReplaceAll rebuilds the index wholesale from the full remote bookmark
// set. This is the one operation after which the index matches the server.
func (ix *Index) ReplaceAll(bookmarks []model.BookmarkResponse) {
	ix.Tags = map[string][]Entry{}
	for _, b := range bookmarks {
		for _, tag := range b.Tags {
			ix.Tags[tag.Name] = append(ix.Tags[tag.Name], Entry{
				ID:    b.ID,
				URL:   b.URL,
				Title: b.Title,
			})
		}
	}
	ix.LastSync = time.Now()
}

// TagsByCount returns the tag names ordered by bookmark count descending,
// ties broken alphabetically.
func (ix *Index) TagsByCount() []string {
	names := make([]string, 0, len(ix.Tags))
	for name := range ix.Tags {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := len(ix.Tags[names[i]]), len(ix.Tags[names[j]])
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})
	return names
}

// Total returns the number of entries across all tags.
func (ix *Index) Total() int {
	total := 0
	for _, entries := range ix.Tags {
		total += len(entries)
	}
	return total
}

func (ix *Index) contains(tagName, url string) bool {
	for _, e := range ix.Tags[tagName] {
		if e.URL == url {
			return true
		}
	}
	return false
}

// DefaultIndexPath returns the default index path: ~/.config/tagmark/bookmarkdata.json
func DefaultIndexPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tagmark", "bookmarkdata.json"), nil
}
