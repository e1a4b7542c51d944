package tagindex_test

import (
	"path/filepath"
	"testing"

	"github.com/tagmark/tagmark/internal/model"
	"github.com/tagmark/tagmark/internal/tagindex"
)

func TestMerge(t *testing.T) {
	ix := tagindex.New()

	ix.Merge(model.BookmarkResponse{
		ID:    1,
		URL:   "https://example.com/a",
		Title: "A",
		Tags: []model.Tag{
			{Name: "Tech", Confidence: 0.9},
			{Name: "News", Confidence: 0.4},
		},
	})

	if len(ix.Tags["Tech"]) != 1 || len(ix.Tags["News"]) != 1 {
		t.Fatalf("bookmark should appear under both tags: %+v", ix.Tags)
	}
	if ix.LastSync.IsZero() {
		t.Error("LastSync not bumped")
	}
}

func TestMerge_SkipsDuplicateURLPerTag(t *testing.T) {
	ix := tagindex.New()
	b := model.BookmarkResponse{
		ID:    1,
		URL:   "https://example.com/a",
		Title: "A",
		Tags:  []model.Tag{{Name: "Tech", Confidence: 0.9}},
	}

	ix.Merge(b)
	ix.Merge(b)

	if len(ix.Tags["Tech"]) != 1 {
		t.Errorf("expected 1 entry, got %d", len(ix.Tags["Tech"]))
	}

	// Same URL under a different tag name is a separate key.
	b.Tags = []model.Tag{{Name: "Go", Confidence: 0.8}}
	ix.Merge(b)
	if len(ix.Tags["Go"]) != 1 {
		t.Errorf("expected entry under new tag, got %d", len(ix.Tags["Go"]))
	}
}

func TestReplaceAll(t *testing.T) {
	ix := tagindex.New()
	ix.Merge(model.BookmarkResponse{
		ID: 1, URL: "https://old.example.com", Title: "Old",
		Tags: []model.Tag{{Name: "Stale", Confidence: 0.5}},
	})

	ix.ReplaceAll([]model.BookmarkResponse{
		{ID: 2, URL: "https://example.com/a", Title: "A",
			Tags: []model.Tag{{Name: "Tech", Confidence: 0.9}}},
		{ID: 3, URL: "https://example.com/b", Title: "B",
			Tags: []model.Tag{{Name: "Tech", Confidence: 0.7}}},
	})

	if _, ok := ix.Tags["Stale"]; ok {
		t.Error("stale tag survived ReplaceAll")
	}
	if len(ix.Tags["Tech"]) != 2 {
		t.Errorf("expected 2 entries under Tech, got %d", len(ix.Tags["Tech"]))
	}
	if ix.Total() != 2 {
		t.Errorf("Total() = %d, want 2", ix.Total())
	}
}

func TestTagsByCount(t *testing.T) {
	ix := tagindex.New()
	ix.ReplaceAll([]model.BookmarkResponse{
		{ID: 1, URL: "https://a", Title: "a", Tags: []model.Tag{{Name: "Rare"}}},
		{ID: 2, URL: "https://b", Title: "b", Tags: []model.Tag{{Name: "Common"}}},
		{ID: 3, URL: "https://c", Title: "c", Tags: []model.Tag{{Name: "Common"}}},
		{ID: 4, URL: "https://d", Title: "d", Tags: []model.Tag{{Name: "Also"}}},
	})

	got := ix.TagsByCount()
	want := []string{"Common", "Also", "Rare"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TagsByCount()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarkdata.json")

	ix := tagindex.New()
	ix.Merge(model.BookmarkResponse{
		ID: 1, URL: "https://example.com", Title: "Example",
		Tags: []model.Tag{{Name: "Tech", Confidence: 0.9}},
	})
	if err := ix.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := tagindex.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Tags["Tech"]) != 1 {
		t.Errorf("roundtrip lost entries: %+v", loaded.Tags)
	}
}

func TestLoad_Missing(t *testing.T) {
	ix, err := tagindex.Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ix.Tags == nil || len(ix.Tags) != 0 {
		t.Error("expected empty index for missing file")
	}
}
