package resync_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tagmark/tagmark/internal/bookmarktree"
	"github.com/tagmark/tagmark/internal/model"
	"github.com/tagmark/tagmark/internal/resync"
	"github.com/tagmark/tagmark/internal/tagindex"
)

type fakeTree struct {
	nodes  map[string]bookmarktree.Node
	order  []string
	nextID int

	// failCreate makes Create fail for the given folder title.
	failCreate string
}

func newFakeTree() *fakeTree {
	t := &fakeTree{nodes: map[string]bookmarktree.Node{}}
	t.add(bookmarktree.Node{ID: "root-1", Title: "Bookmarks Bar"})
	t.add(bookmarktree.Node{ID: "root-2", Title: "Other Bookmarks"})
	return t
}

func (t *fakeTree) add(n bookmarktree.Node) {
	t.nodes[n.ID] = n
	t.order = append(t.order, n.ID)
}

func (t *fakeTree) Roots() ([]bookmarktree.Node, error) {
	return []bookmarktree.Node{t.nodes["root-1"], t.nodes["root-2"]}, nil
}

func (t *fakeTree) Get(id string) (bookmarktree.Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return bookmarktree.Node{}, bookmarktree.ErrNotFound
	}
	return n, nil
}

func (t *fakeTree) Children(parentID string) ([]bookmarktree.Node, error) {
	var out []bookmarktree.Node
	for _, id := range t.order {
		if n, ok := t.nodes[id]; ok && n.ParentID == parentID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (t *fakeTree) Create(parentID, title, url string) (bookmarktree.Node, error) {
	if url == "" && title == t.failCreate {
		return bookmarktree.Node{}, errors.New("create refused")
	}
	t.nextID++
	n := bookmarktree.Node{
		ID:       fmt.Sprintf("node-%d", t.nextID),
		ParentID: parentID,
		Title:    title,
		URL:      url,
	}
	t.add(n)
	return n, nil
}

func (t *fakeTree) Move(id, parentID string) (bookmarktree.Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return bookmarktree.Node{}, bookmarktree.ErrNotFound
	}
	n.ParentID = parentID
	t.nodes[id] = n
	return n, nil
}

func (t *fakeTree) RemoveTree(id string) error {
	delete(t.nodes, id)
	for cid, n := range t.nodes {
		if n.ParentID == id {
			_ = t.RemoveTree(cid)
		}
	}
	return nil
}

type fakeSource struct {
	bookmarks []model.BookmarkResponse
	err       error
}

func (s *fakeSource) All(ctx context.Context) ([]model.BookmarkResponse, error) {
	return s.bookmarks, s.err
}

func tagged(id int64, url, title, primary string) model.BookmarkResponse {
	return model.BookmarkResponse{
		ID: id, URL: url, Title: title, PrimaryTag: primary,
		Tags: []model.Tag{{Name: primary, Confidence: 0.9}},
	}
}

func indexPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "bookmarkdata.json")
}

func TestRun(t *testing.T) {
	tree := newFakeTree()
	// Pre-existing folders and a loose bookmark under the root.
	stale, _ := tree.Create("root-2", "Stale", "")
	tree.Create(stale.ID, "Old", "https://old.example.com")
	loose, _ := tree.Create("root-2", "Loose", "https://loose.example.com")

	src := &fakeSource{bookmarks: []model.BookmarkResponse{
		tagged(1, "https://example.com/a", "A", "Tech"),
		tagged(2, "https://example.com/b", "B", "News"),
		tagged(3, "https://example.com/c", "C", "Tech"),
		{ID: 4, URL: "https://example.com/d", Title: "D"}, // no primary tag
	}}
	ix := tagindex.New()

	result, err := resync.New(tree, src, ix, indexPath(t), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Success != 3 || result.Failed != 0 || result.NothingToSync {
		t.Errorf("result = %+v", result)
	}

	if _, err := tree.Get(stale.ID); !errors.Is(err, bookmarktree.ErrNotFound) {
		t.Error("stale folder survived")
	}
	if _, err := tree.Get(loose.ID); err != nil {
		t.Error("loose bookmark was removed")
	}

	children, _ := tree.Children("root-2")
	var folders []string
	for _, c := range children {
		if c.IsFolder() {
			folders = append(folders, c.Title)
		}
	}
	if len(folders) != 2 || folders[0] != "Tech" || folders[1] != "News" {
		t.Errorf("rebuilt folders = %v", folders)
	}

	// Index mirrors the full server set, untagged bookmark included.
	if ix.Total() != 3 {
		t.Errorf("index total = %d, want 3", ix.Total())
	}
}

func TestRun_ProgressReachesTotal(t *testing.T) {
	tree := newFakeTree()
	src := &fakeSource{bookmarks: []model.BookmarkResponse{
		tagged(1, "https://example.com/a", "A", "Tech"),
		tagged(2, "https://example.com/b", "B", "News"),
		{ID: 3, URL: "https://example.com/c", Title: "C"}, // skipped
	}}

	var ticks []int
	var total int
	progress := func(p, t int) {
		ticks = append(ticks, p)
		total = t
	}

	_, err := resync.New(tree, src, tagindex.New(), indexPath(t), progress).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if total != 2 {
		t.Errorf("total = %d, want 2 (untagged bookmarks excluded)", total)
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] <= ticks[i-1] {
			t.Errorf("progress not monotone: %v", ticks)
		}
	}
	if len(ticks) == 0 || ticks[len(ticks)-1] != total {
		t.Errorf("progress ended at %v, want %d", ticks, total)
	}
}

func TestRun_NothingToSync(t *testing.T) {
	tree := newFakeTree()
	keep, _ := tree.Create("root-2", "Keep", "")

	result, err := resync.New(tree, &fakeSource{}, tagindex.New(), indexPath(t), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.NothingToSync {
		t.Error("expected NothingToSync")
	}
	if _, err := tree.Get(keep.ID); err != nil {
		t.Error("folders must survive an empty resync")
	}
}

func TestRun_FetchErrorAborts(t *testing.T) {
	tree := newFakeTree()
	keep, _ := tree.Create("root-2", "Keep", "")

	src := &fakeSource{err: errors.New("network down")}
	_, err := resync.New(tree, src, tagindex.New(), indexPath(t), nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := tree.Get(keep.ID); err != nil {
		t.Error("folders must survive an aborted resync")
	}
}

func TestRun_FolderFailureFailsGroup(t *testing.T) {
	tree := newFakeTree()
	tree.failCreate = "Tech"

	src := &fakeSource{bookmarks: []model.BookmarkResponse{
		tagged(1, "https://example.com/a", "A", "Tech"),
		tagged(2, "https://example.com/b", "B", "Tech"),
		tagged(3, "https://example.com/c", "C", "News"),
	}}

	var last, total int
	progress := func(p, t int) { last, total = p, t }

	result, err := resync.New(tree, src, tagindex.New(), indexPath(t), progress).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Failed != 2 || result.Success != 1 {
		t.Errorf("result = %+v", result)
	}
	if last != total || total != 3 {
		t.Errorf("progress ended at %d/%d, want 3/3", last, total)
	}
}

func TestRun_UntitledBookmarkUsesURL(t *testing.T) {
	tree := newFakeTree()
	src := &fakeSource{bookmarks: []model.BookmarkResponse{
		tagged(1, "https://example.com/a", "", "Tech"),
	}}

	if _, err := resync.New(tree, src, tagindex.New(), indexPath(t), nil).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	children, _ := tree.Children("root-2")
	folder := children[len(children)-1]
	items, _ := tree.Children(folder.ID)
	if len(items) != 1 || items[0].Title != "https://example.com/a" {
		t.Errorf("items = %+v", items)
	}
}
