package bookmarktree_test

import (
	"path/filepath"
	"testing"

	"github.com/tagmark/tagmark/internal/bookmarktree"
)

func openTree(t *testing.T) *bookmarktree.SQLiteTree {
	t.Helper()
	tree, err := bookmarktree.Open(filepath.Join(t.TempDir(), "tree.db"))
	if err != nil {
		t.Fatalf("failed to open tree: %v", err)
	}
	t.Cleanup(func() { tree.Close() })
	return tree
}

func TestOpen_SeedsRoots(t *testing.T) {
	tree := openTree(t)

	roots, err := tree.Roots()
	if err != nil {
		t.Fatalf("Roots failed: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].Title != "Bookmarks Bar" {
		t.Errorf("first root = %q", roots[0].Title)
	}
	if roots[1].Title != "Other Bookmarks" {
		t.Errorf("second root = %q", roots[1].Title)
	}
	if !roots[1].IsFolder() {
		t.Error("roots must be folders")
	}
}

func TestOpen_SeedsOnce(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tree.db")

	tree, err := bookmarktree.Open(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	tree.Close()

	tree, err = bookmarktree.Open(path)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer tree.Close()

	roots, err := tree.Roots()
	if err != nil {
		t.Fatalf("Roots failed: %v", err)
	}
	if len(roots) != 2 {
		t.Errorf("roots were re-seeded: got %d", len(roots))
	}
}

func TestCreateAndChildren(t *testing.T) {
	tree := openTree(t)
	roots, _ := tree.Roots()
	root := roots[1]

	folder, err := tree.Create(root.ID, "Tech", "")
	if err != nil {
		t.Fatalf("Create folder failed: %v", err)
	}
	if !folder.IsFolder() {
		t.Error("expected folder node")
	}

	bookmark, err := tree.Create(root.ID, "Example", "https://example.com")
	if err != nil {
		t.Fatalf("Create bookmark failed: %v", err)
	}
	if bookmark.IsFolder() {
		t.Error("expected bookmark node")
	}

	children, err := tree.Children(root.ID)
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	// Insertion order is preserved.
	if children[0].ID != folder.ID || children[1].ID != bookmark.ID {
		t.Error("children not in insertion order")
	}
}

func TestCreate_UnknownParent(t *testing.T) {
	tree := openTree(t)

	if _, err := tree.Create("missing", "X", ""); err != bookmarktree.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMove(t *testing.T) {
	tree := openTree(t)
	roots, _ := tree.Roots()
	root := roots[1]

	folder, _ := tree.Create(root.ID, "Tech", "")
	bookmark, _ := tree.Create(root.ID, "Example", "https://example.com")

	moved, err := tree.Move(bookmark.ID, folder.ID)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.ParentID != folder.ID {
		t.Errorf("parent = %q, want %q", moved.ParentID, folder.ID)
	}

	rootChildren, _ := tree.Children(root.ID)
	if len(rootChildren) != 1 {
		t.Errorf("bookmark should have left the root, still %d children", len(rootChildren))
	}
	folderChildren, _ := tree.Children(folder.ID)
	if len(folderChildren) != 1 {
		t.Errorf("bookmark should be inside the folder")
	}
}

func TestRemoveTree_Recursive(t *testing.T) {
	tree := openTree(t)
	roots, _ := tree.Roots()
	root := roots[1]

	folder, _ := tree.Create(root.ID, "Tech", "")
	inner, _ := tree.Create(folder.ID, "Go", "")
	tree.Create(inner.ID, "Example", "https://example.com")

	if err := tree.RemoveTree(folder.ID); err != nil {
		t.Fatalf("RemoveTree failed: %v", err)
	}

	if _, err := tree.Get(folder.ID); err != bookmarktree.ErrNotFound {
		t.Error("folder should be gone")
	}
	if _, err := tree.Get(inner.ID); err != bookmarktree.ErrNotFound {
		t.Error("nested folder should be gone")
	}

	children, _ := tree.Children(root.ID)
	if len(children) != 0 {
		t.Errorf("root should be empty, got %d children", len(children))
	}
}

func TestEvents(t *testing.T) {
	tree := openTree(t)
	roots, _ := tree.Roots()
	root := roots[1]

	created, _ := tree.Create(root.ID, "Example", "https://example.com")

	select {
	case ev := <-tree.Events():
		if ev.Kind != bookmarktree.EventCreated || ev.Node.ID != created.ID {
			t.Errorf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected a Created event")
	}

	folder, _ := tree.Create(root.ID, "Tech", "")
	<-tree.Events() // folder Created

	tree.Move(created.ID, folder.ID)
	select {
	case ev := <-tree.Events():
		if ev.Kind != bookmarktree.EventMoved || ev.Node.ParentID != folder.ID {
			t.Errorf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected a Moved event")
	}
}
