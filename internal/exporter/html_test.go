package exporter_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tagmark/tagmark/internal/bookmarktree"
	"github.com/tagmark/tagmark/internal/exporter"
)

type fakeTree struct {
	nodes  map[string]bookmarktree.Node
	order  []string
	nextID int
}

func newFakeTree() *fakeTree {
	t := &fakeTree{nodes: map[string]bookmarktree.Node{}}
	t.nodes["root"] = bookmarktree.Node{ID: "root", Title: "Other Bookmarks"}
	t.order = append(t.order, "root")
	return t
}

func (t *fakeTree) create(parentID, title, url string) bookmarktree.Node {
	t.nextID++
	n := bookmarktree.Node{
		ID:       fmt.Sprintf("node-%d", t.nextID),
		ParentID: parentID,
		Title:    title,
		URL:      url,
	}
	t.nodes[n.ID] = n
	t.order = append(t.order, n.ID)
	return n
}

func (t *fakeTree) Roots() ([]bookmarktree.Node, error) {
	return []bookmarktree.Node{t.nodes["root"]}, nil
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
		if t.nodes[id].ParentID == parentID {
			out = append(out, t.nodes[id])
		}
	}
	return out, nil
}

func (t *fakeTree) Create(parentID, title, url string) (bookmarktree.Node, error) {
	return t.create(parentID, title, url), nil
}

func (t *fakeTree) Move(id, parentID string) (bookmarktree.Node, error) {
	n := t.nodes[id]
	n.ParentID = parentID
	t.nodes[id] = n
	return n, nil
}

func (t *fakeTree) RemoveTree(id string) error {
	delete(t.nodes, id)
	return nil
}

func export(t *testing.T, tree *fakeTree) string {
	t.Helper()
	out, err := exporter.ExportHTML(tree, "root")
	if err != nil {
		t.Fatalf("ExportHTML failed: %v", err)
	}
	return out
}

func TestExportHTML_EmptyTree(t *testing.T) {
	html := export(t, newFakeTree())

	// Should have basic structure even when empty
	if !strings.Contains(html, "<!DOCTYPE NETSCAPE-Bookmark-file-1>") {
		t.Error("expected DOCTYPE declaration")
	}
	if !strings.Contains(html, "<TITLE>Bookmarks</TITLE>") {
		t.Error("expected TITLE element")
	}
	if !strings.Contains(html, "<H1>Bookmarks</H1>") {
		t.Error("expected H1 element")
	}
}

func TestExportHTML_SingleBookmark(t *testing.T) {
	tree := newFakeTree()
	tree.create("root", "GitHub", "https://github.com")

	html := export(t, tree)

	if !strings.Contains(html, `<A HREF="https://github.com"`) {
		t.Error("expected bookmark URL")
	}
	if !strings.Contains(html, "GitHub</A>") {
		t.Error("expected bookmark title")
	}
}

func TestExportHTML_BookmarkInFolder(t *testing.T) {
	tree := newFakeTree()
	folder := tree.create("root", "Development", "")
	tree.create(folder.ID, "GitHub", "https://github.com")

	html := export(t, tree)

	// Folder should come before its bookmark
	folderIdx := strings.Index(html, "Development</H3>")
	bookmarkIdx := strings.Index(html, "GitHub</A>")

	if folderIdx == -1 {
		t.Fatal("folder not found in output")
	}
	if bookmarkIdx == -1 {
		t.Fatal("bookmark not found in output")
	}
	if folderIdx > bookmarkIdx {
		t.Error("expected folder to come before its bookmark")
	}
}

func TestExportHTML_NestedFolders(t *testing.T) {
	tree := newFakeTree()
	dev := tree.create("root", "Development", "")
	react := tree.create(dev.ID, "React", "")
	tree.create(react.ID, "TanStack Router", "https://tanstack.com/router")

	html := export(t, tree)

	devIdx := strings.Index(html, "Development</H3>")
	reactIdx := strings.Index(html, "React</H3>")
	tanstackIdx := strings.Index(html, "TanStack Router</A>")

	if devIdx == -1 || reactIdx == -1 || tanstackIdx == -1 {
		t.Fatal("missing elements in output")
	}
	if devIdx >= reactIdx || reactIdx >= tanstackIdx {
		t.Error("expected proper nesting order: Development > React > TanStack Router")
	}
}

func TestExportHTML_EscapesSpecialCharacters(t *testing.T) {
	tree := newFakeTree()
	tree.create("root", "Test <script>alert('xss')</script>", "https://example.com?foo=bar&baz=qux")

	html := export(t, tree)

	// Title should be escaped
	if strings.Contains(html, "<script>") {
		t.Error("script tag should be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("expected escaped script tag")
	}

	// URL should be escaped
	if strings.Contains(html, "foo=bar&baz") {
		t.Error("ampersand should be escaped in URL")
	}
	if !strings.Contains(html, "foo=bar&amp;baz") {
		t.Error("expected escaped ampersand in URL")
	}
}

func TestExportHTML_MultipleRootItems(t *testing.T) {
	tree := newFakeTree()
	tree.create("root", "Folder A", "")
	tree.create("root", "Folder B", "")
	tree.create("root", "Root Bookmark", "https://example.com")

	html := export(t, tree)

	if !strings.Contains(html, "Folder A</H3>") {
		t.Error("expected Folder A")
	}
	if !strings.Contains(html, "Folder B</H3>") {
		t.Error("expected Folder B")
	}
	if !strings.Contains(html, "Root Bookmark</A>") {
		t.Error("expected root bookmark")
	}
}
