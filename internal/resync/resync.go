package resync

import (
	"context"
	"errors"
	"fmt"

	"github.com/tagmark/tagmark/internal/bookmarktree"
	"github.com/tagmark/tagmark/internal/model"
	"github.com/tagmark/tagmark/internal/tagindex"
)

// ErrRootNotFound means the fixed root container is absent.
var ErrRootNotFound = errors.New("root bookmark folder not found")

// Source provides the full remote bookmark set.
type Source interface {
	All(ctx context.Context) ([]model.BookmarkResponse, error)
}

// ProgressFunc receives a tick after every processed bookmark. processed
// counts monotonically up to total, and reaches total exactly when the run
// completes.
type ProgressFunc func(processed, total int)

// Result summarizes a resync run.
type Result struct {
	NothingToSync bool
	Success       int
	Failed        int
}

// Engine rebuilds the local bookmark folders from the server's view.
//
// A run is destructive: every folder directly under the root container is
// removed with its contents, then one folder per primary tag is recreated
// and populated. Bookmarks sitting loose at the root are left alone, and so
// is everything when the server has no bookmarks at all.
type Engine struct {
	tree      bookmarktree.Tree
	api       Source
	index     *tagindex.Index
	indexPath string
	progress  ProgressFunc
}

// New creates an Engine. progress may be nil.
func New(tree bookmarktree.Tree, api Source, index *tagindex.Index, indexPath string, progress ProgressFunc) *Engine {
	if progress == nil {
		progress = func(int, int) {}
	}
	return &Engine{
		tree:      tree,
		api:       api,
		index:     index,
		indexPath: indexPath,
		progress:  progress,
	}
}

// Run executes a full resync. A fetch failure aborts before anything local
// is touched; per-bookmark failures during the rebuild are tallied in the
// result instead of stopping the run.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	bookmarks, err := e.api.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch bookmarks: %w", err)
	}

	tags, groups := groupByPrimaryTag(bookmarks)
	total := 0
	for _, tag := range tags {
		total += len(groups[tag])
	}
	if total == 0 {
		return &Result{NothingToSync: true}, nil
	}

	rootID, err := e.rootFolder()
	if err != nil {
		return nil, err
	}
	if err := e.clearFolders(rootID); err != nil {
		return nil, fmt.Errorf("clear folders: %w", err)
	}

	result := &Result{}
	processed := 0
	for _, tag := range tags {
		group := groups[tag]

		folder, err := e.tree.Create(rootID, tag, "")
		if err != nil {
			// No folder means no home for any bookmark in the group.
			result.Failed += len(group)
			processed += len(group)
			e.progress(processed, total)
			continue
		}

		for _, b := range group {
			title := b.Title
			if title == "" {
				title = b.URL
			}
			if _, err := e.tree.Create(folder.ID, title, b.URL); err != nil {
				result.Failed++
			} else {
				result.Success++
			}
			processed++
			e.progress(processed, total)
		}
	}

	e.index.ReplaceAll(bookmarks)
	if err := e.index.Save(e.indexPath); err != nil {
		return nil, fmt.Errorf("save tag index: %w", err)
	}

	return result, nil
}

// groupByPrimaryTag buckets bookmarks by primary tag, keeping tags in order
// of first appearance. Bookmarks without a primary tag are skipped.
func groupByPrimaryTag(bookmarks []model.BookmarkResponse) ([]string, map[string][]model.BookmarkResponse) {
	var tags []string
	groups := map[string][]model.BookmarkResponse{}
	for _, b := range bookmarks {
		if b.PrimaryTag == "" {
			continue
		}
		if _, ok := groups[b.PrimaryTag]; !ok {
			tags = append(tags, b.PrimaryTag)
		}
		groups[b.PrimaryTag] = append(groups[b.PrimaryTag], b)
	}
	return tags, groups
}

func (e *Engine) rootFolder() (string, error) {
	roots, err := e.tree.Roots()
	if err != nil {
		return "", err
	}
	if len(roots) < 2 {
		return "", ErrRootNotFound
	}
	return roots[1].ID, nil
}

// clearFolders removes every folder directly under the root, subtrees
// included. Loose bookmarks at the root survive.
func (e *Engine) clearFolders(rootID string) error {
	children, err := e.tree.Children(rootID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if !child.IsFolder() {
			continue
		}
		if err := e.tree.RemoveTree(child.ID); err != nil {
			return err
		}
	}
	return nil
}
