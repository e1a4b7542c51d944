package bookmarktree

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a node ID does not exist.
var ErrNotFound = errors.New("bookmark node not found")

// Node is one entry in the bookmark tree. A node without a URL is a folder.
type Node struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId"` // empty = tree root
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n Node) IsFolder() bool {
	return n.URL == ""
}

// EventKind distinguishes bookmark lifecycle events.
type EventKind int

const (
	EventCreated EventKind = iota
	EventMoved
)

// Event is a bookmark tree mutation, published for the organizer to consume.
type Event struct {
	Kind EventKind
	Node Node
}

// Tree is the bookmark tree surface the organizer and resync engine work
// against. Implementations are keyed by opaque string identifiers.
type Tree interface {
	// Roots returns the top-level containers in fixed order.
	Roots() ([]Node, error)
	// Get returns the node with the given ID.
	Get(id string) (Node, error)
	// Children returns the direct children of a node in insertion order.
	Children(parentID string) ([]Node, error)
	// Create adds a bookmark (url non-empty) or folder (url empty) under
	// parentID.
	Create(parentID, title, url string) (Node, error)
	// Move reparents a node.
	Move(id, parentID string) (Node, error)
	// RemoveTree deletes a node and its entire subtree.
	RemoveTree(id string) error
}

// Poll periodically scans the direct children of rootID and emits a
// synthetic Created event for every bookmark found there, feeding them into
// the organizer's queue. Bookmarks the organizer has already filed live
// inside tag folders and never show up in this scan, so a failed
// classification is naturally retried on the next tick.
func Poll(ctx context.Context, t Tree, rootID string, every time.Duration, events chan<- Event) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			children, err := t.Children(rootID)
			if err != nil {
				continue
			}
			for _, child := range children {
				if child.IsFolder() {
					continue
				}
				select {
				case events <- Event{Kind: EventCreated, Node: child}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
