package bookmarktree

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Default root containers, seeded on first open. The organizer's working
// area is the second one, mirroring the browser convention.
var defaultRoots = []string{"Bookmarks Bar", "Other Bookmarks"}

// SQLiteTree is a local bookmark tree persisted in SQLite. Create and Move
// publish events to a buffered channel consumed by the organizer
// dispatcher; events are dropped when nobody is draining the channel.
type SQLiteTree struct {
	db     *sql.DB
	path   string
	events chan Event
}

// Open opens (and if necessary creates and seeds) the tree at path.
func Open(path string) (*SQLiteTree, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	t := &SQLiteTree{
		db:     db,
		path:   path,
		events: make(chan Event, 64),
	}
	if err := t.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := t.seedRoots(); err != nil {
		db.Close()
		return nil, err
	}

	return t, nil
}

// Path returns the database file path.
func (t *SQLiteTree) Path() string {
	return t.path
}

// Close closes the database connection.
func (t *SQLiteTree) Close() error {
	return t.db.Close()
}

// Events returns the mutation event channel.
func (t *SQLiteTree) Events() <-chan Event {
	return t.events
}

func (t *SQLiteTree) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_parent_id ON nodes(parent_id);
	`
	_, err := t.db.Exec(schema)
	return err
}

// seedRoots inserts the fixed root containers into an empty tree.
func (t *SQLiteTree) seedRoots() error {
	var count int
	if err := t.db.QueryRow("SELECT COUNT(*) FROM nodes WHERE parent_id = ''").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, title := range defaultRoots {
		if _, err := t.db.Exec(
			"INSERT INTO nodes (id, parent_id, title, url) VALUES (?, '', ?, '')",
			uuid.New().String(), title,
		); err != nil {
			return err
		}
	}
	return nil
}

// Roots returns the top-level containers in seed order.
func (t *SQLiteTree) Roots() ([]Node, error) {
	return t.Children("")
}

// Get returns the node with the given ID.
func (t *SQLiteTree) Get(id string) (Node, error) {
	var n Node
	err := t.db.QueryRow(
		"SELECT id, parent_id, title, url FROM nodes WHERE id = ?", id,
	).Scan(&n.ID, &n.ParentID, &n.Title, &n.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return Node{}, ErrNotFound
	}
	if err != nil {
		return Node{}, err
	}
	return n, nil
}

// Children returns the direct children of a node in insertion order.
func (t *SQLiteTree) Children(parentID string) ([]Node, error) {
	rows, err := t.db.Query(
		"SELECT id, parent_id, title, url FROM nodes WHERE parent_id = ? ORDER BY rowid", parentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Title, &n.URL); err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	return children, rows.Err()
}

// Create adds a node under parentID and publishes a Created event.
func (t *SQLiteTree) Create(parentID, title, url string) (Node, error) {
	if parentID != "" {
		if _, err := t.Get(parentID); err != nil {
			return Node{}, err
		}
	}

	n := Node{
		ID:       uuid.New().String(),
		ParentID: parentID,
		Title:    title,
		URL:      url,
	}
	if _, err := t.db.Exec(
		"INSERT INTO nodes (id, parent_id, title, url) VALUES (?, ?, ?, ?)",
		n.ID, n.ParentID, n.Title, n.URL,
	); err != nil {
		return Node{}, err
	}

	t.publish(Event{Kind: EventCreated, Node: n})
	return n, nil
}

// Move reparents a node and publishes a Moved event.
func (t *SQLiteTree) Move(id, parentID string) (Node, error) {
	if _, err := t.Get(parentID); err != nil {
		return Node{}, err
	}

	res, err := t.db.Exec("UPDATE nodes SET parent_id = ? WHERE id = ?", parentID, id)
	if err != nil {
		return Node{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Node{}, err
	}
	if affected == 0 {
		return Node{}, ErrNotFound
	}

	n, err := t.Get(id)
	if err != nil {
		return Node{}, err
	}

	t.publish(Event{Kind: EventMoved, Node: n})
	return n, nil
}

// RemoveTree deletes a node and its entire subtree.
func (t *SQLiteTree) RemoveTree(id string) error {
	res, err := t.db.Exec(`
		DELETE FROM nodes WHERE id IN (
			WITH RECURSIVE subtree(id) AS (
				SELECT ?
				UNION ALL
				SELECT n.id FROM nodes n JOIN subtree s ON n.parent_id = s.id
			)
			SELECT id FROM subtree
		)
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// publish sends an event without ever blocking a tree mutation.
func (t *SQLiteTree) publish(ev Event) {
	select {
	case t.events <- ev:
	default:
	}
}

// DefaultTreePath returns the default tree path: ~/.config/tagmark/tree.db
func DefaultTreePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tagmark", "tree.db"), nil
}
