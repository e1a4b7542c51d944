package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tagmark/tagmark/internal/model"
)

// ErrNoTags is returned when a save carries an empty tag list.
// A bookmark is never persisted untagged.
var ErrNoTags = errors.New("at least one tag is required to save a bookmark")

// Store is the SQLite-backed bookmark record store. It owns the canonical
// bookmark set: one row per URL, tags deduplicated by canonical name.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and if necessary creates) the record store at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
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

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (s *Store) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			title TEXT,
			description TEXT,
			og_title TEXT,
			og_description TEXT,
			og_type TEXT,
			extracted_text TEXT,
			primary_tag TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_created_at ON bookmarks(created_at);

		CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			canonical_name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS bookmark_tags (
			bookmark_id INTEGER NOT NULL,
			tag_id INTEGER NOT NULL,
			confidence REAL NOT NULL,
			UNIQUE(bookmark_id, tag_id),
			FOREIGN KEY (bookmark_id) REFERENCES bookmarks(id) ON DELETE CASCADE,
			FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
		);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveBookmark persists a newly classified bookmark together with its tags.
// The first classification of a URL sticks: if a bookmark with this URL
// already exists, the stored record is returned untouched and the incoming
// metadata and tags are ignored.
func (s *Store) SaveBookmark(ctx context.Context, meta model.Metadata, tags []model.Tag) (*model.BookmarkResponse, error) {
	if len(tags) == 0 {
		return nil, ErrNoTags
	}
	primaryTag := tags[0].Name

	existing, err := s.bookmarkByURL(ctx, meta.URL)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		existingTags, err := s.bookmarkTags(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		existing.Tags = existingTags
		return existing, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookmarks (url, title, description, og_title, og_description, og_type, extracted_text, primary_tag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		meta.URL,
		nullable(meta.Title),
		nullable(meta.Description),
		nullable(meta.OGTitle),
		nullable(meta.OGDescription),
		nullable(meta.OGType),
		nullable(meta.ExtractedText),
		primaryTag,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}

	bookmarkID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	for _, tag := range tags {
		if err := upsertTag(ctx, tx, bookmarkID, tag); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.BookmarkResponse{
		ID:         bookmarkID,
		URL:        meta.URL,
		Title:      meta.BestTitle(),
		PrimaryTag: primaryTag,
		Tags:       tags,
	}, nil
}

// upsertTag resolves the tag identity by canonical name and attaches it to
// the bookmark. Reusing a tag overwrites its display name with the incoming
// rendering, so the stored name always reflects the latest classification
// language. The uniqueness constraint on canonical_name makes concurrent
// creates converge on a single row.
func upsertTag(ctx context.Context, tx *sql.Tx, bookmarkID int64, tag model.Tag) error {
	canonical := tag.Canonical()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO tags (name, canonical_name) VALUES (?, ?)
		ON CONFLICT(canonical_name) DO UPDATE SET name = excluded.name
	`, tag.Name, canonical)
	if err != nil {
		return err
	}

	var tagID int64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM tags WHERE canonical_name = ?", canonical,
	).Scan(&tagID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO bookmark_tags (bookmark_id, tag_id, confidence)
		VALUES (?, ?, ?)
	`, bookmarkID, tagID, tag.Confidence)
	return err
}

// AllBookmarks returns every bookmark newest-first, each with its full tag
// list ordered confidence-descending.
func (s *Store) AllBookmarks(ctx context.Context) ([]model.BookmarkResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, primary_tag
		FROM bookmarks
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []model.BookmarkResponse
	for rows.Next() {
		var b model.BookmarkResponse
		var title sql.NullString

		if err := rows.Scan(&b.ID, &b.URL, &title, &b.PrimaryTag); err != nil {
			return nil, err
		}
		if title.Valid {
			b.Title = title.String
		} else {
			b.Title = b.URL
		}

		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookmarks {
		tags, err := s.bookmarkTags(ctx, bookmarks[i].ID)
		if err != nil {
			return nil, err
		}
		bookmarks[i].Tags = tags
	}

	return bookmarks, nil
}

// bookmarkByURL loads a bookmark row by its unique URL. Returns nil when
// no row matches.
func (s *Store) bookmarkByURL(ctx context.Context, url string) (*model.BookmarkResponse, error) {
	var b model.BookmarkResponse
	var title sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, primary_tag FROM bookmarks WHERE url = ?
	`, url).Scan(&b.ID, &b.URL, &title, &b.PrimaryTag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if title.Valid {
		b.Title = title.String
	} else {
		b.Title = b.URL
	}
	return &b, nil
}

// bookmarkTags returns a bookmark's tags ordered confidence-descending.
func (s *Store) bookmarkTags(ctx context.Context, bookmarkID int64) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, bt.confidence
		FROM tags t
		JOIN bookmark_tags bt ON t.id = bt.tag_id
		WHERE bt.bookmark_id = ?
		ORDER BY bt.confidence DESC
	`, bookmarkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.Name, &t.Confidence); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
