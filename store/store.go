// Package store keeps loaded documents in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jamesprial/go-reddit-posts/pkg/types"
)

// Store is a SQLite-backed document sink. Documents are keyed by
// (post_id, category); saving the same pair again updates it in place.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS documents (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  post_id TEXT NOT NULL,
	  category TEXT NOT NULL,
	  subreddit TEXT NOT NULL,
	  title TEXT NOT NULL,
	  author TEXT NOT NULL,
	  url TEXT NOT NULL,
	  score INTEGER NOT NULL,
	  content TEXT NOT NULL,
	  saved_at TEXT NOT NULL DEFAULT (datetime('now')),
	  UNIQUE (post_id, category)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_subreddit ON documents(subreddit);
	`)
	return err
}

// Save upserts docs in one transaction. A document without a post id is rejected.
func (s *Store) Save(ctx context.Context, docs []types.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO documents (post_id, category, subreddit, title, author, url, score, content)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (post_id, category) DO UPDATE SET
	  subreddit = excluded.subreddit,
	  title = excluded.title,
	  author = excluded.author,
	  url = excluded.url,
	  score = excluded.score,
	  content = excluded.content,
	  saved_at = datetime('now')`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		id := doc.MetaString(types.MetaID)
		if id == "" {
			return fmt.Errorf("document %d has no %s", i, types.MetaID)
		}
		_, err := stmt.ExecContext(ctx,
			id,
			doc.MetaString(types.MetaCategory),
			doc.MetaString(types.MetaSubreddit),
			doc.MetaString(types.MetaTitle),
			doc.MetaString(types.MetaAuthor),
			doc.MetaString(types.MetaURL),
			metaInt(doc.Metadata[types.MetaScore]),
			doc.PageContent,
		)
		if err != nil {
			return fmt.Errorf("failed to save post %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// List returns the stored documents of subreddit ("golang" or "r/golang") in
// the order they were first saved. An empty subreddit lists everything.
func (s *Store) List(ctx context.Context, subreddit string) ([]types.Document, error) {
	query := `SELECT post_id, category, subreddit, title, author, url, score, content FROM documents`
	var args []any
	if subreddit != "" {
		query += ` WHERE subreddit = ? COLLATE NOCASE`
		args = append(args, "r/"+strings.TrimPrefix(subreddit, "r/"))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var p types.Post
		var category string
		if err := rows.Scan(&p.ID, &category, &p.SubredditNamePrefixed, &p.Title, &p.Author, &p.URL, &p.Score, &p.SelfText); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, types.NewDocument(p, category))
	}
	return docs, rows.Err()
}

func metaInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}
