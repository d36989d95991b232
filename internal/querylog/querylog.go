// Package querylog persists a record of every answered query: the question,
// the answer, the source chunks cited, latency, and outcome. The log is
// append-only and feeds the usage metrics endpoints.
package querylog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry status values.
const (
	// StatusSuccess marks a query that produced a model answer.
	StatusSuccess = "success"
	// StatusError marks a query that failed; the answer carries the
	// error-flavored text returned to the caller.
	StatusError = "error"
)

// ErrNotFound is returned when no entry exists for the requested id.
var ErrNotFound = errors.New("querylog: entry not found")

// Source is one cited chunk in an answer.
type Source struct {
	// DocumentID identifies the document the chunk came from.
	DocumentID string `json:"document_id"`
	// FileName is the document's original file name.
	FileName string `json:"file_name"`
	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int `json:"chunk_index"`
	// Content is the chunk text that was placed in the prompt.
	Content string `json:"content"`
	// Score is the retrieval similarity score.
	Score float32 `json:"score"`
	// Page is the source page number, when known.
	Page int `json:"page,omitempty"`
	// Keywords is the chunk's comma-separated keyword metadata, when present.
	Keywords string `json:"keywords,omitempty"`
}

// Entry is one logged query.
type Entry struct {
	// ID is the unique query identifier (a UUID).
	ID string
	// QueryText is the user's question.
	QueryText string
	// Answer is the model's answer, or the error text on failure.
	Answer string
	// Sources are the chunks cited in the answer.
	Sources []Source
	// DocumentIDs are the distinct document ids the sources came from.
	DocumentIDs []string
	// Model is the language model that produced the answer.
	Model string
	// Latency is the end-to-end processing time in seconds.
	Latency float64
	// Status is success or error.
	Status string
	// ErrorMessage is the failure detail for error entries, retained
	// separately from the error-flavored answer. Empty on success.
	ErrorMessage string
	// CreatedAt is when the query was logged.
	CreatedAt time.Time
}

// Store is a SQLite-backed append-only query log. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("querylog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS query_log (
    query_id     TEXT    PRIMARY KEY,
    query_text   TEXT    NOT NULL,
    answer       TEXT    NOT NULL,
    sources      TEXT    NOT NULL DEFAULT '[]',  -- JSON array
    document_ids TEXT    NOT NULL DEFAULT '[]',  -- JSON array
    model        TEXT    NOT NULL DEFAULT '',
    latency      REAL    NOT NULL,
    status       TEXT    NOT NULL CHECK(status IN ('success','error')),
    error_message TEXT   NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_log_created ON query_log (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("querylog: migrate: %w", err)
	}
	return nil
}

// Append writes one entry to the log. A zero CreatedAt is filled with the
// current time.
func (s *Store) Append(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	sources, err := json.Marshal(e.Sources)
	if err != nil {
		return fmt.Errorf("querylog: marshal sources: %w", err)
	}
	docIDs, err := json.Marshal(e.DocumentIDs)
	if err != nil {
		return fmt.Errorf("querylog: marshal document ids: %w", err)
	}

	const q = `
INSERT INTO query_log (query_id, query_text, answer, sources, document_ids,
                       model, latency, status, error_message, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		e.ID, e.QueryText, e.Answer, string(sources), string(docIDs),
		e.Model, e.Latency, e.Status, e.ErrorMessage, e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("querylog: append %s: %w", e.ID, err)
	}
	return nil
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	const q = `
SELECT query_id, query_text, answer, sources, document_ids, model, latency, status, error_message, created_at
FROM   query_log WHERE query_id = ?`
	e, err := scanEntry(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querylog: get %s: %w", id, err)
	}
	return e, nil
}

// List returns entries ordered newest-first with pagination, plus the total
// row count.
func (s *Store) List(ctx context.Context, limit, skip int) ([]Entry, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("querylog: count: %w", err)
	}

	const q = `
SELECT query_id, query_text, answer, sources, document_ids, model, latency, status, error_message, created_at
FROM   query_log
ORDER  BY created_at DESC, query_id DESC
LIMIT  ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("querylog: list: %w", err)
	}
	defer rows.Close()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Since returns all entries created at or after the given time, oldest
// first. The metrics aggregations consume this.
func (s *Store) Since(ctx context.Context, from time.Time) ([]Entry, error) {
	const q = `
SELECT query_id, query_text, answer, sources, document_ids, model, latency, status, error_message, created_at
FROM   query_log
WHERE  created_at >= ?
ORDER  BY created_at, query_id`
	rows, err := s.db.QueryContext(ctx, q, from.Unix())
	if err != nil {
		return nil, fmt.Errorf("querylog: since: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("querylog: close: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*Entry, error) {
	var (
		e       Entry
		sources string
		docIDs  string
		created int64
	)
	err := r.Scan(&e.ID, &e.QueryText, &e.Answer, &sources, &docIDs,
		&e.Model, &e.Latency, &e.Status, &e.ErrorMessage, &created)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sources), &e.Sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	if err := json.Unmarshal([]byte(docIDs), &e.DocumentIDs); err != nil {
		return nil, fmt.Errorf("unmarshal document ids: %w", err)
	}
	e.CreatedAt = time.Unix(created, 0).UTC()
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("querylog: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querylog: rows: %w", err)
	}
	return entries, nil
}
