// Package docstore persists document metadata in a local SQLite database:
// one row per uploaded document, tracking its embedding status from pending
// through completed or error. The vector store holds the document's chunks;
// this store holds everything else.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Status is a document's embedding lifecycle state. Transitions are
// monotonic (pending → completed) except that any state may move to error.
type Status string

const (
	// StatusPending means the document is uploaded but not yet embedded.
	StatusPending Status = "pending"
	// StatusCompleted means all chunks are embedded and stored.
	StatusCompleted Status = "completed"
	// StatusError means embedding failed; ErrorMessage carries the cause.
	StatusError Status = "error"
)

// ErrNotFound is returned when no document exists for the requested id.
var ErrNotFound = errors.New("docstore: document not found")

// Document is the stored metadata of one uploaded document.
type Document struct {
	// ID is the unique document identifier (a UUID).
	ID string
	// FileName is the original uploaded file name.
	FileName string
	// FileType is the detected type: pdf, md, markdown, csv, or txt.
	FileType string
	// FileSize is the uploaded size in bytes.
	FileSize int64
	// ContentType is the MIME type reported at upload.
	ContentType string
	// FilePath is where the uploaded file is stored on disk.
	FilePath string
	// UploadedAt is when the document was received.
	UploadedAt time.Time
	// Status is the embedding lifecycle state.
	Status Status
	// ChunkCount is the number of stored chunks; meaningful once completed.
	ChunkCount int
	// ErrorMessage carries the failure cause when Status is error.
	ErrorMessage string
	// UpdatedAt is when the row was last modified.
	UpdatedAt time.Time
}

// Store is a SQLite-backed document metadata store. Safe for concurrent use.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", path, err)
	}
	// Single writer connection avoids SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    document_id   TEXT    PRIMARY KEY,
    file_name     TEXT    NOT NULL,
    file_type     TEXT    NOT NULL,
    file_size     INTEGER NOT NULL,
    content_type  TEXT    NOT NULL DEFAULT '',
    file_path     TEXT    NOT NULL,
    uploaded_at   INTEGER NOT NULL,  -- Unix timestamp (seconds)
    status        TEXT    NOT NULL CHECK(status IN ('pending','completed','error')),
    chunk_count   INTEGER NOT NULL DEFAULT 0,
    error_message TEXT    NOT NULL DEFAULT '',
    updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_status   ON documents (status);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded ON documents (uploaded_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	return nil
}

// Insert persists a new document record. The status must already be set
// (normally StatusPending).
func (s *Store) Insert(ctx context.Context, d *Document) error {
	const q = `
INSERT INTO documents (document_id, file_name, file_type, file_size, content_type,
                       file_path, uploaded_at, status, chunk_count, error_message, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, q,
		d.ID, d.FileName, d.FileType, d.FileSize, d.ContentType,
		d.FilePath, d.UploadedAt.Unix(), string(d.Status), d.ChunkCount, d.ErrorMessage, now,
	)
	if err != nil {
		return fmt.Errorf("docstore: insert %s: %w", d.ID, err)
	}
	return nil
}

// Get returns the document with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	const q = `
SELECT document_id, file_name, file_type, file_size, content_type, file_path,
       uploaded_at, status, chunk_count, error_message, updated_at
FROM   documents WHERE document_id = ?`
	d, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s: %w", id, err)
	}
	return d, nil
}

// List returns documents ordered newest-first with pagination, plus the
// total row count for the caller's pagination headers.
func (s *Store) List(ctx context.Context, limit, skip int) ([]Document, int, error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("docstore: count: %w", err)
	}

	const q = `
SELECT document_id, file_name, file_type, file_size, content_type, file_path,
       uploaded_at, status, chunk_count, error_message, updated_at
FROM   documents
ORDER  BY uploaded_at DESC, document_id DESC
LIMIT  ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("docstore: list: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("docstore: list scan: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("docstore: list rows: %w", err)
	}
	return docs, total, nil
}

// IDsByStatus returns the ids of all documents in the given status, ordered
// by upload time. The orchestrator uses it to enumerate completed documents.
func (s *Store) IDsByStatus(ctx context.Context, status Status) ([]string, error) {
	const q = `SELECT document_id FROM documents WHERE status = ? ORDER BY uploaded_at, document_id`
	rows, err := s.db.QueryContext(ctx, q, string(status))
	if err != nil {
		return nil, fmt.Errorf("docstore: ids by status %s: %w", status, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("docstore: ids scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: ids rows: %w", err)
	}
	return ids, nil
}

// MarkCompleted transitions a pending document to completed and records its
// chunk count. A document that is not pending is left untouched — status
// moves forward only, never backwards.
func (s *Store) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	const q = `
UPDATE documents SET status = ?, chunk_count = ?, error_message = '', updated_at = ?
WHERE  document_id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, q,
		string(StatusCompleted), chunkCount, time.Now().Unix(), id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("docstore: mark completed %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("docstore: mark completed %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkError moves a document to the error state with the failure message.
// Any state may transition to error. Satisfies the vector gateway's
// StatusWriter so exhausted write retries are recorded durably.
func (s *Store) MarkError(ctx context.Context, id, message string) error {
	const q = `UPDATE documents SET status = ?, error_message = ?, updated_at = ? WHERE document_id = ?`
	res, err := s.db.ExecContext(ctx, q, string(StatusError), message, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("docstore: mark error %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("docstore: mark error %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes the document row. Returns false when no row existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE document_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("docstore: delete %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DB exposes the underlying database handle for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("docstore: close: %w", err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanDocument.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one documents row into a Document.
func scanDocument(r rowScanner) (*Document, error) {
	var (
		d        Document
		status   string
		uploaded int64
		updated  int64
	)
	err := r.Scan(&d.ID, &d.FileName, &d.FileType, &d.FileSize, &d.ContentType,
		&d.FilePath, &uploaded, &status, &d.ChunkCount, &d.ErrorMessage, &updated)
	if err != nil {
		return nil, err
	}
	d.Status = Status(status)
	d.UploadedAt = time.Unix(uploaded, 0).UTC()
	d.UpdatedAt = time.Unix(updated, 0).UTC()
	return &d, nil
}
