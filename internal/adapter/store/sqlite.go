// Package store provides MetadataStore implementations: a SQLite store
// for persistent deployments and an in-memory store for tests.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"docqa/internal/domain"
)

// SQLiteStore persists document and chunk metadata, keyed by the same
// ids used in the vector index.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	source_uri   TEXT NOT NULL UNIQUE,
	content_type TEXT NOT NULL,
	status       TEXT NOT NULL,
	fail_reason  TEXT NOT NULL DEFAULT '',
	ingested_at  INTEGER NOT NULL,
	chunk_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	doc_id       TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	text         TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	overlap      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id, seq);
`

// NewSQLiteStore opens (and bootstraps) the metadata database at path.
// WAL mode keeps concurrent ingest and query workflows from blocking
// each other on the metadata layer.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) PutDocument(doc domain.Document) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (id, source_uri, content_type, status, fail_reason, ingested_at, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_uri = excluded.source_uri,
			content_type = excluded.content_type,
			status = excluded.status,
			fail_reason = excluded.fail_reason,
			ingested_at = excluded.ingested_at,
			chunk_count = excluded.chunk_count`,
		doc.ID, doc.SourceURI, doc.ContentType, string(doc.Status), doc.FailReason,
		doc.IngestedAt.Unix(), doc.ChunkCount)
	if err != nil {
		return fmt.Errorf("storing document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(id string) (domain.Document, error) {
	row := s.db.QueryRow(`
		SELECT id, source_uri, content_type, status, fail_reason, ingested_at, chunk_count
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

func (s *SQLiteStore) GetDocumentBySource(sourceURI string) (domain.Document, error) {
	row := s.db.QueryRow(`
		SELECT id, source_uri, content_type, status, fail_reason, ingested_at, chunk_count
		FROM documents WHERE source_uri = ?`, sourceURI)
	return scanDocument(row)
}

func scanDocument(row *sql.Row) (domain.Document, error) {
	var (
		doc        domain.Document
		status     string
		ingestedAt int64
	)
	err := row.Scan(&doc.ID, &doc.SourceURI, &doc.ContentType, &status, &doc.FailReason, &ingestedAt, &doc.ChunkCount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("scanning document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	doc.IngestedAt = time.Unix(ingestedAt, 0)
	return doc, nil
}

func (s *SQLiteStore) ListDocuments() ([]domain.Document, error) {
	rows, err := s.db.Query(`
		SELECT id, source_uri, content_type, status, fail_reason, ingested_at, chunk_count
		FROM documents ORDER BY ingested_at`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			doc        domain.Document
			status     string
			ingestedAt int64
		)
		if err := rows.Scan(&doc.ID, &doc.SourceURI, &doc.ContentType, &status, &doc.FailReason, &ingestedAt, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Status = domain.DocumentStatus(status)
		doc.IngestedAt = time.Unix(ingestedAt, 0)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) UpdateStatus(id string, status domain.DocumentStatus, failReason string) error {
	if status != domain.StatusFailed {
		failReason = ""
	}
	res, err := s.db.Exec(`UPDATE documents SET status = ?, fail_reason = ? WHERE id = ?`,
		string(status), failReason, id)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteDocument(id string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) PutChunks(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (id, doc_id, seq, text, start_offset, end_offset, overlap)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			overlap = excluded.overlap`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		if _, err := stmt.Exec(ch.ID, ch.DocID, ch.Seq, ch.Text, ch.Start, ch.End, ch.Overlap); err != nil {
			return fmt.Errorf("storing chunk %s: %w", ch.ID, err)
		}
	}

	// Keep the cached count in step with the chunk rows.
	if _, err := tx.Exec(`
		UPDATE documents SET chunk_count = (SELECT COUNT(*) FROM chunks WHERE doc_id = documents.id)
		WHERE id = ?`, chunks[0].DocID); err != nil {
		return fmt.Errorf("updating chunk count: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetChunk(id string) (domain.Chunk, error) {
	row := s.db.QueryRow(`
		SELECT id, doc_id, seq, text, start_offset, end_offset, overlap
		FROM chunks WHERE id = ?`, id)

	var ch domain.Chunk
	err := row.Scan(&ch.ID, &ch.DocID, &ch.Seq, &ch.Text, &ch.Start, &ch.End, &ch.Overlap)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Chunk{}, fmt.Errorf("chunk not found: %s", id)
	}
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("scanning chunk: %w", err)
	}
	return ch, nil
}

func (s *SQLiteStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	rows, err := s.db.Query(`
		SELECT id, doc_id, seq, text, start_offset, end_offset, overlap
		FROM chunks WHERE doc_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks of %s: %w", docID, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var ch domain.Chunk
		if err := rows.Scan(&ch.ID, &ch.DocID, &ch.Seq, &ch.Text, &ch.Start, &ch.End, &ch.Overlap); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, ch)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) DeleteChunksByDoc(docID string) error {
	_, err := s.db.Exec(`DELETE FROM chunks WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("deleting chunks of %s: %w", docID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
