// Package catalog is the SQLite registry of ingested documents, the query log
// and small pieces of persisted pipeline state.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"docqa/internal/domain"
)

// Store implements domain.Catalog on top of SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns ~/.local/share/docqa/catalog.db, honouring XDG_DATA_HOME.
func DefaultPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "share", "docqa", "catalog.db")
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "docqa", "catalog.db")
}

// Open opens or creates the catalog database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}
	return initStore(db, path)
}

// OpenInMemory creates a catalog that lives as long as the process.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory catalog: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return initStore(db, ":memory:")
}

func initStore(db *sql.DB, path string) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the document with id, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, descriptor, title, content, summary, chunk_count, created_at
		FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Descriptor, &doc.Title, &doc.Content, &doc.Summary, &doc.ChunkCount, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &doc, nil
}

// Save inserts doc. Documents are immutable once stored, so saving an
// existing id keeps the first version.
func (s *Store) Save(ctx context.Context, doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, descriptor, title, content, summary, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		doc.ID, doc.Descriptor, doc.Title, doc.Content, doc.Summary, doc.ChunkCount, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

type clause struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// RecordQuery appends q to the query log. A missing ID is generated.
func (s *Store) RecordQuery(ctx context.Context, q domain.QueryRecord) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	clauses := make([]clause, len(q.Justification))
	for i, r := range q.Justification {
		clauses[i] = clause{Index: r.Chunk.Index, Text: r.Chunk.Text, Score: r.Score}
	}
	justification, err := json.Marshal(clauses)
	if err != nil {
		return fmt.Errorf("encode justification: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queries (id, document_id, question, answer, justification, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.DocumentID, q.Question, q.Answer, string(justification), q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Queries returns the query log of a document, oldest first.
func (s *Store) Queries(ctx context.Context, documentID string) ([]domain.QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, question, answer, justification, created_at
		FROM queries WHERE document_id = ? ORDER BY created_at, rowid`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	var out []domain.QueryRecord
	for rows.Next() {
		var (
			q   domain.QueryRecord
			raw string
		)
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.Question, &q.Answer, &raw, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		var clauses []clause
		if err := json.Unmarshal([]byte(raw), &clauses); err != nil {
			return nil, fmt.Errorf("decode justification: %w", err)
		}
		for _, c := range clauses {
			q.Justification = append(q.Justification, domain.SearchResult{
				Chunk: domain.Chunk{DocumentID: q.DocumentID, Index: c.Index, Text: c.Text},
				Score: c.Score,
			})
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// PutState stores value under key, replacing any previous value.
func (s *Store) PutState(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put state %s: %w", key, err)
	}
	return nil
}

// GetState returns the value stored under key, or domain.ErrNotFound.
func (s *Store) GetState(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("state %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}
