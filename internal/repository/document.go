package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sony/gobreaker"
)

// Document names.  Each store owns exactly one document.
const (
	AppDocument    = "app-data"
	SecureDocument = "secure-data"
)

// DocumentSink loads and saves whole JSON documents by name.
type DocumentSink interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, body []byte) error
}

// FileSink keeps one <name>.json file per document under Dir.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink { return &FileSink{Dir: dir} }

func (s *FileSink) path(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

// Load reads the document file.  A missing file yields ErrDocumentNotFound.
func (s *FileSink) Load(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrDocumentNotFound
	}
	return b, err
}

// Save writes body to a temporary file in Dir and renames it over the
// document, so readers never observe a half-written file.
func (s *FileSink) Save(_ context.Context, name string, body []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// SQLSink mirrors documents into the MySQL table
//
//	documents(name VARCHAR(64) PRIMARY KEY, body LONGTEXT, updated_at DATETIME)
//
// Calls go through a circuit breaker so an unavailable database fails
// fast instead of stalling every mutation.
type SQLSink struct {
	DB *sql.DB
	CB *gobreaker.CircuitBreaker
}

func NewSQLSink(db *sql.DB, cb *gobreaker.CircuitBreaker) *SQLSink {
	return &SQLSink{DB: db, CB: cb}
}

const (
	createDocumentsTable = `CREATE TABLE IF NOT EXISTS documents (
  name VARCHAR(64) NOT NULL PRIMARY KEY,
  body LONGTEXT NOT NULL,
  updated_at DATETIME NOT NULL
) CHARACTER SET utf8mb4`
	upsertDocument = "INSERT INTO documents (name, body, updated_at) VALUES (?, ?, UTC_TIMESTAMP()) ON DUPLICATE KEY UPDATE body = VALUES(body), updated_at = VALUES(updated_at)"
	selectDocument = "SELECT body FROM documents WHERE name = ? LIMIT 1"
)

// EnsureSchema creates the documents table when it does not exist.
func (s *SQLSink) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, createDocumentsTable)
	return err
}

func (s *SQLSink) Load(ctx context.Context, name string) ([]byte, error) {
	out, err := s.execute(func() (interface{}, error) {
		var body string
		err := s.DB.QueryRowContext(ctx, selectDocument, name).Scan(&body)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		if err != nil {
			return nil, err
		}
		return []byte(body), nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (s *SQLSink) Save(ctx context.Context, name string, body []byte) error {
	_, err := s.execute(func() (interface{}, error) {
		_, err := s.DB.ExecContext(ctx, upsertDocument, name, string(body))
		return nil, err
	})
	return err
}

// execute runs fn through the breaker when one is configured.  A missing
// document is a normal answer and must not count as a breaker failure.
func (s *SQLSink) execute(fn func() (interface{}, error)) (interface{}, error) {
	if s.CB == nil {
		return fn()
	}
	var notFound bool
	out, err := s.CB.Execute(func() (interface{}, error) {
		v, err := fn()
		if errors.Is(err, ErrDocumentNotFound) {
			notFound = true
			return nil, nil
		}
		return v, err
	})
	if notFound {
		return nil, ErrDocumentNotFound
	}
	return out, err
}

// MultiSink fans saves out to every sink and loads from the first one,
// which is the authoritative copy.
type MultiSink struct {
	Sinks []DocumentSink
}

func NewMultiSink(sinks ...DocumentSink) *MultiSink { return &MultiSink{Sinks: sinks} }

func (m *MultiSink) Load(ctx context.Context, name string) ([]byte, error) {
	if len(m.Sinks) == 0 {
		return nil, ErrDocumentNotFound
	}
	return m.Sinks[0].Load(ctx, name)
}

func (m *MultiSink) Save(ctx context.Context, name string, body []byte) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.Save(ctx, name, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
