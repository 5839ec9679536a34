package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// SQLiteStore keeps one JSON payload per file plus a flat symbols table
// for name lookups across files.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// SymbolRecord is one row of the symbols table.
type SymbolRecord struct {
	Path      string
	ID        symbols.ID
	Kind      symbols.Kind
	Name      string
	ParentID  symbols.ID
	StartByte int
	EndByte   int
}

// OpenSQLite opens (or creates) a SQLite store at path. The store owns the
// connection and closes it on Close.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLiteStore uses an existing connection and creates the schema. The
// caller keeps ownership of db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the stored map for path if its fingerprint matches.
func (s *SQLiteStore) Get(ctx context.Context, path, fingerprint string) (*symbols.FileMap, error) {
	var payload []byte
	err := sq.Select("payload").
		From("file_maps").
		Where(sq.Eq{"path": path, "fingerprint": fingerprint}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read map for %s: %w", path, err)
	}
	return DecodeMap(payload)
}

// Put replaces the map and symbol rows for m.FileID in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, m *symbols.FileMap) error {
	payload, err := EncodeMap(m)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// REPLACE only cascades when foreign keys are on for this connection.
	if _, err := sq.Delete("symbols").
		Where(sq.Eq{"path": m.FileID}).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to clear symbols for %s: %w", m.FileID, err)
	}

	_, err = sq.Insert("file_maps").
		Columns("path", "fingerprint", "language", "degraded", "payload", "updated_at").
		Values(m.FileID, m.Fingerprint, m.Language, m.Degraded, payload, time.Now().UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to write map for %s: %w", m.FileID, err)
	}

	ordinal := 0
	var walkErr error
	m.Walk(func(sym *symbols.Symbol, depth int) bool {
		_, walkErr = sq.Insert("symbols").
			Columns("path", "id", "kind", "name", "parent_id", "start_byte", "end_byte", "ordinal").
			Values(m.FileID, string(sym.ID), string(sym.Kind), sym.Name, string(sym.Parent), sym.Span.StartByte, sym.Span.EndByte, ordinal).
			RunWith(tx).
			ExecContext(ctx)
		ordinal++
		return walkErr == nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to write symbols for %s: %w", m.FileID, walkErr)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit map for %s: %w", m.FileID, err)
	}
	return nil
}

// Delete removes the map and symbol rows for path.
func (s *SQLiteStore) Delete(ctx context.Context, path string) error {
	_, err := sq.Delete("file_maps").
		Where(sq.Eq{"path": path}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete map for %s: %w", path, err)
	}
	return nil
}

// Paths lists every stored path in sorted order.
func (s *SQLiteStore) Paths(ctx context.Context) ([]string, error) {
	rows, err := sq.Select("path").
		From("file_maps").
		OrderBy("path").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// FindSymbols returns stored symbols with the given name across all files,
// optionally restricted to kinds, ordered by path then document order.
func (s *SQLiteStore) FindSymbols(ctx context.Context, name string, kinds ...symbols.Kind) ([]SymbolRecord, error) {
	query := sq.Select("path", "id", "kind", "name", "parent_id", "start_byte", "end_byte").
		From("symbols").
		Where(sq.Eq{"name": name}).
		OrderBy("path", "ordinal")
	if len(kinds) > 0 {
		ks := make([]string, len(kinds))
		for i, k := range kinds {
			ks[i] = string(k)
		}
		query = query.Where(sq.Eq{"kind": ks})
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols named %s: %w", name, err)
	}
	defer rows.Close()

	var out []SymbolRecord
	for rows.Next() {
		var (
			r                  SymbolRecord
			id, kind, parentID string
		)
		if err := rows.Scan(&r.Path, &id, &kind, &r.Name, &parentID, &r.StartByte, &r.EndByte); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		r.ID = symbols.ID(id)
		r.Kind = symbols.Kind(kind)
		r.ParentID = symbols.ID(parentID)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the connection if the store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
