package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/routable/routable-lint/internal/sarif"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id           TEXT PRIMARY KEY,
	created_at   INTEGER NOT NULL,
	result_count INTEGER NOT NULL,
	sarif        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS verdicts (
	result_id TEXT PRIMARY KEY REFERENCES results(id) ON DELETE CASCADE,
	decision  TEXT NOT NULL,
	verdict   TEXT NOT NULL
);`

// SQLiteStore keeps results and verdicts in a single database file.
type SQLiteStore struct {
	db *sql.DB
}

// DatabaseFile is the name of the database inside the store directory.
const DatabaseFile = "results.db"

// NewSQLiteStore opens or creates dir/results.db.
func NewSQLiteStore(ctx context.Context, dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}
	dsn := "file:" + filepath.Join(dir, DatabaseFile) + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) WriteSARIF(ctx context.Context, doc *sarif.Log) (string, error) {
	ctx, span := storeTracer.Start(ctx, "write sarif")
	defer span.End()

	id, err := newID()
	if err != nil {
		return "", fail(span, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fail(span, err)
	}
	count := resultCount(doc)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id, created_at, result_count, sarif) VALUES (?, ?, ?, ?)`,
		id, time.Now().UnixNano(), count, string(data))
	if err != nil {
		return "", fail(span, fmt.Errorf("inserting result: %w", err))
	}

	span.SetAttributes(
		attribute.String("routable.store.id", id),
		attribute.Int("routable.store.result_count", count),
	)
	return id, nil
}

func (s *SQLiteStore) WriteVerdict(ctx context.Context, sarifID string, verdict *Verdict) error {
	ctx, span := storeTracer.Start(ctx, "write verdict")
	defer span.End()

	data, err := json.Marshal(verdict)
	if err != nil {
		return fail(span, err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results WHERE id = ?`, sarifID).Scan(&exists)
	if err != nil {
		return fail(span, err)
	}
	if exists == 0 {
		return fail(span, fmt.Errorf("result %s: %w", sarifID, ErrNotFound))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verdicts (result_id, decision, verdict) VALUES (?, ?, ?)
		 ON CONFLICT(result_id) DO UPDATE SET decision = excluded.decision, verdict = excluded.verdict`,
		sarifID, verdict.Decision, string(data))
	if err != nil {
		return fail(span, fmt.Errorf("upserting verdict: %w", err))
	}

	span.SetAttributes(
		attribute.String("routable.store.id", sarifID),
		attribute.String("routable.decision", verdict.Decision),
	)
	return nil
}

func (s *SQLiteStore) queryJSON(ctx context.Context, query, id string, v interface{}) error {
	var data string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), v)
}

func (s *SQLiteStore) ReadSARIF(ctx context.Context, id string) (*sarif.Log, error) {
	var log sarif.Log
	if err := s.queryJSON(ctx, `SELECT sarif FROM results WHERE id = ?`, id, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *SQLiteStore) ReadVerdict(ctx context.Context, sarifID string) (*Verdict, error) {
	var v Verdict
	if err := s.queryJSON(ctx, `SELECT verdict FROM verdicts WHERE result_id = ?`, sarifID, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM results ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Open returns the store for backend ("file" or "sqlite") rooted at dir.
func Open(ctx context.Context, backend, dir string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir), nil
	case "sqlite":
		return NewSQLiteStore(ctx, dir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
