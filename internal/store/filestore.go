package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/routable/routable-lint/internal/sarif"
)

var storeTracer = otel.Tracer("github.com/routable/routable-lint/internal/store")

// FileStore keeps each run in its own directory holding sarif.json and,
// once evaluated, verdict.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// newID returns a version 7 UUID, whose string form sorts by creation time.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating result id: %w", err)
	}
	return id.String(), nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func resultCount(doc *sarif.Log) int {
	n := 0
	for _, run := range doc.Runs {
		n += len(run.Results)
	}
	return n
}

func (s *FileStore) resultDir(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *FileStore) WriteSARIF(ctx context.Context, doc *sarif.Log) (string, error) {
	_, span := storeTracer.Start(ctx, "write sarif")
	defer span.End()

	id, err := newID()
	if err != nil {
		return "", fail(span, err)
	}
	dir := s.resultDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fail(span, err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fail(span, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sarif.json"), data, 0644); err != nil {
		return "", fail(span, err)
	}

	span.SetAttributes(
		attribute.String("routable.store.id", id),
		attribute.Int("routable.store.result_count", resultCount(doc)),
	)
	return id, nil
}

func (s *FileStore) WriteVerdict(ctx context.Context, sarifID string, verdict *Verdict) error {
	_, span := storeTracer.Start(ctx, "write verdict")
	defer span.End()

	dir := s.resultDir(sarifID)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(span, fmt.Errorf("result %s: %w", sarifID, ErrNotFound))
		}
		return fail(span, err)
	}
	data, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return fail(span, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "verdict.json"), data, 0644); err != nil {
		return fail(span, err)
	}

	span.SetAttributes(
		attribute.String("routable.store.id", sarifID),
		attribute.String("routable.decision", verdict.Decision),
	)
	return nil
}

func (s *FileStore) readJSON(id, name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.resultDir(id), name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s for %s: %w", name, id, ErrNotFound)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s for %s: %w", name, id, err)
	}
	return nil
}

func (s *FileStore) ReadSARIF(ctx context.Context, id string) (*sarif.Log, error) {
	var log sarif.Log
	if err := s.readJSON(id, "sarif.json", &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *FileStore) ReadVerdict(ctx context.Context, sarifID string) (*Verdict, error) {
	var v Verdict
	if err := s.readJSON(sarifID, "verdict.json", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (s *FileStore) Close() error { return nil }
