package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var cacheTracer = otel.Tracer("github.com/routable/routable-lint/internal/cache")

var _ CacheManager = (*LocalCache)(nil)

// LocalCache keeps one JSON file per entry under dir, sharded by the first
// two characters of the key hash.
type LocalCache struct {
	dir string
}

func NewLocalCache(dir string) *LocalCache {
	return &LocalCache{dir: dir}
}

// Dir returns the cache directory
func (c *LocalCache) Dir() string {
	return c.dir
}

func (c *LocalCache) entryPath(hash string) string {
	return filepath.Join(c.dir, hash[:2], hash+".json")
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (c *LocalCache) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	ctx, span := cacheTracer.Start(ctx, "cache lookup")
	defer span.End()

	hash := key.Hash()
	span.SetAttributes(
		attribute.String("routable.cache.key", hash),
		attribute.String("routable.file", key.FilePath),
	)

	if err := ctx.Err(); err != nil {
		return nil, fail(span, err)
	}

	data, err := os.ReadFile(c.entryPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			span.SetAttributes(attribute.Bool("routable.cache.hit", false))
			return nil, ErrCacheMiss
		}
		return nil, fail(span, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fail(span, fmt.Errorf("decoding cache entry %s: %w", hash, err))
	}

	span.SetAttributes(attribute.Bool("routable.cache.hit", true))
	return &entry, nil
}

// Put writes entry atomically: readers never observe a partial file.
func (c *LocalCache) Put(ctx context.Context, entry *CacheEntry) error {
	_, span := cacheTracer.Start(ctx, "cache store")
	defer span.End()

	hash := entry.Key.Hash()
	span.SetAttributes(attribute.String("routable.cache.key", hash))

	if err := ctx.Err(); err != nil {
		return fail(span, err)
	}

	path := c.entryPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fail(span, err)
	}

	entry.Timestamp = time.Now().Unix()
	data, err := json.Marshal(entry)
	if err != nil {
		return fail(span, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), hash+".*.tmp")
	if err != nil {
		return fail(span, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fail(span, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fail(span, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fail(span, err)
	}
	return nil
}

func (c *LocalCache) Delete(ctx context.Context, key CacheKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(c.entryPath(key.Hash()))
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Prune removes entries written before cutoff or by another engine version.
// It returns the number of files removed.
func (c *LocalCache) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	ctx, span := cacheTracer.Start(ctx, "cache prune")
	defer span.End()

	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var entry CacheEntry
		stale := json.Unmarshal(data, &entry) != nil ||
			!entry.Key.Current() ||
			time.Unix(entry.Timestamp, 0).Before(cutoff)
		if !stale {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	span.SetAttributes(attribute.Int("routable.cache.pruned", removed))
	if err != nil {
		return removed, fail(span, err)
	}
	return removed, nil
}
