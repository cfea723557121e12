package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/routable/routable-lint/internal/routable"
)

// findingsServer is an in-memory stand-in for the shared findings cache.
type findingsServer struct {
	mu      sync.Mutex
	entries map[string][]byte
	token   string
}

func newFindingsServer(t *testing.T, token string) (*findingsServer, *httptest.Server) {
	t.Helper()
	fs := &findingsServer{entries: make(map[string][]byte), token: token}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	return fs, srv
}

func (s *findingsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	hash := strings.TrimPrefix(r.URL.Path, "/api/findings/")
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		data, ok := s.entries[hash]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	case http.MethodPut:
		var buf strings.Builder
		var entry CacheEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(&buf).Encode(entry)
		s.entries[hash] = []byte(buf.String())
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		if _, ok := s.entries[hash]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(s.entries, hash)
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestRemoteCache_RoundTrip(t *testing.T) {
	_, srv := newFindingsServer(t, "")
	cache := NewRemoteCache(srv.URL + "/")
	ctx := context.Background()

	entry := &CacheEntry{
		Key:       NewKey("app/tasks.py", []byte("@shared_task\ndef f(): pass\n")),
		Findings:  []routable.Finding{{Line: 2, Column: 0, Code: routable.ROU112}},
		Timestamp: time.Now().Unix(),
	}

	if err := cache.Put(ctx, entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := cache.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Findings) != 1 || got.Findings[0].Code != routable.ROU112 {
		t.Errorf("unexpected findings: %+v", got.Findings)
	}

	if err := cache.Delete(ctx, entry.Key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := cache.Get(ctx, entry.Key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after delete error = %v, want ErrCacheMiss", err)
	}
	if err := cache.Delete(ctx, entry.Key); err != nil {
		t.Errorf("Delete() of missing entry error = %v, want nil", err)
	}
}

func TestRemoteCache_MismatchedKeyIsMiss(t *testing.T) {
	fs, srv := newFindingsServer(t, "")
	cache := NewRemoteCache(srv.URL)
	ctx := context.Background()

	wanted := NewKey("a.py", []byte("a"))
	other, _ := json.Marshal(CacheEntry{Key: NewKey("b.py", []byte("b"))})
	fs.entries[wanted.Hash()] = other

	if _, err := cache.Get(ctx, wanted); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for mismatched entry, got %v", err)
	}
}

func TestRemoteCache_WithToken(t *testing.T) {
	_, srv := newFindingsServer(t, "test-token")
	ctx := context.Background()
	key := NewKey("a.py", nil)

	if _, err := NewRemoteCache(srv.URL, WithToken("test-token")).Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() with token error = %v, want ErrCacheMiss", err)
	}
	_, err := NewRemoteCache(srv.URL).Get(ctx, key)
	if err == nil || errors.Is(err, ErrCacheMiss) || !strings.Contains(err.Error(), "401") {
		t.Errorf("Get() without token error = %v, want status 401", err)
	}
}

func TestRemoteCache_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := NewRemoteCache(srv.URL, WithTimeout(time.Second))
	ctx := context.Background()

	if _, err := cache.Get(ctx, NewKey("a.py", nil)); err == nil || errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected server error, got %v", err)
	}
	if err := cache.Put(ctx, testEntry("a.py")); err == nil {
		t.Error("expected Put() error")
	}
	if err := cache.Delete(ctx, NewKey("a.py", nil)); err == nil {
		t.Error("expected Delete() error")
	}
}

func TestRemoteCache_ContextCancellation(t *testing.T) {
	_, srv := newFindingsServer(t, "")
	cache := NewRemoteCache(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := cache.Get(ctx, NewKey("a.py", nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}
