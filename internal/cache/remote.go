package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var _ CacheManager = (*RemoteCache)(nil)

// RemoteCache shares findings between machines through an HTTP findings
// store. Entries live at {baseURL}/api/findings/{hash}.
type RemoteCache struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type RemoteCacheOption func(*RemoteCache)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) RemoteCacheOption {
	return func(c *RemoteCache) { c.token = token }
}

func WithTimeout(timeout time.Duration) RemoteCacheOption {
	return func(c *RemoteCache) { c.httpClient.Timeout = timeout }
}

func NewRemoteCache(baseURL string, opts ...RemoteCacheOption) *RemoteCache {
	c := &RemoteCache{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches the entry for key. A 404, or an entry stored under a different
// key, is a miss.
func (c *RemoteCache) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	hash := key.Hash()
	resp, err := c.do(ctx, http.MethodGet, hash, nil, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCacheMiss
	}

	var entry CacheEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decoding findings for %s: %w", hash, err)
	}
	if entry.Key.Hash() != hash {
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

func (c *RemoteCache) Put(ctx context.Context, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, entry.Key.Hash(), data, http.StatusOK, http.StatusCreated)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Delete removes the entry for key. Deleting a missing entry succeeds.
func (c *RemoteCache) Delete(ctx context.Context, key CacheKey) error {
	resp, err := c.do(ctx, http.MethodDelete, key.Hash(), nil, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// do sends one request for hash and fails unless the response status is one
// of ok. The caller closes the body of a successful response.
func (c *RemoteCache) do(ctx context.Context, method, hash string, body []byte, ok ...int) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/findings/"+url.PathEscape(hash), r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s findings %s: %w", strings.ToLower(method), hash, err)
	}
	for _, code := range ok {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, fmt.Errorf("%s findings %s: unexpected status %d: %s",
		strings.ToLower(method), hash, resp.StatusCode, strings.TrimSpace(string(msg)))
}
