// Package lsp serves check results to editors as Language Server Protocol
// diagnostics over stdio.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/routable"
	"github.com/routable/routable-lint/internal/sarif"
)

// CheckFunc checks one in-memory document and returns its SARIF results.
type CheckFunc func(ctx context.Context, path string, content []byte) ([]sarif.Result, error)

// Server implements the subset of LSP needed to publish diagnostics for open
// Python documents.
type Server struct {
	reader  *bufio.Reader
	writer  *bufio.Writer
	writeMu sync.Mutex
	check   CheckFunc
	logger  *slog.Logger
	skip    func(path string) bool

	documents map[string]string // URI -> content
	docMu     sync.RWMutex

	debounce time.Duration
	pending  *debouncer
	ctx      context.Context

	rootURI     string
	initialized bool
	shutdown    bool
}

type Option func(*Server)

// WithDebounce sets the quiet period before a changed document is checked.
// Zero checks synchronously.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounce = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSkip excludes documents whose path matches.
func WithSkip(skip func(path string) bool) Option {
	return func(s *Server) { s.skip = skip }
}

func NewServer(r io.Reader, w io.Writer, check CheckFunc, opts ...Option) *Server {
	s := &Server{
		reader:    bufio.NewReader(r),
		writer:    bufio.NewWriter(w),
		check:     check,
		logger:    slog.Default(),
		skip:      func(string) bool { return false },
		documents: make(map[string]string),
		debounce:  300 * time.Millisecond,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pending = newDebouncer(s.debounce, s.checkDocuments)
	return s
}

type jsonRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Run reads messages until exit, EOF or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx
	defer s.pending.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := s.dispatch(ctx, msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.Error("error handling message", "method", msg.Method, "err", err)
		}
	}
}

// readMessage reads one Content-Length framed message. Other headers are
// ignored.
func (s *Server) readMessage() (*jsonRPCMessage, error) {
	length := -1
	for {
		header, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		header = strings.TrimSpace(header)
		if header == "" {
			break
		}
		name, value, ok := strings.Cut(header, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header: %s", header)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			length, err = strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid content length: %s", value)
			}
		}
	}
	if length < 0 {
		return nil, errors.New("missing Content-Length header")
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		return nil, err
	}
	var msg jsonRPCMessage
	if err := json.Unmarshal(buf, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON-RPC message: %w", err)
	}
	return &msg, nil
}

func (s *Server) dispatch(ctx context.Context, msg *jsonRPCMessage) error {
	switch msg.Method {
	case MethodInitialize:
		return s.handleInitialize(msg.ID, msg.Params)
	case MethodInitialized:
		s.initialized = true
		return nil
	case MethodTextDocumentDidOpen:
		var p DidOpenTextDocumentParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return err
		}
		s.update(p.TextDocument.URI, p.TextDocument.Text)
		return nil
	case MethodTextDocumentDidChange:
		var p DidChangeTextDocumentParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return err
		}
		if n := len(p.ContentChanges); n > 0 {
			s.update(p.TextDocument.URI, p.ContentChanges[n-1].Text)
		}
		return nil
	case MethodTextDocumentDidSave:
		var p DidSaveTextDocumentParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return err
		}
		if p.Text != nil {
			s.update(p.TextDocument.URI, *p.Text)
			return nil
		}
		s.docMu.RLock()
		text, ok := s.documents[p.TextDocument.URI]
		s.docMu.RUnlock()
		if ok {
			s.update(p.TextDocument.URI, text)
		}
		return nil
	case MethodTextDocumentDidClose:
		var p DidCloseTextDocumentParams
		if err := json.Unmarshal(msg.Params, &p); err != nil {
			return err
		}
		return s.handleDidClose(p.TextDocument.URI)
	case MethodShutdown:
		s.shutdown = true
		s.pending.Stop()
		return s.sendResponse(msg.ID, nil, nil)
	case MethodExit:
		return io.EOF
	default:
		if len(msg.ID) > 0 {
			return s.sendResponse(msg.ID, nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + msg.Method})
		}
		s.logger.Debug("unhandled LSP notification", "method", msg.Method)
		return nil
	}
}

func (s *Server) handleInitialize(id json.RawMessage, params json.RawMessage) error {
	var p InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return s.sendResponse(id, nil, &rpcError{Code: codeInvalidParams, Message: err.Error()})
	}
	s.rootURI = p.RootURI

	return s.sendResponse(id, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    SyncFull,
				Save:      true,
			},
		},
		ServerInfo: &ServerInfo{Name: Source, Version: routable.Version},
	}, nil)
}

// update stores the document text and queues a check for Python files.
func (s *Server) update(uri, text string) {
	if s.shutdown {
		return
	}
	path := uriToPath(uri)
	if !input.IsPython(path) || s.skip(path) {
		return
	}
	s.docMu.Lock()
	s.documents[uri] = text
	s.docMu.Unlock()
	s.pending.Changed(uri)
}

// handleDidClose clears the diagnostics of a tracked document. The lock is
// held while publishing so a check finishing concurrently cannot follow the
// empty list with stale results.
func (s *Server) handleDidClose(uri string) error {
	s.pending.Forget(uri)
	s.docMu.Lock()
	defer s.docMu.Unlock()
	if _, tracked := s.documents[uri]; !tracked {
		return nil
	}
	delete(s.documents, uri)
	return s.publishDiagnostics(uri, []Diagnostic{})
}

// checkDocuments checks the current text of each URI and publishes the
// diagnostics. Results are dropped when the document was closed or edited
// while the check ran; the edit queues a check of its own.
func (s *Server) checkDocuments(uris []string) {
	for _, uri := range uris {
		s.docMu.RLock()
		text, ok := s.documents[uri]
		s.docMu.RUnlock()
		if !ok {
			continue
		}

		results, err := s.check(s.ctx, uriToPath(uri), []byte(text))
		if err != nil {
			s.logger.Error("check failed", "uri", uri, "err", err)
			continue
		}
		if err := s.publishIfCurrent(uri, text, ToDiagnostics(results, text)); err != nil {
			s.logger.Error("failed to publish diagnostics", "uri", uri, "err", err)
		}
	}
}

func (s *Server) publishIfCurrent(uri, checked string, diagnostics []Diagnostic) error {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	if current, ok := s.documents[uri]; !ok || current != checked {
		s.logger.Debug("dropping stale diagnostics", "uri", uri)
		return nil
	}
	return s.publishDiagnostics(uri, diagnostics)
}

func (s *Server) publishDiagnostics(uri string, diagnostics []Diagnostic) error {
	params, err := json.Marshal(PublishDiagnosticsParams{URI: uri, Diagnostics: diagnostics})
	if err != nil {
		return err
	}
	return s.sendMessage(jsonRPCMessage{
		JSONRPC: "2.0",
		Method:  MethodTextDocumentPublishDiagnostics,
		Params:  params,
	})
}

func (s *Server) sendResponse(id json.RawMessage, result interface{}, rpcErr *rpcError) error {
	if id == nil {
		id = json.RawMessage("null")
	}
	msg := jsonRPCMessage{JSONRPC: "2.0", ID: id, Error: rpcErr}
	if rpcErr == nil {
		msg.Result = result
		if result == nil {
			msg.Result = json.RawMessage("null")
		}
	}
	return s.sendMessage(msg)
}

// sendMessage writes msg with a Content-Length header. Checks run on timer
// goroutines, so writes are serialized.
func (s *Server) sendMessage(msg jsonRPCMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	return s.writer.Flush()
}

// uriToPath converts a file:// URI to a filesystem path. Other URIs are
// returned unchanged.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	path := u.Path
	// file:///C:/x on Windows
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path)
}
