// Package input collects the Python sources to check from explicit paths,
// directory trees, or a unified diff.
package input

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sourcegraph/go-diff/diff"
)

type Kind int

const (
	KindFile Kind = iota
	KindDiff
)

func (k Kind) String() string {
	if k == KindDiff {
		return "diff"
	}
	return "files"
}

// Artifact is one source file to check. For diff input, Changed holds the
// added or modified line numbers; a nil Changed means every line counts.
type Artifact struct {
	Path    string
	Content []byte
	Kind    Kind
	Changed map[int]bool
}

// InScope reports whether a finding on line should be reported.
func (a Artifact) InScope(line int) bool {
	return a.Changed == nil || a.Changed[line]
}

type Handler struct {
	root     string
	excludes []string
	logger   *slog.Logger
}

type Option func(*Handler)

// WithExcludes skips files and directories whose base name or slash-separated
// path relative to the walk root matches one of the globs.
func WithExcludes(globs []string) Option {
	return func(h *Handler) { h.excludes = globs }
}

// WithRoot sets the directory diff paths are resolved against.
func WithRoot(dir string) Option {
	return func(h *Handler) { h.root = dir }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(opts ...Option) *Handler {
	h := &Handler{root: ".", logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsPython reports whether path names a Python source file.
func IsPython(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".py")
}

// Excluded reports whether rel, a path relative to the walk root, matches an
// exclude glob by base name or full path.
func (h *Handler) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, g := range h.excludes {
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func (h *Handler) read(path string, kind Kind) (Artifact, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, false, err
	}
	if !utf8.Valid(data) {
		h.logger.Warn("skipping file with invalid UTF-8", "path", path)
		return Artifact{}, false, nil
	}
	return Artifact{Path: path, Content: data, Kind: kind}, true, nil
}

// ReadFiles reads each path as given. Explicit paths are not filtered by
// extension or excludes.
func (h *Handler) ReadFiles(paths []string) ([]Artifact, error) {
	var artifacts []Artifact
	for _, p := range paths {
		a, ok, err := h.read(p, KindFile)
		if err != nil {
			return nil, err
		}
		if ok {
			artifacts = append(artifacts, a)
		}
	}
	return artifacts, nil
}

// ReadDirectory collects every .py file below dir that is not excluded.
func (h *Handler) ReadDirectory(dir string) ([]Artifact, error) {
	var artifacts []Artifact
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(d.Name(), ".") || h.Excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsPython(path) || h.Excluded(rel) {
			return nil
		}
		a, ok, err := h.read(path, KindFile)
		if err != nil {
			return err
		}
		if ok {
			artifacts = append(artifacts, a)
		}
		return nil
	})
	return artifacts, err
}

// ReadPaths expands directories and reads files, in argument order.
func (h *Handler) ReadPaths(paths []string) ([]Artifact, error) {
	var artifacts []Artifact
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		var got []Artifact
		if info.IsDir() {
			got, err = h.ReadDirectory(p)
		} else {
			got, err = h.ReadFiles([]string{p})
		}
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, got...)
	}
	return artifacts, nil
}

// ReadDiff returns the current contents of every Python file a unified diff
// adds or modifies, resolved against the handler root. Deleted files are
// skipped, as are files missing on disk.
func (h *Handler) ReadDiff(patch string) ([]Artifact, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	var artifacts []Artifact
	for _, fd := range fileDiffs {
		if fd.NewName == "/dev/null" {
			continue
		}
		path := fd.NewName
		if path == "" {
			path = fd.OrigName
		}
		path = strings.TrimPrefix(path, "b/")
		path = strings.TrimPrefix(path, "a/")
		if !IsPython(path) || h.Excluded(path) {
			continue
		}

		full := filepath.Join(h.root, filepath.FromSlash(path))
		a, ok, err := h.read(full, KindDiff)
		if err != nil {
			if os.IsNotExist(err) {
				h.logger.Warn("skipping diff entry missing on disk", "path", full)
				continue
			}
			return nil, err
		}
		if !ok {
			continue
		}
		a.Changed = changedLines(fd.Hunks)
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// changedLines returns the new-file line numbers of added lines.
func changedLines(hunks []*diff.Hunk) map[int]bool {
	changed := make(map[int]bool)
	for _, hunk := range hunks {
		line := int(hunk.NewStartLine)
		for _, l := range bytes.Split(hunk.Body, []byte("\n")) {
			if len(l) == 0 {
				continue
			}
			switch l[0] {
			case '+':
				changed[line] = true
				line++
			case ' ':
				line++
			}
		}
	}
	return changed
}
