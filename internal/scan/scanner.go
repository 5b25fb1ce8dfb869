package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotDirectory is returned when a scan is requested on a path that is
// not a directory.
var ErrNotDirectory = errors.New("not a directory")

// errCancelled is internal: a cancelled walk is not a scan failure, the
// partial facts gathered so far are committed and Scan returns nil.
var errCancelled = errors.New("scan cancelled")

// Progress is one scan progress event. Fraction is in [0,1]; the terminal
// event carries fraction 1.0.
type Progress struct {
	Fraction float64
	Message  string
}

// ProgressFunc receives progress events during a scan. Returning a non-nil
// error aborts the scan: progress delivery failure means the receiver is
// gone, which is treated as fatal.
type ProgressFunc func(Progress) error

// Scanner walks a directory tree and extracts relationship facts: outbound
// references, tags, and image classification per file. A Scanner keeps
// facts across scans; rescanning a directory prunes and rediscovers only
// that subtree. Facts access and the end-of-scan commit share one lock, so
// readers and the scan worker alternate safely.
type Scanner struct {
	root       string
	showHidden bool
	fs         billy.Filesystem
	cache      *lru.Cache[string, extraction]

	mu    sync.RWMutex
	facts *Facts
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithShowHidden includes dotfiles and descends into dot-directories.
func WithShowHidden(show bool) Option {
	return func(s *Scanner) { s.showHidden = show }
}

// WithFilesystem scans the given filesystem instead of the host OS.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(s *Scanner) { s.fs = fs }
}

// WithCacheSize bounds the extraction cache. Zero or negative disables it.
func WithCacheSize(n int) Option {
	return func(s *Scanner) {
		if n <= 0 {
			s.cache = nil
			return
		}
		s.cache, _ = lru.New[string, extraction](n)
	}
}

const defaultCacheSize = 4096

// New creates a Scanner rooted at the given directory. The root is made
// absolute so every fact key is an absolute cleaned path.
func New(root string, opts ...Option) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	s := &Scanner{
		root:  abs,
		fs:    osfs.New("/"),
		facts: NewFacts(),
	}
	s.cache, _ = lru.New[string, extraction](defaultCacheSize)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the scanner's absolute root directory.
func (s *Scanner) Root() string {
	return s.root
}

// Facts returns the current fact snapshot. The returned value is immutable;
// callers must not modify it.
func (s *Scanner) Facts() *Facts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facts
}

// gather accumulates one scan's findings before they are resolved and
// committed. Reference targets stay raw (as written) until resolve.
type gather struct {
	files  map[string][]string
	images []string
	tags   map[string][]string
}

func newGather() *gather {
	return &gather{
		files: make(map[string][]string),
		tags:  make(map[string][]string),
	}
}

// Scan walks dir, extracts facts, resolves references against dir, and
// commits the result, replacing previous facts under dir. A nil sink
// disables progress reporting. Cancelling ctx stops the walk at the next
// directory boundary; the partial facts are committed and Scan returns nil —
// a cancelled scan is valid but incomplete, not a failure.
func (s *Scanner) Scan(ctx context.Context, dir string, sink ProgressFunc) error {
	if sink == nil {
		sink = func(Progress) error { return nil }
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := s.fs.Stat(root)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scan %s: %w", root, ErrNotDirectory)
	}

	g := newGather()
	err = s.walk(ctx, root, true, g, sink)
	if err != nil && !errors.Is(err, errCancelled) {
		return err
	}

	resolve(g, root)
	s.commit(root, g)

	if err := sink(Progress{Fraction: 1.0, Message: "Scan complete"}); err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	return nil
}

// walk processes one directory. Cancellation is checked once per directory,
// before any of its entries are touched. Unreadable directories below the
// root are skipped silently; only the root itself failing is an error.
func (s *Scanner) walk(ctx context.Context, dir string, isRoot bool, g *gather, sink ProgressFunc) error {
	select {
	case <-ctx.Done():
		return errCancelled
	default:
	}

	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if isRoot {
			return fmt.Errorf("read dir %s: %w", dir, err)
		}
		return nil
	}

	total := len(entries)
	for i, entry := range entries {
		name := entry.Name()
		if !s.showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		if err := sink(Progress{
			Fraction: float64(i) / float64(total),
			Message:  "Scanning: " + path,
		}); err != nil {
			return fmt.Errorf("report progress: %w", err)
		}

		if entry.IsDir() {
			if err := s.walk(ctx, path, false, g, sink); err != nil {
				return err
			}
			continue
		}
		s.processFile(path, entry, g)
	}
	return nil
}

// processFile classifies a single file. Images are recorded without being
// read; everything else is read as text, with unreadable or non-UTF-8
// content skipped silently.
func (s *Scanner) processFile(path string, info os.FileInfo, g *gather) {
	if IsImagePath(path) {
		g.files[path] = nil
		g.images = append(g.images, path)
		return
	}
	ex, ok := s.extractFile(path, info)
	if !ok {
		return
	}
	g.files[path] = ex.refs
	if len(ex.tags) > 0 {
		g.tags[path] = ex.tags
	}
}

// extractFile reads and parses one text file, consulting the extraction
// cache keyed by path, size, and mtime so unchanged files are not re-read
// across rescans.
func (s *Scanner) extractFile(path string, info os.FileInfo) (extraction, bool) {
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if s.cache != nil {
		if ex, ok := s.cache.Get(key); ok {
			return ex, true
		}
	}
	content, err := util.ReadFile(s.fs, path)
	if err != nil || !utf8.Valid(content) {
		return extraction{}, false
	}
	ex := extract(string(content))
	if s.cache != nil {
		s.cache.Add(key, ex)
	}
	return ex, true
}

// resolve turns raw reference targets into absolute cleaned paths. Relative
// targets are joined against the scan root — never the referencing file's
// own directory — so cross-directory links resolve the same way everywhere.
// Dangling targets are kept; dropping them is the graph builder's policy.
// Raw slices are never rewritten in place: they may be shared with the
// extraction cache, which must keep targets unresolved.
func resolve(g *gather, root string) {
	for path, refs := range g.files {
		if len(refs) == 0 {
			continue
		}
		resolved := make([]string, len(refs))
		for i, target := range refs {
			if filepath.IsAbs(target) {
				resolved[i] = filepath.Clean(target)
			} else {
				resolved[i] = filepath.Join(root, target)
			}
		}
		g.files[path] = resolved
	}
}

// commit replaces all facts under root with the gathered set, leaving facts
// outside root untouched. The new Facts value is swapped in wholesale so
// previously returned snapshots stay valid.
func (s *Scanner) commit(root string, g *gather) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := NewFacts()
	for p, refs := range s.facts.Files {
		if !underDir(p, root) {
			next.Files[p] = refs
		}
	}
	for _, p := range s.facts.Images {
		if !underDir(p, root) {
			next.Images = append(next.Images, p)
		}
	}
	for p, tags := range s.facts.Tags {
		if !underDir(p, root) {
			next.Tags[p] = tags
		}
	}

	for p, refs := range g.files {
		next.Files[p] = refs
	}
	next.Images = append(next.Images, g.images...)
	for p, tags := range g.tags {
		next.Tags[p] = tags
	}

	s.facts = next
}

// underDir reports whether path is dir or inside dir, by path components.
func underDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
