package brands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const brandSchema = `{
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "array",
    "items": {"type": "string", "minLength": 1}
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("brands.json", bytes.NewReader([]byte(brandSchema))); err != nil {
		panic(err)
	}
	return compiler.MustCompile("brands.json")
}

// Parse validates a {"category": ["Brand", ...]} document.
func Parse(data []byte) (map[string][]string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal brands: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("brands do not match schema: %w", err)
	}
	var out map[string][]string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal brands: %w", err)
	}
	return out, nil
}

type term struct {
	re        *regexp.Regexp
	canonical string
	length    int
}

// Snapshot is an immutable brand list. A reload publishes a new Snapshot;
// readers keep whichever one they loaded.
type Snapshot struct {
	Categories map[string][]string
	Source     string
	ModTime    time.Time
	terms      []term
	count      int
}

func newSnapshot(categories map[string][]string, source string, mod time.Time) *Snapshot {
	s := &Snapshot{Categories: categories, Source: source, ModTime: mod}
	seen := map[string]bool{}
	add := func(text, canonical string) {
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		s.terms = append(s.terms, term{
			re:        regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(` + regexp.QuoteMeta(strings.TrimSpace(text)) + `)(?:$|[^\pL\pN])`),
			canonical: canonical,
			length:    len([]rune(key)),
		})
	}
	for _, list := range categories {
		for _, b := range list {
			add(b, strings.TrimSpace(b))
			s.count++
		}
	}
	for alias, canonical := range synonyms {
		add(alias, canonical)
	}
	sort.SliceStable(s.terms, func(i, j int) bool {
		if s.terms[i].length != s.terms[j].length {
			return s.terms[i].length > s.terms[j].length
		}
		return s.terms[i].canonical < s.terms[j].canonical
	})
	return s
}

func Builtin() *Snapshot {
	return newSnapshot(builtinCategories, "builtin", time.Time{})
}

func (s *Snapshot) Len() int { return s.count }

// Find returns the canonical brand named in text, preferring the longest
// match.
func (s *Snapshot) Find(text string) (string, bool) {
	if s == nil || text == "" {
		return "", false
	}
	for _, t := range s.terms {
		if t.re.MatchString(text) {
			return t.canonical, true
		}
	}
	return "", false
}

// Store serves the current brand Snapshot and reloads it when the backing
// file changes.
type Store struct {
	path       string
	checkEvery time.Duration
	logger     *slog.Logger

	current   atomic.Pointer[Snapshot]
	lastCheck atomic.Int64
	mu        sync.Mutex
}

// NewStore loads path. An empty path or a broken file leaves the built-in
// list in place; the error is still returned for the caller to log.
func NewStore(path string, checkEvery time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, checkEvery: checkEvery, logger: logger}
	s.current.Store(Builtin())
	if path == "" {
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return s, err
	}
	return s, nil
}

// Current returns the published snapshot without checking the file.
func (s *Store) Current() *Snapshot { return s.current.Load() }

// Snapshot returns the current list, reloading first when the file's
// modification time moved. Checks are throttled to checkEvery.
func (s *Store) Snapshot() *Snapshot {
	if s.path == "" {
		return s.current.Load()
	}
	now := time.Now().UnixNano()
	last := s.lastCheck.Load()
	if now-last < int64(s.checkEvery) || !s.lastCheck.CompareAndSwap(last, now) {
		return s.current.Load()
	}
	info, err := os.Stat(s.path)
	if err == nil && !info.ModTime().Equal(s.current.Load().ModTime) {
		if err := s.Reload(); err != nil {
			s.logger.Warn("brand reload failed", "path", s.path, "error", err)
		}
	}
	return s.current.Load()
}

// Reload reads the file and publishes a new snapshot. On failure the
// previous snapshot stays.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat brands: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read brands: %w", err)
	}
	cats, err := Parse(data)
	if err != nil {
		return err
	}
	snap := newSnapshot(cats, s.path, info.ModTime())
	s.current.Store(snap)
	s.logger.Info("brands loaded", "path", s.path, "brands", snap.Len())
	return nil
}

// Watch reloads on file system events until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("no brand file configured")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return err
	}
	target := filepath.Clean(s.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != target || e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Warn("brand reload failed", "path", s.path, "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error("brand watcher error", "error", err)
			}
		}
	}()
	return nil
}
