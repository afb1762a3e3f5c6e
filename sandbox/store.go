package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/smolworks/smolagent/internal/util"
	"github.com/smolworks/smolagent/logging"
)

// EmptyPlaceholder is written to freshly created or wiped files so the agent
// observes an explicit marker instead of zero bytes.
const EmptyPlaceholder = "[empty]"

var validName = regexp.MustCompile(`^[A-Za-z0-9_\-]+\.[A-Za-z0-9]+$`)

// Entry is one numbered record of a text-class file.
type Entry struct {
	ID   int
	Text string
}

var entryBlock = regexp.MustCompile(`(?is)\{entry-(\d+)\s*:\s*(.*?)\}\s*\n?`)

// Options configure a Store.
type Options struct {
	// MaxChars caps the character count of any single file.
	MaxChars int
	// MaxFiles caps how many files the sandbox may hold.
	MaxFiles int
	// TextExtension marks the entry-structured file class.
	TextExtension string
	// AllowedExtensions whitelists extensions accepted by Create.
	AllowedExtensions []string
	// Logger receives operational diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Store is a disk-backed sandboxed file store rooted at a fixed directory.
// All operations are synchronous; a mutex serializes them so partially
// written files are never observable.
type Store struct {
	mu   sync.Mutex
	root string
	opts Options
}

// NewStore creates the root directory if needed and returns a Store bound to it.
func NewStore(root string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		MaxChars:          500,
		MaxFiles:          10,
		TextExtension:     ".txt",
		AllowedExtensions: []string{".txt"},
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox root: %w", err)
	}
	// Pin the real root so symlinked roots still contain resolved paths.
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &Store{root: abs, opts: opts}, nil
}

// Root returns the absolute sandbox root directory.
func (s *Store) Root() string { return s.root }

// MaxChars returns the per-file character ceiling.
func (s *Store) MaxChars() int { return s.opts.MaxChars }

// MaxFiles returns the sandbox file count limit.
func (s *Store) MaxFiles() int { return s.opts.MaxFiles }

// AllowedExtensions returns the extensions Create accepts.
func (s *Store) AllowedExtensions() []string {
	return append([]string(nil), s.opts.AllowedExtensions...)
}

// IsText reports whether the name belongs to the entry-structured file class.
func (s *Store) IsText(name string) bool {
	return strings.EqualFold(filepath.Ext(name), s.opts.TextExtension)
}

// resolve maps a user-supplied name onto an absolute path inside the root,
// or fails with ErrPathEscape.
func (s *Store) resolve(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, name)
	}
	path := filepath.Join(s.root, filepath.Base(name))
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, name)
	}
	// An existing symlink must also resolve inside the root.
	if real, err := filepath.EvalSymlinks(path); err == nil {
		if !strings.HasPrefix(real, s.root+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %q", ErrPathEscape, name)
		}
	}
	return path, nil
}

// Create makes a new file holding the empty placeholder.
func (s *Store) Create(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if !s.extensionAllowed(name) {
		return fmt.Errorf("%w: extension of %q not allowed", ErrWrongFileClass, name)
	}
	if len(s.listLocked()) >= s.opts.MaxFiles {
		return fmt.Errorf("%w: limit %d", ErrSandboxFull, s.opts.MaxFiles)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	return util.WriteFileAtomic(path, []byte(EmptyPlaceholder), 0o644)
}

// Read returns the file content verbatim.
func (s *Store) Read(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return "", fmt.Errorf("read %q: %w", name, err)
	}
	return string(data), nil
}

// Delete removes the file.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	return nil
}

// AppendEntry appends a numbered entry to a text-class file and returns the
// assigned id. Ids grow monotonically from the highest id present in the
// file, so they remain stable across deletions and process restarts.
func (s *Store) AppendEntry(name, content string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	if !s.IsText(name) {
		return 0, fmt.Errorf("%w: append-entry on %q", ErrWrongFileClass, name)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return 0, fmt.Errorf("read %q: %w", name, err)
	}

	body := strings.TrimSpace(string(raw))
	if body == EmptyPlaceholder || body == "(empty)" {
		body = ""
	}

	next := 1
	for _, e := range parseEntries(body) {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	record := fmt.Sprintf("{entry-%d : %s}", next, content)

	updated := record
	if body != "" {
		updated = body + "\n" + record
	}
	if len(updated) > s.opts.MaxChars {
		return 0, fmt.Errorf("%w: %q limit %d", ErrFileTooLarge, name, s.opts.MaxChars)
	}
	if err := util.WriteFileAtomic(path, []byte(updated), 0o644); err != nil {
		return 0, fmt.Errorf("write %q: %w", name, err)
	}
	return next, nil
}

// Overwrite replaces the whole content of a non-text file.
func (s *Store) Overwrite(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if s.IsText(name) {
		return fmt.Errorf("%w: overwrite on text file %q", ErrWrongFileClass, name)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if len(content) > s.opts.MaxChars {
		return fmt.Errorf("%w: %q limit %d", ErrFileTooLarge, name, s.opts.MaxChars)
	}
	if err := util.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}

// DeleteEntry removes the entry with the given id from a text-class file.
// Remaining entries keep their original ids; no renumbering happens.
func (s *Store) DeleteEntry(name string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if !s.IsText(name) {
		return fmt.Errorf("%w: delete-entry on %q", ErrWrongFileClass, name)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return fmt.Errorf("read %q: %w", name, err)
	}

	target := regexp.MustCompile(`(?is)\{entry-` + fmt.Sprint(id) + `\s*:.*?\}\s*\n?`)
	updated := target.ReplaceAllString(string(raw), "")
	if updated == string(raw) {
		return fmt.Errorf("%w: entry %d in %q", ErrEntryNotFound, id, name)
	}
	if strings.TrimSpace(updated) == "" {
		updated = EmptyPlaceholder
	}
	if err := util.WriteFileAtomic(path, []byte(strings.TrimSpace(updated)), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}

// Entries parses the numbered entries of a text-class file.
func (s *Store) Entries(name string) ([]Entry, error) {
	content, err := s.Read(name)
	if err != nil {
		return nil, err
	}
	if !s.IsText(name) {
		return nil, fmt.Errorf("%w: entries of %q", ErrWrongFileClass, name)
	}
	return parseEntries(content), nil
}

// List returns the sandbox file names sorted lexicographically.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

// Count returns how many files the sandbox holds.
func (s *Store) Count() int {
	return len(s.List())
}

// Wipe truncates every file back to the empty placeholder. Used by the hard
// reset flow; files are kept, only their contents are cleared.
func (s *Store) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, name := range s.listLocked() {
		path := filepath.Join(s.root, name)
		if err := util.WriteFileAtomic(path, []byte(EmptyPlaceholder), 0o644); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("wipe %q: %w", name, err)
		}
	}
	return firstErr
}

func (s *Store) listLocked() []string {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		s.opts.Logger.Error("sandbox list failed", "error", err)
		return nil
	}
	var names []string
	for _, de := range dirEntries {
		if de.Type().IsRegular() {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (s *Store) extensionAllowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range s.opts.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func parseEntries(content string) []Entry {
	var entries []Entry
	for _, m := range entryBlock.FindAllStringSubmatch(content, -1) {
		var id int
		fmt.Sscanf(m[1], "%d", &id)
		entries = append(entries, Entry{ID: id, Text: strings.TrimSpace(m[2])})
	}
	return entries
}
