package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/internal/util"
	"github.com/smolworks/smolagent/logging"
	"github.com/smolworks/smolagent/model"
)

// ErrNoSession is returned by Load when no session document exists yet.
var ErrNoSession = fmt.Errorf("no session document")

// Document is the persisted session state.
type Document struct {
	State *core.AgentState `json:"state"`

	AutoTurnEnabled  bool          `json:"auto_turn_enabled"`
	AutoTurnInterval time.Duration `json:"auto_turn_interval"`
	UserStatus       string        `json:"user_status"`
	Params           model.Params  `json:"params"`

	SavedAt time.Time `json:"saved_at"`
}

// Options configure a Store.
type Options struct {
	// Logger receives load/save diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Store reads and writes the session document at a fixed path.
type Store struct {
	path string
	opts Options
}

// NewStore returns a Store bound to path. The parent directory is created on
// the first save, not here.
func NewStore(path string, optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{path: path, opts: opts}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load reads the persisted document. A missing file yields ErrNoSession; a
// corrupt file is treated the same, after a warning, so a damaged document
// never blocks startup.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.opts.Logger.Warn("corrupt session document, starting fresh", "path", s.path, "error", err)
		return nil, ErrNoSession
	}
	if doc.State == nil {
		return nil, ErrNoSession
	}
	return &doc, nil
}

// Save writes the document atomically, stamping SavedAt.
func (s *Store) Save(doc *Document) error {
	doc.SavedAt = time.Now()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := util.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.opts.Logger.Debug("session saved", "path", s.path)
	return nil
}
