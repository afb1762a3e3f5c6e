package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/smolworks/smolagent/internal/util"
	"github.com/smolworks/smolagent/logging"
)

// ErrConsolidation wraps summarization failures during a cascade. The
// originating tier is left over capacity rather than dropping entries; the
// next append retries the cascade.
var ErrConsolidation = fmt.Errorf("memory consolidation failed")

// ErrCascadeDepth is returned when a cascade fails to reach a fixed point
// within the configured depth bound (pathological capacities).
var ErrCascadeDepth = fmt.Errorf("memory cascade depth exceeded")

// Options configure a TierStore.
type Options struct {
	// Capacities is the max entry count per tier before consolidation.
	Capacities map[TierName]int
	// BatchSizes is how many oldest entries one consolidation consumes.
	// Zero means the tier's full capacity.
	BatchSizes map[TierName]int
	// MaxCascadeDepth bounds one turn's consolidation cascade.
	MaxCascadeDepth int
	// Logger receives consolidation diagnostics.
	Logger logging.Logger
}

// TierStore owns the three memory tiers, their persistence files and the
// consolidation state machine. It is mutated only by the turn actor; a mutex
// keeps snapshot reads safe for embedders that poll from elsewhere.
type TierStore struct {
	mu         sync.Mutex
	dir        string
	tiers      map[TierName]*tier
	summarizer Summarizer
	opts       Options
}

// NewTierStore loads (or initializes) the persisted tiers under dir.
func NewTierStore(dir string, summarizer Summarizer, optFns ...func(o *Options)) (*TierStore, error) {
	opts := Options{
		Capacities:      map[TierName]int{STM: 6, MTM: 6, LTM: 6},
		BatchSizes:      map[TierName]int{},
		MaxCascadeDepth: 8,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}

	s := &TierStore{dir: dir, tiers: map[TierName]*tier{}, summarizer: summarizer, opts: opts}
	for _, name := range TierOrder {
		t, err := s.loadTier(name)
		if err != nil {
			return nil, err
		}
		s.tiers[name] = t
	}
	return s, nil
}

// Append adds a new STM entry and runs the consolidation cascade to a fixed
// point. On summarization failure the originating tier keeps all entries
// (over capacity) and the error is reported; no entry is ever dropped
// without a summary landing in the next tier first.
func (s *TierStore) Append(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tiers[STM].append(text, time.Now())
	if err := s.saveTier(STM); err != nil {
		return err
	}
	return s.consolidateLocked(ctx)
}

// Consolidate re-runs the cascade without appending, used to retry after an
// earlier ConsolidationFailure left a tier over capacity.
func (s *TierStore) Consolidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consolidateLocked(ctx)
}

func (s *TierStore) consolidateLocked(ctx context.Context) error {
	for depth := 0; depth < s.opts.MaxCascadeDepth; depth++ {
		name, over := s.overCapacityLocked()
		if !over {
			return nil
		}
		if err := s.consolidateTierLocked(ctx, name); err != nil {
			return err
		}
	}
	if _, over := s.overCapacityLocked(); over {
		s.opts.Logger.Warn("memory cascade did not settle", "max_depth", s.opts.MaxCascadeDepth)
		return ErrCascadeDepth
	}
	return nil
}

func (s *TierStore) overCapacityLocked() (TierName, bool) {
	for _, name := range TierOrder {
		if len(s.tiers[name].Entries) > s.capacity(name) {
			return name, true
		}
	}
	return "", false
}

func (s *TierStore) consolidateTierLocked(ctx context.Context, name TierName) error {
	t := s.tiers[name]
	batch := s.batchSize(name)
	if batch > len(t.Entries) {
		batch = len(t.Entries)
	}

	lines := make([]string, batch)
	for i := 0; i < batch; i++ {
		lines[i] = "- " + t.Entries[i].Text
	}

	start := time.Now()
	summary, err := s.summarizer.Summarize(ctx, name, strings.Join(lines, "\n"))
	if err != nil {
		s.opts.Logger.Error("tier consolidation failed", "tier", string(name), "entries", batch, "error", err)
		return fmt.Errorf("%w: tier %s: %v", ErrConsolidation, name, err)
	}
	s.opts.Logger.Info("tier consolidated", "tier", string(name), "entries", batch, "duration", time.Since(start))

	// Remove the batch only after the summary exists, so a failed call never
	// loses entries.
	t.Entries = append([]Entry(nil), t.Entries[batch:]...)
	next := name.Next()
	s.tiers[next].append(summary, time.Now())

	if err := s.saveTier(name); err != nil {
		return err
	}
	if next != name {
		return s.saveTier(next)
	}
	return nil
}

func (s *TierStore) capacity(name TierName) int {
	if c, ok := s.opts.Capacities[name]; ok && c >= 0 {
		return c
	}
	return 6
}

func (s *TierStore) batchSize(name TierName) int {
	if b, ok := s.opts.BatchSizes[name]; ok && b > 0 {
		return b
	}
	if c := s.capacity(name); c > 0 {
		return c
	}
	return 1
}

// Entries returns a copy of one tier's entries in creation order.
func (s *TierStore) Entries(name TierName) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.tiers[name].Entries...)
}

// Len returns the number of entries in one tier.
func (s *TierStore) Len(name TierName) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tiers[name].Entries)
}

// Texts returns one tier's entry texts in creation order.
func (s *TierStore) Texts(name TierName) []string {
	entries := s.Entries(name)
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	return texts
}

// SetCapacities replaces the per-tier capacities. The new limits apply on
// the next append; no immediate consolidation is triggered.
func (s *TierStore) SetCapacities(capacities map[TierName]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, c := range capacities {
		if c >= 0 {
			s.opts.Capacities[name] = c
		}
	}
}

// Reset clears all tiers and rewrites their persistence files. Part of the
// hard reset flow.
func (s *TierStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, name := range TierOrder {
		s.tiers[name] = &tier{}
		if err := s.saveTier(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *TierStore) tierPath(name TierName) string {
	return filepath.Join(s.dir, string(name)+".json")
}

func (s *TierStore) loadTier(name TierName) (*tier, error) {
	data, err := os.ReadFile(s.tierPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return &tier{}, nil
		}
		return nil, fmt.Errorf("load tier %s: %w", name, err)
	}
	var t tier
	if err := json.Unmarshal(data, &t); err != nil {
		s.opts.Logger.Warn("corrupt tier file, starting empty", "tier", string(name), "error", err)
		return &tier{}, nil
	}
	// Guard the id counter against hand-edited files.
	for _, e := range t.Entries {
		if e.ID > t.NextID {
			t.NextID = e.ID
		}
	}
	return &t, nil
}

func (s *TierStore) saveTier(name TierName) error {
	data, err := json.MarshalIndent(s.tiers[name], "", "  ")
	if err != nil {
		return fmt.Errorf("encode tier %s: %w", name, err)
	}
	if err := util.WriteFileAtomic(s.tierPath(name), data, 0o644); err != nil {
		return fmt.Errorf("persist tier %s: %w", name, err)
	}
	return nil
}
