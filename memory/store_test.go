package memory

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSummarizer returns canned summaries and records every call.
type stubSummarizer struct {
	calls []TierName
	fail  bool
}

func (s *stubSummarizer) Summarize(_ context.Context, tier TierName, text string) (string, error) {
	s.calls = append(s.calls, tier)
	if s.fail {
		return "", fmt.Errorf("service unavailable")
	}
	return fmt.Sprintf("summary(%s, %d lines)", tier, strings.Count(text, "\n")+1), nil
}

func newTestStore(t *testing.T, sum Summarizer, optFns ...func(o *Options)) *TierStore {
	t.Helper()
	store, err := NewTierStore(t.TempDir(), sum, optFns...)
	require.NoError(t, err)
	return store
}

func TestAppendBelowCapacityDoesNotConsolidate(t *testing.T) {
	sum := &stubSummarizer{}
	store := newTestStore(t, sum, func(o *Options) {
		o.Capacities = map[TierName]int{STM: 3, MTM: 3, LTM: 3}
	})

	require.NoError(t, store.Append(context.Background(), "one"))
	require.NoError(t, store.Append(context.Background(), "two"))
	require.NoError(t, store.Append(context.Background(), "three"))

	assert.Equal(t, 3, store.Len(STM))
	assert.Equal(t, 0, store.Len(MTM))
	assert.Empty(t, sum.calls)
}

func TestOverflowConsolidatesOldestBatchIntoNextTier(t *testing.T) {
	sum := &stubSummarizer{}
	store := newTestStore(t, sum, func(o *Options) {
		o.Capacities = map[TierName]int{STM: 2, MTM: 6, LTM: 6}
	})

	require.NoError(t, store.Append(context.Background(), "one"))
	require.NoError(t, store.Append(context.Background(), "two"))
	require.NoError(t, store.Append(context.Background(), "three"))

	// The two oldest entries were summarized away; the trigger entry stays.
	assert.Equal(t, []string{"three"}, store.Texts(STM))
	require.Equal(t, 1, store.Len(MTM))
	assert.Equal(t, []TierName{STM}, sum.calls)

	// Every tier respects its capacity once the cascade settles.
	for _, name := range TierOrder {
		assert.LessOrEqual(t, store.Len(name), 6)
	}
}

func TestConsolidationCascadesToFixedPoint(t *testing.T) {
	sum := &stubSummarizer{}
	store := newTestStore(t, sum, func(o *Options) {
		o.Capacities = map[TierName]int{STM: 1, MTM: 1, LTM: 2}
		o.BatchSizes = map[TierName]int{STM: 1, MTM: 1, LTM: 2}
	})

	// Each append overflows STM, whose summary overflows MTM in turn.
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(context.Background(), fmt.Sprintf("turn %d", i)))
	}

	assert.LessOrEqual(t, store.Len(STM), 1)
	assert.LessOrEqual(t, store.Len(MTM), 1)
	assert.LessOrEqual(t, store.Len(LTM), 2)
	assert.Contains(t, sum.calls, STM)
	assert.Contains(t, sum.calls, MTM)
}

func TestLTMDistillsIntoItself(t *testing.T) {
	sum := &stubSummarizer{}
	store := newTestStore(t, sum, func(o *Options) {
		o.Capacities = map[TierName]int{STM: 0, MTM: 0, LTM: 2}
		o.BatchSizes = map[TierName]int{STM: 1, MTM: 1, LTM: 2}
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(context.Background(), fmt.Sprintf("fact %d", i)))
	}

	assert.Equal(t, 0, store.Len(STM))
	assert.Equal(t, 0, store.Len(MTM))
	assert.LessOrEqual(t, store.Len(LTM), 2)
	assert.Contains(t, sum.calls, LTM)
}

func TestConsolidationFailureKeepsEntries(t *testing.T) {
	sum := &stubSummarizer{fail: true}
	store := newTestStore(t, sum, func(o *Options) {
		o.Capacities = map[TierName]int{STM: 2, MTM: 6, LTM: 6}
	})

	require.NoError(t, store.Append(context.Background(), "one"))
	require.NoError(t, store.Append(context.Background(), "two"))
	err := store.Append(context.Background(), "three")
	require.ErrorIs(t, err, ErrConsolidation)

	// Nothing was dropped; the tier is simply over capacity.
	assert.Equal(t, []string{"one", "two", "three"}, store.Texts(STM))
	assert.Equal(t, 0, store.Len(MTM))

	// Once the service recovers, an explicit retry settles the cascade.
	sum.fail = false
	require.NoError(t, store.Consolidate(context.Background()))
	assert.Equal(t, []string{"three"}, store.Texts(STM))
	assert.Equal(t, 1, store.Len(MTM))
}

func TestTiersPersistAcrossReload(t *testing.T) {
	dir := t.TempDir()
	sum := &stubSummarizer{}

	store, err := NewTierStore(dir, sum)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), "remember me"))

	reopened, err := NewTierStore(dir, sum)
	require.NoError(t, err)
	assert.Equal(t, []string{"remember me"}, reopened.Texts(STM))

	// Entry ids continue from the persisted counter.
	require.NoError(t, reopened.Append(context.Background(), "and me"))
	entries := reopened.Entries(STM)
	require.Len(t, entries, 2)
	assert.Greater(t, entries[1].ID, entries[0].ID)
}

func TestCorruptTierFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	sum := &stubSummarizer{}

	store, err := NewTierStore(dir, sum)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), "x"))

	// Damage the persisted file; reload must tolerate it.
	path := store.tierPath(STM)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	reopened, err := NewTierStore(dir, sum)
	require.NoError(t, err)
	assert.Equal(t, 0, reopened.Len(STM))
}

func TestResetClearsAllTiers(t *testing.T) {
	sum := &stubSummarizer{}
	store := newTestStore(t, sum)
	require.NoError(t, store.Append(context.Background(), "gone soon"))

	require.NoError(t, store.Reset())
	for _, name := range TierOrder {
		assert.Equal(t, 0, store.Len(name), string(name))
	}
}

func TestSetCapacitiesAppliesOnNextAppend(t *testing.T) {
	sum := &stubSummarizer{}
	store := newTestStore(t, sum, func(o *Options) {
		o.Capacities = map[TierName]int{STM: 10, MTM: 6, LTM: 6}
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(context.Background(), fmt.Sprintf("e%d", i)))
	}
	store.SetCapacities(map[TierName]int{STM: 2})
	assert.Equal(t, 3, store.Len(STM), "no immediate consolidation")

	require.NoError(t, store.Append(context.Background(), "e3"))
	assert.LessOrEqual(t, store.Len(STM), 2)
	assert.Equal(t, 1, store.Len(MTM))
}

func TestCascadeDepthBound(t *testing.T) {
	sum := &stubSummarizer{}
	store := newTestStore(t, sum, func(o *Options) {
		// A zero-capacity LTM with batch 1 can never settle: every distilled
		// summary immediately overflows again.
		o.Capacities = map[TierName]int{STM: 0, MTM: 0, LTM: 0}
		o.BatchSizes = map[TierName]int{STM: 1, MTM: 1, LTM: 1}
		o.MaxCascadeDepth = 4
	})

	err := store.Append(context.Background(), "unsettleable")
	assert.ErrorIs(t, err, ErrCascadeDepth)
}
