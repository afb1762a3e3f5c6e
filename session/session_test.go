package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smolworks/smolagent/core"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewStore(path)

	state := core.NewAgentState("Wisper", "Friend", 10)
	state.SelfPrompt = "{self-prompt-from-Wisper: goal}"
	state.AppendChat("Friend", "hello")
	state.Stats.APIRequests = 3

	require.NoError(t, store.Save(&Document{
		State:            state,
		AutoTurnEnabled:  true,
		AutoTurnInterval: 45 * time.Second,
		UserStatus:       "away",
	}))

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Wisper", doc.State.AgentName)
	assert.Equal(t, "{self-prompt-from-Wisper: goal}", doc.State.SelfPrompt)
	require.Len(t, doc.State.ChatHistory, 1)
	assert.Equal(t, 3, doc.State.Stats.APIRequests)
	assert.True(t, doc.AutoTurnEnabled)
	assert.Equal(t, 45*time.Second, doc.AutoTurnInterval)
	assert.Equal(t, "away", doc.UserStatus)
	assert.False(t, doc.SavedAt.IsZero())
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.json"))
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := NewStore(path).Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path)

	first := core.NewAgentState("Wisper", "Friend", 10)
	require.NoError(t, store.Save(&Document{State: first}))

	second := core.NewAgentState("Echo", "Sam", 10)
	require.NoError(t, store.Save(&Document{State: second}))

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Echo", doc.State.AgentName)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
