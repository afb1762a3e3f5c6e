package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendChatEvictsOldest(t *testing.T) {
	st := NewAgentState("Wisper", "Friend", 3)
	for i := 1; i <= 5; i++ {
		st.AppendChat("Friend", fmt.Sprintf("message %d", i))
	}

	require.Len(t, st.ChatHistory, 3)
	assert.Equal(t, "message 3", st.ChatHistory[0].Text)
	assert.Equal(t, "message 5", st.ChatHistory[2].Text)
	assert.True(t, st.HasHistory)
}

func TestFeedbackFIFO(t *testing.T) {
	st := NewAgentState("Wisper", "Friend", 10)
	st.QueueFeedback("first", "second")
	st.QueueFeedback("third")

	assert.Equal(t, []string{"first", "second", "third"}, st.TakeFeedback())
	assert.Empty(t, st.TakeFeedback())
}

func TestChatLines(t *testing.T) {
	st := NewAgentState("Wisper", "Friend", 10)
	st.AppendChat("Friend", "hi")
	st.AppendChat("Wisper", "hello")

	assert.Equal(t, []string{"Friend: hi", "Wisper: hello"}, st.ChatLines())
}

func TestResizeTrimsOldest(t *testing.T) {
	st := NewAgentState("Wisper", "Friend", 10)
	for i := 1; i <= 4; i++ {
		st.AppendChat("Friend", fmt.Sprintf("m%d", i))
	}

	st.Resize(2)
	require.Len(t, st.ChatHistory, 2)
	assert.Equal(t, "m3", st.ChatHistory[0].Text)

	st.Resize(0)
	assert.Equal(t, 2, st.ChatLogLength, "non-positive bound ignored")
}

func TestResetKeepsIdentityAndStats(t *testing.T) {
	st := NewAgentState("Wisper", "Friend", 10)
	st.AppendChat("Friend", "hi")
	st.SelfPrompt = "goal"
	st.QueueFeedback("fb")
	st.Stats.APIRequests = 7

	st.Reset()
	assert.Empty(t, st.ChatHistory)
	assert.Empty(t, st.SelfPrompt)
	assert.Empty(t, st.PendingFeedback)
	assert.False(t, st.HasHistory)
	assert.Equal(t, "Wisper", st.AgentName)
	assert.Equal(t, 7, st.Stats.APIRequests)
}

func TestUsageAdd(t *testing.T) {
	u := Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	u.Add(Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	assert.Equal(t, Usage{PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18}, u)
}
