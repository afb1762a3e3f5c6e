package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/dispatch"
	"github.com/smolworks/smolagent/grammar"
	"github.com/smolworks/smolagent/internal/testutil"
	"github.com/smolworks/smolagent/memory"
	"github.com/smolworks/smolagent/model"
	"github.com/smolworks/smolagent/sandbox"
)

// echoSummarizer distills by echoing a marker, keeping memory assertions simple.
type echoSummarizer struct{ calls int }

func (s *echoSummarizer) Summarize(_ context.Context, tier memory.TierName, text string) (string, error) {
	s.calls++
	return fmt.Sprintf("distilled-%s", tier), nil
}

type testRig struct {
	engine *Engine
	state  *core.AgentState
	mock   *model.MockModel
	memory *memory.TierStore
	store  *sandbox.Store
	sum    *echoSummarizer
}

func newTestRig(t *testing.T, optFns ...func(o *Options)) *testRig {
	t.Helper()
	mock := model.NewMockModel()
	sum := &echoSummarizer{}

	store, err := sandbox.NewStore(t.TempDir())
	require.NoError(t, err)
	tiers, err := memory.NewTierStore(t.TempDir(), sum)
	require.NoError(t, err)

	g := grammar.New("Wisper")
	d := dispatch.New(store)
	eng := New(g, store, d, tiers, sum, mock, optFns...)

	return &testRig{
		engine: eng,
		state:  core.NewAgentState("Wisper", "Friend", 10),
		mock:   mock,
		memory: tiers,
		store:  store,
		sum:    sum,
	}
}

func TestExecuteTurnFullCycle(t *testing.T) {
	rig := newTestRig(t)
	rig.mock.QueueResponse(testutil.NewResponse("Wisper").
		Thinking("greeting back").
		Says("Hello Friend!").
		Command("create-file-notes.txt").
		SelfPrompt("get to know Friend").
		Build())

	result, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "hi there", "online")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, []string{"Hello Friend!"}, result.Speech)
	require.Len(t, result.Feedback, 1)
	assert.Contains(t, result.Feedback[0], "file-created[notes.txt]")

	// Session state committed: goal carried, exchange logged, feedback queued.
	assert.Equal(t, "{self-prompt-from-Wisper: get to know Friend}", rig.state.SelfPrompt)
	assert.Equal(t, result.Feedback, rig.state.PendingFeedback)
	require.Len(t, rig.state.ChatHistory, 2)
	assert.Equal(t, "Friend", rig.state.ChatHistory[0].Speaker)
	assert.Equal(t, "Wisper", rig.state.ChatHistory[1].Speaker)

	// The sandbox saw the directive and the turn entered short-term memory.
	assert.Equal(t, []string{"notes.txt"}, rig.store.List())
	assert.Equal(t, []string{"distilled-stm"}, rig.memory.Texts(memory.STM))

	assert.Equal(t, StateIdle, rig.engine.State())
}

func TestExecuteTurnRetriesOnInvalidResponse(t *testing.T) {
	rig := newTestRig(t)
	rig.mock.QueueResponse("no blocks at all")
	rig.mock.QueueResponse("{thinking: ok} but no self prompt")
	rig.mock.QueueResponse(testutil.ValidResponse("Wisper", "third time lucky", "keep going"))

	result, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "", "online")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []string{"third time lucky"}, result.Speech)
}

func TestExecuteTurnFaultsAfterExhaustedRetries(t *testing.T) {
	rig := newTestRig(t)
	for i := 0; i < 3; i++ {
		rig.mock.QueueResponse(fmt.Sprintf("{create-file-sneaky%d.txt} still invalid", i))
	}

	_, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "hi", "online")
	require.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 3, rig.mock.Calls())

	// Zero commands executed, no memory mutation, no state commit.
	assert.Empty(t, rig.store.List())
	assert.Equal(t, 0, rig.memory.Len(memory.STM))
	assert.Equal(t, 0, rig.sum.calls)
	assert.Empty(t, rig.state.SelfPrompt)
	assert.Empty(t, rig.state.ChatHistory)

	assert.Equal(t, StateIdle, rig.engine.State())
	assert.NotEmpty(t, rig.engine.LastFault())
}

func TestExecuteTurnServiceErrorAbortsWithoutRetry(t *testing.T) {
	rig := newTestRig(t)
	rig.mock.QueueError(&model.Error{Kind: model.ErrorQuota, Provider: "mock", Err: fmt.Errorf("429")})

	_, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "hi", "online")
	require.Error(t, err)

	var mErr *model.Error
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, model.ErrorQuota, mErr.Kind)

	assert.Equal(t, 1, rig.mock.Calls(), "service errors are not retried")
	assert.Equal(t, 0, rig.memory.Len(memory.STM))
}

func TestExecuteTurnPreservesFeedbackAcrossFault(t *testing.T) {
	rig := newTestRig(t)
	rig.state.QueueFeedback("{Terminal: reading-file[notes.txt][CURRENT-CONTENT: hello]}")
	rig.mock.QueueError(&model.Error{Kind: model.ErrorTransient, Provider: "mock", Err: fmt.Errorf("boom")})

	_, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "", "online")
	require.Error(t, err)
	require.Len(t, rig.state.PendingFeedback, 1, "queued feedback survives a faulted turn")
}

func TestExecuteTurnBlockedResponse(t *testing.T) {
	rig := newTestRig(t)
	marker := model.BlockedText("safety")
	rig.mock.QueueBlocked("safety")

	result, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "hi", "online")
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.Equal(t, marker, result.Raw)

	// The marker queues as feedback for the agent to reason about; nothing
	// was dispatched and memory is untouched.
	assert.Equal(t, []string{marker}, rig.state.PendingFeedback)
	assert.Equal(t, 0, rig.memory.Len(memory.STM))
	assert.Equal(t, 1, rig.mock.Calls())
}

func TestExecuteTurnBlockedClearsConsumedFeedback(t *testing.T) {
	rig := newTestRig(t)
	marker := model.BlockedText("safety")
	rig.state.QueueFeedback("{Terminal: file created[notes.txt]}")
	rig.mock.QueueBlocked("safety")

	result, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "hi", "online")
	require.NoError(t, err)
	require.True(t, result.Blocked)

	// The queued feedback was rendered into this turn's prompt; after the
	// refusal only the marker remains, so the next turn does not see the
	// same feedback twice.
	assert.Contains(t, rig.mock.Prompts[0], "{Terminal: file created[notes.txt]}")
	assert.Equal(t, []string{marker}, rig.state.PendingFeedback)
}

func TestExecuteTurnAccumulatesUsage(t *testing.T) {
	rig := newTestRig(t)
	rig.mock.QueueResponse("invalid once")
	rig.mock.QueueResponse(testutil.ValidResponse("Wisper", "hi", "goal"))

	result, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "", "online")
	require.NoError(t, err)

	// Both attempts count, including the rejected one.
	assert.Equal(t, 2, rig.state.Stats.APIRequests)
	assert.Equal(t, 4, rig.state.Stats.Usage.TotalTokens)
	assert.Equal(t, 4, result.Usage.TotalTokens)
}

func TestExecuteTurnReadFileFeedbackForcesContent(t *testing.T) {
	rig := newTestRig(t)
	require.NoError(t, rig.store.Create("notes.txt"))
	_, err := rig.store.AppendEntry("notes.txt", "remember the picnic")
	require.NoError(t, err)

	rig.mock.QueueResponse(testutil.NewResponse("Wisper").
		Thinking("let me check my notes").
		Command("read-file-notes.txt").
		SelfPrompt("act on my notes").
		Build())

	result, err := rig.engine.ExecuteTurn(context.Background(), rig.state, "", "online")
	require.NoError(t, err)
	require.Len(t, result.Feedback, 1)
	assert.Contains(t, result.Feedback[0], "remember the picnic")
	assert.Equal(t, result.Feedback, rig.state.PendingFeedback,
		"read results queue for the follow-up turn")
}
