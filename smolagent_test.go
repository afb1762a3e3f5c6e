package smolagent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/internal/testutil"
	"github.com/smolworks/smolagent/model"
)

func TestAgentEndToEnd(t *testing.T) {
	mock := model.NewMockModel()
	// Turn response, then the summarizer call distilling the turn.
	mock.QueueResponse(testutil.NewResponse("Wisper").
		Thinking("first contact").
		Says("Hello!").
		Command("create-file-notes.txt").
		SelfPrompt("learn about my friend").
		Build())
	mock.QueueResponse("met a new friend")

	agent, err := New(func(o *Options) {
		o.DataDir = t.TempDir()
		o.AgentName = "Wisper"
		o.UserName = "Friend"
		o.Model = mock
		o.PollInterval = 10 * time.Millisecond
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- agent.Start(ctx) }()

	agent.Send("hi!")

	var speech string
	deadline := time.After(5 * time.Second)
	for speech == "" {
		select {
		case <-deadline:
			t.Fatal("no agent speech before deadline")
		case <-time.After(20 * time.Millisecond):
		}
		for _, msg := range agent.Outbound().Drain() {
			if msg.Type == core.MsgNewMessage {
				if payload, ok := msg.Payload.(core.NewMessagePayload); ok && payload.SanitizedText != "" {
					speech = payload.SanitizedText
				}
			}
		}
	}
	assert.Equal(t, "Hello!", speech)

	agent.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("actor did not stop")
	}
}

func TestAgentRestoresSession(t *testing.T) {
	dir := t.TempDir()

	first, err := New(func(o *Options) {
		o.DataDir = dir
		o.AgentName = "Wisper"
		o.UserName = "Friend"
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- first.Start(ctx) }()
	first.Stop()
	require.NoError(t, <-done)

	// A second agent over the same data dir restores the persisted identity.
	second, err := New(func(o *Options) {
		o.DataDir = dir
		o.AgentName = "Ignored"
	})
	require.NoError(t, err)
	assert.Equal(t, "Wisper", second.state.AgentName)
}
