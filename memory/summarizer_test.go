package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smolworks/smolagent/model"
)

func TestModelSummarizerRendersTierPrompt(t *testing.T) {
	mock := model.NewMockModel()
	mock.QueueResponse("a condensed memory")

	sum := NewModelSummarizer(mock, func(o *ModelSummarizerOptions) {
		o.AgentName = "Wisper"
		o.UserName = "Friend"
	})

	out, err := sum.Summarize(context.Background(), STM, "- turn one\n- turn two")
	require.NoError(t, err)
	assert.Equal(t, "a condensed memory", out)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "Wisper")
	assert.Contains(t, mock.Prompts[0], "- turn one")
	assert.NotContains(t, mock.Prompts[0], "{NAME}")
	assert.NotContains(t, mock.Prompts[0], "{{.Text}}")
}

func TestModelSummarizerRejectsEmptySummary(t *testing.T) {
	mock := model.NewMockModel()
	mock.QueueResponse("   ")

	sum := NewModelSummarizer(mock)
	_, err := sum.Summarize(context.Background(), MTM, "text")
	require.Error(t, err)
}

func TestModelSummarizerReportsUsage(t *testing.T) {
	mock := model.NewMockModel()
	mock.QueueResponse("summary")

	var seen int
	sum := NewModelSummarizer(mock, func(o *ModelSummarizerOptions) {
		o.OnUsage = func(provider string, resp *model.Response) {
			seen++
			assert.Equal(t, "mock", provider)
			require.NotNil(t, resp.Usage)
		}
	})

	_, err := sum.Summarize(context.Background(), LTM, "text")
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}
