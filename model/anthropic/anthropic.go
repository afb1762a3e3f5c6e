// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/model"
)

// Options configures the Anthropic model adapter (model id, max tokens, API
// key). Extend via functional options to preserve stability.
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	opts := applyOptions(optFns)

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: applyOptions(optFns)}
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Generate implements a blocking single-turn completion via the Messages API.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		MaxTokens:   m.maxTokens(req),
		Temperature: anthropic.Float(req.Params.Temperature),
		TopP:        anthropic.Float(req.Params.TopP),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Params.TopK > 0 {
		params.TopK = anthropic.Int(int64(req.Params.TopK))
	}
	if len(req.StopSequences) > 0 {
		params.StopSequences = req.StopSequences
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	resp := &model.Response{
		Usage: &core.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}

	if message.StopReason == "refusal" {
		resp.Blocked = true
		resp.Text = model.BlockedText("refusal")
		return resp, nil
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	resp.Text = sb.String()
	if resp.Text == "" {
		resp.Text = model.EmptyText
	}
	return resp, nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: string(m.opts.Model), Provider: "anthropic"}
}

func (m *Model) maxTokens(req model.Request) int64 {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return m.opts.MaxTokens
}

func classifyError(err error) error {
	kind := model.ErrorTransient
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			kind = model.ErrorAuth
		case 429:
			kind = model.ErrorQuota
		}
	}
	return &model.Error{Kind: kind, Provider: "anthropic", Err: err}
}
