// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API. It adapts the single-prompt request shape used by the
// turn engine into the SDK's message format and classifies API failures into
// the shared error taxonomy.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/model"
)

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	MaxCompletionTokens int64
	APIKey              string
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	opts := applyOptions(optFns)
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: applyOptions(optFns)}
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Generate implements a blocking single-turn completion. TopK is not
// supported by the Chat Completions API and is ignored.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Prompt)},
		Model:               m.opts.Model,
		Temperature:         openai.Float(req.Params.Temperature),
		TopP:                openai.Float(req.Params.TopP),
		MaxCompletionTokens: openai.Int(m.maxTokens(req)),
	}
	if len(req.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: req.StopSequences}
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	resp := &model.Response{}
	if completion.Usage.TotalTokens > 0 {
		resp.Usage = &core.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		}
	}
	if len(completion.Choices) == 0 {
		resp.Text = model.EmptyText
		return resp, nil
	}

	choice := completion.Choices[0]
	if choice.FinishReason == "content_filter" {
		resp.Blocked = true
		resp.Text = model.BlockedText("content_filter")
		return resp, nil
	}
	resp.Text = choice.Message.Content
	if resp.Text == "" {
		resp.Text = model.EmptyText
	}
	return resp, nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}

func (m *Model) maxTokens(req model.Request) int64 {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return m.opts.MaxCompletionTokens
}

func classifyError(err error) error {
	kind := model.ErrorTransient
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			kind = model.ErrorAuth
		case 429:
			kind = model.ErrorQuota
		}
	}
	return &model.Error{Kind: kind, Provider: "openai", Err: err}
}
