package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/smolworks/smolagent/internal/util"
	"github.com/smolworks/smolagent/model"
)

// Summarizer condenses a batch of tier text into a single entry for the next
// tier. The turn engine reuses the STM summarizer to distill each completed
// turn before it enters memory.
type Summarizer interface {
	Summarize(ctx context.Context, tier TierName, text string) (string, error)
}

// Default tier prompts. The {{.Text}} placeholder receives the batch;
// {NAME}/{USER} are substituted with the configured identities.
var defaultPrompts = map[TierName]string{
	STM: "You compress one completed turn of the agent {NAME} into a single short memory sentence. " +
		"Keep concrete facts, decisions and unfinished intentions; drop formatting and filler. " +
		"Respond with the sentence only.\n\nTurn transcript:\n{{.Text}}",
	MTM: "You merge several of {NAME}'s short-term memories into one medium-term memory. " +
		"Preserve what still matters for {NAME}'s goals and its relationship with {USER}; discard moment-to-moment detail. " +
		"Respond with one or two sentences only.\n\nMemories:\n{{.Text}}",
	LTM: "You distill {NAME}'s accumulated memories into one durable long-term memory. " +
		"Keep only identity-level facts, lasting commitments and important history with {USER}. " +
		"Respond with one or two sentences only.\n\nMemories:\n{{.Text}}",
}

// ModelSummarizerOptions configure a ModelSummarizer.
type ModelSummarizerOptions struct {
	// Prompts overrides the per-tier summarization prompt templates.
	Prompts map[TierName]string
	// Params are the generation parameters used for summarization calls.
	Params model.Params
	// AgentName / UserName feed the {NAME}/{USER} placeholders.
	AgentName string
	UserName  string
	// OnUsage, when set, observes the token usage of every summarization call.
	OnUsage func(provider string, usage *model.Response)
}

// ModelSummarizer summarizes through the generation service with a
// tier-specific prompt. It shares the service failure policy of the main
// generation call: errors propagate unchanged so the caller can decide.
type ModelSummarizer struct {
	model model.Model
	opts  ModelSummarizerOptions
}

// NewModelSummarizer constructs a ModelSummarizer bound to a model.
func NewModelSummarizer(m model.Model, optFns ...func(o *ModelSummarizerOptions)) *ModelSummarizer {
	opts := ModelSummarizerOptions{
		Prompts:   defaultPrompts,
		Params:    model.DefaultParams(),
		AgentName: "Agent",
		UserName:  "User",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Prompts == nil {
		opts.Prompts = defaultPrompts
	}
	return &ModelSummarizer{model: m, opts: opts}
}

// SetIdentity updates the names substituted into prompts.
func (s *ModelSummarizer) SetIdentity(agentName, userName string) {
	s.opts.AgentName = agentName
	s.opts.UserName = userName
}

// Summarize implements Summarizer.
func (s *ModelSummarizer) Summarize(ctx context.Context, tierName TierName, text string) (string, error) {
	promptTmpl, ok := s.opts.Prompts[tierName]
	if !ok {
		promptTmpl = defaultPrompts[tierName]
	}
	promptTmpl = util.SubstituteIdentity(promptTmpl, s.opts.AgentName, s.opts.UserName)

	prompt, err := util.RenderTemplate(promptTmpl, map[string]any{"Text": text})
	if err != nil {
		return "", fmt.Errorf("render %s summarizer prompt: %w", tierName, err)
	}

	resp, err := s.model.Generate(ctx, model.Request{
		Prompt:        prompt,
		Params:        s.opts.Params,
		StopSequences: model.DefaultStopSequences(),
	})
	if err != nil {
		return "", err
	}
	if s.opts.OnUsage != nil {
		s.opts.OnUsage(s.model.Info().Provider, resp)
	}

	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", fmt.Errorf("%s summarizer returned empty text", tierName)
	}
	return summary, nil
}
