package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/smolworks/smolagent/core"
)

// Params are the generation parameters forwarded on every call.
type Params struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

// DefaultParams mirror the tuning the agent runs with out of the box.
func DefaultParams() Params {
	return Params{Temperature: 0.7, TopP: 0.9, TopK: 30}
}

// DefaultStopSequences terminate generation at turn boundaries so the model
// cannot speak for the user or run past its own turn.
func DefaultStopSequences() []string {
	return []string{"<|eot_id|>", "<|start_header_id|>", "{end-of-turn}", "{user-says"}
}

// Request captures one generation call.
type Request struct {
	Prompt        string   `json:"prompt"`
	Params        Params   `json:"params"`
	StopSequences []string `json:"stop_sequences,omitempty"`
	MaxTokens     int64    `json:"max_tokens,omitempty"`
}

// Response is the outcome of a generation call that reached the service.
type Response struct {
	Text  string      `json:"text"`
	Usage *core.Usage `json:"usage,omitempty"`
	// Blocked marks a safety-filtered outcome. Text then carries a
	// terminal-style marker; the turn engine treats this as ordinary content.
	Blocked bool `json:"blocked,omitempty"`
}

// BlockedText formats the marker injected when the service refuses a prompt.
func BlockedText(reason string) string {
	return fmt.Sprintf("{Terminal: generation-failed-prompt-blocked[Reason: %s]}", reason)
}

// EmptyText is the marker injected when the service returns no content.
const EmptyText = "{Terminal: generation-failed-empty-response}"

// ErrorKind classifies service failures.
type ErrorKind int

const (
	// ErrorAuth marks invalid or rejected credentials.
	ErrorAuth ErrorKind = iota
	// ErrorQuota marks rate limiting or exhausted quota.
	ErrorQuota
	// ErrorTransient marks retryable service-side failures.
	ErrorTransient
)

// String returns the kind's wire name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorAuth:
		return "auth"
	case ErrorQuota:
		return "quota"
	case ErrorTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is the typed service failure surfaced by providers.
type Error struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s generation failed (%s): %v", e.Provider, e.Kind, e.Err)
}

// Unwrap exposes the underlying provider error.
func (e *Error) Unwrap() error { return e.Err }

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the minimal interface the turn engine requires of the generation
// service. Generate blocks until the service answers; cancellation of an
// in-flight call is not supported beyond context expiry.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// mockStep is one scripted outcome of a MockModel.
type mockStep struct {
	resp *Response
	err  error
}

// MockModel is a lightweight scripted Model useful for tests & examples. It
// replays queued outcomes in order and records every prompt it was given;
// once the script is exhausted it echoes a canned completion.
type MockModel struct {
	mu      sync.Mutex
	info    Info
	script  []mockStep
	Prompts []string
}

// NewMockModel constructs an empty-scripted MockModel.
func NewMockModel() *MockModel {
	return &MockModel{info: Info{Name: "mock", Provider: "mock"}}
}

// QueueResponse appends a successful outcome to the script.
func (m *MockModel) QueueResponse(text string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockStep{resp: &Response{
		Text:  text,
		Usage: &core.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}})
	return m
}

// QueueBlocked appends a safety-refused outcome to the script.
func (m *MockModel) QueueBlocked(reason string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockStep{resp: &Response{
		Text:    BlockedText(reason),
		Blocked: true,
	}})
	return m
}

// QueueError appends a failing outcome to the script.
func (m *MockModel) QueueError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockStep{err: err})
	return m
}

// Generate implements Model.
func (m *MockModel) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, req.Prompt)
	if len(m.script) == 0 {
		return &Response{Text: "Mock response to: " + req.Prompt}, nil
	}
	step := m.script[0]
	m.script = m.script[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// Calls returns how many generation calls were made.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
