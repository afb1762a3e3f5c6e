// Package testutil provides builders shared by package tests.
package testutil

import (
	"fmt"
	"strings"
)

// ResponseBuilder assembles grammar-valid agent responses for tests without
// hand-writing block syntax in every case.
type ResponseBuilder struct {
	agentName string
	blocks    []string
}

// NewResponse starts a builder for the given agent name.
func NewResponse(agentName string) *ResponseBuilder {
	return &ResponseBuilder{agentName: agentName}
}

// Thinking appends a thinking block.
func (b *ResponseBuilder) Thinking(text string) *ResponseBuilder {
	b.blocks = append(b.blocks, fmt.Sprintf("{thinking: %s}", text))
	return b
}

// Says appends a speech block.
func (b *ResponseBuilder) Says(text string) *ResponseBuilder {
	b.blocks = append(b.blocks, fmt.Sprintf("{%s-says: %s}", b.agentName, text))
	return b
}

// SelfPrompt appends the self-prompt block.
func (b *ResponseBuilder) SelfPrompt(text string) *ResponseBuilder {
	b.blocks = append(b.blocks, fmt.Sprintf("{self-prompt-from-%s: %s}", b.agentName, text))
	return b
}

// Command appends a raw command block, e.g. "read-file-notes.txt".
func (b *ResponseBuilder) Command(inner string) *ResponseBuilder {
	b.blocks = append(b.blocks, fmt.Sprintf("{%s}", inner))
	return b
}

// Text appends raw text outside any block.
func (b *ResponseBuilder) Text(text string) *ResponseBuilder {
	b.blocks = append(b.blocks, text)
	return b
}

// Build joins the blocks into one response.
func (b *ResponseBuilder) Build() string {
	return strings.Join(b.blocks, "\n")
}

// ValidResponse returns a minimal valid response: thinking, one speech line
// and a self-prompt.
func ValidResponse(agentName, says, selfPrompt string) string {
	return NewResponse(agentName).
		Thinking("considering my reply").
		Says(says).
		SelfPrompt(selfPrompt).
		Build()
}
