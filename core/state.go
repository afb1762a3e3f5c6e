package core

import "time"

// ChatMessage is one entry of the bounded recent chat log.
type ChatMessage struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentState aggregates the mutable per-agent session fields. It is owned
// exclusively by the turn actor: mutations happen only between turns, never
// concurrently, so the struct carries no lock. Anything leaving the turn
// actor must be copied into a Message first.
//
// Contract:
//   - ChatHistory is bounded by ChatLogLength (oldest entries dropped)
//   - PendingFeedback is consumed in FIFO order by the next turn's context
//   - SelfPrompt always holds the goal carried into the next turn
type AgentState struct {
	AgentName string `json:"agent_name"`
	UserName  string `json:"user_name"`

	SelfPrompt      string        `json:"self_prompt"`
	PendingFeedback []string      `json:"pending_feedback"`
	ChatHistory     []ChatMessage `json:"chat_history"`
	ChatLogLength   int           `json:"chat_log_length"`
	HasHistory      bool          `json:"has_history"`

	Stats UsageStats `json:"stats"`
}

// NewAgentState creates a state with the given identity and chat bound.
func NewAgentState(agentName, userName string, chatLogLength int) *AgentState {
	if chatLogLength <= 0 {
		chatLogLength = 10
	}
	return &AgentState{
		AgentName:     agentName,
		UserName:      userName,
		ChatLogLength: chatLogLength,
	}
}

// AppendChat adds a line to the recent chat log, evicting the oldest entries
// beyond the configured bound.
func (s *AgentState) AppendChat(speaker, text string) {
	s.ChatHistory = append(s.ChatHistory, ChatMessage{Speaker: speaker, Text: text, Timestamp: time.Now()})
	if over := len(s.ChatHistory) - s.ChatLogLength; over > 0 {
		s.ChatHistory = append([]ChatMessage(nil), s.ChatHistory[over:]...)
	}
	s.HasHistory = true
}

// QueueFeedback appends a feedback string for injection into the next turn.
func (s *AgentState) QueueFeedback(feedback ...string) {
	s.PendingFeedback = append(s.PendingFeedback, feedback...)
}

// TakeFeedback returns the queued feedback and clears the queue.
func (s *AgentState) TakeFeedback() []string {
	fb := s.PendingFeedback
	s.PendingFeedback = nil
	return fb
}

// ChatLines renders the chat log as "Speaker: text" lines, oldest first.
func (s *AgentState) ChatLines() []string {
	lines := make([]string, len(s.ChatHistory))
	for i, m := range s.ChatHistory {
		lines[i] = m.Speaker + ": " + m.Text
	}
	return lines
}

// Resize adjusts the chat log bound, trimming oldest entries if needed.
func (s *AgentState) Resize(chatLogLength int) {
	if chatLogLength <= 0 {
		return
	}
	s.ChatLogLength = chatLogLength
	if over := len(s.ChatHistory) - chatLogLength; over > 0 {
		s.ChatHistory = append([]ChatMessage(nil), s.ChatHistory[over:]...)
	}
}

// Reset clears session history while keeping identity and usage counters.
// Used by the hard reset flow; the initial self-prompt is re-seeded by the
// caller.
func (s *AgentState) Reset() {
	s.SelfPrompt = ""
	s.PendingFeedback = nil
	s.ChatHistory = nil
	s.HasHistory = false
}
