package core

import "time"

// MessageType tags a Message so receivers can route it without reflection.
type MessageType string

// Inbound message types (presentation actor -> turn actor).
const (
	// MsgUserMessage carries a chat message typed by the user.
	MsgUserMessage MessageType = "user_message"
	// MsgHardReset clears all memory tiers, chat history and sandbox
	// contents. Persisted settings are never touched.
	MsgHardReset MessageType = "hard_reset"
	// MsgSetAutoTurn enables or disables the idle auto-turn timer.
	MsgSetAutoTurn MessageType = "set_auto_turn"
	// MsgSaveSettings applies and persists a settings snapshot.
	MsgSaveSettings MessageType = "save_settings"
	// MsgSetUserStatus updates the user's presence ("online", "away", "offline").
	MsgSetUserStatus MessageType = "set_user_status"
	// MsgUserTyping reports whether the user is currently composing a message.
	// Auto-turns are suppressed while typing.
	MsgUserTyping MessageType = "user_typing"
	// MsgStop requests a clean shutdown; the turn actor persists state and
	// exits its loop between turns, never mid-turn.
	MsgStop MessageType = "stop"
)

// Outbound message types (turn actor -> presentation actor).
const (
	// MsgNewMessage carries a completed turn's surfaced speech and raw log.
	MsgNewMessage MessageType = "new_message"
	// MsgMemorySnapshot carries a copy of all three memory tiers.
	MsgMemorySnapshot MessageType = "memory_snapshot"
	// MsgStatus carries engine state and API validity for display.
	MsgStatus MessageType = "status"
	// MsgNotifyUser is the out-of-band ping produced by the ping-user directive.
	MsgNotifyUser MessageType = "notify_user"
	// MsgUsageStats carries cumulative token usage counters.
	MsgUsageStats MessageType = "usage_stats"
)

// Message is the sole unit exchanged between the turn actor and the
// presentation actor. Payloads must be self-contained copies; no pointer into
// actor-owned state may cross the queue boundary.
type Message struct {
	Type    MessageType
	Payload any
}

// NewMessagePayload is the payload for MsgNewMessage.
type NewMessagePayload struct {
	// SanitizedText is a speech block surfaced to the user. Empty when the
	// turn produced no speech.
	SanitizedText string
	// RawLog is the full raw model response for log panes.
	RawLog string
	// Usage holds the token usage of the producing call, if reported.
	Usage *Usage
	// Tag distinguishes log streams ("output_log", "summarizer_output", ...).
	Tag string
}

// MemorySnapshotPayload is the payload for MsgMemorySnapshot. Entries are
// copied tier texts in creation order.
type MemorySnapshotPayload struct {
	STM []string
	MTM []string
	LTM []string
}

// StatusPayload is the payload for MsgStatus.
type StatusPayload struct {
	// EngineState is the turn engine state machine state ("Idle", ...).
	EngineState string
	// APIValid reports whether the generation service credentials passed
	// their last validation.
	APIValid bool
	// TurnTimer is a human readable countdown / pause explanation.
	TurnTimer string
	// Info carries one-off informational notices ("Settings saved.").
	Info string
}

// SettingsPayload is the payload for MsgSaveSettings. Zero values leave the
// corresponding setting unchanged, except booleans which are always applied.
type SettingsPayload struct {
	AgentName        string
	UserName         string
	AutoTurnEnabled  bool
	AutoTurnInterval time.Duration
	UserStatus       string
	ChatLogLength    int
	Params           map[string]float64
}

// Usage captures token usage statistics for a generation call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// UsageStats tracks cumulative usage across the process lifetime. Persisted
// with session state.
type UsageStats struct {
	Usage       Usage `json:"usage"`
	APIRequests int   `json:"api_requests"`
}
