package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/internal/util"
	"github.com/smolworks/smolagent/memory"
)

// DefaultSystemPrompt documents the response grammar for the model. The
// {NAME}/{USER} placeholders are substituted at assembly time.
const DefaultSystemPrompt = `You are {NAME}, a persistent agent in an ongoing relationship with {USER}. ` +
	`Every turn you must respond using only brace-delimited blocks. ` +
	`Always include exactly one {thinking: ...} block and one {self-prompt-from-{NAME}: ...} block stating your goal for your next turn. ` +
	`Speak to {USER} with {{NAME}-says: ...} blocks. ` +
	`You may manage your private files with {create-file-<name>}, {read-file-<name>}, {push-update-<name> : <content>}, ` +
	`{<name>-entry-<N>-delete} and {delete-file-<name>}, and raise {ping-user} to notify {USER}. ` +
	`Text outside blocks is discarded.`

// DefaultInitialSelfPrompt seeds the very first turn of a fresh agent.
const DefaultInitialSelfPrompt = `{self-prompt-from-{NAME}: I have just come online for the first time. ` +
	`I should introduce myself to {USER} and start learning who they are.}`

// DefaultFallbackSelfPrompt replaces a lost goal when history already exists.
const DefaultFallbackSelfPrompt = `{self-prompt-from-{NAME}: I cannot recall my previous goal. ` +
	`I should review my memories and files and decide what to do next.}`

// Tier headers as they appear in the assembled context, most durable first.
var tierHeaders = map[memory.TierName]string{
	memory.LTM: "[LONG-TERM-MEMORY]",
	memory.MTM: "[MID-TERM-MEMORY]",
	memory.STM: "[SHORT-TERM-MEMORY]",
}

// ResponseStartMarker closes the assembled context; generation continues from
// here and stops at the end-of-turn stop sequence.
const ResponseStartMarker = "{start-of-turn}"

// ContextInput carries everything one prompt assembly needs. All fields are
// reads; assembly never mutates state.
type ContextInput struct {
	SystemPrompt         string
	StandingInstructions string
	Memory               *memory.TierStore
	Files                []string
	State                *core.AgentState
	UserMessage          string
	UserStatus           string
	Now                  time.Time
}

// BuildContext renders the full generation prompt. The section order is a
// hard contract: system instructions, memory from most to least durable,
// recent chat, sandbox listing, standing instructions, time and presence
// metadata, the carried self-prompt, queued feedback, the new user message,
// then the response-start marker.
func BuildContext(in ContextInput) string {
	st := in.State
	var b strings.Builder

	system := in.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	b.WriteString(util.SubstituteIdentity(system, st.AgentName, st.UserName))
	b.WriteString("\n\n")

	for _, tierName := range []memory.TierName{memory.LTM, memory.MTM, memory.STM} {
		b.WriteString(tierHeaders[tierName])
		b.WriteString("\n")
		texts := in.Memory.Texts(tierName)
		if len(texts) == 0 {
			b.WriteString("(none)\n")
		}
		for _, text := range texts {
			b.WriteString("- ")
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	b.WriteString("[RECENT-CHAT-LOG]\n")
	lines := st.ChatLines()
	if len(lines) == 0 {
		b.WriteString("(none)\n")
	}
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("[SANDBOX-FILES]\n")
	if len(in.Files) == 0 {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(strings.Join(in.Files, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if in.StandingInstructions != "" {
		b.WriteString(util.SubstituteIdentity(in.StandingInstructions, st.AgentName, st.UserName))
		b.WriteString("\n\n")
	}

	status := in.UserStatus
	if status == "" {
		status = "unknown"
	}
	fmt.Fprintf(&b, "[CURRENT-TIME: %s][USER-STATUS: %s]\n\n", in.Now.Format("Monday 2006-01-02 15:04"), status)

	b.WriteString(selfPromptBlock(st))
	b.WriteString("\n")

	for _, fb := range st.PendingFeedback {
		b.WriteString(fb)
		b.WriteString("\n")
	}

	if in.UserMessage != "" {
		fmt.Fprintf(&b, "{%s-says: %s}\n", st.UserName, in.UserMessage)
	}

	b.WriteString(ResponseStartMarker)
	b.WriteString("\n")
	return b.String()
}

// selfPromptBlock returns the carried goal, or a seeded template when none
// exists: the introduction prompt for a fresh agent, the recovery prompt when
// history exists but the goal was lost.
func selfPromptBlock(st *core.AgentState) string {
	if strings.TrimSpace(st.SelfPrompt) != "" {
		return st.SelfPrompt
	}
	tmpl := DefaultInitialSelfPrompt
	if st.HasHistory {
		tmpl = DefaultFallbackSelfPrompt
	}
	return util.SubstituteIdentity(tmpl, st.AgentName, st.UserName)
}
