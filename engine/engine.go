package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/dispatch"
	"github.com/smolworks/smolagent/grammar"
	"github.com/smolworks/smolagent/logging"
	"github.com/smolworks/smolagent/memory"
	"github.com/smolworks/smolagent/model"
	"github.com/smolworks/smolagent/sandbox"
)

// State is the turn state machine position.
type State int

const (
	// StateIdle means no turn is running.
	StateIdle State = iota
	// StateAwaitingGeneration means a generation call is in flight.
	StateAwaitingGeneration
	// StateValidating means a response is being structurally checked.
	StateValidating
	// StateDispatching means parsed directives are executing.
	StateDispatching
	// StateConsolidatingMemory means the turn is entering tiered memory.
	StateConsolidatingMemory
	// StateFaulted means the turn aborted; the engine reports and resets to Idle.
	StateFaulted
)

// String returns the state's display name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingGeneration:
		return "AwaitingGeneration"
	case StateValidating:
		return "Validating"
	case StateDispatching:
		return "Dispatching"
	case StateConsolidatingMemory:
		return "ConsolidatingMemory"
	case StateFaulted:
		return "Faulted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidResponse is returned when every retry produced a structurally
// invalid response. No directive of any attempt was executed.
var ErrInvalidResponse = errors.New("generation produced no valid response")

// Options configure an Engine.
type Options struct {
	// MaxRetries bounds generation attempts per turn on structural invalidity.
	MaxRetries int
	// SystemPrompt overrides DefaultSystemPrompt.
	SystemPrompt string
	// StandingInstructions are injected into every context after the file listing.
	StandingInstructions string
	// Params are the generation parameters of the main turn call.
	Params model.Params
	// MaxTokens caps the main turn call's completion length. Zero uses the
	// provider default.
	MaxTokens int64
	// Logger receives turn diagnostics. Defaults to NoOp.
	Logger logging.Logger
	// Clock supplies the current time; tests substitute a fixed one.
	Clock func() time.Time
}

// TurnResult is the outcome of one completed (non-faulted) turn.
type TurnResult struct {
	TurnID   string
	Raw      string   // raw model text of the accepted attempt
	Speech   []string // surfaced speech blocks in source order
	Feedback []string // directive feedback queued for the next turn
	Pings    int      // user notifications raised
	Attempts int      // generation calls made, including rejected ones
	Usage    core.Usage

	// Blocked marks a service refusal; Raw then carries the marker text.
	Blocked bool
	// MemoryErr is a non-fatal consolidation failure, retried next turn.
	MemoryErr error
}

// Engine executes turns against a fixed set of collaborators. It is not safe
// for concurrent use; exactly one goroutine (the turn actor) may drive it.
type Engine struct {
	grammar    *grammar.Grammar
	store      *sandbox.Store
	dispatcher *dispatch.Dispatcher
	memory     *memory.TierStore
	distiller  memory.Summarizer
	model      model.Model
	opts       Options

	state     State
	lastFault string
}

// New wires an Engine. The distiller condenses each completed turn into its
// short-term memory entry; passing the memory store's own summarizer is the
// usual choice.
func New(g *grammar.Grammar, store *sandbox.Store, d *dispatch.Dispatcher, mem *memory.TierStore, distiller memory.Summarizer, m model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxRetries: 3,
		Params:     model.DefaultParams(),
		Logger:     logging.NoOpLogger{},
		Clock:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	return &Engine{
		grammar:    g,
		store:      store,
		dispatcher: d,
		memory:     mem,
		distiller:  distiller,
		model:      m,
		opts:       opts,
		state:      StateIdle,
	}
}

// State returns the state machine position.
func (e *Engine) State() State { return e.state }

// LastFault returns a description of the most recent fault, if any.
func (e *Engine) LastFault() string { return e.lastFault }

// SetParams replaces the generation parameters for subsequent turns.
func (e *Engine) SetParams(p model.Params) { e.opts.Params = p }

// ExecuteTurn runs one full turn against the given state. userMessage may be
// empty (feedback- or timer-triggered turns). On fault the state is left
// untouched except for accumulated usage counters; queued feedback survives
// for the next attempt.
func (e *Engine) ExecuteTurn(ctx context.Context, st *core.AgentState, userMessage, userStatus string) (*TurnResult, error) {
	turnID := core.NewID()
	log := e.opts.Logger
	log.Info("turn started", "turn_id", turnID, "user_message", userMessage != "")

	e.grammar.SetAgentName(st.AgentName)
	e.dispatcher.SetIdentity(st.AgentName, st.UserName)

	prompt := BuildContext(ContextInput{
		SystemPrompt:         e.opts.SystemPrompt,
		StandingInstructions: e.opts.StandingInstructions,
		Memory:               e.memory,
		Files:                e.store.List(),
		State:                st,
		UserMessage:          userMessage,
		UserStatus:           userStatus,
		Now:                  e.opts.Clock(),
	})

	result := &TurnResult{TurnID: turnID}
	var parsed *grammar.ParsedResponse
	var lastInvalid error

	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		e.state = StateAwaitingGeneration
		resp, err := e.generate(ctx, st, prompt, result)
		if err != nil {
			return nil, e.fault(err)
		}

		if resp.Blocked {
			// A refusal is content for the agent to reason about, not a fault.
			return e.finishBlocked(st, userMessage, resp, result), nil
		}

		e.state = StateValidating
		parsed, err = e.grammar.Parse(resp.Text)
		if err == nil {
			result.Raw = resp.Text
			break
		}
		var vErr *grammar.ValidationError
		if !errors.As(err, &vErr) {
			return nil, e.fault(err)
		}
		lastInvalid = err
		parsed = nil
		log.Warn("response rejected", "turn_id", turnID, "attempt", attempt, "reason", vErr.Reason)
	}

	if parsed == nil {
		return nil, e.fault(fmt.Errorf("%w after %d attempts: %v", ErrInvalidResponse, result.Attempts, lastInvalid))
	}

	e.state = StateDispatching
	dres := e.dispatcher.Dispatch(parsed.Commands)
	result.Feedback = dres.Feedback
	result.Pings = dres.Pings
	result.Speech = parsed.Speech

	// Commit the turn into session state only after dispatch: the self-prompt
	// carries forward, directive feedback queues for the follow-up turn and
	// the exchange lands in the chat log.
	if userMessage != "" {
		st.AppendChat(st.UserName, userMessage)
	}
	for _, line := range parsed.Speech {
		st.AppendChat(st.AgentName, line)
	}
	st.SelfPrompt = parsed.SelfPrompt
	st.PendingFeedback = nil
	st.QueueFeedback(dres.Feedback...)

	e.state = StateConsolidatingMemory
	result.MemoryErr = e.ingest(ctx, st, userMessage, parsed)

	e.state = StateIdle
	log.Info("turn completed", "turn_id", turnID,
		"attempts", result.Attempts, "commands", len(parsed.Commands), "speech", len(parsed.Speech))
	return result, nil
}

// generate performs one model call and folds its usage into the session
// counters. Counters accumulate even for attempts that are later rejected.
func (e *Engine) generate(ctx context.Context, st *core.AgentState, prompt string, result *TurnResult) (*model.Response, error) {
	start := e.opts.Clock()
	resp, err := e.model.Generate(ctx, model.Request{
		Prompt:        prompt,
		Params:        e.opts.Params,
		StopSequences: model.DefaultStopSequences(),
		MaxTokens:     e.opts.MaxTokens,
	})
	result.Attempts++
	st.Stats.APIRequests++
	if err != nil {
		e.opts.Logger.Error("generation failed", "provider", e.model.Info().Provider, "error", err)
		return nil, err
	}
	if resp.Usage != nil {
		st.Stats.Usage.Add(*resp.Usage)
		result.Usage.Add(*resp.Usage)
	}
	e.opts.Logger.Debug("generation completed",
		"provider", e.model.Info().Provider, "duration", e.opts.Clock().Sub(start), "blocked", resp.Blocked)
	if strings.TrimSpace(resp.Text) == "" && !resp.Blocked {
		resp.Text = model.EmptyText
	}
	return resp, nil
}

// finishBlocked completes a turn whose generation was refused: the marker is
// queued as next-turn feedback so the agent can react, nothing is dispatched
// and memory is left untouched.
func (e *Engine) finishBlocked(st *core.AgentState, userMessage string, resp *model.Response, result *TurnResult) *TurnResult {
	if userMessage != "" {
		st.AppendChat(st.UserName, userMessage)
	}
	// Feedback already rendered into this turn's prompt is consumed even
	// though the generation was refused; only the marker carries forward.
	st.PendingFeedback = nil
	st.QueueFeedback(resp.Text)
	result.Raw = resp.Text
	result.Blocked = true
	e.state = StateIdle
	e.opts.Logger.Warn("turn blocked by service", "turn_id", result.TurnID)
	return result
}

// ingest distills the completed turn into a short-term memory entry and runs
// the consolidation cascade. Failures are reported, never fatal: the tier
// stays over capacity and the next turn retries.
func (e *Engine) ingest(ctx context.Context, st *core.AgentState, userMessage string, parsed *grammar.ParsedResponse) error {
	var transcript strings.Builder
	if userMessage != "" {
		fmt.Fprintf(&transcript, "%s: %s\n", st.UserName, userMessage)
	}
	transcript.WriteString(parsed.Sanitized)

	entry, err := e.distiller.Summarize(ctx, memory.STM, transcript.String())
	if err != nil {
		// Fall back to the undistilled turn so memory never skips a turn.
		e.opts.Logger.Warn("turn distillation failed, storing sanitized turn", "error", err)
		entry = parsed.Sanitized
	}
	if err := e.memory.Append(ctx, entry); err != nil {
		e.opts.Logger.Error("memory ingest incomplete", "error", err)
		return err
	}
	return nil
}

// fault records the abort, reports it and resets to Idle per the state
// machine contract.
func (e *Engine) fault(err error) error {
	e.state = StateFaulted
	e.lastFault = err.Error()
	e.opts.Logger.Error("turn faulted", "error", err)
	e.state = StateIdle
	return err
}
