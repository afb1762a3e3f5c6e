// Package smolagent wires the turn engine, sandboxed file store, tiered
// memory and scheduler into a single embeddable agent.
//
// A minimal session:
//
//	agent, err := smolagent.New(func(o *smolagent.Options) {
//		o.AgentName = "Wisper"
//		o.Model = openai.NewModel()
//	})
//	if err != nil { ... }
//	go agent.Start(ctx)
//	agent.Send("hello")
//	for _, msg := range agent.Outbound().Drain() { ... }
package smolagent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/dispatch"
	"github.com/smolworks/smolagent/engine"
	"github.com/smolworks/smolagent/grammar"
	"github.com/smolworks/smolagent/logging"
	"github.com/smolworks/smolagent/memory"
	"github.com/smolworks/smolagent/model"
	"github.com/smolworks/smolagent/runner"
	"github.com/smolworks/smolagent/sandbox"
	"github.com/smolworks/smolagent/session"
)

// Options aggregate the tunables of a whole agent. Every field has a working
// default; the zero options produce a mock-backed agent under ./smolagent-data.
type Options struct {
	// DataDir roots all persistence: sandbox files, memory tiers, session.
	DataDir string
	// AgentName / UserName seed the identity of a fresh session. A persisted
	// session keeps its own identity.
	AgentName string
	UserName  string
	// ChatLogLength bounds the recent chat history.
	ChatLogLength int

	// Model is the generation service. Defaults to a scripted mock.
	Model model.Model
	// SystemPrompt / StandingInstructions override the context defaults.
	SystemPrompt         string
	StandingInstructions string
	// MaxRetries bounds generation attempts per turn.
	MaxRetries int
	// Params are the generation parameters.
	Params model.Params

	// SandboxMaxChars / SandboxMaxFiles bound the file store.
	SandboxMaxChars int
	SandboxMaxFiles int
	// MemoryCapacities overrides the per-tier entry limits.
	MemoryCapacities map[memory.TierName]int

	// AutoTurnEnabled / AutoTurnInterval configure the idle scheduler.
	AutoTurnEnabled  bool
	AutoTurnInterval time.Duration
	// PollInterval is the actor loop cadence.
	PollInterval time.Duration

	// Logger is shared by every component. Defaults to NoOp.
	Logger logging.Logger
}

// Agent is a fully wired conversational agent. Construct with New, drive with
// Start and talk to it through the inbound/outbound queues.
type Agent struct {
	runner   *runner.Runner
	state    *core.AgentState
	memory   *memory.TierStore
	sandbox  *sandbox.Store
	sessions *session.Store
}

// New builds an Agent, restoring any persisted session under DataDir.
func New(optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		DataDir:          "smolagent-data",
		AgentName:        "Agent",
		UserName:         "User",
		ChatLogLength:    10,
		MaxRetries:       3,
		Params:           model.DefaultParams(),
		SandboxMaxChars:  500,
		SandboxMaxFiles:  10,
		AutoTurnInterval: 90 * time.Second,
		PollInterval:     500 * time.Millisecond,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Model == nil {
		opts.Model = model.NewMockModel()
	}

	sessions := session.NewStore(filepath.Join(opts.DataDir, "session.json"), func(o *session.Options) {
		o.Logger = opts.Logger
	})

	state := core.NewAgentState(opts.AgentName, opts.UserName, opts.ChatLogLength)
	autoEnabled := opts.AutoTurnEnabled
	autoInterval := opts.AutoTurnInterval
	userStatus := runner.StatusOnline
	doc, err := sessions.Load()
	switch {
	case err == nil:
		state = doc.State
		if state.ChatLogLength <= 0 {
			state.ChatLogLength = opts.ChatLogLength
		}
		autoEnabled = doc.AutoTurnEnabled
		if doc.AutoTurnInterval > 0 {
			autoInterval = doc.AutoTurnInterval
		}
		if doc.UserStatus != "" {
			userStatus = doc.UserStatus
		}
		if doc.Params != (model.Params{}) {
			opts.Params = doc.Params
		}
	case errors.Is(err, session.ErrNoSession):
		// First run, keep the configured defaults.
	default:
		return nil, fmt.Errorf("restore session: %w", err)
	}

	store, err := sandbox.NewStore(filepath.Join(opts.DataDir, "files"), func(o *sandbox.Options) {
		o.MaxChars = opts.SandboxMaxChars
		o.MaxFiles = opts.SandboxMaxFiles
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}

	summarizer := memory.NewModelSummarizer(opts.Model, func(o *memory.ModelSummarizerOptions) {
		o.AgentName = state.AgentName
		o.UserName = state.UserName
		o.OnUsage = func(_ string, resp *model.Response) {
			state.Stats.APIRequests++
			if resp.Usage != nil {
				state.Stats.Usage.Add(*resp.Usage)
			}
		}
	})

	tiers, err := memory.NewTierStore(filepath.Join(opts.DataDir, "memory"), summarizer, func(o *memory.Options) {
		if opts.MemoryCapacities != nil {
			o.Capacities = opts.MemoryCapacities
		}
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}

	g := grammar.New(state.AgentName)
	dispatcher := dispatch.New(store, func(o *dispatch.Options) {
		o.AgentName = state.AgentName
		o.UserName = state.UserName
		o.Logger = opts.Logger
	})

	eng := engine.New(g, store, dispatcher, tiers, summarizer, opts.Model, func(o *engine.Options) {
		o.MaxRetries = opts.MaxRetries
		o.SystemPrompt = opts.SystemPrompt
		o.StandingInstructions = opts.StandingInstructions
		o.Params = opts.Params
		o.Logger = opts.Logger
	})

	run := runner.New(eng, tiers, store, sessions, state, func(o *runner.Options) {
		o.PollInterval = opts.PollInterval
		o.AutoTurnEnabled = autoEnabled
		o.AutoTurnInterval = autoInterval
		o.UserStatus = userStatus
		o.Logger = opts.Logger
	})

	return &Agent{runner: run, state: state, memory: tiers, sandbox: store, sessions: sessions}, nil
}

// Start runs the turn actor until Stop is received or the context ends. It
// blocks; run it on its own goroutine.
func (a *Agent) Start(ctx context.Context) error {
	return a.runner.Run(ctx)
}

// Inbound returns the control queue (presentation actor to turn actor).
func (a *Agent) Inbound() *core.MessageQueue { return a.runner.Inbound() }

// Outbound returns the result queue (turn actor to presentation actor).
func (a *Agent) Outbound() *core.MessageQueue { return a.runner.Outbound() }

// Send enqueues a user chat message.
func (a *Agent) Send(text string) {
	a.runner.Inbound().Push(core.Message{Type: core.MsgUserMessage, Payload: text})
}

// Stop requests a clean shutdown; state is persisted between turns.
func (a *Agent) Stop() {
	a.runner.Inbound().Push(core.Message{Type: core.MsgStop})
}
