package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smolworks/smolagent/core"
	"github.com/smolworks/smolagent/engine"
	"github.com/smolworks/smolagent/logging"
	"github.com/smolworks/smolagent/memory"
	"github.com/smolworks/smolagent/model"
	"github.com/smolworks/smolagent/sandbox"
	"github.com/smolworks/smolagent/session"
)

// UserStatus values understood by the trigger evaluation.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusOffline = "offline"
)

// Options configure a Runner.
type Options struct {
	// PollInterval is the actor loop sleep between iterations.
	PollInterval time.Duration
	// AutoTurnEnabled starts the idle timer armed.
	AutoTurnEnabled bool
	// AutoTurnInterval is the idle time before an automatic turn fires.
	AutoTurnInterval time.Duration
	// UserStatus is the initial presence value.
	UserStatus string
	// Logger receives actor diagnostics. Defaults to NoOp.
	Logger logging.Logger
	// Clock supplies the current time; tests substitute a fixed one.
	Clock func() time.Time
}

// Runner is the turn actor. Exactly one goroutine runs its loop; every piece
// of agent state is owned by that goroutine and leaves it only as message
// payload copies.
type Runner struct {
	engine   *engine.Engine
	memory   *memory.TierStore
	store    *sandbox.Store
	sessions *session.Store
	state    *core.AgentState

	inbound  *core.MessageQueue
	outbound *core.MessageQueue
	opts     Options

	autoEnabled  bool
	autoInterval time.Duration
	userStatus   string
	userTyping   bool
	lastActivity time.Time
	pendingMsgs  []string
	apiValid     bool
	lastStatus   core.StatusPayload
}

// New wires a Runner around an engine and its stores.
func New(eng *engine.Engine, mem *memory.TierStore, store *sandbox.Store, sessions *session.Store, state *core.AgentState, optFns ...func(o *Options)) *Runner {
	opts := Options{
		PollInterval:     500 * time.Millisecond,
		AutoTurnInterval: 90 * time.Second,
		UserStatus:       StatusOnline,
		Logger:           logging.NoOpLogger{},
		Clock:            time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{
		engine:       eng,
		memory:       mem,
		store:        store,
		sessions:     sessions,
		state:        state,
		inbound:      core.NewMessageQueue(),
		outbound:     core.NewMessageQueue(),
		opts:         opts,
		autoEnabled:  opts.AutoTurnEnabled,
		autoInterval: opts.AutoTurnInterval,
		userStatus:   opts.UserStatus,
		lastActivity: opts.Clock(),
		apiValid:     true,
	}
}

// Inbound returns the presentation-to-actor queue.
func (r *Runner) Inbound() *core.MessageQueue { return r.inbound }

// Outbound returns the actor-to-presentation queue.
func (r *Runner) Outbound() *core.MessageQueue { return r.outbound }

// Run executes the actor loop until a stop message arrives or the context is
// cancelled. On a clean stop all mutable state is persisted first; context
// cancellation persists on a best-effort basis.
func (r *Runner) Run(ctx context.Context) error {
	r.opts.Logger.Info("turn actor started", "agent", r.state.AgentName)
	r.postMemorySnapshot()
	for {
		if stop := r.drainInbound(); stop {
			r.persist()
			r.postStatus("Stopped.")
			r.opts.Logger.Info("turn actor stopped")
			return nil
		}

		if userMsg, due := r.evaluateTrigger(); due {
			r.runTurn(ctx, userMsg)
		}
		r.postStatus("")

		select {
		case <-ctx.Done():
			r.persist()
			return ctx.Err()
		case <-time.After(r.opts.PollInterval):
		}
	}
}

// Step runs one loop iteration without sleeping. It exists for tests and
// embedders that drive the actor from their own loop; Run is the normal entry
// point. The bool result reports whether a stop message was consumed.
func (r *Runner) Step(ctx context.Context) bool {
	if stop := r.drainInbound(); stop {
		r.persist()
		r.postStatus("Stopped.")
		return true
	}
	if userMsg, due := r.evaluateTrigger(); due {
		r.runTurn(ctx, userMsg)
	}
	r.postStatus("")
	return false
}

// drainInbound applies every queued control message in arrival order. The
// bool result reports a stop request; remaining messages behind a stop are
// deliberately discarded.
func (r *Runner) drainInbound() bool {
	for _, msg := range r.inbound.Drain() {
		switch msg.Type {
		case core.MsgUserMessage:
			text, ok := msg.Payload.(string)
			if !ok || strings.TrimSpace(text) == "" {
				continue
			}
			r.pendingMsgs = append(r.pendingMsgs, text)
			// A message from the user proves presence.
			r.userStatus = StatusOnline
			r.userTyping = false

		case core.MsgHardReset:
			r.hardReset()

		case core.MsgSetAutoTurn:
			if enabled, ok := msg.Payload.(bool); ok {
				r.autoEnabled = enabled
				r.lastActivity = r.opts.Clock()
			}

		case core.MsgSaveSettings:
			if settings, ok := msg.Payload.(core.SettingsPayload); ok {
				r.applySettings(settings)
			}

		case core.MsgSetUserStatus:
			if status, ok := msg.Payload.(string); ok && status != "" {
				r.userStatus = status
			}

		case core.MsgUserTyping:
			if typing, ok := msg.Payload.(bool); ok {
				r.userTyping = typing
			}

		case core.MsgStop:
			return true

		default:
			r.opts.Logger.Warn("unknown inbound message", "type", string(msg.Type))
		}
	}
	return false
}

// evaluateTrigger decides whether a turn is due right now and, if the trigger
// is a user message, returns the combined pending text.
func (r *Runner) evaluateTrigger() (string, bool) {
	if len(r.pendingMsgs) > 0 {
		combined := strings.Join(r.pendingMsgs, "\n")
		r.pendingMsgs = nil
		return combined, true
	}
	// Directive feedback forces an immediate follow-up turn.
	if len(r.state.PendingFeedback) > 0 {
		return "", true
	}
	if r.autoEnabled &&
		r.userStatus != StatusOffline &&
		!r.userTyping &&
		r.opts.Clock().Sub(r.lastActivity) >= r.autoInterval {
		return "", true
	}
	return "", false
}

// runTurn drives the engine through one complete turn and publishes its
// results outward.
func (r *Runner) runTurn(ctx context.Context, userMsg string) {
	result, err := r.engine.ExecuteTurn(ctx, r.state, userMsg, r.userStatus)
	r.lastActivity = r.opts.Clock()
	if err != nil {
		var mErr *model.Error
		if errors.As(err, &mErr) && mErr.Kind == model.ErrorAuth {
			r.apiValid = false
		}
		// The input was never seen by the agent; keep it queued so the next
		// cycle retries the turn.
		if userMsg != "" {
			r.pendingMsgs = append([]string{userMsg}, r.pendingMsgs...)
		}
		r.postStatus("Turn failed: " + err.Error())
		return
	}
	r.apiValid = true

	if len(result.Speech) == 0 {
		r.outbound.Push(core.Message{Type: core.MsgNewMessage, Payload: core.NewMessagePayload{
			RawLog: result.Raw,
			Usage:  usageCopy(result.Usage),
			Tag:    "output_log",
		}})
	}
	for i, line := range result.Speech {
		payload := core.NewMessagePayload{SanitizedText: line, Tag: "output_log"}
		if i == 0 {
			payload.RawLog = result.Raw
			payload.Usage = usageCopy(result.Usage)
		}
		r.outbound.Push(core.Message{Type: core.MsgNewMessage, Payload: payload})
	}
	for i := 0; i < result.Pings; i++ {
		r.outbound.Push(core.Message{Type: core.MsgNotifyUser, Payload: r.state.AgentName + " pinged you."})
	}

	r.postMemorySnapshot()
	r.outbound.Push(core.Message{Type: core.MsgUsageStats, Payload: r.state.Stats})
}

// hardReset clears memory tiers, chat history and sandbox contents, disables
// the auto-turn timer and persists the cleared session. Settings survive.
func (r *Runner) hardReset() {
	if err := r.memory.Reset(); err != nil {
		r.opts.Logger.Error("hard reset: memory", "error", err)
	}
	if err := r.store.Wipe(); err != nil {
		r.opts.Logger.Error("hard reset: sandbox", "error", err)
	}
	r.state.Reset()
	r.pendingMsgs = nil
	r.autoEnabled = false
	r.persist()
	r.postMemorySnapshot()
	r.postStatus("Hard reset complete.")
	r.opts.Logger.Info("hard reset complete")
}

// applySettings folds a settings snapshot into the actor and persists it.
// Zero values leave the current setting in place, booleans always apply.
func (r *Runner) applySettings(settings core.SettingsPayload) {
	if settings.AgentName != "" {
		r.state.AgentName = settings.AgentName
	}
	if settings.UserName != "" {
		r.state.UserName = settings.UserName
	}
	r.autoEnabled = settings.AutoTurnEnabled
	if settings.AutoTurnInterval > 0 {
		r.autoInterval = settings.AutoTurnInterval
	}
	if settings.UserStatus != "" {
		r.userStatus = settings.UserStatus
	}
	if settings.ChatLogLength > 0 {
		r.state.Resize(settings.ChatLogLength)
	}
	if len(settings.Params) > 0 {
		params := model.DefaultParams()
		if v, ok := settings.Params["temperature"]; ok {
			params.Temperature = v
		}
		if v, ok := settings.Params["top_p"]; ok {
			params.TopP = v
		}
		if v, ok := settings.Params["top_k"]; ok {
			params.TopK = int(v)
		}
		r.engine.SetParams(params)
	}
	r.persist()
	r.postStatus("Settings saved.")
}

// persist writes the session document. Memory tiers persist themselves on
// every mutation; only session fields need an explicit save.
func (r *Runner) persist() {
	if r.sessions == nil {
		return
	}
	doc := &session.Document{
		State:            r.state,
		AutoTurnEnabled:  r.autoEnabled,
		AutoTurnInterval: r.autoInterval,
		UserStatus:       r.userStatus,
	}
	if err := r.sessions.Save(doc); err != nil {
		r.opts.Logger.Error("session save failed", "error", err)
	}
}

// postStatus publishes engine state, API validity and the auto-turn countdown.
// Unchanged statuses are suppressed unless they carry a one-off notice.
func (r *Runner) postStatus(info string) {
	status := core.StatusPayload{
		EngineState: r.engine.State().String(),
		APIValid:    r.apiValid,
		TurnTimer:   r.timerText(),
		Info:        info,
	}
	if info == "" && status == r.lastStatus {
		return
	}
	r.lastStatus = status
	r.outbound.Push(core.Message{Type: core.MsgStatus, Payload: status})
}

func (r *Runner) timerText() string {
	switch {
	case !r.autoEnabled:
		return "Auto-turn disabled."
	case r.userTyping:
		return "Paused: user is typing."
	case r.userStatus == StatusOffline:
		return "Paused: user is offline."
	default:
		remaining := r.autoInterval - r.opts.Clock().Sub(r.lastActivity)
		if remaining < 0 {
			remaining = 0
		}
		return fmt.Sprintf("Next auto-turn in %ds.", int(remaining.Round(time.Second).Seconds()))
	}
}

func (r *Runner) postMemorySnapshot() {
	r.outbound.Push(core.Message{Type: core.MsgMemorySnapshot, Payload: core.MemorySnapshotPayload{
		STM: r.memory.Texts(memory.STM),
		MTM: r.memory.Texts(memory.MTM),
		LTM: r.memory.Texts(memory.LTM),
	}})
}

func usageCopy(u core.Usage) *core.Usage {
	c := u
	return &c
}
