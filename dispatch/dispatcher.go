package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smolworks/smolagent/grammar"
	"github.com/smolworks/smolagent/internal/util"
	"github.com/smolworks/smolagent/logging"
	"github.com/smolworks/smolagent/sandbox"
)

// Options configure a Dispatcher.
type Options struct {
	// Templates are the feedback formats. Defaults to DefaultTemplates.
	Templates Templates
	// AgentName / UserName feed the {NAME}/{USER} placeholders.
	AgentName string
	UserName  string
	// Logger receives per-directive diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Result is the outcome of dispatching one response's directives.
type Result struct {
	// Feedback holds one rendered line per file directive, in source order.
	Feedback []string
	// Pings counts ping-user directives; they produce notifications, not feedback.
	Pings int
}

// Dispatcher executes parsed directives against the sandbox and renders an
// outcome line for each. A failing directive never aborts the ones after it.
type Dispatcher struct {
	store *sandbox.Store
	opts  Options
}

// New constructs a Dispatcher bound to a sandbox store.
func New(store *sandbox.Store, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Templates: DefaultTemplates(),
		AgentName: "Agent",
		UserName:  "User",
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{store: store, opts: opts}
}

// SetIdentity updates the names substituted into feedback.
func (d *Dispatcher) SetIdentity(agentName, userName string) {
	d.opts.AgentName = agentName
	d.opts.UserName = userName
}

// Dispatch executes the directives one by one and collects their feedback.
func (d *Dispatcher) Dispatch(commands []grammar.Command) Result {
	var res Result
	for _, cmd := range commands {
		if cmd.Kind == grammar.KindPingUser {
			res.Pings++
			d.opts.Logger.Info("user ping raised")
			continue
		}
		feedback, ok := d.execute(cmd)
		if ok {
			d.opts.Logger.Info("directive executed", "kind", cmd.Kind.String(), "file", cmd.Filename)
		} else {
			d.opts.Logger.Warn("directive failed", "kind", cmd.Kind.String(), "file", cmd.Filename)
		}
		res.Feedback = append(res.Feedback, feedback)
	}
	return res
}

// execute runs one file directive and returns its rendered outcome plus
// whether the sandbox operation succeeded.
func (d *Dispatcher) execute(cmd grammar.Command) (string, bool) {
	t := d.opts.Templates
	switch cmd.Kind {
	case grammar.KindReadFile:
		content, err := d.store.Read(cmd.Filename)
		switch {
		case err == nil:
			return d.render(t.ReadSuccess, cmd, map[string]any{"Content": content}), true
		case errors.Is(err, sandbox.ErrPathEscape):
			return d.render(t.PathEscape, cmd, nil), false
		case errors.Is(err, sandbox.ErrNotFound):
			return d.render(t.ReadNotFound, cmd, nil), false
		default:
			return d.render(t.ReadError, cmd, nil), false
		}

	case grammar.KindAppendEntry:
		id, err := d.store.AppendEntry(cmd.Filename, cmd.Content)
		switch {
		case err == nil:
			return d.render(t.AppendSuccess, cmd, map[string]any{"Entry": id}), true
		case errors.Is(err, sandbox.ErrPathEscape):
			return d.render(t.PathEscape, cmd, nil), false
		case errors.Is(err, sandbox.ErrNotFound):
			return d.render(t.PushNotFound, cmd, nil), false
		case errors.Is(err, sandbox.ErrFileTooLarge):
			// Show the current content so the agent can pick an entry to drop.
			current, readErr := d.store.Read(cmd.Filename)
			if readErr != nil {
				current = ""
			}
			return d.render(t.AppendCapacity, cmd, map[string]any{"Content": current}), false
		case errors.Is(err, sandbox.ErrWrongFileClass):
			return d.render(t.WrongFileClass, cmd, map[string]any{"Detail": err.Error()}), false
		default:
			return d.render(t.ReadError, cmd, nil), false
		}

	case grammar.KindOverwriteFile:
		err := d.store.Overwrite(cmd.Filename, cmd.Content)
		switch {
		case err == nil:
			return d.render(t.OverwriteSuccess, cmd, nil), true
		case errors.Is(err, sandbox.ErrPathEscape):
			return d.render(t.PathEscape, cmd, nil), false
		case errors.Is(err, sandbox.ErrNotFound):
			return d.render(t.PushNotFound, cmd, nil), false
		case errors.Is(err, sandbox.ErrFileTooLarge):
			return d.render(t.OverwriteCapacity, cmd, map[string]any{"Limit": d.store.MaxChars()}), false
		case errors.Is(err, sandbox.ErrWrongFileClass):
			return d.render(t.WrongFileClass, cmd, map[string]any{"Detail": err.Error()}), false
		default:
			return d.render(t.ReadError, cmd, nil), false
		}

	case grammar.KindDeleteEntry:
		err := d.store.DeleteEntry(cmd.Filename, cmd.Entry)
		switch {
		case err == nil:
			return d.render(t.DeleteEntrySuccess, cmd, map[string]any{"Entry": cmd.Entry}), true
		case errors.Is(err, sandbox.ErrPathEscape):
			return d.render(t.PathEscape, cmd, nil), false
		case errors.Is(err, sandbox.ErrEntryNotFound):
			return d.render(t.DeleteEntryNotFound, cmd, map[string]any{"Entry": cmd.Entry}), false
		case errors.Is(err, sandbox.ErrNotFound):
			return d.render(t.DeleteNotFound, cmd, nil), false
		case errors.Is(err, sandbox.ErrWrongFileClass):
			return d.render(t.WrongFileClass, cmd, map[string]any{"Detail": err.Error()}), false
		default:
			return d.render(t.DeleteEntryError, cmd, nil), false
		}

	case grammar.KindCreateFile:
		err := d.store.Create(cmd.Filename)
		switch {
		case err == nil:
			return d.render(t.CreateSuccess, cmd, nil), true
		case errors.Is(err, sandbox.ErrPathEscape):
			return d.render(t.PathEscape, cmd, nil), false
		case errors.Is(err, sandbox.ErrWrongFileClass):
			return d.render(t.CreateInvalidExtension, cmd, map[string]any{
				"Extensions": strings.Join(d.store.AllowedExtensions(), ", "),
			}), false
		case errors.Is(err, sandbox.ErrSandboxFull):
			return d.render(t.CreateCapacity, cmd, map[string]any{
				"Limit": d.store.MaxFiles(),
				"Files": strings.Join(d.store.List(), ", "),
			}), false
		case errors.Is(err, sandbox.ErrAlreadyExists):
			return d.render(t.CreateExists, cmd, nil), false
		default:
			return d.render(t.CreateError, cmd, nil), false
		}

	case grammar.KindDeleteFile:
		err := d.store.Delete(cmd.Filename)
		switch {
		case err == nil:
			return d.render(t.DeleteSuccess, cmd, nil), true
		case errors.Is(err, sandbox.ErrPathEscape):
			return d.render(t.PathEscape, cmd, nil), false
		case errors.Is(err, sandbox.ErrNotFound):
			return d.render(t.DeleteNotFound, cmd, nil), false
		default:
			return d.render(t.DeleteError, cmd, nil), false
		}

	default:
		d.opts.Logger.Warn("unknown directive kind skipped", "kind", cmd.Kind.String(), "raw", cmd.Raw)
		return fmt.Sprintf("{Terminal: unknown-directive[%s]}", cmd.Raw), false
	}
}

// render fills one template with the command's filename plus extra fields.
// A malformed custom template degrades to a bare outcome line instead of
// losing the feedback.
func (d *Dispatcher) render(tmpl string, cmd grammar.Command, extra map[string]any) string {
	data := map[string]any{"Filename": cmd.Filename}
	for k, v := range extra {
		data[k] = v
	}
	text := util.SubstituteIdentity(tmpl, d.opts.AgentName, d.opts.UserName)
	rendered, err := util.RenderTemplate(text, data)
	if err != nil {
		d.opts.Logger.Error("feedback template failed", "kind", cmd.Kind.String(), "error", err)
		return fmt.Sprintf("{Terminal: %s[%s]}", cmd.Kind.String(), cmd.Filename)
	}
	return rendered
}
