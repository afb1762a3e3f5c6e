package grammar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

const fileNameClass = `[\w.\-]+`

// ValidationError reports why a response failed structural validation. It is
// never fatal by itself; the turn engine retries generation a bounded number
// of times before surfacing a fault.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return "invalid response: " + e.Reason }

// Options configure a Grammar.
type Options struct {
	// TextExtension is the reserved extension whose files hold numbered
	// entries; push-update on such files parses as append-entry, everything
	// else as overwrite-file.
	TextExtension string
}

// Grammar holds the compiled block patterns for one agent name. Patterns are
// rebuilt deterministically by SetAgentName; readers always see a complete
// pattern set for a single name.
type Grammar struct {
	mu        sync.RWMutex
	agentName string
	textExt   string

	thinking       *regexp.Regexp
	says           *regexp.Regexp
	selfPrompt     *regexp.Regexp
	selfPromptFull *regexp.Regexp
	command        *regexp.Regexp
	allBlocks      *regexp.Regexp
}

// New compiles a Grammar for the given agent name.
func New(agentName string, optFns ...func(o *Options)) *Grammar {
	opts := Options{TextExtension: ".txt"}
	for _, fn := range optFns {
		fn(&opts)
	}
	g := &Grammar{textExt: strings.ToLower(opts.TextExtension)}
	g.compile(agentName)
	return g
}

// AgentName returns the name the current patterns were compiled for.
func (g *Grammar) AgentName() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.agentName
}

// SetAgentName recompiles every name-parameterized pattern for the new name.
// A no-op when the name is unchanged.
func (g *Grammar) SetAgentName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if name == g.agentName {
		return
	}
	g.compileLocked(name)
}

func (g *Grammar) compile(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compileLocked(name)
}

func (g *Grammar) compileLocked(name string) {
	quoted := regexp.QuoteMeta(name)

	thinkingPat := `\{\s*thinking\s*:\s*(.*?)\s*\}`
	saysPat := `\{\s*` + quoted + `\s*-\s*says\s*:\s*(.*?)\s*\}`
	selfPromptPat := `\{\s*self\s*-\s*prompt\s*-\s*from\s*-\s*` + quoted + `\s*:\s*(.*?)\s*\}`
	commandInner := `read\s*-\s*file\s*-\s*` + fileNameClass +
		`|push\s*-\s*update\s*-\s*` + fileNameClass + `\s*:.*?` +
		`|` + fileNameClass + `\s*-\s*entry\s*-\s*\d+\s*-\s*delete` +
		`|create\s*-\s*file\s*-\s*` + fileNameClass +
		`|delete\s*-\s*file\s*-\s*` + fileNameClass +
		`|ping-user`
	commandPat := `\{\s*(` + commandInner + `)\s*\}`

	g.agentName = name
	g.thinking = regexp.MustCompile(`(?is)` + thinkingPat)
	g.says = regexp.MustCompile(`(?is)` + saysPat)
	g.selfPrompt = regexp.MustCompile(`(?is)` + selfPromptPat)
	g.selfPromptFull = regexp.MustCompile(`(?is)(\{\s*self\s*-\s*prompt\s*-\s*from\s*-\s*` + quoted + `\s*:.*?\})`)
	g.command = regexp.MustCompile(`(?is)` + commandPat)
	g.allBlocks = regexp.MustCompile(`(?is)(` + thinkingPat + `|` + saysPat + `|` + selfPromptPat + `|` + commandPat + `)`)
}

// Parse validates raw response text and extracts all blocks in source order.
// It returns a *ValidationError when either mandatory block is missing or
// empty. No command is ever surfaced from an invalid response.
func (g *Grammar) Parse(raw string) (*ParsedResponse, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if strings.TrimSpace(raw) == "" {
		return nil, &ValidationError{Reason: "response was empty"}
	}

	thinking := g.thinking.FindStringSubmatch(raw)
	if thinking == nil || strings.TrimSpace(thinking[1]) == "" {
		return nil, &ValidationError{Reason: "required {thinking} block is missing or empty"}
	}

	// Duplicate self-prompt blocks resolve first-match-wins.
	selfPrompt := g.selfPrompt.FindStringSubmatch(raw)
	if selfPrompt == nil || strings.TrimSpace(selfPrompt[1]) == "" {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("required {self-prompt-from-%s} block is missing or empty", g.agentName),
		}
	}
	selfPromptBlock := g.selfPromptFull.FindString(raw)

	blocks := g.allBlocks.FindAllString(raw, -1)
	if len(blocks) == 0 {
		return nil, &ValidationError{Reason: "no recognizable blocks found"}
	}

	parsed := &ParsedResponse{
		Raw:        raw,
		Thinking:   strings.TrimSpace(thinking[1]),
		SelfPrompt: selfPromptBlock,
		Sanitized:  strings.Join(blocks, ""),
	}

	for _, m := range g.says.FindAllStringSubmatch(raw, -1) {
		parsed.Speech = append(parsed.Speech, strings.TrimSpace(m[1]))
	}

	for _, m := range g.command.FindAllStringSubmatch(raw, -1) {
		cmd, ok := g.classifyCommand(m[1], m[0])
		if !ok {
			continue
		}
		parsed.Commands = append(parsed.Commands, cmd)
	}

	return parsed, nil
}

var (
	hyphenRun     = regexp.MustCompile(`\s*-\s*`)
	readFileRe    = regexp.MustCompile(`(?i)^read-file-(` + fileNameClass + `)$`)
	deleteEntryRe = regexp.MustCompile(`(?i)^(` + fileNameClass + `)-entry-(\d+)-delete$`)
	createFileRe  = regexp.MustCompile(`(?i)^create-file-(` + fileNameClass + `)$`)
	deleteFileRe  = regexp.MustCompile(`(?i)^delete-file-(` + fileNameClass + `)$`)
	pushUpdateRe  = regexp.MustCompile(`(?is)^push\s*-\s*update\s*-\s*(` + fileNameClass + `)\s*:\s*(.*)$`)
)

// classifyCommand maps the inner text of a matched command block onto the
// Command union. The push-update payload is taken verbatim; all other command
// forms are whitespace-normalized around hyphens before classification.
func (g *Grammar) classifyCommand(inner, raw string) (Command, bool) {
	if m := pushUpdateRe.FindStringSubmatch(strings.TrimSpace(inner)); m != nil {
		kind := KindOverwriteFile
		if g.isTextFile(m[1]) {
			kind = KindAppendEntry
		}
		return Command{Kind: kind, Filename: m[1], Content: strings.TrimSpace(m[2]), Raw: raw}, true
	}

	normalized := hyphenRun.ReplaceAllString(strings.TrimSpace(inner), "-")
	switch {
	case strings.EqualFold(normalized, "ping-user"):
		return Command{Kind: KindPingUser, Raw: raw}, true
	case readFileRe.MatchString(normalized):
		m := readFileRe.FindStringSubmatch(normalized)
		return Command{Kind: KindReadFile, Filename: m[1], Raw: raw}, true
	case createFileRe.MatchString(normalized):
		m := createFileRe.FindStringSubmatch(normalized)
		return Command{Kind: KindCreateFile, Filename: m[1], Raw: raw}, true
	case deleteFileRe.MatchString(normalized):
		m := deleteFileRe.FindStringSubmatch(normalized)
		return Command{Kind: KindDeleteFile, Filename: m[1], Raw: raw}, true
	case deleteEntryRe.MatchString(normalized):
		m := deleteEntryRe.FindStringSubmatch(normalized)
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Command{}, false
		}
		return Command{Kind: KindDeleteEntry, Filename: m[1], Entry: n, Raw: raw}, true
	}
	return Command{}, false
}

func (g *Grammar) isTextFile(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	return strings.ToLower(name[i:]) == g.textExt
}
