package grammar

import "fmt"

// Kind discriminates the Command tagged union.
type Kind int

const (
	// KindCreateFile creates an empty sandbox file.
	KindCreateFile Kind = iota
	// KindReadFile queues a file's content as next-turn feedback.
	KindReadFile
	// KindDeleteFile removes a sandbox file.
	KindDeleteFile
	// KindAppendEntry appends a numbered entry to a text-class file.
	KindAppendEntry
	// KindOverwriteFile replaces the whole content of a non-text file.
	KindOverwriteFile
	// KindDeleteEntry removes one numbered entry from a text-class file.
	KindDeleteEntry
	// KindPingUser raises an out-of-band notification to the user.
	KindPingUser
)

// String returns the directive name as it appears on the wire.
func (k Kind) String() string {
	switch k {
	case KindCreateFile:
		return "create-file"
	case KindReadFile:
		return "read-file"
	case KindDeleteFile:
		return "delete-file"
	case KindAppendEntry:
		return "append-entry"
	case KindOverwriteFile:
		return "overwrite-file"
	case KindDeleteEntry:
		return "delete-entry"
	case KindPingUser:
		return "ping-user"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Command is a single parsed directive. Commands are transient: parsed,
// executed, discarded. Only the textual feedback of their execution persists.
type Command struct {
	Kind     Kind
	Filename string // empty for ping-user
	Content  string // append-entry / overwrite-file payload
	Entry    int    // delete-entry target id
	Raw      string // original block text, for logging
}

// ParsedResponse is the structured form of a valid generated response.
type ParsedResponse struct {
	Raw        string
	Thinking   string    // thinking block content (opaque, never executed)
	SelfPrompt string    // full first self-prompt block, carried to next turn
	Speech     []string  // speech block contents in source order
	Commands   []Command // directives in source order
	Sanitized  string    // concatenation of all recognized blocks
}
