// Package grammar defines the structural contract of a generated response
// and extracts the directives embedded in it.
//
// A response is valid iff it contains a non-empty {thinking: ...} block and a
// non-empty {self-prompt-from-<Agent>: ...} block. Speech blocks and command
// blocks are optional and extracted in source order using non-overlapping
// leftmost-first matching. The self-prompt delimiter is parameterized by the
// configured agent name, so compiled patterns are rebuilt whenever the name
// changes (SetAgentName); no stale pattern is ever consulted.
package grammar
