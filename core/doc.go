// Package core provides the foundational domain types used by the smolagent
// runtime. It defines the core abstractions for:
//
//   - Messages (the sole unit exchanged between the turn actor and the
//     presentation actor) and their typed payloads
//   - MessageQueue (unidirectional FIFO queues carrying those messages)
//   - AgentState (identity, self-prompt, chat history, pending feedback)
//   - Usage accounting for generation calls
//
// The package intentionally keeps implementation concerns (persistence, turn
// orchestration, concrete stores) out of scope, exposing small types to
// enable custom frontends and extensions. No mutable data structure in this
// package may be shared between the two actors; payloads are copied on send.
package core
