// Package engine runs one complete turn: assemble the context, call the
// generation service, validate the response, dispatch its directives and fold
// the turn into tiered memory.
//
// The engine is driven by a single goroutine (the turn actor) and owns no
// queues itself; scheduling and message plumbing live in package runner. A
// turn always runs to completion or fault once started. Structural invalidity
// is retried a bounded number of times with the same prompt; service errors
// abort the turn immediately and mutate no memory.
package engine
