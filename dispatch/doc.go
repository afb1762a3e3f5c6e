// Package dispatch routes parsed directives to sandbox operations and turns
// every outcome, success or failure, into feedback text for the agent's next
// turn.
//
// Feedback is appended in command order; a failing directive never prevents
// later directives in the same response from executing, and sandbox errors
// are converted to feedback rather than propagated. The ping-user directive
// is the one exception: it produces an out-of-band notification instead of
// file-store feedback.
package dispatch
