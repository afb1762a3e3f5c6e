// Package session persists the agent's durable session document: identity,
// chat history, the carried self-prompt, usage counters and scheduler
// tunables. The document is written atomically on settings save, clean stop
// and hard reset, and loaded once at start.
package session
