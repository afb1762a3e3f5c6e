// Package model abstracts the external text-generation service behind a
// minimal blocking interface. Concrete providers live in sub-packages
// (openai, anthropic); a scripted MockModel supports tests.
//
// Service failures are classified into a small taxonomy (auth, quota,
// transient) via the Error type. A safety block is not an error: the provider
// returns a normal Response whose text carries a terminal-style marker for
// the agent to reason about.
package model
