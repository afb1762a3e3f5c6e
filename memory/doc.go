// Package memory implements the tiered memory store: three ordered tiers
// (STM, MTM, LTM) of increasing abstraction and decreasing turnover.
//
// Entries accumulate in STM. Whenever a tier exceeds its capacity after an
// append, its oldest batch is summarized through the generation service and
// the summary becomes a single new entry in the next tier up; LTM distills
// into itself. Cascades run to a fixed point within the same turn, bounded by
// a maximum depth so pathological capacities still terminate. Each tier is
// persisted to its own JSON file, atomically replaced after every mutation.
package memory
