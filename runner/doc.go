// Package runner hosts the turn actor: a polling loop that owns all agent
// state, drains the inbound control queue, decides when a turn is due and
// drives the engine through exactly one turn at a time.
//
// The presentation side never touches agent state; it pushes control messages
// inbound and drains results outbound. Both queues carry self-contained
// copies only.
package runner
