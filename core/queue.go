package core

import "sync"

// MessageQueue is an unbounded, thread-safe FIFO queue of Messages. It is the
// only channel of communication between the presentation actor and the turn
// actor: one queue per direction, no other shared mutable state.
//
// Contract:
//   - Push never blocks (the queue grows as needed)
//   - TryPop is non-blocking and reports emptiness via its second result
//   - Drain removes and returns everything queued at call time, preserving
//     FIFO order
type MessageQueue struct {
	mu    sync.Mutex
	items []Message
}

// NewMessageQueue constructs an empty queue.
func NewMessageQueue() *MessageQueue {
	return &MessageQueue{}
}

// Push appends a message to the tail of the queue.
func (q *MessageQueue) Push(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, msg)
}

// TryPop removes and returns the head of the queue. The second result is
// false when the queue is empty.
func (q *MessageQueue) TryPop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

// Drain removes and returns all currently queued messages in FIFO order.
// Messages pushed concurrently with Drain land in the next batch.
func (q *MessageQueue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	batch := q.items
	q.items = nil
	return batch
}

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
