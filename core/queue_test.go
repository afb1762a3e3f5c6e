package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewMessageQueue()
	for i := 0; i < 5; i++ {
		q.Push(Message{Type: MsgUserMessage, Payload: i})
	}

	for i := 0; i < 5; i++ {
		msg, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, msg.Payload)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueueDrain(t *testing.T) {
	q := NewMessageQueue()
	q.Push(Message{Type: MsgStatus})
	q.Push(Message{Type: MsgNewMessage})

	batch := q.Drain()
	require.Len(t, batch, 2)
	assert.Equal(t, MsgStatus, batch[0].Type)
	assert.Equal(t, MsgNewMessage, batch[1].Type)
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Drain())
}

func TestQueueConcurrentPushers(t *testing.T) {
	q := NewMessageQueue()
	const pushers, perPusher = 8, 100

	var wg sync.WaitGroup
	for p := 0; p < pushers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPusher; i++ {
				q.Push(Message{Type: MsgUserMessage, Payload: fmt.Sprintf("%d/%d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, pushers*perPusher, q.Len())
}
