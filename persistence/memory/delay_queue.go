package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mikesparr/redis-workflow/persistence"
)

var _ persistence.DelayQueue = new(memoryDelayQueue)

type delayedMessage struct {
	dueAt   int64
	message string
}

type memoryDelayQueue struct {
	mu     sync.Mutex
	queues map[string][]delayedMessage
}

func NewMemoryDelayQueue() *memoryDelayQueue {
	return &memoryDelayQueue{
		queues: make(map[string][]delayedMessage),
	}
}

func (q *memoryDelayQueue) Push(ctx context.Context, queueName string, dueAtMillis int64, message []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	queue := q.queues[queueName]
	idx := sort.Search(len(queue), func(i int) bool {
		return queue[i].dueAt > dueAtMillis
	})
	queue = append(queue, delayedMessage{})
	copy(queue[idx+1:], queue[idx:])
	queue[idx] = delayedMessage{dueAt: dueAtMillis, message: string(message)}
	q.queues[queueName] = queue
	return nil
}

func (q *memoryDelayQueue) PopDue(ctx context.Context, queueName string, nowMillis int64) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	queue := q.queues[queueName]
	idx := sort.Search(len(queue), func(i int) bool {
		return queue[i].dueAt > nowMillis
	})
	res := make([]string, 0, idx)
	for _, msg := range queue[:idx] {
		res = append(res, msg.message)
	}
	q.queues[queueName] = queue[idx:]
	return res, nil
}
