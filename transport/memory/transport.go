package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/mikesparr/redis-workflow/transport"
)

var _ transport.Transport = new(memoryTransport)

var ErrClosed = errors.New("transport closed")

// memoryTransport is an in-process pub/sub. Publish blocks until every
// subscriber of the channel took the payload or went away.
type memoryTransport struct {
	mu       sync.RWMutex
	subs     map[string]map[*memorySubscription]struct{}
	capacity int
	closed   bool
}

func NewMemoryTransport(capacity int) *memoryTransport {
	return &memoryTransport{
		subs:     make(map[string]map[*memorySubscription]struct{}),
		capacity: capacity,
	}
}

func (t *memoryTransport) Publish(ctx context.Context, channel string, payload string) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return ErrClosed
	}
	subs := make([]*memorySubscription, 0, len(t.subs[channel]))
	for sub := range t.subs[channel] {
		subs = append(subs, sub)
	}
	t.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.messages <- payload:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *memoryTransport) Subscribe(ctx context.Context, channel string) (transport.Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	sub := &memorySubscription{
		transport: t,
		channel:   channel,
		messages:  make(chan string, t.capacity),
		done:      make(chan struct{}),
	}
	if _, ok := t.subs[channel]; !ok {
		t.subs[channel] = make(map[*memorySubscription]struct{})
	}
	t.subs[channel][sub] = struct{}{}
	return sub, nil
}

func (t *memoryTransport) unsubscribe(sub *memorySubscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs[sub.channel], sub)
	if len(t.subs[sub.channel]) == 0 {
		delete(t.subs, sub.channel)
	}
}

func (t *memoryTransport) Close() error {
	t.mu.Lock()
	subs := t.subs
	t.subs = make(map[string]map[*memorySubscription]struct{})
	t.closed = true
	t.mu.Unlock()
	for _, set := range subs {
		for sub := range set {
			sub.stop()
		}
	}
	return nil
}

type memorySubscription struct {
	transport *memoryTransport
	channel   string
	messages  chan string
	done      chan struct{}
	once      sync.Once
}

func (s *memorySubscription) Messages() <-chan string {
	return s.messages
}

func (s *memorySubscription) Done() <-chan struct{} {
	return s.done
}

func (s *memorySubscription) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *memorySubscription) Close() error {
	s.transport.unsubscribe(s)
	s.stop()
	return nil
}
