package redis

import (
	"context"
	"sync"

	rd "github.com/go-redis/redis/v9"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/transport"
	"go.uber.org/zap"
)

var _ transport.Transport = new(redisTransport)

type redisTransport struct {
	client rd.UniversalClient
}

func NewRedisTransport(client rd.UniversalClient) *redisTransport {
	return &redisTransport{client: client}
}

func (t *redisTransport) Publish(ctx context.Context, channel string, payload string) error {
	return t.client.Publish(ctx, channel, payload).Err()
}

func (t *redisTransport) Subscribe(ctx context.Context, channel string) (transport.Subscription, error) {
	pubsub := t.client.Subscribe(ctx, channel)
	// wait for the subscribe confirmation so nothing published afterwards is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}
	sub := &redisSubscription{
		pubsub:   pubsub,
		channel:  channel,
		messages: make(chan string),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go sub.forward()
	return sub, nil
}

// Close is a no-op, the client is owned by the caller.
func (t *redisTransport) Close() error {
	return nil
}

type redisSubscription struct {
	pubsub   *rd.PubSub
	channel  string
	messages chan string
	closing  chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.done)
	in := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				logger.Debug("subscription ended", zap.String("channel", s.channel))
				return
			}
			select {
			case s.messages <- msg.Payload:
			case <-s.closing:
				return
			}
		case <-s.closing:
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan string {
	return s.messages
}

func (s *redisSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closing)
		err = s.pubsub.Close()
	})
	return err
}
