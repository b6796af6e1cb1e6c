package transport

import "context"

// Subscription delivers the raw payloads published on one channel, in order.
type Subscription interface {
	Messages() <-chan string
	// Done is closed when the subscription ended, by Close or by the transport.
	Done() <-chan struct{}
	Close() error
}

type Transport interface {
	Publish(ctx context.Context, channel string, payload string) error
	// Subscribe returns once the subscription is active.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}
