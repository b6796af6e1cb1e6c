package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/util"
	"go.uber.org/zap"
)

type Handler func(Notification)

// Bus delivers notifications to registered handlers on a single goroutine,
// in emit order. Emit never blocks, so handlers may emit themselves.
type Bus struct {
	mu        sync.RWMutex
	byKind    map[Kind][]Handler
	byAction  map[string][]Handler
	catchAll  []Handler
	pendingMu sync.Mutex
	pending   []Notification
	closing   bool
	closed    bool
	worker    *util.Worker[struct{}]
	wg        sync.WaitGroup
	now       func() time.Time
}

// NewBus starts the delivery goroutine. capacity sizes the initial queue,
// the queue itself is unbounded.
func NewBus(capacity int) *Bus {
	b := &Bus{
		byKind:   make(map[Kind][]Handler),
		byAction: make(map[string][]Handler),
		pending:  make([]Notification, 0, capacity),
		now:      time.Now,
	}
	b.worker = util.NewWorker("notification-bus", &b.wg, b.drain, 1)
	b.worker.Start()
	return b
}

func (b *Bus) On(kind Kind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byKind[kind] = append(b.byKind[kind], handler)
}

// OnAction registers handler for the ACTION notifications of one action name.
func (b *Bus) OnAction(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byAction[name] = append(b.byAction[name], handler)
}

func (b *Bus) OnAny(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catchAll = append(b.catchAll, handler)
}

// Emit queues n for delivery. Notifications emitted after Close are dropped.
func (b *Bus) Emit(n Notification) {
	if len(n.Id) == 0 {
		n.Id = uuid.NewString()
	}
	if n.Time.IsZero() {
		n.Time = b.now()
	}
	b.pendingMu.Lock()
	if b.closed {
		b.pendingMu.Unlock()
		logger.Warn("dropping notification on closed bus", zap.String("kind", string(n.Kind)), zap.String("channel", n.Channel))
		return
	}
	b.pending = append(b.pending, n)
	b.pendingMu.Unlock()
	// one queued wake up is enough, drain takes everything pending
	select {
	case b.worker.Sender() <- struct{}{}:
	default:
	}
}

func (b *Bus) handlers(n Notification) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	res := make([]Handler, 0, len(b.byKind[n.Kind])+len(b.catchAll))
	res = append(res, b.byKind[n.Kind]...)
	if n.Kind == ACTION {
		res = append(res, b.byAction[n.Name]...)
	}
	return append(res, b.catchAll...)
}

// drain delivers pending notifications until none are left, including
// those emitted by the handlers it runs.
func (b *Bus) drain(struct{}) error {
	for {
		b.pendingMu.Lock()
		batch := b.pending
		b.pending = nil
		b.pendingMu.Unlock()
		if len(batch) == 0 {
			return nil
		}
		for _, n := range batch {
			for _, handler := range b.handlers(n) {
				b.call(handler, n)
			}
		}
	}
}

func (b *Bus) call(handler Handler, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("notification handler panicked", zap.String("kind", string(n.Kind)), zap.Any("panic", r))
		}
	}()
	handler(n)
}

// Close delivers what was already emitted, including what handlers emit
// while being delivered, and stops the bus.
func (b *Bus) Close() {
	b.pendingMu.Lock()
	if b.closing {
		b.pendingMu.Unlock()
		return
	}
	b.closing = true
	b.pendingMu.Unlock()
	b.worker.Stop()
	b.wg.Wait()
	_ = b.drain(struct{}{})

	b.pendingMu.Lock()
	b.closed = true
	rest := b.pending
	b.pending = nil
	b.pendingMu.Unlock()
	for _, n := range rest {
		for _, handler := range b.handlers(n) {
			b.call(handler, n)
		}
	}
}
