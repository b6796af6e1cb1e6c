package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikesparr/redis-workflow/action"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *recorder) handle(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recorder) kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []Kind{}
	for _, n := range r.seen {
		res = append(res, n.Kind)
	}
	return res
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(16)
	all := &recorder{}
	starts := &recorder{}
	bus.OnAny(all.handle)
	bus.On(START, starts.handle)

	bus.Emit(Notification{Kind: START, Channel: "c1"})
	bus.Emit(Notification{Kind: AUDIT, Channel: "c1"})
	bus.Emit(Notification{Kind: STOP, Channel: "c1"})
	bus.Close()

	require.Equal(t, []Kind{START, AUDIT, STOP}, all.kinds())
	require.Equal(t, []Kind{START}, starts.kinds())
	for _, n := range all.seen {
		require.NotEmpty(t, n.Id)
		require.False(t, n.Time.IsZero())
	}
}

func TestBusActionHandlers(t *testing.T) {
	bus := NewBus(16)
	ship := &recorder{}
	bus.OnAction("ship", ship.handle)

	act := action.NewImmediateAction("ship")
	act.SetContext(map[string]any{"age": 77})
	bus.Emit(ActionNotification(ACTION, "c1", act))
	bus.Emit(ActionNotification(ACTION, "c1", action.NewImmediateAction("email")))
	bus.Emit(ActionNotification(IMMEDIATE, "c1", act))
	bus.Close()

	require.Len(t, ship.seen, 1)
	require.Equal(t, map[string]any{"age": 77}, ship.seen[0].Context)
	require.True(t, ship.seen[0].IsAction())
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus(4)
	rec := &recorder{}
	bus.On(ERROR, func(Notification) { panic("boom") })
	bus.On(ERROR, rec.handle)
	bus.Emit(ErrorNotification("c1", api.NewError(api.UNKNOWN_TRIGGER, "no workflow for evt")))
	bus.Emit(ErrorNotification("c1", errors.New("plain")))
	bus.Close()

	require.Len(t, rec.seen, 2)
	require.Equal(t, api.UNKNOWN_TRIGGER, rec.seen[0].ErrorKind)
	require.Equal(t, api.ErrorKind(""), rec.seen[1].ErrorKind)
	require.Equal(t, "plain", rec.seen[1].Message)
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	bus := NewBus(1)
	rec := &recorder{}
	bus.OnAny(rec.handle)
	bus.Close()
	bus.Close()
	bus.Emit(Notification{Kind: READY})
	require.Empty(t, rec.kinds())
}

func TestHandlersCanEmit(t *testing.T) {
	bus := NewBus(1)
	rec := &recorder{}
	bus.On(ERROR, rec.handle)
	bus.On(SCHEDULE, func(n Notification) {
		bus.Emit(ErrorNotification(n.Channel, errors.New("queue unavailable")))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			bus.Emit(Notification{Kind: SCHEDULE, Channel: "c1"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked")
	}
	bus.Close()
	require.Len(t, rec.kinds(), 50)
}
