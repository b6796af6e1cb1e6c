package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mikesparr/redis-workflow/action"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/engine"
	"github.com/mikesparr/redis-workflow/expression"
	"github.com/mikesparr/redis-workflow/notify"
	redisstore "github.com/mikesparr/redis-workflow/persistence/redis"
	"github.com/mikesparr/redis-workflow/store"
	redistransport "github.com/mikesparr/redis-workflow/transport/redis"
	"github.com/mikesparr/redis-workflow/workflow"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mr            *miniredis.Miniredis
	service       *WorkflowService
	notifications chan notify.Notification
}

func newFixture(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	client := redisstore.NewClient(redisstore.Config{Addrs: []string{mr.Addr()}})
	st := store.NewWorkflowStore(redisstore.NewRedisStorage(client, ""), expression.NewJsEvaluator())
	tr := redistransport.NewRedisTransport(client)
	bus := notify.NewBus(64)
	svc := NewWorkflowService(st, engine.NewDispatchEngine(st, tr, bus), tr, bus)
	f := &fixture{
		mr:            mr,
		service:       svc,
		notifications: make(chan notify.Notification, 256),
	}
	bus.OnAny(func(n notify.Notification) { f.notifications <- n })
	t.Cleanup(func() {
		svc.Close()
		client.Close()
	})
	return f
}

func (f *fixture) expect(t *testing.T, kind notify.Kind) notify.Notification {
	select {
	case n := <-f.notifications:
		require.Equal(t, kind, n.Kind, "got %+v", n)
		return n
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", kind)
	}
	return notify.Notification{}
}

func shipping() *workflow.Workflow {
	return workflow.NewWorkflow(
		"shipping",
		workflow.NewTrigger("evt.sale"),
		[]*workflow.Rule{workflow.NewRule("vip", "age == 77")},
		[]action.Action{action.NewImmediateAction("ship")},
	)
}

func TestWorkflowService(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"add remove notifications": testAddRemove,
		"reload after restart":     testReload,
		"save and delete channel":  testSaveDelete,
		"reset":                    testReset,
		"listen end to end":        testListen,
		"publish validation":       testPublishValidation,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newFixture(t))
		})
	}
}

func testAddRemove(t *testing.T, f *fixture) {
	ctx := context.Background()
	require.NoError(t, f.service.AddWorkflow(ctx, "c1", shipping()))
	require.Equal(t, "shipping", f.expect(t, notify.ADD).Name)
	require.True(t, f.mr.Exists("c1:3778731438"))

	require.NoError(t, f.service.RemoveWorkflow(ctx, "c1", "shipping"))
	require.Equal(t, "shipping", f.expect(t, notify.REMOVE).Name)
	require.False(t, f.mr.Exists("c1:3778731438"))

	err := f.service.AddWorkflow(ctx, "", shipping())
	require.True(t, api.IsKind(err, api.VALIDATION_ERROR))
}

func testReload(t *testing.T, f *fixture) {
	ctx := context.Background()
	require.NoError(t, f.service.AddWorkflow(ctx, "c1", shipping()))
	f.expect(t, notify.ADD)
	f.service.Reset(ctx, "")
	f.expect(t, notify.RESET)
	_, err := f.service.GetWorkflowsForChannel("c1")
	require.True(t, api.IsKind(err, api.NOT_FOUND))

	require.NoError(t, f.service.Reload(ctx, []string{"c1", "c2"}))
	require.Equal(t, "c1", f.expect(t, notify.LOAD).Channel)
	require.Equal(t, "c2", f.expect(t, notify.LOAD).Channel)
	f.expect(t, notify.READY)

	list, err := f.service.GetWorkflowsForChannel("c1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	empty, err := f.service.GetWorkflowsForChannel("c2")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func testSaveDelete(t *testing.T, f *fixture) {
	ctx := context.Background()
	require.NoError(t, f.service.SetWorkflowsForChannel("c1", []*workflow.Workflow{shipping()}))
	require.NoError(t, f.service.Save(ctx, nil))
	n := f.expect(t, notify.SAVE)
	require.Equal(t, "c1", n.Channel)
	require.Equal(t, "workflows=1", n.Message)
	require.True(t, f.mr.Exists("c1:workflows"))

	require.NoError(t, f.service.DeleteChannel(ctx, "c1"))
	f.expect(t, notify.DELETE)
	require.False(t, f.mr.Exists("c1:workflows"))
	require.False(t, f.mr.Exists("c1:3778731438"))
}

func testReset(t *testing.T, f *fixture) {
	require.NoError(t, f.service.SetWorkflows(map[string][]*workflow.Workflow{
		"c1": {shipping()},
		"c2": {shipping()},
	}))
	f.service.Reset(context.Background(), "c1")
	require.Equal(t, "c1", f.expect(t, notify.RESET).Channel)
	all := f.service.GetWorkflows()
	require.Len(t, all, 1)
	require.Contains(t, all, "c2")
}

func testListen(t *testing.T, f *fixture) {
	ctx := context.Background()
	require.NoError(t, f.service.SetWorkflowsForChannel("c1", []*workflow.Workflow{shipping()}))
	require.NoError(t, f.service.Start(ctx, "c1"))
	f.expect(t, notify.START)
	require.Equal(t, engine.STATE_LISTENING, f.service.State("c1"))
	require.Equal(t, []string{"c1"}, f.service.Listening())

	require.NoError(t, f.service.Publish(ctx, "c1", "evt.sale", map[string]any{"age": 77}))
	require.Equal(t, "ship", f.expect(t, notify.ACTION).Name)
	f.expect(t, notify.IMMEDIATE)
	f.expect(t, notify.AUDIT)

	require.NoError(t, f.service.Stop(ctx, "c1"))
	kinds := []notify.Kind{}
	for i := 0; i < 2; i++ {
		select {
		case n := <-f.notifications:
			kinds = append(kinds, n.Kind)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for stop")
		}
	}
	require.ElementsMatch(t, []notify.Kind{notify.STOP, notify.KILL}, kinds)
}

func testPublishValidation(t *testing.T, f *fixture) {
	ctx := context.Background()
	require.True(t, api.IsKind(f.service.Publish(ctx, "", "evt", nil), api.VALIDATION_ERROR))
	require.True(t, api.IsKind(f.service.Publish(ctx, "c1", "", nil), api.VALIDATION_ERROR))
	require.NoError(t, f.service.Publish(ctx, "c1", "evt", nil))
}

func TestReloadPersistenceError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redisstore.NewClient(redisstore.Config{Addrs: []string{mr.Addr()}})
	defer client.Close()
	st := store.NewWorkflowStore(redisstore.NewRedisStorage(client, ""), nil)
	tr := redistransport.NewRedisTransport(client)
	bus := notify.NewBus(8)
	errs := make(chan notify.Notification, 8)
	bus.On(notify.ERROR, func(n notify.Notification) { errs <- n })
	svc := NewWorkflowService(st, engine.NewDispatchEngine(st, tr, bus), tr, bus)
	defer svc.Close()
	mr.Close()

	err = svc.Reload(context.Background(), []string{"c1"})
	require.True(t, api.IsKind(err, api.PERSISTENCE_ERROR))
	select {
	case n := <-errs:
		require.Equal(t, api.PERSISTENCE_ERROR, n.ErrorKind)
	case <-time.After(2 * time.Second):
		t.Fatal("no error notification")
	}
}
