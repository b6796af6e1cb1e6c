package service

import (
	"context"
	"fmt"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/engine"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/notify"
	"github.com/mikesparr/redis-workflow/store"
	"github.com/mikesparr/redis-workflow/transport"
	"github.com/mikesparr/redis-workflow/workflow"
	"go.uber.org/zap"
)

// WorkflowService is the public surface: it keeps memory and persistence in
// step through the store, drives listeners through the engine and reports
// every lifecycle change on the bus.
type WorkflowService struct {
	store     *store.WorkflowStore
	engine    *engine.DispatchEngine
	transport transport.Transport
	bus       *notify.Bus
}

func NewWorkflowService(st *store.WorkflowStore, eng *engine.DispatchEngine, tr transport.Transport, bus *notify.Bus) *WorkflowService {
	return &WorkflowService{
		store:     st,
		engine:    eng,
		transport: tr,
		bus:       bus,
	}
}

func (s *WorkflowService) Bus() *notify.Bus {
	return s.bus
}

func (s *WorkflowService) fail(channel string, err error) error {
	if api.IsKind(err, api.PERSISTENCE_ERROR) {
		s.bus.Emit(notify.ErrorNotification(channel, err))
	}
	return err
}

func (s *WorkflowService) SetWorkflows(workflows map[string][]*workflow.Workflow) error {
	return s.store.SetWorkflows(workflows)
}

func (s *WorkflowService) SetWorkflowsForChannel(channel string, list []*workflow.Workflow) error {
	return s.store.SetWorkflowsForChannel(channel, list)
}

func (s *WorkflowService) GetWorkflows() map[string][]*workflow.Workflow {
	return s.store.GetWorkflows()
}

func (s *WorkflowService) GetWorkflowsForChannel(channel string) ([]*workflow.Workflow, error) {
	return s.store.GetWorkflowsForChannel(channel)
}

func (s *WorkflowService) AddWorkflow(ctx context.Context, channel string, wf *workflow.Workflow) error {
	if err := s.store.AddWorkflow(ctx, channel, wf); err != nil {
		return s.fail(channel, err)
	}
	s.bus.Emit(notify.Notification{Kind: notify.ADD, Channel: channel, Name: wf.GetName()})
	return nil
}

func (s *WorkflowService) RemoveWorkflow(ctx context.Context, channel string, name string) error {
	if err := s.store.RemoveWorkflow(ctx, channel, name); err != nil {
		return s.fail(channel, err)
	}
	s.bus.Emit(notify.Notification{Kind: notify.REMOVE, Channel: channel, Name: name})
	return nil
}

// Reload replaces the in-memory workflows of each channel with the persisted
// ones, all known channels when none are given. It stops at the first
// failing channel, channels loaded before it keep their new state.
func (s *WorkflowService) Reload(ctx context.Context, channels []string) error {
	if len(channels) == 0 {
		channels = s.store.Channels()
	}
	for _, channel := range channels {
		list, err := s.store.Load(ctx, channel)
		if err != nil {
			return s.fail(channel, err)
		}
		s.bus.Emit(notify.Notification{Kind: notify.LOAD, Channel: channel, Message: workflowCount(len(list))})
	}
	s.bus.Emit(notify.Notification{Kind: notify.READY})
	return nil
}

// Save writes every in-memory workflow of each channel, all known channels when none are given.
func (s *WorkflowService) Save(ctx context.Context, channels []string) error {
	if len(channels) == 0 {
		channels = s.store.Channels()
	}
	for _, channel := range channels {
		saved, err := s.store.Save(ctx, channel)
		if err != nil {
			return s.fail(channel, err)
		}
		s.bus.Emit(notify.Notification{Kind: notify.SAVE, Channel: channel, Message: workflowCount(saved)})
	}
	return nil
}

// Reset clears the in-memory workflows of channel, or of all channels when channel is empty.
func (s *WorkflowService) Reset(ctx context.Context, channel string) {
	s.store.Reset(channel)
	s.bus.Emit(notify.Notification{Kind: notify.RESET, Channel: channel})
}

func (s *WorkflowService) DeleteChannel(ctx context.Context, channel string) error {
	if err := s.store.DeleteChannel(ctx, channel); err != nil {
		return s.fail(channel, err)
	}
	s.bus.Emit(notify.Notification{Kind: notify.DELETE, Channel: channel})
	return nil
}

func (s *WorkflowService) Start(ctx context.Context, channel string) error {
	return s.engine.Start(ctx, channel)
}

func (s *WorkflowService) Stop(ctx context.Context, channel string) error {
	return s.engine.Stop(ctx, channel)
}

func (s *WorkflowService) State(channel string) engine.State {
	return s.engine.State(channel)
}

func (s *WorkflowService) Listening() []string {
	return s.engine.Listening()
}

// Publish sends an event with its context to channel.
func (s *WorkflowService) Publish(ctx context.Context, channel string, event string, data map[string]any) error {
	if err := api.ValidateChannel(channel); err != nil {
		return err
	}
	payload, err := api.EncodeMessage(event, data)
	if err != nil {
		return err
	}
	if err := s.transport.Publish(ctx, channel, payload); err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "can not publish on channel %s", channel)
	}
	return nil
}

// Close stops local listeners and delivers pending notifications.
func (s *WorkflowService) Close() {
	s.engine.Close()
	s.bus.Close()
	logger.Info("workflow service closed", zap.Int("channels", len(s.store.Channels())))
}

func workflowCount(n int) string {
	return fmt.Sprintf("workflows=%d", n)
}
