package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/expression"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/model"
	"github.com/mikesparr/redis-workflow/persistence"
	"github.com/mikesparr/redis-workflow/util"
	"github.com/mikesparr/redis-workflow/workflow"
	"go.uber.org/zap"
)

const WORKFLOWS_KEY string = "workflows"

// IndexKey is the set holding every record key of a channel.
func IndexKey(channel string) string {
	return fmt.Sprintf("%s:%s", channel, WORKFLOWS_KEY)
}

// RecordKey is where the workflow called name is persisted. Names that hash
// alike share a record.
func RecordKey(channel string, name string) string {
	return fmt.Sprintf("%s:%d", channel, util.Hash(name))
}

var recordEncDec = util.NewJsonEncoderDecoder[model.WorkflowRecord]()

// WorkflowStore is the in-memory registry of workflows per channel, backed
// by a persistence.Storage. Record and index writes are not transactional:
// concurrent adds on one channel from several processes end up with the
// union of their index entries.
type WorkflowStore struct {
	mu        sync.RWMutex
	channels  map[string][]*workflow.Workflow
	storage   persistence.Storage
	evaluator expression.Evaluator
}

// NewWorkflowStore uses evaluator for every workflow that does not bring its own.
func NewWorkflowStore(storage persistence.Storage, evaluator expression.Evaluator) *WorkflowStore {
	return &WorkflowStore{
		channels:  make(map[string][]*workflow.Workflow),
		storage:   storage,
		evaluator: evaluator,
	}
}

func (s *WorkflowStore) prepare(wf *workflow.Workflow) {
	if wf.GetEvaluator() == nil && s.evaluator != nil {
		wf.SetEvaluator(s.evaluator)
	}
}

// SetWorkflows replaces every channel with the given map.
func (s *WorkflowStore) SetWorkflows(workflows map[string][]*workflow.Workflow) error {
	channels := make(map[string][]*workflow.Workflow, len(workflows))
	for channel, list := range workflows {
		if err := api.ValidateChannel(channel); err != nil {
			return err
		}
		if err := validateList(list); err != nil {
			return err
		}
		channels[channel] = slices.Clone(list)
	}
	for _, list := range channels {
		for _, wf := range list {
			s.prepare(wf)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = channels
	return nil
}

// SetWorkflowsForChannel replaces the workflows of one channel. An empty
// list registers the channel as legitimately empty.
func (s *WorkflowStore) SetWorkflowsForChannel(channel string, list []*workflow.Workflow) error {
	if err := api.ValidateChannel(channel); err != nil {
		return err
	}
	if err := validateList(list); err != nil {
		return err
	}
	for _, wf := range list {
		s.prepare(wf)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channel] = slices.Clone(list)
	if s.channels[channel] == nil {
		s.channels[channel] = []*workflow.Workflow{}
	}
	return nil
}

func validateList(list []*workflow.Workflow) error {
	for _, wf := range list {
		if wf == nil {
			return api.NewError(api.VALIDATION_ERROR, "workflow can not be nil")
		}
		if err := wf.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *WorkflowStore) GetWorkflows() map[string][]*workflow.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[string][]*workflow.Workflow, len(s.channels))
	for channel, list := range s.channels {
		res[channel] = slices.Clone(list)
	}
	return res
}

// GetWorkflowsForChannel fails with NotFound for a channel that was never
// registered, which is different from a channel registered empty.
func (s *WorkflowStore) GetWorkflowsForChannel(channel string) ([]*workflow.Workflow, error) {
	if err := api.ValidateChannel(channel); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.channels[channel]
	if !ok {
		return nil, api.NewError(api.NOT_FOUND, "no workflows registered for channel %s", channel)
	}
	return slices.Clone(list), nil
}

func (s *WorkflowStore) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channels := make([]string, 0, len(s.channels))
	for channel := range s.channels {
		channels = append(channels, channel)
	}
	slices.Sort(channels)
	return channels
}

func (s *WorkflowStore) persist(ctx context.Context, channel string, wf *workflow.Workflow) error {
	data, err := wf.Serialize()
	if err != nil {
		return api.WrapError(api.VALIDATION_ERROR, err, "can not serialize workflow %s", wf.GetName())
	}
	key := RecordKey(channel, wf.GetName())
	if err := s.storage.Set(ctx, key, data); err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "saving workflow %s", wf.GetName())
	}
	if err := s.storage.AddMember(ctx, IndexKey(channel), key); err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "indexing workflow %s", wf.GetName())
	}
	return nil
}

// AddWorkflow persists wf and registers it on the channel, replacing a
// workflow with the same name.
func (s *WorkflowStore) AddWorkflow(ctx context.Context, channel string, wf *workflow.Workflow) error {
	if err := api.ValidateChannel(channel); err != nil {
		return err
	}
	if wf == nil {
		return api.NewError(api.VALIDATION_ERROR, "workflow can not be nil")
	}
	if err := wf.Validate(); err != nil {
		return err
	}
	s.prepare(wf)
	if err := s.persist(ctx, channel, wf); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.channels[channel]
	idx := slices.IndexFunc(list, func(existing *workflow.Workflow) bool {
		return existing.GetName() == wf.GetName()
	})
	if idx >= 0 {
		list = slices.Clone(list)
		list[idx] = wf
	} else {
		list = append(slices.Clone(list), wf)
	}
	s.channels[channel] = list
	logger.Info("workflow added", zap.String("channel", channel), zap.String("workflow", wf.GetName()))
	return nil
}

// RemoveWorkflow deletes the record and its index entry, then drops the
// workflow from memory. Unknown names are not an error.
func (s *WorkflowStore) RemoveWorkflow(ctx context.Context, channel string, name string) error {
	if err := api.ValidateChannel(channel); err != nil {
		return err
	}
	if len(name) == 0 {
		return api.NewError(api.VALIDATION_ERROR, "workflow name can not be empty")
	}
	key := RecordKey(channel, name)
	if err := s.storage.Delete(ctx, key); err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "deleting workflow %s", name)
	}
	if err := s.storage.RemoveMember(ctx, IndexKey(channel), key); err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "unindexing workflow %s", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if list, ok := s.channels[channel]; ok {
		s.channels[channel] = slices.DeleteFunc(slices.Clone(list), func(wf *workflow.Workflow) bool {
			return wf.GetName() == name
		})
	}
	logger.Info("workflow removed", zap.String("channel", channel), zap.String("workflow", name))
	return nil
}

// Load reads every indexed record of the channel and swaps the channel's
// workflows in one step. Index entries whose record vanished or does not
// decode are skipped.
func (s *WorkflowStore) Load(ctx context.Context, channel string) ([]*workflow.Workflow, error) {
	if err := api.ValidateChannel(channel); err != nil {
		return nil, err
	}
	keys, err := s.storage.Members(ctx, IndexKey(channel))
	if err != nil {
		return nil, api.WrapError(api.PERSISTENCE_ERROR, err, "reading index of channel %s", channel)
	}
	slices.Sort(keys)

	list := make([]*workflow.Workflow, 0, len(keys))
	for _, key := range keys {
		data, err := s.storage.Get(ctx, key)
		if err != nil {
			if errors.As(err, &persistence.KeyNotFoundError{}) {
				logger.Warn("indexed workflow record missing", zap.String("channel", channel), zap.String("key", key))
				continue
			}
			return nil, api.WrapError(api.PERSISTENCE_ERROR, err, "reading workflow %s", key)
		}
		rec, err := recordEncDec.Decode(data)
		if err != nil {
			logger.Warn("skipping undecodable workflow record", zap.String("key", key), zap.Error(err))
			continue
		}
		wf, err := workflow.FromRecord(*rec)
		if err != nil {
			logger.Warn("skipping invalid workflow record", zap.String("key", key), zap.Error(err))
			continue
		}
		s.prepare(wf)
		list = append(list, wf)
	}

	s.mu.Lock()
	s.channels[channel] = list
	s.mu.Unlock()
	logger.Info("channel loaded", zap.String("channel", channel), zap.Int("workflows", len(list)))
	return slices.Clone(list), nil
}

// Save persists every in-memory workflow of the channel and returns how many were written.
func (s *WorkflowStore) Save(ctx context.Context, channel string) (int, error) {
	list, err := s.GetWorkflowsForChannel(channel)
	if err != nil {
		return 0, err
	}
	for _, wf := range list {
		if err := s.persist(ctx, channel, wf); err != nil {
			return 0, err
		}
	}
	return len(list), nil
}

// Reset forgets the in-memory workflows of channel, or of every channel when
// channel is empty. Persisted records are kept.
func (s *WorkflowStore) Reset(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(channel) == 0 {
		s.channels = make(map[string][]*workflow.Workflow)
		return
	}
	delete(s.channels, channel)
}

// DeleteChannel removes every persisted record of the channel, its index and
// its in-memory workflows.
func (s *WorkflowStore) DeleteChannel(ctx context.Context, channel string) error {
	if err := api.ValidateChannel(channel); err != nil {
		return err
	}
	keys, err := s.storage.Members(ctx, IndexKey(channel))
	if err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "reading index of channel %s", channel)
	}
	if err := s.storage.Delete(ctx, append(keys, IndexKey(channel))...); err != nil {
		return api.WrapError(api.PERSISTENCE_ERROR, err, "deleting channel %s", channel)
	}
	s.Reset(channel)
	return nil
}
