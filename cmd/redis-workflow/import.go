package main

import (
	"context"

	"github.com/google/uuid"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/model"
	"github.com/mikesparr/redis-workflow/service"
	"github.com/mikesparr/redis-workflow/workflow"
	"gopkg.in/yaml.v3"
)

// importDefinitions adds every workflow of a yaml definition file to channel.
// All definitions are validated before the first one is added.
func importDefinitions(ctx context.Context, svc *service.WorkflowService, channel string, data []byte) (int, error) {
	var defs model.WorkflowDefinitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return 0, api.WrapError(api.VALIDATION_ERROR, err, "invalid definition file")
	}
	if len(defs.Workflows) == 0 {
		return 0, api.NewError(api.VALIDATION_ERROR, "definition file has no workflows")
	}
	list := make([]*workflow.Workflow, 0, len(defs.Workflows))
	for _, rec := range defs.Workflows {
		if len(rec.Id) == 0 {
			rec.Id = uuid.NewString()
		}
		wf, err := workflow.FromRecord(rec)
		if err != nil {
			return 0, err
		}
		list = append(list, wf)
	}
	for i, wf := range list {
		if err := svc.AddWorkflow(ctx, channel, wf); err != nil {
			return i, err
		}
	}
	return len(list), nil
}
