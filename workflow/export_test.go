package workflow

import (
	"github.com/mikesparr/redis-workflow/model"
	"github.com/mikesparr/redis-workflow/util"
)

func prettyRecord(wf *Workflow) ([]byte, error) {
	return util.NewIndentedJsonEncoderDecoder[model.WorkflowRecord]("  ").Encode(wf.ToRecord())
}
