package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/model"
	"github.com/mikesparr/redis-workflow/workflow"
	"go.uber.org/zap"
)

func (s *Server) HandleGetWorkflows(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	list, err := s.workflowService.GetWorkflowsForChannel(channel)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	records := make([]model.WorkflowRecord, 0, len(list))
	for _, wf := range list {
		records = append(records, wf.ToRecord())
	}
	respondWithJSON(w, http.StatusOK, records)
}

func (s *Server) HandleAddWorkflow(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	defer r.Body.Close()
	var rec model.WorkflowRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow")
		return
	}
	wf, err := workflow.FromRecord(rec)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if err := s.workflowService.AddWorkflow(r.Context(), channel, wf); err != nil {
		logger.Error("error adding workflow", zap.String("channel", channel), zap.String("workflow", rec.Name), zap.Error(err))
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, wf.ToRecord())
}

func (s *Server) HandleRemoveWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	channel, name := vars["channel"], vars["name"]
	if err := s.workflowService.RemoveWorkflow(r.Context(), channel, name); err != nil {
		logger.Error("error removing workflow", zap.String("channel", channel), zap.String("workflow", name), zap.Error(err))
		respondWithServiceError(w, err)
		return
	}
	respondOK(w, map[string]any{"removed": name})
}
