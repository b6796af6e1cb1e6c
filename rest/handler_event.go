package rest

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/logger"
	"go.uber.org/zap"
)

func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "can not read body")
		return
	}
	msg, err := api.ParseMessage(string(body))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if err := s.workflowService.Publish(r.Context(), channel, msg.Event, msg.Context); err != nil {
		logger.Error("error publishing event", zap.String("channel", channel), zap.String("event", msg.Event), zap.Error(err))
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]any{"channel": channel, "event": msg.Event})
}

func (s *Server) HandleStartChannel(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	if err := s.workflowService.Start(r.Context(), channel); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondOK(w, map[string]any{"channel": channel, "state": s.workflowService.State(channel)})
}

func (s *Server) HandleStopChannel(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	if err := s.workflowService.Stop(r.Context(), channel); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]any{"channel": channel})
}
