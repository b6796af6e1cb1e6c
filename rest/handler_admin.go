package rest

import (
	"encoding/json"
	"net/http"
)

type channelsRequest struct {
	Channels []string `json:"channels"`
}

func decodeChannels(r *http.Request) (*channelsRequest, error) {
	defer r.Body.Close()
	var req channelsRequest
	if r.ContentLength == 0 {
		return &req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Server) HandleReload(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChannels(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid channels")
		return
	}
	if err := s.workflowService.Reload(r.Context(), req.Channels); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondOK(w, map[string]any{"reloaded": req.Channels})
}

func (s *Server) HandleSave(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChannels(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid channels")
		return
	}
	if err := s.workflowService.Save(r.Context(), req.Channels); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondOK(w, map[string]any{"saved": req.Channels})
}

func (s *Server) HandleReset(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	s.workflowService.Reset(r.Context(), channel)
	respondOK(w, map[string]any{"reset": channel})
}
