package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/logger"
	"github.com/mikesparr/redis-workflow/service"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port            int
	workflowService *service.WorkflowService
}

func NewServer(httpPort int, workflowService *service.WorkflowService) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		workflowService: workflowService,
		Port:            httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/channels/{channel}/workflows", s.HandleGetWorkflows).Methods(http.MethodGet)
	router.HandleFunc("/channels/{channel}/workflows", s.HandleAddWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/channels/{channel}/workflows/{name}", s.HandleRemoveWorkflow).Methods(http.MethodDelete)

	router.HandleFunc("/channels/{channel}/start", s.HandleStartChannel).Methods(http.MethodPost)
	router.HandleFunc("/channels/{channel}/stop", s.HandleStopChannel).Methods(http.MethodPost)
	router.HandleFunc("/channels/{channel}/events", s.HandleEvent).Methods(http.MethodPost)

	router.HandleFunc("/reload", s.HandleReload).Methods(http.MethodPost)
	router.HandleFunc("/save", s.HandleSave).Methods(http.MethodPost)
	router.HandleFunc("/reset", s.HandleReset).Methods(http.MethodPost)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("http request", zap.String("method", r.Method), zap.String("uri", r.RequestURI))
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func statusFor(err error) int {
	switch api.KindOf(err) {
	case api.VALIDATION_ERROR, api.MALFORMED_MESSAGE:
		return http.StatusBadRequest
	case api.NOT_FOUND:
		return http.StatusNotFound
	case api.CONFIGURATION_ERROR:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	respondWithJSON(w, statusFor(err), map[string]string{
		"error": err.Error(),
		"kind":  string(api.KindOf(err)),
	})
}
