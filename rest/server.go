package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/mohitkumar/flowcall/catalog"
	"github.com/mohitkumar/flowcall/flow"
	"github.com/mohitkumar/flowcall/history"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/metadata"
	"github.com/mohitkumar/flowcall/service"
	"github.com/mohitkumar/flowcall/snapshot"
	"github.com/mohitkumar/flowcall/vars"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type Services struct {
	Metadata  metadata.MetadataService
	Execution *service.ExecutionService
	Variables *vars.Store
	History   *history.History
	State     *snapshot.Manager
	Catalog   catalog.Source
}

type Server struct {
	http.Server
	Port             int
	metadataService  metadata.MetadataService
	executionService *service.ExecutionService
	variables        *vars.Store
	history          *history.History
	state            *snapshot.Manager
	catalog          catalog.Source
}

func NewServer(httpPort int, services Services) (*Server, error) {
	if services.Metadata == nil || services.Execution == nil || services.Variables == nil || services.History == nil || services.State == nil {
		return nil, errors.New("rest server requires metadata, execution, variable, history and state services")
	}
	s := &Server{
		Server: http.Server{
			Addr:              fmt.Sprintf(":%d", httpPort),
			IdleTimeout:       2 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Port:             httpPort,
		metadataService:  services.Metadata,
		executionService: services.Execution,
		variables:        services.Variables,
		history:          services.History,
		state:            services.State,
		catalog:          services.Catalog,
	}

	router := mux.NewRouter()
	router.HandleFunc("/flows", s.HandleListFlows).Methods(http.MethodGet)
	router.HandleFunc("/flows", s.HandleCreateFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/generate", s.HandleGenerateFlows).Methods(http.MethodPost)
	router.HandleFunc("/flows/selected", s.HandleGetSelectedFlow).Methods(http.MethodGet)
	router.HandleFunc("/flows/{id}", s.HandleGetFlow).Methods(http.MethodGet)
	router.HandleFunc("/flows/{id}", s.HandleDeleteFlow).Methods(http.MethodDelete)
	router.HandleFunc("/flows/{id}/select", s.HandleSelectFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/{id}/steps", s.HandleAddStep).Methods(http.MethodPost)
	router.HandleFunc("/flows/{id}/steps/{stepId}", s.HandleUpdateStep).Methods(http.MethodPut)
	router.HandleFunc("/flows/{id}/steps/{stepId}", s.HandleDeleteStep).Methods(http.MethodDelete)
	router.HandleFunc("/flows/{id}/steps/{stepId}/move", s.HandleMoveStep).Methods(http.MethodPost)
	router.HandleFunc("/flows/{id}/run", s.HandleRunFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/{id}/submit", s.HandleSubmitFlow).Methods(http.MethodPost)
	router.HandleFunc("/flows/{id}/report", s.HandleGetReport).Methods(http.MethodGet)
	router.HandleFunc("/run", s.HandleRunStatus).Methods(http.MethodGet)
	router.HandleFunc("/run/cancel", s.HandleCancelRun).Methods(http.MethodPost)

	router.HandleFunc("/variables", s.HandleListVariables).Methods(http.MethodGet)
	router.HandleFunc("/variables", s.HandleSetVariables).Methods(http.MethodPost)
	router.HandleFunc("/variables", s.HandleClearVariables).Methods(http.MethodDelete)
	router.HandleFunc("/variables/substitute", s.HandleSubstitute).Methods(http.MethodPost)
	router.HandleFunc("/variables/{name}", s.HandleGetVariable).Methods(http.MethodGet)
	router.HandleFunc("/variables/{name}", s.HandleSetVariable).Methods(http.MethodPut)
	router.HandleFunc("/variables/{name}", s.HandleDeleteVariable).Methods(http.MethodDelete)

	router.HandleFunc("/state", s.HandleGetState).Methods(http.MethodGet)
	router.HandleFunc("/state", s.HandleClearState).Methods(http.MethodDelete)
	router.HandleFunc("/state/fetch", s.HandleFetchState).Methods(http.MethodPost)
	router.HandleFunc("/state/diff", s.HandleGetDiff).Methods(http.MethodGet)
	router.HandleFunc("/state/{key}", s.HandleSetState).Methods(http.MethodPut)
	router.HandleFunc("/state/{key}", s.HandleRemoveState).Methods(http.MethodDelete)

	router.HandleFunc("/history", s.HandleListHistory).Methods(http.MethodGet)
	router.HandleFunc("/history", s.HandleClearHistory).Methods(http.MethodDelete)
	router.HandleFunc("/history/{id}", s.HandleGetHistory).Methods(http.MethodGet)

	router.HandleFunc("/execute", s.HandleExecute).Methods(http.MethodPost)
	router.HandleFunc("/endpoints", s.HandleListEndpoints).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	s.Handler = newCORS().Handler(router)
	return s, nil
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
	})
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

func decodeBody(r *http.Request, out any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("error encoding response", zap.Error(err))
		code = http.StatusInternalServerError
		response = []byte(`{"error":"error encoding response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondOK(w http.ResponseWriter, payload any) {
	respondWithJSON(w, http.StatusOK, payload)
}

func respondOKWithoutBody(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// statusFor maps domain errors to http status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, metadata.ErrFlowNotFound), errors.Is(err, metadata.ErrStepNotFound):
		return http.StatusNotFound
	case errors.Is(err, metadata.ErrDuplicateStep), errors.Is(err, flow.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, metadata.ErrInvalidFlow), errors.Is(err, vars.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, snapshot.ErrNoProvider):
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

func respondWithDomainError(w http.ResponseWriter, err error) {
	respondWithError(w, statusFor(err), err.Error())
}
