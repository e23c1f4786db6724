package rest

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/flowcall/flow"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/service"
	"go.uber.org/zap"
)

type createFlowRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Steps       []model.Step `json:"steps"`
}

type moveStepRequest struct {
	Index int `json:"index"`
}

type runStatus struct {
	State            model.RunState `json:"state"`
	Running          bool           `json:"running"`
	CurrentStepIndex int            `json:"currentStepIndex"`
}

func (s *Server) HandleListFlows(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.metadataService.Flows())
}

func (s *Server) HandleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var req createFlowRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid flow definition")
		return
	}
	fl, err := s.metadataService.CreateFlow(req.Name, req.Description, req.Tags)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	for _, step := range req.Steps {
		if _, err := s.metadataService.AddStep(fl.Id, step); err != nil {
			logger.Error("error adding step to new flow", zap.String("flowId", fl.Id), zap.String("stepId", step.Id), zap.Error(err))
			_ = s.metadataService.DeleteFlow(fl.Id)
			respondWithDomainError(w, err)
			return
		}
	}
	created, err := s.metadataService.GetFlow(fl.Id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (s *Server) HandleGenerateFlows(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		respondWithError(w, http.StatusPreconditionFailed, "no endpoint catalog configured")
		return
	}
	endpoints, err := s.catalog.Endpoints()
	if err != nil {
		logger.Error("error loading endpoint catalog", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error loading endpoint catalog")
		return
	}
	generated, err := s.metadataService.InitFlowsFromEndpoints(endpoints)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondOK(w, generated)
}

func (s *Server) HandleGetSelectedFlow(w http.ResponseWriter, r *http.Request) {
	fl, err := s.metadataService.Selected()
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondOK(w, fl)
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	fl, err := s.metadataService.GetFlow(mux.Vars(r)["id"])
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondOK(w, fl)
}

func (s *Server) HandleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.metadataService.DeleteFlow(mux.Vars(r)["id"]); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleSelectFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.metadataService.SelectFlow(mux.Vars(r)["id"]); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleAddStep(w http.ResponseWriter, r *http.Request) {
	var step model.Step
	if err := decodeBody(r, &step); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid step definition")
		return
	}
	added, err := s.metadataService.AddStep(mux.Vars(r)["id"], step)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, added)
}

func (s *Server) HandleUpdateStep(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	var step model.Step
	if err := decodeBody(r, &step); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid step definition")
		return
	}
	updated, err := s.metadataService.UpdateStep(params["id"], params["stepId"], step)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondOK(w, updated)
}

func (s *Server) HandleDeleteStep(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	if err := s.metadataService.DeleteStep(params["id"], params["stepId"]); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) HandleMoveStep(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	var req moveStepRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid move request")
		return
	}
	if err := s.metadataService.MoveStep(params["id"], params["stepId"], req.Index); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondOKWithoutBody(w)
}

func (s *Server) runOptions(r *http.Request) (service.RunOptions, error) {
	var opts service.RunOptions
	if r.ContentLength == 0 {
		return opts, nil
	}
	err := decodeBody(r, &opts)
	return opts, err
}

// HandleRunFlow runs synchronously. An aborted run is still reported with
// status 200; the report carries the abort reason.
func (s *Server) HandleRunFlow(w http.ResponseWriter, r *http.Request) {
	flowId := mux.Vars(r)["id"]
	opts, err := s.runOptions(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid run options")
		return
	}
	report, err := s.executionService.RunFlow(r.Context(), flowId, opts)
	var stepErr *flow.StepExecutionError
	if err != nil && !errors.As(err, &stepErr) {
		respondWithDomainError(w, err)
		return
	}
	respondOK(w, report)
}

func (s *Server) HandleSubmitFlow(w http.ResponseWriter, r *http.Request) {
	flowId := mux.Vars(r)["id"]
	opts, err := s.runOptions(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid run options")
		return
	}
	if err := s.executionService.Submit(flowId, opts); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]any{"flowId": flowId})
}

func (s *Server) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	flowId := mux.Vars(r)["id"]
	report, ok := s.executionService.LastReport(flowId)
	if !ok {
		respondWithError(w, http.StatusNotFound, "no run report for flow "+flowId)
		return
	}
	respondOK(w, report)
}

func (s *Server) HandleRunStatus(w http.ResponseWriter, r *http.Request) {
	engine := s.executionService.Engine()
	respondOK(w, runStatus{
		State:            engine.State(),
		Running:          engine.IsRunning(),
		CurrentStepIndex: engine.CurrentStepIndex(),
	})
}

func (s *Server) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	s.executionService.Engine().Cancel()
	respondOKWithoutBody(w)
}
