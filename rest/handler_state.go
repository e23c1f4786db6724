package rest

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/flowcall/logger"
	"go.uber.org/zap"
)

type stateView struct {
	State    map[string]any `json:"state"`
	Previous map[string]any `json:"previous,omitempty"`
}

// persistParam reads ?persist=, defaulting to true.
func persistParam(r *http.Request) bool {
	raw := r.URL.Query().Get("persist")
	if raw == "" {
		return true
	}
	persist, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return persist
}

func (s *Server) HandleGetState(w http.ResponseWriter, r *http.Request) {
	respondOK(w, stateView{State: s.state.GetAllState(), Previous: s.state.PreviousState()})
}

func (s *Server) HandleClearState(w http.ResponseWriter, r *http.Request) {
	s.state.ClearState(persistParam(r))
	respondOKWithoutBody(w)
}

func (s *Server) HandleSetState(w http.ResponseWriter, r *http.Request) {
	var body variableValue
	if err := decodeBody(r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid state value")
		return
	}
	s.state.SetState(mux.Vars(r)["key"], body.Value, persistParam(r))
	respondOK(w, s.state.LastDiff())
}

func (s *Server) HandleRemoveState(w http.ResponseWriter, r *http.Request) {
	s.state.RemoveState(mux.Vars(r)["key"], persistParam(r))
	respondOKWithoutBody(w)
}

func (s *Server) HandleFetchState(w http.ResponseWriter, r *http.Request) {
	state, err := s.state.FetchFromSource(r.Context())
	if err != nil {
		logger.Error("error fetching state", zap.Error(err))
		respondWithDomainError(w, err)
		return
	}
	respondOK(w, stateView{State: state, Previous: s.state.PreviousState()})
}

func (s *Server) HandleGetDiff(w http.ResponseWriter, r *http.Request) {
	diff := s.state.LastDiff()
	if diff == nil {
		respondWithError(w, http.StatusNotFound, "no diff recorded")
		return
	}
	respondOK(w, diff)
}
