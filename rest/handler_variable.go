package rest

import (
	"net/http"

	"github.com/gorilla/mux"
)

type variableValue struct {
	Value any `json:"value"`
}

type substituteRequest struct {
	Text  string `json:"text"`
	Value any    `json:"value"`
}

func (s *Server) HandleListVariables(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.variables.GetAll())
}

func (s *Server) HandleSetVariables(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeBody(r, &values); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid variables")
		return
	}
	if err := s.variables.SetMany(values); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, s.variables.GetAll())
}

func (s *Server) HandleClearVariables(w http.ResponseWriter, r *http.Request) {
	s.variables.Clear()
	respondOKWithoutBody(w)
}

func (s *Server) HandleGetVariable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	value, ok := s.variables.Get(name)
	if !ok {
		respondWithError(w, http.StatusNotFound, "variable "+name+" not found")
		return
	}
	respondOK(w, variableValue{Value: value})
}

func (s *Server) HandleSetVariable(w http.ResponseWriter, r *http.Request) {
	var body variableValue
	if err := decodeBody(r, &body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid variable value")
		return
	}
	if err := s.variables.Set(mux.Vars(r)["name"], body.Value); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, body)
}

func (s *Server) HandleDeleteVariable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.variables.Delete(name) {
		respondWithError(w, http.StatusNotFound, "variable "+name+" not found")
		return
	}
	respondOKWithoutBody(w)
}

// HandleSubstitute resolves markers in text, or in value when text is empty.
func (s *Server) HandleSubstitute(w http.ResponseWriter, r *http.Request) {
	var req substituteRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid substitution request")
		return
	}
	if req.Text != "" {
		respondOK(w, map[string]any{
			"result":    s.variables.Substitute(req.Text),
			"variables": s.variables.ExtractNames(req.Text),
		})
		return
	}
	respondOK(w, map[string]any{"result": s.variables.SubstituteValue(req.Value)})
}
