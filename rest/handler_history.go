package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/flowcall/catalog"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/service"
	"go.uber.org/zap"
)

func (s *Server) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.history.List())
}

func (s *Server) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.history.Clear()
	respondOKWithoutBody(w)
}

func (s *Server) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entry, ok := s.history.Get(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "history entry "+id+" not found")
		return
	}
	respondOK(w, entry)
}

func (s *Server) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req service.ManualRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Url == "" {
		respondWithError(w, http.StatusBadRequest, "url is required")
		return
	}
	result, err := s.executionService.ExecuteRequest(r.Context(), req)
	if err != nil {
		logger.Error("manual request failed", zap.String("url", req.Url), zap.Error(err))
		respondWithError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondOK(w, result)
}

func (s *Server) HandleListEndpoints(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		respondOK(w, []any{})
		return
	}
	endpoints, err := s.catalog.Endpoints()
	if err != nil {
		logger.Error("error loading endpoint catalog", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error loading endpoint catalog")
		return
	}
	found := catalog.Search(endpoints, r.URL.Query().Get("q"))
	if r.URL.Query().Get("group") == "category" {
		respondOK(w, catalog.GroupByCategory(found))
		return
	}
	respondOK(w, found)
}
