package rest

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/mohitkumar/flowcall/catalog"
	"github.com/mohitkumar/flowcall/executor"
	"github.com/mohitkumar/flowcall/flow"
	"github.com/mohitkumar/flowcall/history"
	"github.com/mohitkumar/flowcall/metadata"
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/persistence/memory"
	"github.com/mohitkumar/flowcall/service"
	"github.com/mohitkumar/flowcall/snapshot"
	"github.com/mohitkumar/flowcall/vars"
	"github.com/stretchr/testify/require"
)

type testApi struct {
	t      *testing.T
	server *httptest.Server
}

func newTestApi(t *testing.T) *testApi {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users":
			_, _ = w.Write([]byte(`{"data":[{"id":7,"name":"ann"}]}`))
		case "/users/7":
			_, _ = w.Write([]byte(`{"id":7,"active":true}`))
		case "/state":
			_, _ = w.Write([]byte(`{"state":{"users":1}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(upstream.Close)

	ex, err := executor.NewHTTPExecutor(executor.Config{BaseURL: upstream.URL})
	require.NoError(t, err)
	storage := memory.NewMemoryStorage()
	store := vars.New(storage)
	hist := history.New(storage, 20)
	meta := metadata.NewMetadataService(metadata.NewMetadataStorage(storage))
	state := snapshot.New(storage, snapshot.WithProvider(snapshot.NewHTTPProvider(ex, "/state", nil)))
	engine := flow.NewEngine(store, ex, hist)
	execution := service.NewExecutionService(meta, engine, state, store, ex, hist, &sync.WaitGroup{}, 4)
	endpoints := catalog.StaticSource{
		{Id: "1", Method: "GET", Path: "/users", Name: "List users", Category: "users"},
		{Id: "2", Method: "GET", Path: "/orders", Name: "List orders", Category: "orders"},
	}
	s, err := NewServer(0, Services{
		Metadata:  meta,
		Execution: execution,
		Variables: store,
		History:   hist,
		State:     state,
		Catalog:   endpoints,
	})
	require.NoError(t, err)
	server := httptest.NewServer(s.Handler)
	t.Cleanup(server.Close)
	return &testApi{t: t, server: server}
}

func (a *testApi) do(method string, path string, body any, out any) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestFlowRoutes(t *testing.T) {
	api := newTestApi(t)

	var created model.Flow
	status := api.do(http.MethodPost, "/flows", map[string]any{
		"name": "users",
		"steps": []map[string]any{
			{"id": "list", "method": "GET", "url": "/users", "extractVariables": []map[string]any{{"name": "userId", "path": "$.data[0].id"}}},
			{"id": "get", "method": "GET", "url": "/users/{{userId}}"},
		},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, created.Steps, 2)

	var flows []model.Flow
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/flows", nil, &flows))
	require.Len(t, flows, 2)

	require.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/flows/"+created.Id+"/select", nil, nil))
	var selected model.Flow
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/flows/selected", nil, &selected))
	require.Equal(t, created.Id, selected.Id)

	var report service.RunReport
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/flows/"+created.Id+"/run", map[string]any{"fetchState": true}, &report))
	require.Equal(t, model.RUN_COMPLETED, report.Result.State)
	require.Equal(t, "/users/7", report.Result.Steps[1].ResolvedUrl)
	require.Equal(t, map[string]any{"users": float64(1)}, report.After)

	var last service.RunReport
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/flows/"+created.Id+"/report", nil, &last))
	require.Equal(t, model.RUN_COMPLETED, last.Result.State)

	var step model.Step
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/flows/"+created.Id+"/steps", map[string]any{"id": "extra", "url": "/extra"}, &step))
	require.Equal(t, "GET", step.Method)
	require.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/flows/"+created.Id+"/steps", map[string]any{"id": "extra", "url": "/extra"}, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/flows/"+created.Id+"/steps/extra", map[string]any{"method": "DELETE", "url": "/extra"}, &step))
	require.Equal(t, "DELETE", step.Method)
	require.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/flows/"+created.Id+"/steps/extra/move", map[string]any{"index": 0}, nil))
	var moved model.Flow
	api.do(http.MethodGet, "/flows/"+created.Id, nil, &moved)
	require.Equal(t, "extra", moved.Steps[0].Id)
	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/flows/"+created.Id+"/steps/extra", nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/flows/"+created.Id+"/steps/extra", nil, nil))

	var generated []model.Flow
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/flows/generate", nil, &generated))
	require.Len(t, generated, 2)
	require.Equal(t, "Users Flow", generated[0].Name)

	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/flows/"+created.Id, nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/flows/"+created.Id, nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/flows/missing/run", nil, nil))
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/flows", map[string]any{"name": ""}, nil))

	var runStatus map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/run", nil, &runStatus))
	require.Equal(t, false, runStatus["running"])
	require.Equal(t, float64(-1), runStatus["currentStepIndex"])
}

func TestVariableRoutes(t *testing.T) {
	api := newTestApi(t)

	var all map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/variables", map[string]any{"user": map[string]any{"id": 3}, "token": "abc"}, &all))
	require.Len(t, all, 2)

	var value map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/variables/page", map[string]any{"value": 2}, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/variables/page", nil, &value))
	require.Equal(t, float64(2), value["value"])

	var substituted map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/variables/substitute", map[string]any{"text": "/users/{{user.id}}?p={{page}}&t={{missing}}"}, &substituted))
	require.Equal(t, "/users/3?p=2&t={{missing}}", substituted["result"])
	require.Equal(t, []any{"user.id", "page", "missing"}, substituted["variables"])

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/variables/substitute", map[string]any{"value": map[string]any{"auth": "Bearer {{token}}"}}, &substituted))
	require.Equal(t, map[string]any{"auth": "Bearer abc"}, substituted["result"])

	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/variables/page", nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/variables/page", nil, nil))
	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/variables", nil, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/variables", nil, &all))
	require.Empty(t, all)
}

func TestStateRoutes(t *testing.T) {
	api := newTestApi(t)

	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/state/diff", nil, nil))
	var diff model.Diff
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/state/a", map[string]any{"value": 1}, &diff))
	require.Equal(t, map[string]any{"a": float64(1)}, diff.Added)

	var view map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/state/fetch", nil, &view))
	require.Equal(t, map[string]any{"users": float64(1)}, view["state"])
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/state/diff", nil, &diff))
	require.Equal(t, map[string]any{"a": float64(1)}, diff.Removed)

	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/state/users", nil, nil))
	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/state?persist=false", nil, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/state", nil, &view))
	require.Empty(t, view["state"])
}

func TestHistoryAndExecuteRoutes(t *testing.T) {
	api := newTestApi(t)

	var result service.ManualResult
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/execute", map[string]any{
		"method":           "GET",
		"url":              "/users",
		"extractVariables": []map[string]any{{"name": "first", "path": "data[0].name"}},
	}, &result))
	require.Equal(t, 200, result.Response.Status)
	require.Equal(t, map[string]any{"first": "ann"}, result.Extracted)
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/execute", map[string]any{"method": "GET"}, nil))

	var entries []model.HistoryEntry
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/history", nil, &entries))
	require.Len(t, entries, 1)
	var entry model.HistoryEntry
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/history/"+result.HistoryId, nil, &entry))
	require.Equal(t, "/users", entry.Path)
	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/history", nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/history/"+result.HistoryId, nil, nil))

	var endpoints []model.Endpoint
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/endpoints?q=ordr", nil, &endpoints))
	require.Len(t, endpoints, 1)
	require.Equal(t, "/orders", endpoints[0].Path)
	var groups []catalog.Group
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/endpoints?group=category", nil, &groups))
	require.Len(t, groups, 2)
}

func TestCORS(t *testing.T) {
	api := newTestApi(t)
	req, err := http.NewRequest(http.MethodOptions, api.server.URL+"/flows", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
