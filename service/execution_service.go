package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mohitkumar/flowcall/executor"
	"github.com/mohitkumar/flowcall/flow"
	"github.com/mohitkumar/flowcall/history"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/metadata"
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/snapshot"
	"github.com/mohitkumar/flowcall/util"
	"github.com/mohitkumar/flowcall/vars"
	"go.uber.org/zap"
)

const DEFAULT_WORKER_CAPACITY = 16

var ErrQueueFull = errors.New("run queue is full")

type RunOptions struct {
	// FetchState refreshes state from the configured provider before and
	// after the run. Unset means fetch whenever a provider is configured.
	FetchState *bool `json:"fetchState,omitempty"`
}

func (o RunOptions) fetch(hasProvider bool) bool {
	if o.FetchState == nil {
		return hasProvider
	}
	return *o.FetchState
}

type RunReport struct {
	Result *model.RunResult `json:"result"`
	Before map[string]any   `json:"before"`
	After  map[string]any   `json:"after"`
	Diff   *model.Diff      `json:"diff"`
	Error  string           `json:"error,omitempty"`
}

type ManualRequest struct {
	model.Request
	ExtractVariables []model.ExtractRule `json:"extractVariables,omitempty"`
	StateKey         string              `json:"stateKey,omitempty"`
}

type ManualResult struct {
	Response  *model.Response `json:"response"`
	HistoryId string          `json:"historyId"`
	Extracted map[string]any  `json:"extracted,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type submission struct {
	flowId string
	opts   RunOptions
}

// ExecutionService wraps flow runs with state capture and records manual calls.
type ExecutionService struct {
	metadata  metadata.MetadataService
	engine    *flow.Engine
	snapshots *snapshot.Manager
	store     *vars.Store
	executor  executor.Executor
	history   *history.History
	worker    *util.Worker
	mu        sync.RWMutex
	reports   map[string]*RunReport
}

func NewExecutionService(meta metadata.MetadataService, engine *flow.Engine, snapshots *snapshot.Manager, store *vars.Store,
	ex executor.Executor, hist *history.History, wg *sync.WaitGroup, capacity int) *ExecutionService {
	if capacity <= 0 {
		capacity = DEFAULT_WORKER_CAPACITY
	}
	s := &ExecutionService{
		metadata:  meta,
		engine:    engine,
		snapshots: snapshots,
		store:     store,
		executor:  ex,
		history:   hist,
		reports:   make(map[string]*RunReport),
	}
	s.worker = util.NewWorker("flow-runner", wg, s.handleSubmission, capacity)
	return s
}

func (s *ExecutionService) Start() {
	s.worker.Start()
}

func (s *ExecutionService) Stop() error {
	s.engine.Cancel()
	return s.worker.Stop()
}

func (s *ExecutionService) Engine() *flow.Engine {
	return s.engine
}

func (s *ExecutionService) resolveFlow(flowId string) (*model.Flow, error) {
	if flowId == "" {
		return s.metadata.Selected()
	}
	return s.metadata.GetFlow(flowId)
}

func (s *ExecutionService) captureState(ctx context.Context, fetch bool) map[string]any {
	if fetch && s.snapshots.HasProvider() {
		state, err := s.snapshots.FetchFromSource(ctx)
		if err == nil {
			return state
		}
		logger.Warn("state fetch failed, using current state", zap.Error(err))
	}
	return s.snapshots.Capture()
}

// RunFlow runs the flow (the selected flow when flowId is empty) between two
// state captures. A run that aborts still returns its report together with
// the abort error.
func (s *ExecutionService) RunFlow(ctx context.Context, flowId string, opts RunOptions) (*RunReport, error) {
	fl, err := s.resolveFlow(flowId)
	if err != nil {
		return nil, err
	}
	fetch := opts.fetch(s.snapshots.HasProvider())
	before := s.captureState(ctx, fetch)
	result, runErr := s.engine.Run(ctx, fl)
	if errors.Is(runErr, flow.ErrAlreadyRunning) {
		return nil, runErr
	}
	after := s.captureState(ctx, fetch)
	report := &RunReport{
		Result: result,
		Before: before,
		After:  after,
		Diff:   snapshot.ComputeDiff(before, after),
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	s.mu.Lock()
	s.reports[fl.Id] = report
	s.mu.Unlock()
	return report, runErr
}

// Submit queues an asynchronous run; the outcome is available from LastReport.
func (s *ExecutionService) Submit(flowId string, opts RunOptions) error {
	fl, err := s.resolveFlow(flowId)
	if err != nil {
		return err
	}
	if !s.worker.Submit(submission{flowId: fl.Id, opts: opts}) {
		return ErrQueueFull
	}
	logger.Info("flow run submitted", zap.String("flowId", fl.Id))
	return nil
}

func (s *ExecutionService) handleSubmission(task util.Task) error {
	sub, ok := task.(submission)
	if !ok {
		return fmt.Errorf("unexpected task %T", task)
	}
	_, err := s.RunFlow(context.Background(), sub.flowId, sub.opts)
	return err
}

func (s *ExecutionService) LastReport(flowId string) (*RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[flowId]
	return report, ok
}

// ExecuteRequest performs a one-off call through the same substitution and
// history path as flow steps.
func (s *ExecutionService) ExecuteRequest(ctx context.Context, req ManualRequest) (*ManualResult, error) {
	resolved := &model.Request{
		Method:  strings.ToUpper(req.Method),
		Url:     s.store.Substitute(req.Url),
		Headers: s.store.SubstituteMap(req.Headers),
		Params:  s.store.SubstituteMap(req.Params),
		Body:    s.store.SubstituteValue(req.Body),
	}
	if resolved.Method == "" {
		resolved.Method = "GET"
	}
	resp, err := s.executor.Execute(ctx, resolved)
	if err != nil {
		return nil, err
	}
	entry := s.history.Add(flow.NewHistoryEntry(resolved, resp, "", ""))
	result := &ManualResult{Response: resp, HistoryId: entry.Id}
	if len(req.ExtractVariables) > 0 {
		extracted, err := s.store.ExtractMany(resp.Body, req.ExtractVariables)
		result.Extracted = extracted
		if err != nil {
			result.Error = err.Error()
		}
	}
	s.snapshots.UpdateFromResponse(resp.Body, req.StateKey)
	return result, nil
}

// RefreshState pulls state from the provider; used by the periodic refresher.
func (s *ExecutionService) RefreshState() {
	if !s.snapshots.HasProvider() || s.engine.IsRunning() {
		return
	}
	if _, err := s.snapshots.FetchFromSource(context.Background()); err != nil {
		logger.Error("periodic state refresh failed", zap.Error(err))
	}
}
