package flow

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohitkumar/flowcall/condition"
	"github.com/mohitkumar/flowcall/executor"
	"github.com/mohitkumar/flowcall/history"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/vars"
	"go.uber.org/zap"
)

type SleepFunc func(ctx context.Context, d time.Duration) error

// Engine runs one flow at a time. A Run call made while another is in
// progress returns ErrAlreadyRunning without starting.
type Engine struct {
	store      *vars.Store
	executor   executor.Executor
	history    *history.History
	conditions *condition.Evaluator
	observers  Observers
	sleep      SleepFunc
	now        func() time.Time

	running     atomic.Bool
	currentStep atomic.Int64
	mu          sync.Mutex
	state       model.RunState
	cancel      context.CancelFunc
}

type Option func(*Engine)

func WithObserver(observer RunObserver) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, observer)
	}
}

func WithSleep(sleep SleepFunc) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithConditionEvaluator(evaluator *condition.Evaluator) Option {
	return func(e *Engine) {
		e.conditions = evaluator
	}
}

func NewEngine(store *vars.Store, ex executor.Executor, hist *history.History, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		executor: ex,
		history:  hist,
		sleep:    sleepContext,
		now:      func() time.Time { return time.Now().UTC() },
		state:    model.RUN_IDLE,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.conditions == nil {
		e.conditions = condition.NewEvaluator()
	}
	e.currentStep.Store(-1)
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) State() model.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// CurrentStepIndex is -1 when no step is executing.
func (e *Engine) CurrentStepIndex() int {
	return int(e.currentStep.Load())
}

// Cancel aborts the run in progress, if any.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) setState(state model.RunState, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
	e.cancel = cancel
}

// Run executes the steps of flow in order. The returned result is populated
// even when the run aborts; the error is then a *StepExecutionError.
func (e *Engine) Run(ctx context.Context, flow *model.Flow) (*model.RunResult, error) {
	if flow == nil {
		return nil, ErrNilFlow
	}
	if !e.running.CompareAndSwap(false, true) {
		logger.Warn("flow run requested while another is running", zap.String("flowId", flow.Id))
		return nil, ErrAlreadyRunning
	}
	defer e.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.setState(model.RUN_RUNNING, cancel)
	e.currentStep.Store(-1)

	result := &model.RunResult{
		FlowId:    flow.Id,
		State:     model.RUN_RUNNING,
		StartedAt: e.now(),
		Steps:     make([]model.StepResult, 0, len(flow.Steps)),
	}
	e.observers.RunStarted(flow)

	err := e.runSteps(ctx, flow, result)

	e.currentStep.Store(-1)
	result.FinishedAt = e.now()
	if err != nil {
		result.State = model.RUN_ABORTED
		result.Error = err.Error()
	} else {
		result.State = model.RUN_COMPLETED
	}
	e.setState(result.State, nil)
	e.observers.RunFinished(flow, *result)
	return result, err
}

func (e *Engine) runSteps(ctx context.Context, flow *model.Flow, result *model.RunResult) error {
	for i := range flow.Steps {
		step := flow.Steps[i]
		if err := ctx.Err(); err != nil {
			return &StepExecutionError{Index: i, StepId: step.Id, Cause: err}
		}
		e.currentStep.Store(int64(i))
		e.observers.StepStarted(flow, i, step)

		if e.shouldSkip(flow, i, step) {
			stepResult := model.StepResult{Index: i, StepId: step.Id, Skipped: true}
			result.Steps = append(result.Steps, stepResult)
			e.observers.StepSkipped(flow, i, step)
			continue
		}

		stepResult, err := e.executeStep(ctx, flow, i, step)
		if err != nil {
			return &StepExecutionError{Index: i, StepId: step.Id, Cause: err}
		}
		result.Steps = append(result.Steps, stepResult)
		e.observers.StepCompleted(flow, i, step, stepResult)

		if step.Delay > 0 {
			if err := e.sleep(ctx, time.Duration(step.Delay)*time.Millisecond); err != nil {
				return &StepExecutionError{Index: i, StepId: step.Id, Cause: err}
			}
		}
	}
	return nil
}

// shouldSkip reports true only when the condition evaluates to true. A
// condition that fails to evaluate never skips the step.
func (e *Engine) shouldSkip(flow *model.Flow, index int, step model.Step) bool {
	if step.SkipIf == "" {
		return false
	}
	expression := e.store.Substitute(step.SkipIf)
	skip, err := e.conditions.Evaluate(expression, e.store.GetAll())
	if err != nil {
		logger.Warn("skip condition could not be evaluated, running step", zap.String("flowId", flow.Id), zap.Int("index", index), zap.String("stepId", step.Id), zap.String("condition", expression), zap.Error(err))
		return false
	}
	return skip
}

func (e *Engine) resolveRequest(step model.Step) *model.Request {
	method := strings.ToUpper(step.Method)
	if method == "" {
		method = "GET"
	}
	return &model.Request{
		Method:  method,
		Url:     e.store.Substitute(step.Url),
		Headers: e.store.SubstituteMap(step.Headers),
		Params:  e.store.SubstituteMap(step.Params),
		Body:    e.store.SubstituteValue(step.Body),
	}
}

func (e *Engine) executeStep(ctx context.Context, flow *model.Flow, index int, step model.Step) (model.StepResult, error) {
	req := e.resolveRequest(step)
	resp, err := e.executor.Execute(ctx, req)
	if err != nil {
		return model.StepResult{}, err
	}

	stepResult := model.StepResult{
		Index:       index,
		StepId:      step.Id,
		Status:      resp.Status,
		DurationMs:  resp.ElapsedMs,
		ResolvedUrl: req.Url,
	}
	if e.history != nil {
		entry := e.history.Add(NewHistoryEntry(req, resp, flow.Id, step.Id))
		stepResult.HistoryId = entry.Id
	}
	if len(step.ExtractVariables) > 0 {
		extracted, err := e.store.ExtractMany(resp.Body, step.ExtractVariables)
		if err != nil {
			logger.Error("extraction failed, continuing run", zap.String("flowId", flow.Id), zap.String("stepId", step.Id), zap.Error(err))
		}
		stepResult.Extracted = extracted
	}
	return stepResult, nil
}

// NewHistoryEntry records one executed call.
func NewHistoryEntry(req *model.Request, resp *model.Response, flowId string, stepId string) model.HistoryEntry {
	path := req.Url
	if u, err := url.Parse(req.Url); err == nil && u.Path != "" {
		path = u.Path
	}
	return model.HistoryEntry{
		Method:   req.Method,
		Path:     path,
		Url:      req.Url,
		Status:   resp.Status,
		Success:  resp.Success(),
		Duration: resp.ElapsedMs,
		FlowId:   flowId,
		StepId:   stepId,
		Request: model.HistoryRequest{
			Headers: req.Headers,
			Params:  req.Params,
			Body:    req.Body,
		},
		Response: model.HistoryResponse{
			Headers: resp.Headers,
			Data:    resp.Body,
			Size:    resp.Size,
		},
	}
}
