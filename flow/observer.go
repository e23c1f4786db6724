package flow

import (
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/model"
	"go.uber.org/zap"
)

type RunObserver interface {
	RunStarted(flow *model.Flow)
	StepStarted(flow *model.Flow, index int, step model.Step)
	StepSkipped(flow *model.Flow, index int, step model.Step)
	StepCompleted(flow *model.Flow, index int, step model.Step, result model.StepResult)
	RunFinished(flow *model.Flow, result model.RunResult)
}

// Observers fans every event out in order.
type Observers []RunObserver

var _ RunObserver = Observers{}

func (o Observers) RunStarted(flow *model.Flow) {
	for _, ob := range o {
		ob.RunStarted(flow)
	}
}

func (o Observers) StepStarted(flow *model.Flow, index int, step model.Step) {
	for _, ob := range o {
		ob.StepStarted(flow, index, step)
	}
}

func (o Observers) StepSkipped(flow *model.Flow, index int, step model.Step) {
	for _, ob := range o {
		ob.StepSkipped(flow, index, step)
	}
}

func (o Observers) StepCompleted(flow *model.Flow, index int, step model.Step, result model.StepResult) {
	for _, ob := range o {
		ob.StepCompleted(flow, index, step, result)
	}
}

func (o Observers) RunFinished(flow *model.Flow, result model.RunResult) {
	for _, ob := range o {
		ob.RunFinished(flow, result)
	}
}

type LoggingObserver struct{}

var _ RunObserver = LoggingObserver{}

func (LoggingObserver) RunStarted(flow *model.Flow) {
	logger.Info("flow run started", zap.String("flowId", flow.Id), zap.String("name", flow.Name), zap.Int("steps", len(flow.Steps)))
}

func (LoggingObserver) StepStarted(flow *model.Flow, index int, step model.Step) {
	logger.Debug("step started", zap.String("flowId", flow.Id), zap.Int("index", index), zap.String("stepId", step.Id))
}

func (LoggingObserver) StepSkipped(flow *model.Flow, index int, step model.Step) {
	logger.Info("step skipped", zap.String("flowId", flow.Id), zap.Int("index", index), zap.String("stepId", step.Id), zap.String("skipIf", step.SkipIf))
}

func (LoggingObserver) StepCompleted(flow *model.Flow, index int, step model.Step, result model.StepResult) {
	logger.Info("step completed", zap.String("flowId", flow.Id), zap.Int("index", index), zap.String("stepId", step.Id), zap.Int("status", result.Status), zap.Int64("durationMs", result.DurationMs))
}

func (LoggingObserver) RunFinished(flow *model.Flow, result model.RunResult) {
	if result.State == model.RUN_ABORTED {
		logger.Error("flow run aborted", zap.String("flowId", flow.Id), zap.String("error", result.Error))
		return
	}
	logger.Info("flow run completed", zap.String("flowId", flow.Id), zap.Int("steps", len(result.Steps)))
}
