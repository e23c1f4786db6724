package analytics

import (
	"os"

	"github.com/mohitkumar/flowcall/flow"
	"github.com/mohitkumar/flowcall/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ flow.RunObserver = new(LogFileDataCollector)

// LogFileDataCollector appends one JSON line per run event to a file.
type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	writer := zapcore.AddSync(logFile)
	core := zapcore.NewCore(fileEncoder, writer, zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) RunStarted(flow *model.Flow) {
	lc.logger.Info("run_started", zap.String("flowId", flow.Id), zap.String("name", flow.Name), zap.Int("steps", len(flow.Steps)))
}

func (lc *LogFileDataCollector) StepStarted(flow *model.Flow, index int, step model.Step) {}

func (lc *LogFileDataCollector) StepSkipped(flow *model.Flow, index int, step model.Step) {
	lc.logger.Info("step_skipped", zap.String("flowId", flow.Id), zap.Int("index", index), zap.String("stepId", step.Id), zap.String("skipIf", step.SkipIf))
}

func (lc *LogFileDataCollector) StepCompleted(flow *model.Flow, index int, step model.Step, result model.StepResult) {
	lc.logger.Info("step_completed", zap.String("flowId", flow.Id), zap.Int("index", index), zap.String("stepId", step.Id),
		zap.String("url", result.ResolvedUrl), zap.Int("status", result.Status), zap.Int64("durationMs", result.DurationMs), zap.Any("extracted", result.Extracted))
}

func (lc *LogFileDataCollector) RunFinished(flow *model.Flow, result model.RunResult) {
	lc.logger.Info("run_finished", zap.String("flowId", flow.Id), zap.String("state", string(result.State)),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)), zap.String("error", result.Error))
}

func (lc *LogFileDataCollector) Sync() error {
	return lc.logger.Sync()
}
