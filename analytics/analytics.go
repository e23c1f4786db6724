package analytics

import (
	"fmt"

	"github.com/mohitkumar/flowcall/flow"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const NOOP_DATA_COLLECTOR DataCollectorType = ""
const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"

// NewDataCollector returns nil when no collector is configured.
func NewDataCollector(config DataCollectorConfig) (flow.RunObserver, error) {
	switch config.CollectorType {
	case NOOP_DATA_COLLECTOR:
		return nil, nil
	case LOG_FILE_DATA_COLLECTOR:
		if config.FileName == "" {
			return nil, fmt.Errorf("file name required for %s", config.CollectorType)
		}
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("data collector %s not supported", config.CollectorType)
}
