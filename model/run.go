package model

import "time"

type RunState string

const RUN_IDLE RunState = "IDLE"
const RUN_RUNNING RunState = "RUNNING"
const RUN_COMPLETED RunState = "COMPLETED"
const RUN_ABORTED RunState = "ABORTED"

type StepResult struct {
	Index       int            `json:"index"`
	StepId      string         `json:"stepId"`
	Skipped     bool           `json:"skipped"`
	Status      int            `json:"status,omitempty"`
	DurationMs  int64          `json:"durationMs,omitempty"`
	ResolvedUrl string         `json:"resolvedUrl,omitempty"`
	Extracted   map[string]any `json:"extracted,omitempty"`
	HistoryId   string         `json:"historyId,omitempty"`
}

type RunResult struct {
	FlowId     string       `json:"flowId"`
	State      RunState     `json:"state"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Steps      []StepResult `json:"steps"`
	Error      string       `json:"error,omitempty"`
}
