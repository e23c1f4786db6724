package model

import "time"

type HistoryEntry struct {
	Id        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Method    string          `json:"method"`
	Path      string          `json:"path"`
	Url       string          `json:"url"`
	Status    int             `json:"status"`
	Success   bool            `json:"success"`
	Duration  int64           `json:"duration"`
	FlowId    string          `json:"flowId,omitempty"`
	StepId    string          `json:"stepId,omitempty"`
	Request   HistoryRequest  `json:"request"`
	Response  HistoryResponse `json:"response"`
}

type HistoryRequest struct {
	Headers map[string]string `json:"headers,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Body    any               `json:"body,omitempty"`
}

type HistoryResponse struct {
	Headers map[string]string `json:"headers,omitempty"`
	Data    any               `json:"data"`
	Size    int               `json:"size"`
}
