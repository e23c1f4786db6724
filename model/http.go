package model

type Request struct {
	Method  string            `json:"method"`
	Url     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Body    any               `json:"body,omitempty"`
}

type Response struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers"`
	Body      any               `json:"body"`
	Size      int               `json:"size"`
	ElapsedMs int64             `json:"elapsedMs"`
}

func (r *Response) Success() bool {
	return IsSuccessStatus(r.Status)
}

func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
