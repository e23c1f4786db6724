package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/model"
	"go.uber.org/zap"
)

const DEFAULT_TIMEOUT = 30 * time.Second

// Executor performs one HTTP call. Non-2xx statuses are successful results;
// an error means the call itself failed (transport, timeout, cancellation).
type Executor interface {
	Execute(ctx context.Context, req *model.Request) (*model.Response, error)
}

var _ Executor = new(HTTPExecutor)

type HTTPExecutor struct {
	client         *http.Client
	baseURL        *url.URL
	defaultHeaders map[string]string
}

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	DefaultHeaders map[string]string
}

func NewHTTPExecutor(conf Config) (*HTTPExecutor, error) {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	ex := &HTTPExecutor{
		client:         &http.Client{Timeout: timeout},
		defaultHeaders: conf.DefaultHeaders,
	}
	if conf.BaseURL != "" {
		base, err := url.Parse(conf.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url %s: %w", conf.BaseURL, err)
		}
		ex.baseURL = base
	}
	return ex, nil
}

// ResolveURL joins relative urls onto the base url and appends params.
func (ex *HTTPExecutor) ResolveURL(raw string, params map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() {
		if ex.baseURL == nil {
			return "", fmt.Errorf("relative url %s without base url", raw)
		}
		base := *ex.baseURL
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		u = base.ResolveReference(&url.URL{
			Path:     strings.TrimPrefix(u.Path, "/"),
			RawQuery: u.RawQuery,
			Fragment: u.Fragment,
		})
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (ex *HTTPExecutor) Execute(ctx context.Context, req *model.Request) (*model.Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	target, err := ex.ResolveURL(req.Url, req.Params)
	if err != nil {
		return nil, err
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json, */*")
	httpReq.Header.Set("Accept-Encoding", ACCEPT_ENCODING)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range ex.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := ex.client.Do(httpReq)
	if err != nil {
		logger.Error("http request failed", zap.String("method", method), zap.String("url", target), zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	decoded, err := Decompress(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		logger.Warn("error decoding response body, keeping raw bytes", zap.String("url", target), zap.Error(err))
		decoded = raw
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}
	logger.Debug("http request completed", zap.String("method", method), zap.String("url", target), zap.Int("status", resp.StatusCode), zap.Duration("duration", elapsed))
	return &model.Response{
		Status:    resp.StatusCode,
		Headers:   headers,
		Body:      DecodeBody(decoded),
		Size:      len(decoded),
		ElapsedMs: elapsed.Milliseconds(),
	}, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		if b == "" {
			return nil, "", nil
		}
		if json.Valid([]byte(b)) {
			return strings.NewReader(b), "application/json", nil
		}
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	case []byte:
		return bytes.NewReader(b), "application/octet-stream", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("error encoding request body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

// DecodeBody parses JSON payloads and falls back to the raw text.
func DecodeBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	if json.Valid(data) {
		var out any
		if err := json.Unmarshal(data, &out); err == nil {
			return out
		}
	}
	return string(data)
}
