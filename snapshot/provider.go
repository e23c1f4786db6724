package snapshot

import (
	"context"
	"fmt"

	"github.com/mohitkumar/flowcall/executor"
	"github.com/mohitkumar/flowcall/model"
)

// Provider supplies the full external state.
type Provider interface {
	Fetch(ctx context.Context) (map[string]any, error)
}

type ProviderFunc func(ctx context.Context) (map[string]any, error)

func (f ProviderFunc) Fetch(ctx context.Context) (map[string]any, error) {
	return f(ctx)
}

var _ Provider = new(HTTPProvider)

// HTTPProvider reads state from a JSON endpoint. A response carrying a
// nested "state" object yields that object.
type HTTPProvider struct {
	executor executor.Executor
	url      string
	headers  map[string]string
}

func NewHTTPProvider(ex executor.Executor, url string, headers map[string]string) *HTTPProvider {
	return &HTTPProvider{
		executor: ex,
		url:      url,
		headers:  headers,
	}
}

func (p *HTTPProvider) Fetch(ctx context.Context) (map[string]any, error) {
	resp, err := p.executor.Execute(ctx, &model.Request{Method: "GET", Url: p.url, Headers: p.headers})
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, fmt.Errorf("state source %s returned status %d", p.url, resp.Status)
	}
	body, ok := resp.Body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("state source %s returned %T, expected object", p.url, resp.Body)
	}
	if nested, ok := body[STATE_FIELD].(map[string]any); ok {
		return nested, nil
	}
	return body, nil
}
