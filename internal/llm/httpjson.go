package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// jsonEndpoint is a JSON API reached over a shared HTTP client
type jsonEndpoint struct {
	provider string
	client   *http.Client
	headers  map[string]string

	// apiMessage extracts a readable message from an error body; an empty
	// result falls back to the raw body
	apiMessage func(body []byte) string
}

// do sends in (nil for no body) and decodes a 200 response into out.
// Transport failures are classified, non-200 statuses become status
// errors and undecodable bodies are transient.
func (e jsonEndpoint) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &CallError{Provider: e.provider, Kind: ErrFatal, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &CallError{Provider: e.provider, Kind: ErrFatal, Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return classify(e.provider, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(e.provider, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if e.apiMessage != nil {
			msg = e.apiMessage(data)
		}
		if msg == "" {
			msg = string(bytes.TrimSpace(data))
		}
		return statusError(e.provider, resp.StatusCode, fmt.Errorf("%s", msg))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &CallError{Provider: e.provider, Kind: ErrTransient, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return nil
}
