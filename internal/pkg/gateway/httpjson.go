package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// maxResponseBody caps how much of a provider response is read.
const maxResponseBody = 2 << 20

// JSONCall describes one JSON request to a provider.
type JSONCall struct {
	Provider  string
	Operation string
	Method    string
	URL       string
	Headers   map[string]string
	Body      any
}

// DoJSON performs the call and decodes a 2xx response into out. Non-2xx
// answers become a ProviderError carrying the decoded body as details.
func DoJSON(ctx context.Context, client *http.Client, call JSONCall, out any) error {
	var reader io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return &ProviderError{Provider: call.Provider, Operation: call.Operation, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, call.URL, reader)
	if err != nil {
		return &ProviderError{Provider: call.Provider, Operation: call.Operation, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &ProviderError{Provider: call.Provider, Operation: call.Operation, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{
			Provider:   call.Provider,
			Operation:  call.Operation,
			StatusCode: resp.StatusCode,
			Details:    decodeDetails(body),
		}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Provider: call.Provider, Operation: call.Operation, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func decodeDetails(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err == nil {
		return decoded
	}
	return string(trimmed)
}
