package llm

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// defaultTemperature drops the temperature field the openai client always
// sends, so the server applies its own default.
type defaultTemperature struct {
	next http.RoundTripper
}

func (t defaultTemperature) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || req.Body == nil {
		return t.next.RoundTrip(req)
	}

	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) == nil {
		if _, ok := fields["temperature"]; ok {
			delete(fields, "temperature")
			if stripped, err := json.Marshal(fields); err == nil {
				raw = stripped
			}
		}
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(raw))
	out.ContentLength = int64(len(raw))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	return t.next.RoundTrip(out)
}

func withDefaultTemperature(client *http.Client) *http.Client {
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = defaultTemperature{next: next}
	return &wrapped
}
