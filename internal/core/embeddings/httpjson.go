package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	maxErrorBodyLength = 512
)

// jsonEndpoint posts a JSON payload to a single URL and decodes the answer.
// Non-2xx answers are wrapped in failure together with the server message.
type jsonEndpoint struct {
	url     string
	client  *http.Client
	header  http.Header
	failure error
}

func newJSONEndpoint(url string, timeout time.Duration, failure error) *jsonEndpoint {
	h := make(http.Header)
	h.Set(headerContentType, contentTypeJSON)
	h.Set("Accept", contentTypeJSON)

	return &jsonEndpoint{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		header:  h,
		failure: failure,
	}
}

func (e *jsonEndpoint) withBearer(token string) *jsonEndpoint {
	e.header.Set("Authorization", "Bearer "+token)
	return e
}

func (e *jsonEndpoint) post(ctx context.Context, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header = e.header.Clone()

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", e.failure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d: %s", e.failure, resp.StatusCode, serverMessage(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// serverMessage prefers a JSON "message" or "error" field over the raw body.
func serverMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}

		if parsed.Error != "" {
			return parsed.Error
		}
	}

	if len(body) > maxErrorBodyLength {
		body = body[:maxErrorBodyLength]
	}

	return strings.TrimSpace(string(body))
}
