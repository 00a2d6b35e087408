package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smarty/repofiles/contracts"
)

const (
	userAgent     = "repofiles"
	maxErrorBody  = 64 * 1024
	jsonMediaType = "application/json"
)

// send performs request and converts transport failures into retryable
// errors and non-2xx responses into *contracts.APIError. The caller closes
// the returned body.
func send(client *http.Client, request *http.Request, action string) (*http.Response, error) {
	response, err := client.Do(request)
	if err != nil {
		if ctxErr := request.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %w", contracts.RetryErr, request.Method, redact(request.URL), err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		defer func() { _ = response.Body.Close() }()
		return nil, newAPIError(action, response)
	}
	return response, nil
}

func openStream(ctx context.Context, client *http.Client, address string) (io.ReadCloser, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid address %q: %w", contracts.ConfigurationErr, address, err)
	}
	request.Header.Set("User-Agent", userAgent)
	response, err := send(client, request, "download")
	if err != nil {
		return nil, err
	}
	return response.Body, nil
}

func newAPIError(action string, response *http.Response) *contracts.APIError {
	raw, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	body := string(raw)
	return &contracts.APIError{
		Action:     action,
		StatusCode: response.StatusCode,
		Status:     response.Status,
		Body:       body,
		Message:    extractMessage(body),
	}
}

// extractMessage prefers the structured {message, documentation_url}
// error shape and falls back to the trimmed body.
func extractMessage(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	var payload struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return body
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		return ""
	}
	if documentation := strings.TrimSpace(payload.DocumentationURL); documentation != "" {
		return message + " (" + documentation + ")"
	}
	return message
}

// escapeSegments normalizes separators and escapes each path segment.
func escapeSegments(path string) string {
	var segments []string
	for _, segment := range strings.Split(strings.ReplaceAll(path, `\`, "/"), "/") {
		if segment != "" {
			segments = append(segments, url.PathEscape(segment))
		}
	}
	return strings.Join(segments, "/")
}

func redact(address *url.URL) string {
	if address == nil {
		return ""
	}
	clean := *address
	clean.RawQuery = ""
	clean.User = nil
	return clean.String()
}
