package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIClient is the single point of outbound calls to the remote hospital API.
// It never retries; each failure is mapped to the error taxonomy once and
// surfaced to the caller.
type APIClient struct {
	base string
}

func newAPIClient(base string) *APIClient {
	return &APIClient{base: strings.TrimRight(base, "/")}
}

// do issues one request and decodes the response into out (when non-nil).
// A non-2xx response is converted into a typed error carrying the server's
// "detail" message, falling back to the operation's fixed default.
func (c *APIClient) do(ctx context.Context, op, method, path string, queryParams url.Values, token string, body io.Reader, fallback string, out any) error {

	// Build standard headers, attaching the bearer token when provided
	headers := requestHeaders(token)

	// Send request
	resp, err := sendRequest(ctx, method, c.base+path, queryParams, headers, body)
	if err != nil {
		logger(ctx, fmt.Errorf("%s: %v", op, err))
		return &RequestError{Op: op, Message: fallback}
	}

	// Read the body
	respBody, err := readBody(resp)
	if err != nil {
		logger(ctx, fmt.Errorf("%s: %v", op, err))
		return &RequestError{Op: op, Status: resp.StatusCode, Message: fallback}
	}

	// Verify status code
	if resp.StatusCode >= 400 {
		return c.asTypedError(op, resp.StatusCode, respBody, fallback)
	}

	// Parse the response at the boundary before it reaches any controller
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			logger(ctx, fmt.Errorf("%s: malformed response: %v", op, err))
			return &RequestError{Op: op, Status: resp.StatusCode, Message: fallback}
		}
	}

	return nil
}

// doForm is the login variant: credentials go out form-encoded, not as JSON.
func (c *APIClient) doForm(ctx context.Context, op, path string, form url.Values, fallback string, out any) error {
	headers := requestHeaders("")
	headers["Content-Type"] = "application/x-www-form-urlencoded"

	resp, err := sendRequest(ctx, http.MethodPost, c.base+path, nil, headers, strings.NewReader(form.Encode()))
	if err != nil {
		logger(ctx, fmt.Errorf("%s: %v", op, err))
		return &RequestError{Op: op, Message: fallback}
	}

	respBody, err := readBody(resp)
	if err != nil {
		logger(ctx, fmt.Errorf("%s: %v", op, err))
		return &RequestError{Op: op, Status: resp.StatusCode, Message: fallback}
	}

	if resp.StatusCode >= 400 {
		return c.asTypedError(op, resp.StatusCode, respBody, fallback)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			logger(ctx, fmt.Errorf("%s: malformed response: %v", op, err))
			return &RequestError{Op: op, Status: resp.StatusCode, Message: fallback}
		}
	}

	return nil
}

func (c *APIClient) asTypedError(op string, status int, body []byte, fallback string) error {
	// Extract the human-readable message from the response body
	message := fallback
	var detail apiError
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		message = detail.Detail
	}

	switch status {
	case http.StatusUnauthorized:
		if op == "login" {
			return &AuthError{Message: message}
		}
		// An authenticated call bounced; the stored token is no longer good
		return &SessionError{Message: message}
	case http.StatusConflict:
		return &ConflictError{Message: message}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &ValidationError{Message: message}
	}

	return &RequestError{Op: op, Status: status, Message: message}
}

// jsonBody marshals a request payload into a reader.
func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(string(data)), nil
}
