// Package api is the HTTP client for the remote PocketGrow savings API,
// the system of record for users and contributions.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pocketgrow/internal/core"
	"pocketgrow/internal/log"
)

// ErrMissingBaseURL indicates the client was configured without an endpoint.
var ErrMissingBaseURL = errors.New("api: base URL is required")

// TokenSource supplies the bearer token attached to authenticated calls.
// Login and Register run without one.
type TokenSource interface {
	Token() (string, bool)
}

// Options configures the API client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Tokens     TokenSource
	Logger     *log.Logger
}

// Client performs HTTP calls against the remote savings API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *log.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentAPI)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     opts.Tokens,
		logger:     logger,
	}, nil
}

// call options per endpoint: reads and writes surface different error
// types, and the auth endpoints skip the bearer token.
type request struct {
	method string
	path   string
	body   any
	anon   bool // no bearer token
	write  bool // failures map to RequestError instead of FetchError
}

// do issues one request and decodes the enveloped response into out.
func (c *Client) do(ctx context.Context, call request, out any) error {
	var reqBody io.Reader
	if call.body != nil {
		data, err := json.Marshal(call.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, call.method, c.baseURL+call.path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if call.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !call.anon {
		if token, ok := tokenFromContext(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		} else if c.tokens != nil {
			if token, ok := c.tokens.Token(); ok {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed",
			log.FieldMethod, call.method,
			log.FieldPath, call.path,
			log.FieldError, err.Error())
		return c.transportError(call, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return c.transportError(call, err)
	}

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldMethod, call.method,
		log.FieldPath, call.path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode >= 400 {
		return c.statusError(call, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := decodeEnvelope(data, out); err != nil {
		return c.transportError(call, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) transportError(call request, err error) error {
	if call.write {
		return &core.RequestError{Message: "network error, please try again", Err: err}
	}
	return &core.FetchError{Message: "could not reach the savings service", Err: err}
}

// statusError maps remote failures onto the error taxonomy: 404 on a write
// is a missing identity, a 4xx carrying a field-error payload becomes a
// ValidationError, everything else stays generic.
func (c *Client) statusError(call request, status int, body []byte) error {
	var payload struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	_ = json.Unmarshal(body, &payload)

	if status == http.StatusNotFound && call.write {
		return &core.NotFoundError{ID: pathTail(call.path)}
	}

	if status >= 400 && status < 500 && len(payload.Errors) > 0 {
		fields := make(map[string]string, len(payload.Errors))
		for field, messages := range payload.Errors {
			fields[field] = strings.Join(messages, ", ")
		}
		return &core.ValidationError{Fields: fields}
	}

	message := payload.Message
	if message == "" {
		message = http.StatusText(status)
	}
	if call.write {
		return &core.RequestError{Message: message, Status: status}
	}
	return &core.FetchError{Message: message, Err: fmt.Errorf("status %d", status)}
}

// decodeEnvelope unwraps the {data: ...} envelope the API uses on most
// routes; bare payloads are decoded as-is.
func decodeEnvelope(body []byte, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return json.Unmarshal(envelope.Data, out)
	}
	return json.Unmarshal(body, out)
}

func pathTail(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
