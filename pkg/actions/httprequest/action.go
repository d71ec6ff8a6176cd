// Package httprequest provides the "http_request" action.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/template"
	"github.com/dukex/eca/pkg/token"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultResultToken = "http_response"
)

// ErrHTTPServerError is returned when the server keeps answering with a 5xx status.
var ErrHTTPServerError = errors.New("server error during HTTP request")

// Action performs an HTTP request built from the token context and stores the response in a
// token as {status_code, body, headers}.
type Action struct {
	client *http.Client
}

func NewAction() *Action {
	return &Action{client: &http.Client{}}
}

// NewActionWithClient uses client for every request.
func NewActionWithClient(client *http.Client) *Action {
	return &Action{client: client}
}

func (*Action) ID() string {
	return "http_request"
}

func (*Action) Name() string {
	return "HTTP request"
}

func (*Action) Description() string {
	return "Performs an HTTP request and stores the response in a token."
}

func (*Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL. Supports templating.",
				"minLength":   1,
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []any{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				"default": "GET",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body. Supports templating.",
			},
			"headers": map[string]any{
				"type":        "string",
				"description": "One 'Name: value' header per line. Values support templating.",
			},
			"timeout": map[string]any{
				"type":        "string",
				"description": "Per attempt timeout as a Go duration",
				"default":     "30s",
			},
			"retry_attempts": map[string]any{
				"type":    "string",
				"pattern": "^[1-9][0-9]*$",
				"default": "1",
			},
			"retry_delay": map[string]any{
				"type":        "string",
				"description": "Pause between attempts as a Go duration",
			},
			"result_token": map[string]any{
				"type":        "string",
				"description": "Token receiving the response",
				"default":     defaultResultToken,
			},
		},
		"required": []any{"url"},
	}
}

type request struct {
	method   string
	url      string
	body     string
	headers  http.Header
	timeout  time.Duration
	attempts int
	delay    time.Duration
}

// Execute stores the response token even for a final 5xx answer, then fails the branch.
func (a *Action) Execute(ctx context.Context, env protocol.Env, config map[string]string, tokens *token.Context) error {
	req, err := parse(config, tokens.Data())
	if err != nil {
		return err
	}

	logger := env.Logger().With("method", req.method, "url", req.url)

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= req.attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Retrying HTTP request", "attempt", attempt, "attempts", req.attempts)

			select {
			case <-time.After(req.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		resp, err = a.do(ctx, req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)

			continue
		}

		if resp.StatusCode >= 500 && attempt < req.attempts {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %w", resp.StatusCode, ErrHTTPServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return fmt.Errorf("all %d attempts failed, last error: %w", req.attempts, lastErr)
	}

	result, err := readResponse(resp)
	if err != nil {
		return err
	}

	logger.DebugContext(ctx, "HTTP request completed", "status_code", resp.StatusCode)

	name := config["result_token"]
	if name == "" {
		name = defaultResultToken
	}

	tokens.Set(name, result)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrHTTPServerError)
	}

	return nil
}

func (a *Action) do(ctx context.Context, req request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, req.timeout)

	var body io.Reader
	if req.body != "" {
		body = strings.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	httpReq.Header = req.headers.Clone()

	resp, err := a.client.Do(httpReq)
	if err != nil {
		cancel()

		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser

	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()

	return c.ReadCloser.Close()
}

func parse(config map[string]string, data map[string]any) (request, error) {
	req := request{
		method:   strings.ToUpper(config["method"]),
		headers:  http.Header{},
		timeout:  defaultTimeout,
		attempts: 1,
	}

	if req.method == "" {
		req.method = http.MethodGet
	}

	var err error

	req.url, err = template.RenderString(config["url"], data)
	if err != nil {
		return req, fmt.Errorf("failed to render url: %w", err)
	}

	req.body, err = template.RenderString(config["body"], data)
	if err != nil {
		return req, fmt.Errorf("failed to render body: %w", err)
	}

	for _, line := range strings.Split(config["headers"], "\n") {
		name, value, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(name) == "" {
			continue
		}

		rendered, err := template.RenderString(strings.TrimSpace(value), data)
		if err != nil {
			return req, fmt.Errorf("failed to render header %s: %w", name, err)
		}

		req.headers.Set(strings.TrimSpace(name), rendered)
	}

	if raw := config["timeout"]; raw != "" {
		if req.timeout, err = time.ParseDuration(raw); err != nil {
			return req, fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
	}

	if raw := config["retry_attempts"]; raw != "" {
		if req.attempts, err = strconv.Atoi(raw); err != nil || req.attempts < 1 {
			return req, fmt.Errorf("invalid retry_attempts %q", raw)
		}
	}

	if raw := config["retry_delay"]; raw != "" {
		if req.delay, err = time.ParseDuration(raw); err != nil {
			return req, fmt.Errorf("invalid retry_delay %q: %w", raw, err)
		}
	}

	return req, nil
}

func readResponse(resp *http.Response) (map[string]any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	headers := make(map[string]any, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     headers,
	}, nil
}
