// Package webhook provides the "webhook" event, raised by HTTP requests on /webhooks/<path>.
package webhook

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/eca/pkg/protocol"
	"github.com/dukex/eca/pkg/token"
)

// Prefix is prepended to the webhook path to build the dispatched event name.
const Prefix = "webhook:"

// EventName returns the dispatched name of requests received on path.
func EventName(path string) string {
	return Prefix + NormalizePath(path)
}

// NormalizePath makes sure path starts with exactly one slash and has no trailing one.
func NormalizePath(path string) string {
	return "/" + strings.Trim(path, "/")
}

// Request is the instance dispatched for each webhook call.
type Request struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Query      map[string]any    `json:"query"`
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
	RemoteAddr string            `json:"remote_addr"`
	ReceivedAt time.Time         `json:"received_at"`
}

// NewRequest builds a Request. A body that is not JSON is kept as a string.
func NewRequest(method, path string, query map[string][]string, headers map[string][]string, body []byte, remoteAddr string, receivedAt time.Time) Request {
	req := Request{
		Method:     strings.ToUpper(method),
		Path:       NormalizePath(path),
		Query:      make(map[string]any, len(query)),
		Headers:    make(map[string]string, len(headers)),
		RemoteAddr: remoteAddr,
		ReceivedAt: receivedAt.UTC(),
	}

	for name, values := range query {
		if len(values) == 1 {
			req.Query[name] = values[0]
		} else {
			req.Query[name] = values
		}
	}

	for name, values := range headers {
		req.Headers[http.CanonicalHeaderKey(name)] = strings.Join(values, ", ")
	}

	if len(body) > 0 {
		if err := json.Unmarshal(body, &req.Body); err != nil {
			req.Body = string(body)
		}
	}

	return req
}

type Event struct{}

func NewEvent() *Event {
	return &Event{}
}

func (*Event) ID() string {
	return "webhook"
}

func (*Event) Name() string {
	return "Webhook"
}

func (*Event) Description() string {
	return "Reacts to HTTP requests received on /webhooks/<path>, optionally restricted to one method."
}

func (*Event) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Webhook path below /webhooks",
				"pattern":     `^/.+`,
				"examples":    []any{"/github", "/payments/stripe"},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "Accepted HTTP method, * or empty for any",
				"enum":        []any{"", "*", "GET", "POST", "PUT", "PATCH", "DELETE"},
			},
		},
		"required": []any{"path"},
	}
}

func (*Event) EventName(config map[string]string) string {
	return EventName(config["path"])
}

func (*Event) Wildcard(config map[string]string) string {
	method := strings.ToUpper(config["method"])
	if method == "" {
		return protocol.AnyWildcard
	}

	return method
}

func (*Event) WildcardOf(instance any) (string, bool) {
	req, ok := asRequest(instance)
	if !ok {
		return "", false
	}

	return req.Method, true
}

func (*Event) ExtractContextFields(instance any) map[string]any {
	req, ok := asRequest(instance)
	if !ok {
		return map[string]any{}
	}

	headers := make(map[string]any, len(req.Headers))
	for name, value := range req.Headers {
		headers[name] = value
	}

	return map[string]any{
		"method":      req.Method,
		"path":        req.Path,
		"query":       token.DeepCopy(req.Query),
		"headers":     headers,
		"body":        token.DeepCopy(req.Body),
		"remote_addr": req.RemoteAddr,
		"received_at": req.ReceivedAt.Format(time.RFC3339),
	}
}

func asRequest(instance any) (Request, bool) {
	switch req := instance.(type) {
	case Request:
		return req, true
	case *Request:
		if req == nil {
			return Request{}, false
		}

		return *req, true
	default:
		return Request{}, false
	}
}
