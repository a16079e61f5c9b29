// Package reimbursement is a client for the reimbursement requests REST API.
package reimbursement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Adda-Baaj/reimbursement-client/pkg/httpclient"
)

const (
	requestsPath = "/api/requests"
	logsPath     = "/logs"

	// DefaultTimeout is used when New builds its own transport.
	DefaultTimeout = 30 * time.Second
)

// Client issues one HTTP request per call against a fixed origin. It keeps no
// state between calls and is safe for concurrent use.
type Client struct {
	origin string
	http   httpclient.Client
	log    Logger
}

// New returns a client for the API served at origin (scheme://host[:port]).
// A nil transport defaults to resty with DefaultTimeout.
func New(origin string, client httpclient.Client, log Logger) (*Client, error) {
	base, err := normalizeOrigin(origin)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = httpclient.NewRestyClient(DefaultTimeout)
	}
	return &Client{
		origin: base,
		http:   client,
		log:    ensureLogger(log),
	}, nil
}

func normalizeOrigin(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", errors.New("api origin is empty")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse api origin: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("api origin %q must use http or https", origin)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api origin %q has no host", origin)
	}
	return strings.TrimRight(origin, "/"), nil
}

// Origin returns the base URL every request is built on.
func (c *Client) Origin() string { return c.origin }

// ListRequests returns every reimbursement request.
func (c *Client) ListRequests(ctx context.Context) (json.RawMessage, error) {
	return c.send(ctx, requestsPath, httpclient.Request{Method: http.MethodGet})
}

// ListRequestsByEmail returns the requests uploaded by email.
func (c *Client) ListRequestsByEmail(ctx context.Context, email string) (json.RawMessage, error) {
	return c.send(ctx, requestsPath+"/email/"+encodeComponent(email), httpclient.Request{Method: http.MethodGet})
}

// ListPendingRequests returns the requests still waiting for a decision.
func (c *Client) ListPendingRequests(ctx context.Context) (json.RawMessage, error) {
	return c.send(ctx, requestsPath+"/status/"+StatusPending, httpclient.Request{Method: http.MethodGet})
}

// ListRequestsByStatus returns the requests currently in status.
func (c *Client) ListRequestsByStatus(ctx context.Context, status string) (json.RawMessage, error) {
	return c.send(ctx, requestsPath+"/status/"+encodeComponent(status), httpclient.Request{Method: http.MethodGet})
}

// CreateRequest submits a new reimbursement request.
func (c *Client) CreateRequest(ctx context.Context, payload Payload) (json.RawMessage, error) {
	if payload == nil {
		return nil, errors.New("create request: payload is nil")
	}
	req, err := payload.request()
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.send(ctx, requestsPath, req)
}

// UpdateRequestStatus sets the status of request id. An empty reason is left
// out of the body.
func (c *Client) UpdateRequestStatus(ctx context.Context, id, status, reason string) (json.RawMessage, error) {
	body, err := json.Marshal(StatusUpdate{Status: status, Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("marshal status update: %w", err)
	}
	return c.send(ctx, requestsPath+"/"+id, httpclient.Request{
		Method:  http.MethodPatch,
		Headers: map[string]string{"Content-Type": contentTypeJSON},
		Body:    body,
	})
}

// DeleteRequest removes request id.
func (c *Client) DeleteRequest(ctx context.Context, id string) (json.RawMessage, error) {
	return c.send(ctx, requestsPath+"/"+id, httpclient.Request{Method: http.MethodDelete})
}

// FetchLogs returns the system event log. It never fails: any error is
// logged and an empty JSON array is returned in its place.
func (c *Client) FetchLogs(ctx context.Context) json.RawMessage {
	body, err := c.send(ctx, logsPath, httpclient.Request{Method: http.MethodGet})
	if err != nil {
		c.log.ErrorObj("fetch logs failed", "logs_error", map[string]any{
			"origin": c.origin,
			"error":  err.Error(),
		})
		return json.RawMessage("[]")
	}
	return body
}

func (c *Client) send(ctx context.Context, path string, req httpclient.Request) (json.RawMessage, error) {
	req.URL = c.origin + path

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, path, err)
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &StatusError{
			Method:     req.Method,
			Path:       path,
			StatusCode: code,
			Snippet:    bodySnippet(body, contentType),
		}
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &DecodeError{
			Method:  req.Method,
			Path:    path,
			Snippet: bodySnippet(body, contentType),
			Err:     err,
		}
	}

	c.log.DebugObj("api call completed", "api_call", map[string]any{
		"method": req.Method,
		"path":   path,
		"status": resp.StatusCode(),
	})
	return raw, nil
}
