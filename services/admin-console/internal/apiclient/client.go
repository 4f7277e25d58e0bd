// Package apiclient talks to the broadcast backend REST API on behalf of an
// operator.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
)

// APIError is a non-2xx backend answer. Detail holds the "detail" field of
// the body when present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend status %d", e.Status)
}

func (e *APIError) ErrorDetail() string {
	return e.Detail
}

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

func New(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListCustomers GET /api/v1/customers/list
func (c *Client) ListCustomers(ctx context.Context, filter broadcast.CustomerFilter) ([]broadcast.Customer, error) {
	q := url.Values{}
	if filter.Q != "" {
		q.Set("q", filter.Q)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	path := "/api/v1/customers/list"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []broadcast.Customer
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendTemplate POST /api/v1/broadcast/send-template
func (c *Client) SendTemplate(ctx context.Context, req broadcast.SendTemplateRequest) (*broadcast.SendResponse, error) {
	var out broadcast.SendResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/broadcast/send-template", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Detail: extractDetail(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractDetail reads "detail" as a string, or as raw JSON when the backend
// sends a structured validation list. It falls back to "message".
func extractDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 && string(payload.Detail) != "null" {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		return string(payload.Detail)
	}
	return payload.Message
}
