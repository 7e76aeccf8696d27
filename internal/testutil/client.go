// Package testutil holds helpers shared by the integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/bissquit/crmdesk/internal/pkg/httputil"
)

// Client sends JSON requests to a test server and checks every exchange
// against the API contract when one is set.
type Client struct {
	t         *testing.T
	baseURL   string
	secretKey string
	contract  *Contract
	http      *http.Client
}

// NewClient creates an anonymous client. contract may be nil.
func NewClient(t *testing.T, baseURL string, contract *Contract) *Client {
	return &Client{t: t, baseURL: baseURL, contract: contract, http: &http.Client{}}
}

// As returns a copy of the client that sends secretKey in the auth header.
func (c *Client) As(secretKey string) *Client {
	clone := *c
	clone.secretKey = secretKey
	return &clone
}

// Unchecked returns a copy of the client that skips contract checks,
// for tests that deliberately send malformed requests.
func (c *Client) Unchecked() *Client {
	clone := *c
	clone.contract = nil
	return &clone
}

func (c *Client) GET(path string) (*http.Response, error) {
	return c.send(http.MethodGet, path, nil)
}

func (c *Client) POST(path string, body any) (*http.Response, error) {
	return c.send(http.MethodPost, path, body)
}

func (c *Client) PATCH(path string, body any) (*http.Response, error) {
	return c.send(http.MethodPatch, path, body)
}

func (c *Client) DELETE(path string) (*http.Response, error) {
	return c.send(http.MethodDelete, path, nil)
}

func (c *Client) send(method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	if c.contract != nil {
		probe, err := c.request(method, path, payload)
		if err != nil {
			return nil, err
		}
		c.contract.CheckRequest(c.t, probe)
	}

	req, err := c.request(method, path, payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if c.contract != nil {
		// req.Body is drained by the transport; match against a fresh copy.
		probe, err := c.request(method, path, payload)
		if err != nil {
			return nil, err
		}
		c.contract.CheckResponse(c.t, probe, resp)
	}
	return resp, nil
}

func (c *Client) request(method, path string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secretKey != "" {
		req.Header.Set(httputil.SecretKeyHeader, c.secretKey)
	}
	return req, nil
}

// DecodeJSON decodes and closes the response body.
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ReadBody returns and closes the response body.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
