// Package api is an HTTP client for the crmdesk REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bissquit/crmdesk/internal/crm"
	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/pkg/httputil"
)

const defaultTimeout = 10 * time.Second

// Sentinels matched by errors.Is against *Error.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Config holds API client configuration.
type Config struct {
	BaseURL string        // e.g. http://localhost:8080
	Timeout time.Duration // per request, default 10s
}

// Client calls the REST API on behalf of one secret key per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is maps 401 to ErrUnauthenticated and 403 to ErrForbidden.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// IsRetryable reports whether the request may succeed if repeated.
func (e *Error) IsRetryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Login validates secretKey and returns the owner's bundle.
func (c *Client) Login(ctx context.Context, secretKey string) (*domain.Bundle, error) {
	var bundle domain.Bundle
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"secret_key": secretKey}, &bundle)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// FetchBundle returns the full data bundle of the key's owner.
func (c *Client) FetchBundle(ctx context.Context, secretKey string) (*domain.Bundle, error) {
	var bundle domain.Bundle
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", secretKey, nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// CreateAccount creates an account owned by the caller (sales executive).
func (c *Client) CreateAccount(ctx context.Context, secretKey string, req crm.AccountRequest) (*domain.Account, error) {
	var account domain.Account
	if err := c.do(ctx, http.MethodPost, "/api/v1/sales/accounts", secretKey, req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateProject creates a project under one of the caller's accounts (sales executive).
func (c *Client) CreateProject(ctx context.Context, secretKey string, req crm.CreateProjectRequest) (*domain.Project, error) {
	var project domain.Project
	if err := c.do(ctx, http.MethodPost, "/api/v1/sales/projects", secretKey, req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateUpdate records an update against one of the caller's accounts (sales executive).
func (c *Client) CreateUpdate(ctx context.Context, secretKey string, req crm.CreateUpdateRequest) (*domain.Update, error) {
	var update domain.Update
	if err := c.do(ctx, http.MethodPost, "/api/v1/sales/updates", secretKey, req, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// CreateTask creates and assigns a task (admin).
func (c *Client) CreateTask(ctx context.Context, secretKey string, req crm.CreateTaskRequest) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/tasks", secretKey, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateDeliveryStatus files a status for a project the caller heads (delivery head).
func (c *Client) CreateDeliveryStatus(ctx context.Context, secretKey string, req crm.CreateDeliveryStatusRequest) (*domain.DeliveryStatus, error) {
	var status domain.DeliveryStatus
	if err := c.do(ctx, http.MethodPost, "/api/v1/delivery/statuses", secretKey, req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, method, path, secretKey string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if secretKey != "" {
		req.Header.Set(httputil.SecretKeyHeader, secretKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return c.handleResponse(resp, method, path, out)
}

func (c *Client) handleResponse(resp *http.Response, method, path string, out interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope struct {
			Error   string          `json:"error"`
			Details json.RawMessage `json:"details"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
			apiErr.Details = detailsString(envelope.Details)
		}
		slog.Debug("api request failed", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	envelope := struct {
		Data interface{} `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// detailsString flattens a details value, which is a string on server
// errors and a list of field errors on validation errors.
func detailsString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
