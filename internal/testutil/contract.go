package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// Paths served outside the JSON API; the contract does not describe their bodies.
var uncheckedPaths = map[string]bool{
	"/healthz":          true,
	"/readyz":           true,
	"/docs":             true,
	"/api/openapi.yaml": true,
}

// Contract checks traffic against api/openapi/openapi.yaml.
type Contract struct {
	router routers.Router
}

// LoadContract parses and validates the OpenAPI document at path.
func LoadContract(path string) (*Contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document %s: %w", path, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &Contract{router: router}, nil
}

func (c *Contract) input(req *http.Request) (*openapi3filter.RequestValidationInput, error) {
	// The router matches on the path alone, so strip the test server host.
	probe, err := http.NewRequest(req.Method, req.URL.Path, nil)
	if err != nil {
		return nil, err
	}
	route, params, err := c.router.FindRoute(probe)
	if err != nil {
		return nil, fmt.Errorf("no documented route for %s %s: %w", req.Method, req.URL.Path, err)
	}
	return &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: params,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError: true,
			// The secret key is checked by the server under test.
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}, nil
}

// CheckRequest fails t if req is not allowed by the contract.
func (c *Contract) CheckRequest(t *testing.T, req *http.Request) {
	t.Helper()
	if uncheckedPaths[req.URL.Path] {
		return
	}

	in, err := c.input(req)
	if err != nil {
		t.Error(err)
		return
	}
	if err := openapi3filter.ValidateRequest(context.Background(), in); err != nil {
		t.Errorf("request %s %s breaks the contract: %v", req.Method, req.URL.Path, err)
	}
}

// CheckResponse fails t if resp is not a documented answer to req.
// The response body is read and replaced so callers can still decode it.
func (c *Contract) CheckResponse(t *testing.T, req *http.Request, resp *http.Response) {
	t.Helper()
	if uncheckedPaths[req.URL.Path] {
		return
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		t.Errorf("read response body: %v", err)
		return
	}

	in, err := c.input(req)
	if err != nil {
		t.Error(err)
		return
	}
	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: in,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	})
	if err != nil {
		t.Errorf("response %d to %s %s breaks the contract: %s\nbody: %s",
			resp.StatusCode, req.Method, req.URL.Path, clip(err.Error(), 500), clip(string(body), 200))
	}
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
