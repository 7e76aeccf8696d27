package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/pkg/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolvedUser struct {
	id   string
	role domain.Role
}

// mockResolver implements CredentialResolver for testing.
type mockResolver struct {
	users map[string]resolvedUser
	err   error
	calls int
}

func (m *mockResolver) ResolveCredential(_ context.Context, secretKey string) (string, domain.Role, error) {
	m.calls++
	if m.err != nil {
		return "", "", m.err
	}
	u, ok := m.users[secretKey]
	if !ok {
		return "", "", fmt.Errorf("resolve: %w", domain.ErrUnauthenticated)
	}
	return u.id, u.role, nil
}

// recordingHandler counts invocations and captures the identity it saw.
type recordingHandler struct {
	calls  int
	userID string
	role   domain.Role
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls++
	h.userID = GetUserID(r.Context())
	h.role = GetRole(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func newResolver() *mockResolver {
	return &mockResolver{users: map[string]resolvedUser{
		"sales-key":    {id: "u-sales", role: domain.RoleSalesExecutive},
		"admin-key":    {id: "u-admin", role: domain.RoleAdmin},
		"delivery-key": {id: "u-delivery", role: domain.RoleDeliveryHead},
	}}
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, key string) (*httptest.ResponseRecorder, *recordingHandler) {
	t.Helper()
	next := &recordingHandler{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	if key != "" {
		req.Header.Set(SecretKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec, next
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGate_MissingHeader(t *testing.T) {
	resolver := newResolver()
	rec, next := serve(t, Gate(resolver, domain.RoleAdmin), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, map[string]string{"error": "Unauthorized: No secret key provided."}, decodeBody(t, rec))
	assert.Zero(t, next.calls)
	assert.Zero(t, resolver.calls, "no lookup without a key")
}

func TestGate_BlankHeaderIsMissing(t *testing.T) {
	rec, next := serve(t, Gate(newResolver(), domain.RoleAdmin), "   ")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgNoSecretKey, decodeBody(t, rec)["error"])
	assert.Zero(t, next.calls)
}

func TestGate_UnknownKey(t *testing.T) {
	rec, next := serve(t, Gate(newResolver(), domain.RoleAdmin), "abc123")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgInvalidSecretKey, decodeBody(t, rec)["error"])
	assert.Zero(t, next.calls)
	assert.Empty(t, next.userID)
}

func TestGate_RoleMismatch(t *testing.T) {
	rec, next := serve(t, Gate(newResolver(), domain.RoleAdmin), "sales-key")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden: admin access required.", decodeBody(t, rec)["error"])
	assert.Zero(t, next.calls)
}

func TestGate_EveryRoleIsExclusive(t *testing.T) {
	keys := map[domain.Role]string{
		domain.RoleSalesExecutive: "sales-key",
		domain.RoleAdmin:          "admin-key",
		domain.RoleDeliveryHead:   "delivery-key",
	}

	for required := range keys {
		for have, key := range keys {
			t.Run(fmt.Sprintf("%s_on_%s_route", have, required), func(t *testing.T) {
				rec, next := serve(t, Gate(newResolver(), required), key)
				if have == required {
					assert.Equal(t, http.StatusNoContent, rec.Code)
					assert.Equal(t, 1, next.calls)
					return
				}
				assert.Equal(t, http.StatusForbidden, rec.Code)
				assert.Contains(t, decodeBody(t, rec)["error"], string(required))
				assert.Zero(t, next.calls)
			})
		}
	}
}

func TestGate_AttachesIdentityAndCallsNextOnce(t *testing.T) {
	rec, next := serve(t, Gate(newResolver(), domain.RoleDeliveryHead), "delivery-key")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "u-delivery", next.userID)
	assert.Equal(t, domain.RoleDeliveryHead, next.role)
}

func TestGate_ResolverFailure(t *testing.T) {
	resolver := newResolver()
	resolver.err = errors.New("connection refused")

	rec, next := serve(t, Gate(resolver, domain.RoleAdmin), "admin-key")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, MsgAuthServerError, body["error"])
	assert.Equal(t, "connection refused", body["details"])
	assert.Zero(t, next.calls)
}

func TestGate_ResolverFailureWithoutMessage(t *testing.T) {
	resolver := newResolver()
	resolver.err = errors.New("")

	rec, _ := serve(t, Gate(resolver, domain.RoleAdmin), "admin-key")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, UnknownErrorDetails, decodeBody(t, rec)["details"])
}

func TestAuthenticate_AcceptsAnyRole(t *testing.T) {
	for _, key := range []string{"sales-key", "admin-key", "delivery-key"} {
		rec, next := serve(t, Authenticate(newResolver()), key)
		assert.Equal(t, http.StatusNoContent, rec.Code, key)
		assert.Equal(t, 1, next.calls, key)
	}
}

func TestGate_PanicsOnUnknownRole(t *testing.T) {
	assert.Panics(t, func() { Gate(newResolver(), domain.Role("root")) })
}

func TestGate_LogsDecisionWithoutSecret(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	next := &recordingHandler{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set(SecretKeyHeader, "sales-key")
	req = req.WithContext(ctxlog.WithLogger(req.Context(), logger))

	Gate(newResolver(), domain.RoleAdmin)(next).ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/api/v1/admin/users", line["path"])
	assert.Equal(t, OutcomeForbidden, line["outcome"])
	assert.Equal(t, "sales_executive", line["role"])
	assert.NotContains(t, buf.String(), "sales-key")
}

func TestGetters_EmptyContext(t *testing.T) {
	assert.Empty(t, GetUserID(context.Background()))
	assert.Empty(t, GetRole(context.Background()))
}
