package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(repo *mockRepository) http.Handler {
	service := NewService(repo)
	h := NewHandler(service)

	r := chi.NewRouter()
	h.RegisterRoutes(r, nil)
	r.Group(func(r chi.Router) {
		r.Use(httputil.Authenticate(service))
		h.RegisterProtectedRoutes(r)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(httputil.Gate(service, domain.RoleAdmin))
		h.RegisterAdminRoutes(r)
	})
	return r
}

func TestHandler_Login(t *testing.T) {
	repo := newMockRepository()
	repo.addUser("abc123", &domain.User{ID: "u1", Name: "Sam", Role: domain.RoleSalesExecutive})
	repo.bundles["u1"] = &domain.Bundle{ID: "u1", Name: "Sam", Role: domain.RoleSalesExecutive}
	router := newTestRouter(repo)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"valid key", `{"secret_key":"abc123"}`, http.StatusOK, `"id":"u1"`},
		{"unknown key", `{"secret_key":"nope"}`, http.StatusUnauthorized, httputil.MsgInvalidSecretKey},
		{"missing key", `{}`, http.StatusUnauthorized, httputil.MsgNoSecretKey},
		{"bad json", `{`, http.StatusBadRequest, "invalid json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandler_Me(t *testing.T) {
	repo := newMockRepository()
	repo.addUser("abc123", &domain.User{ID: "u1", Role: domain.RoleDeliveryHead})
	repo.bundles["u1"] = &domain.Bundle{
		ID:       "u1",
		Role:     domain.RoleDeliveryHead,
		Projects: []domain.EntityRef{{ID: "p1"}},
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(httputil.SecretKeyHeader, "abc123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"projects":[{"id":"p1"}]`)
}

func TestHandler_AdminRoutesRequireAdmin(t *testing.T) {
	repo := newMockRepository()
	repo.addUser("sales", &domain.User{ID: "u1", Role: domain.RoleSalesExecutive})
	repo.addUser("admin", &domain.User{ID: "u2", Role: domain.RoleAdmin})
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/admin/users", strings.NewReader(`{"name":"New","role":"delivery_head"}`))
	req.Header.Set(httputil.SecretKeyHeader, "sales")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden: admin access required."}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/admin/users", strings.NewReader(`{"name":"New","role":"delivery_head"}`))
	req.Header.Set(httputil.SecretKeyHeader, "admin")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"secret_key"`)
}

func TestHandler_CreateUser_Validation(t *testing.T) {
	repo := newMockRepository()
	repo.addUser("admin", &domain.User{ID: "u2", Role: domain.RoleAdmin})
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/admin/users", strings.NewReader(`{"name":"New","role":"owner"}`))
	req.Header.Set(httputil.SecretKeyHeader, "admin")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation error")
}
