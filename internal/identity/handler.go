package identity

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers public identity routes.
// loginLimiter wraps the login endpoint; pass nil to leave it unlimited.
func (h *Handler) RegisterRoutes(r chi.Router, loginLimiter func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		if loginLimiter != nil {
			r.Use(loginLimiter)
		}
		r.Post("/login", h.Login)
	})
}

// RegisterProtectedRoutes registers routes available to any authenticated role.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
}

// RegisterAdminRoutes registers user provisioning routes (admin only).
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
}

// LoginRequest represents login request body.
type LoginRequest struct {
	SecretKey string `json:"secret_key" validate:"required"`
}

// CreateUserRequest represents the request body for provisioning a user.
type CreateUserRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Role string `json:"role" validate:"required,oneof=sales_executive admin delivery_head"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrInvalidSecretKey, Status: http.StatusUnauthorized, Message: httputil.MsgInvalidSecretKey},
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidRole, Status: http.StatusBadRequest},
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.Error(w, http.StatusUnauthorized, httputil.MsgNoSecretKey)
		return
	}

	bundle, err := h.service.Login(r.Context(), req.SecretKey)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, bundle)
}

// Me handles GET /me and returns the caller's data bundle.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())
	if userID == "" {
		httputil.Error(w, http.StatusUnauthorized, httputil.MsgNoSecretKey)
		return
	}

	bundle, err := h.service.GetBundle(r.Context(), userID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, bundle)
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var filter UserFilter
	if v := r.URL.Query().Get("role"); v != "" {
		role := domain.Role(v)
		filter.Role = &role
	}

	users, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, users)
}

// CreateUser handles POST /admin/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	provisioned, err := h.service.ProvisionUser(r.Context(), ProvisionInput{
		Name: req.Name,
		Role: domain.Role(req.Role),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, provisioned)
}
