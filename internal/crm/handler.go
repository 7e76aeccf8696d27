package crm

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/pkg/ctxlog"
	"github.com/bissquit/crmdesk/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the CRM module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new CRM handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterSalesRoutes registers routes for sales executives.
func (h *Handler) RegisterSalesRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.ListOwnAccounts)
		r.Post("/", h.CreateAccount)
		r.Get("/{id}", h.GetAccount)
		r.Patch("/{id}", h.UpdateAccount)
		r.Delete("/{id}", h.DeleteAccount)
	})
	r.Get("/projects", h.ListOwnProjects)
	r.Post("/projects", h.CreateProject)
	r.Get("/updates", h.ListOwnUpdates)
	r.Post("/updates", h.CreateUpdate)
}

// RegisterAdminRoutes registers routes for admins.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/accounts", h.ListAllAccounts)
	r.Get("/projects", h.ListAllProjects)
	r.Patch("/projects/{id}/delivery-head", h.AssignDeliveryHead)
	r.Get("/tasks", h.ListAllTasks)
	r.Post("/tasks", h.CreateTask)
}

// RegisterDeliveryRoutes registers routes for delivery heads.
func (h *Handler) RegisterDeliveryRoutes(r chi.Router) {
	r.Get("/projects", h.ListDeliveryProjects)
	r.Get("/tasks", h.ListAssignedTasks)
	r.Patch("/tasks/{id}/status", h.UpdateTaskStatus)
	r.Get("/statuses", h.ListOwnDeliveryStatuses)
	r.Post("/statuses", h.CreateDeliveryStatus)
}

// AccountRequest represents the request body for creating or updating an account.
type AccountRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Industry string `json:"industry" validate:"max=255"`
}

// CreateProjectRequest represents the request body for creating a project.
type CreateProjectRequest struct {
	AccountID   string `json:"account_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=planned active on_hold completed"`
}

// AssignDeliveryHeadRequest represents the request body for assigning a delivery head.
type AssignDeliveryHeadRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	ProjectID   *string    `json:"project_id" validate:"omitempty,uuid"`
	Title       string     `json:"title" validate:"required,min=1,max=255"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to" validate:"required,uuid"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskStatusRequest represents the request body for changing a task status.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress done"`
}

// CreateUpdateRequest represents the request body for recording an update.
type CreateUpdateRequest struct {
	AccountID string  `json:"account_id" validate:"required,uuid"`
	ProjectID *string `json:"project_id" validate:"omitempty,uuid"`
	Body      string  `json:"body" validate:"required,min=1"`
}

// CreateDeliveryStatusRequest represents the request body for filing a delivery status.
type CreateDeliveryStatusRequest struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
	Health    string `json:"health" validate:"required,oneof=green amber red"`
	Note      string `json:"note"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrAccountNotFound, Status: http.StatusNotFound},
	{Error: ErrProjectNotFound, Status: http.StatusNotFound},
	{Error: ErrTaskNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidAssignee, Status: http.StatusBadRequest},
	{Error: ErrNotDeliveryHead, Status: http.StatusBadRequest},
	{Error: ErrProjectAccountMismatch, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
}

// decode reads and validates a JSON body, writing the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httputil.ValidationError(w, err)
		return false
	}
	return true
}

// pathID returns the {id} URL parameter if it is a valid UUID.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid id")
		return "", false
	}
	return id.String(), true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := ctxlog.With(r.Context(), "user_id", httputil.GetUserID(r.Context()))
	httputil.HandleError(ctx, w, err, errorMappings)
}

// ListOwnAccounts handles GET /sales/accounts.
func (h *Handler) ListOwnAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListOwnAccounts(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, accounts)
}

// ListAllAccounts handles GET /admin/accounts.
func (h *Handler) ListAllAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAllAccounts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, accounts)
}

// CreateAccount handles POST /sales/accounts.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.service.CreateAccount(r.Context(), httputil.GetUserID(r.Context()), AccountInput(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, account)
}

// GetAccount handles GET /sales/accounts/{id}.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	account, err := h.service.GetOwnAccount(r.Context(), httputil.GetUserID(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, account)
}

// UpdateAccount handles PATCH /sales/accounts/{id}.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.service.UpdateOwnAccount(r.Context(), httputil.GetUserID(r.Context()), id, AccountInput(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, account)
}

// DeleteAccount handles DELETE /sales/accounts/{id}.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOwnAccount(r.Context(), httputil.GetUserID(r.Context()), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOwnProjects handles GET /sales/projects.
func (h *Handler) ListOwnProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListOwnProjects(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, projects)
}

// ListDeliveryProjects handles GET /delivery/projects.
func (h *Handler) ListDeliveryProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListDeliveryProjects(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, projects)
}

// ListAllProjects handles GET /admin/projects.
func (h *Handler) ListAllProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListAllProjects(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, projects)
}

// CreateProject handles POST /sales/projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !h.decode(w, r, &req) {
		return
	}

	project, err := h.service.CreateProject(r.Context(), httputil.GetUserID(r.Context()), ProjectInput{
		AccountID:   req.AccountID,
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.ProjectStatus(req.Status),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, project)
}

// AssignDeliveryHead handles PATCH /admin/projects/{id}/delivery-head.
func (h *Handler) AssignDeliveryHead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AssignDeliveryHeadRequest
	if !h.decode(w, r, &req) {
		return
	}

	project, err := h.service.AssignDeliveryHead(r.Context(), id, req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, project)
}

// ListAllTasks handles GET /admin/tasks.
func (h *Handler) ListAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListAllTasks(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, tasks)
}

// CreateTask handles POST /admin/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.service.CreateTask(r.Context(), httputil.GetUserID(r.Context()), TaskInput(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, task)
}

// ListAssignedTasks handles GET /delivery/tasks.
func (h *Handler) ListAssignedTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListAssignedTasks(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, tasks)
}

// UpdateTaskStatus handles PATCH /delivery/tasks/{id}/status.
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateTaskStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.service.UpdateAssignedTaskStatus(r.Context(), httputil.GetUserID(r.Context()), id, domain.TaskStatus(req.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, task)
}

// ListOwnUpdates handles GET /sales/updates.
func (h *Handler) ListOwnUpdates(w http.ResponseWriter, r *http.Request) {
	updates, err := h.service.ListOwnUpdates(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, updates)
}

// CreateUpdate handles POST /sales/updates.
func (h *Handler) CreateUpdate(w http.ResponseWriter, r *http.Request) {
	var req CreateUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	update, err := h.service.CreateUpdate(r.Context(), httputil.GetUserID(r.Context()), UpdateInput(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, update)
}

// ListOwnDeliveryStatuses handles GET /delivery/statuses.
func (h *Handler) ListOwnDeliveryStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.ListOwnDeliveryStatuses(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusOK, statuses)
}

// CreateDeliveryStatus handles POST /delivery/statuses.
func (h *Handler) CreateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var req CreateDeliveryStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	status, err := h.service.CreateDeliveryStatus(r.Context(), httputil.GetUserID(r.Context()), DeliveryStatusInput{
		ProjectID: req.ProjectID,
		Health:    domain.Health(req.Health),
		Note:      req.Note,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.Success(w, http.StatusCreated, status)
}
