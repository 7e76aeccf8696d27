package crm

import (
	"context"

	"github.com/bissquit/crmdesk/internal/domain"
)

// Repository defines the interface for CRM data operations.
type Repository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, account *domain.Account) error
	DeleteAccount(ctx context.Context, id string) error

	CreateProject(ctx context.Context, project *domain.Project) error
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
	SetProjectDeliveryHead(ctx context.Context, projectID, userID string) error

	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error

	CreateUpdate(ctx context.Context, update *domain.Update) error
	ListUpdates(ctx context.Context, filter UpdateFilter) ([]domain.Update, error)

	CreateDeliveryStatus(ctx context.Context, status *domain.DeliveryStatus) error
	ListDeliveryStatuses(ctx context.Context, filter DeliveryStatusFilter) ([]domain.DeliveryStatus, error)
}

// AccountFilter represents filter criteria for listing accounts.
type AccountFilter struct {
	OwnerID *string
}

// ProjectFilter represents filter criteria for listing projects.
type ProjectFilter struct {
	// OwnerID restricts to projects under accounts owned by this user.
	OwnerID        *string
	DeliveryHeadID *string
}

// TaskFilter represents filter criteria for listing tasks.
type TaskFilter struct {
	AssignedTo *string
	CreatedBy  *string
}

// UpdateFilter represents filter criteria for listing updates.
type UpdateFilter struct {
	AuthorID  *string
	AccountID *string
}

// DeliveryStatusFilter represents filter criteria for listing delivery statuses.
type DeliveryStatusFilter struct {
	AuthorID  *string
	ProjectID *string
}
