// Package crm implements accounts, projects, tasks, updates and delivery statuses.
package crm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/identity"
)

// UserReader looks users up for assignment checks.
type UserReader interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Service implements CRM business logic. Every method takes the acting
// user's id and scopes reads and writes to what that user may see.
type Service struct {
	repo  Repository
	users UserReader
}

// NewService creates a new CRM service.
func NewService(repo Repository, users UserReader) *Service {
	return &Service{repo: repo, users: users}
}

// AccountInput holds data for creating or updating an account.
type AccountInput struct {
	Name     string
	Industry string
}

// ProjectInput holds data for creating a project.
type ProjectInput struct {
	AccountID   string
	Name        string
	Description string
	Status      domain.ProjectStatus
}

// TaskInput holds data for creating a task.
type TaskInput struct {
	ProjectID   *string
	Title       string
	Description string
	AssignedTo  string
	DueDate     *time.Time
}

// UpdateInput holds data for recording an update.
type UpdateInput struct {
	AccountID string
	ProjectID *string
	Body      string
}

// DeliveryStatusInput holds data for filing a delivery status.
type DeliveryStatusInput struct {
	ProjectID string
	Health    domain.Health
	Note      string
}

// ListOwnAccounts returns the accounts owned by ownerID.
func (s *Service) ListOwnAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx, AccountFilter{OwnerID: &ownerID})
}

// ListAllAccounts returns every account.
func (s *Service) ListAllAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx, AccountFilter{})
}

// CreateAccount creates an account owned by ownerID.
func (s *Service) CreateAccount(ctx context.Context, ownerID string, input AccountInput) (*domain.Account, error) {
	account := &domain.Account{
		Name:     input.Name,
		Industry: input.Industry,
		OwnerID:  ownerID,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// GetOwnAccount returns the account if ownerID owns it.
func (s *Service) GetOwnAccount(ctx context.Context, ownerID, id string) (*domain.Account, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// UpdateOwnAccount changes name and industry of an account ownerID owns.
func (s *Service) UpdateOwnAccount(ctx context.Context, ownerID, id string, input AccountInput) (*domain.Account, error) {
	account, err := s.GetOwnAccount(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	account.Name = input.Name
	account.Industry = input.Industry
	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

// DeleteOwnAccount deletes an account ownerID owns, with its projects and updates.
func (s *Service) DeleteOwnAccount(ctx context.Context, ownerID, id string) error {
	if _, err := s.GetOwnAccount(ctx, ownerID, id); err != nil {
		return err
	}
	return s.repo.DeleteAccount(ctx, id)
}

// ListOwnProjects returns projects under accounts owned by ownerID.
func (s *Service) ListOwnProjects(ctx context.Context, ownerID string) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx, ProjectFilter{OwnerID: &ownerID})
}

// ListDeliveryProjects returns projects assigned to a delivery head.
func (s *Service) ListDeliveryProjects(ctx context.Context, deliveryHeadID string) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx, ProjectFilter{DeliveryHeadID: &deliveryHeadID})
}

// ListAllProjects returns every project.
func (s *Service) ListAllProjects(ctx context.Context) ([]domain.Project, error) {
	return s.repo.ListProjects(ctx, ProjectFilter{})
}

// CreateProject creates a project under an account creatorID owns.
func (s *Service) CreateProject(ctx context.Context, creatorID string, input ProjectInput) (*domain.Project, error) {
	if input.Status == "" {
		input.Status = domain.ProjectStatusPlanned
	}
	if !input.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	if _, err := s.GetOwnAccount(ctx, creatorID, input.AccountID); err != nil {
		return nil, err
	}

	project := &domain.Project{
		AccountID:   input.AccountID,
		Name:        input.Name,
		Description: input.Description,
		Status:      input.Status,
		CreatedBy:   creatorID,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// AssignDeliveryHead sets the delivery head of a project.
func (s *Service) AssignDeliveryHead(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleDeliveryHead {
		return nil, ErrNotDeliveryHead
	}

	if err := s.repo.SetProjectDeliveryHead(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repo.GetProject(ctx, projectID)
}

// CreateTask creates a task and assigns it.
func (s *Service) CreateTask(ctx context.Context, creatorID string, input TaskInput) (*domain.Task, error) {
	if _, err := s.lookupUser(ctx, input.AssignedTo); err != nil {
		return nil, err
	}
	if input.ProjectID != nil {
		if _, err := s.repo.GetProject(ctx, *input.ProjectID); err != nil {
			return nil, err
		}
	}

	task := &domain.Task{
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.TaskStatusOpen,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   creatorID,
		DueDate:     input.DueDate,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// ListAssignedTasks returns tasks assigned to userID.
func (s *Service) ListAssignedTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.repo.ListTasks(ctx, TaskFilter{AssignedTo: &userID})
}

// ListAllTasks returns every task.
func (s *Service) ListAllTasks(ctx context.Context) ([]domain.Task, error) {
	return s.repo.ListTasks(ctx, TaskFilter{})
}

// UpdateAssignedTaskStatus moves a task assigned to userID to a new status.
func (s *Service) UpdateAssignedTaskStatus(ctx context.Context, userID, taskID string, status domain.TaskStatus) (*domain.Task, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssignedTo != userID {
		return nil, ErrTaskNotFound
	}

	if err := s.repo.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	task.Status = status
	return task, nil
}

// ListOwnUpdates returns updates written by authorID.
func (s *Service) ListOwnUpdates(ctx context.Context, authorID string) ([]domain.Update, error) {
	return s.repo.ListUpdates(ctx, UpdateFilter{AuthorID: &authorID})
}

// CreateUpdate records an update against an account authorID owns.
func (s *Service) CreateUpdate(ctx context.Context, authorID string, input UpdateInput) (*domain.Update, error) {
	if _, err := s.GetOwnAccount(ctx, authorID, input.AccountID); err != nil {
		return nil, err
	}
	if input.ProjectID != nil {
		project, err := s.repo.GetProject(ctx, *input.ProjectID)
		if err != nil {
			return nil, err
		}
		if project.AccountID != input.AccountID {
			return nil, ErrProjectAccountMismatch
		}
	}

	update := &domain.Update{
		AccountID: input.AccountID,
		ProjectID: input.ProjectID,
		AuthorID:  authorID,
		Body:      input.Body,
	}
	if err := s.repo.CreateUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("create update: %w", err)
	}
	return update, nil
}

// ListOwnDeliveryStatuses returns delivery statuses filed by authorID.
func (s *Service) ListOwnDeliveryStatuses(ctx context.Context, authorID string) ([]domain.DeliveryStatus, error) {
	return s.repo.ListDeliveryStatuses(ctx, DeliveryStatusFilter{AuthorID: &authorID})
}

// CreateDeliveryStatus files a status for a project authorID is delivery head of.
func (s *Service) CreateDeliveryStatus(ctx context.Context, authorID string, input DeliveryStatusInput) (*domain.DeliveryStatus, error) {
	if !input.Health.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Health)
	}

	project, err := s.repo.GetProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.DeliveryHeadID == nil || *project.DeliveryHeadID != authorID {
		return nil, ErrProjectNotFound
	}

	status := &domain.DeliveryStatus{
		ProjectID: input.ProjectID,
		AuthorID:  authorID,
		Health:    input.Health,
		Note:      input.Note,
	}
	if err := s.repo.CreateDeliveryStatus(ctx, status); err != nil {
		return nil, fmt.Errorf("create delivery status: %w", err)
	}
	return status, nil
}

func (s *Service) lookupUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, ErrInvalidAssignee
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
