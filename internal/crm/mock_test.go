package crm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/identity"
)

// memRepository is an in-memory Repository for tests.
type memRepository struct {
	mu       sync.Mutex
	seq      int
	accounts map[string]*domain.Account
	projects map[string]*domain.Project
	tasks    map[string]*domain.Task
	updates  []domain.Update
	statuses []domain.DeliveryStatus
	failWith error
}

func newMemRepository() *memRepository {
	return &memRepository{
		accounts: make(map[string]*domain.Account),
		projects: make(map[string]*domain.Project),
		tasks:    make(map[string]*domain.Task),
	}
}

func (m *memRepository) nextID() string {
	m.seq++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
}

func (m *memRepository) CreateAccount(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	account.ID = m.nextID()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *memRepository) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepository) ListAccounts(_ context.Context, filter AccountFilter) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := []domain.Account{}
	for _, a := range m.accounts {
		if filter.OwnerID != nil && a.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepository) UpdateAccount(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return ErrAccountNotFound
	}
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *memRepository) DeleteAccount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(m.accounts, id)
	for pid, p := range m.projects {
		if p.AccountID == id {
			delete(m.projects, pid)
		}
	}
	return nil
}

func (m *memRepository) CreateProject(_ context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project.ID = m.nextID()
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *memRepository) GetProject(_ context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepository) ListProjects(_ context.Context, filter ProjectFilter) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Project{}
	for _, p := range m.projects {
		if filter.OwnerID != nil {
			a, ok := m.accounts[p.AccountID]
			if !ok || a.OwnerID != *filter.OwnerID {
				continue
			}
		}
		if filter.DeliveryHeadID != nil && (p.DeliveryHeadID == nil || *p.DeliveryHeadID != *filter.DeliveryHeadID) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepository) SetProjectDeliveryHead(_ context.Context, projectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return ErrProjectNotFound
	}
	p.DeliveryHeadID = &userID
	return nil
}

func (m *memRepository) CreateTask(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.ID = m.nextID()
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memRepository) GetTask(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memRepository) ListTasks(_ context.Context, filter TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Task{}
	for _, t := range m.tasks {
		if filter.AssignedTo != nil && t.AssignedTo != *filter.AssignedTo {
			continue
		}
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepository) UpdateTaskStatus(_ context.Context, id string, status domain.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.Status = status
	return nil
}

func (m *memRepository) CreateUpdate(_ context.Context, update *domain.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	update.ID = m.nextID()
	m.updates = append(m.updates, *update)
	return nil
}

func (m *memRepository) ListUpdates(_ context.Context, filter UpdateFilter) ([]domain.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Update{}
	for _, u := range m.updates {
		if filter.AuthorID != nil && u.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.AccountID != nil && u.AccountID != *filter.AccountID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memRepository) CreateDeliveryStatus(_ context.Context, status *domain.DeliveryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status.ID = m.nextID()
	m.statuses = append(m.statuses, *status)
	return nil
}

func (m *memRepository) ListDeliveryStatuses(_ context.Context, filter DeliveryStatusFilter) ([]domain.DeliveryStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.DeliveryStatus{}
	for _, s := range m.statuses {
		if filter.AuthorID != nil && s.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.ProjectID != nil && s.ProjectID != *filter.ProjectID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// userDirectory is an in-memory UserReader.
type userDirectory map[string]*domain.User

func (d userDirectory) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}

const (
	salesID    = "11111111-1111-1111-1111-111111111111"
	otherSales = "22222222-2222-2222-2222-222222222222"
	adminID    = "33333333-3333-3333-3333-333333333333"
	headID     = "44444444-4444-4444-4444-444444444444"
)

func testUsers() userDirectory {
	return userDirectory{
		salesID:    {ID: salesID, Name: "Sam", Role: domain.RoleSalesExecutive},
		otherSales: {ID: otherSales, Name: "Olga", Role: domain.RoleSalesExecutive},
		adminID:    {ID: adminID, Name: "Ada", Role: domain.RoleAdmin},
		headID:     {ID: headID, Name: "Hal", Role: domain.RoleDeliveryHead},
	}
}
