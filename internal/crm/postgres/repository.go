// Package postgres provides PostgreSQL implementation of the CRM repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bissquit/crmdesk/internal/crm"
	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the crm.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// where accumulates optional equality conditions with positional args.
type where struct {
	conds []string
	args  []any
}

func (w *where) eq(column string, value *string) {
	if value == nil {
		return
	}
	w.args = append(w.args, *value)
	w.conds = append(w.conds, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

const accountColumns = `id, name, industry, owner_id, created_at, updated_at`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Name, &a.Industry, &a.OwnerID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAccount creates a new account in the database.
func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (name, industry, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, account.Name, account.Industry, account.OwnerID).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (r *Repository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, crm.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

// ListAccounts retrieves accounts ordered by name.
func (r *Repository) ListAccounts(ctx context.Context, filter crm.AccountFilter) ([]domain.Account, error) {
	var w where
	w.eq("owner_id", filter.OwnerID)

	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts`+w.String()+` ORDER BY name, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Account, error) {
		return scanAccount(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount updates name and industry of an account.
func (r *Repository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET name = $2, industry = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, account.ID, account.Name, account.Industry).Scan(&account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crm.ErrAccountNotFound
		}
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// DeleteAccount deletes an account; projects and updates cascade.
func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return crm.ErrAccountNotFound
	}
	return nil
}

const projectColumns = `p.id, p.account_id, p.name, p.description, p.status, p.delivery_head_id, p.created_by, p.created_at, p.updated_at`

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.AccountID, &p.Name, &p.Description, &p.Status,
		&p.DeliveryHeadID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProject creates a new project in the database.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (account_id, name, description, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		project.AccountID,
		project.Name,
		project.Description,
		project.Status,
		project.CreatedBy,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (r *Repository) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`
	project, err := scanProject(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, crm.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

// ListProjects retrieves projects ordered by creation time.
func (r *Repository) ListProjects(ctx context.Context, filter crm.ProjectFilter) ([]domain.Project, error) {
	var w where
	w.eq("a.owner_id", filter.OwnerID)
	w.eq("p.delivery_head_id", filter.DeliveryHeadID)

	query := `SELECT ` + projectColumns + `
		FROM projects p
		JOIN accounts a ON a.id = p.account_id` + w.String() + `
		ORDER BY p.created_at, p.id`

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Project, error) {
		return scanProject(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan projects: %w", err)
	}
	return projects, nil
}

// SetProjectDeliveryHead assigns a delivery head to a project.
func (r *Repository) SetProjectDeliveryHead(ctx context.Context, projectID, userID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE projects SET delivery_head_id = $2, updated_at = NOW() WHERE id = $1
	`, projectID, userID)
	if err != nil {
		return fmt.Errorf("set project delivery head: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return crm.ErrProjectNotFound
	}
	return nil
}

const taskColumns = `id, project_id, title, description, status, assigned_to, created_by, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.AssignedTo, &t.CreatedBy, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTask creates a new task in the database.
func (r *Repository) CreateTask(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (project_id, title, description, status, assigned_to, created_by, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		task.ProjectID,
		task.Title,
		task.Description,
		task.Status,
		task.AssignedTo,
		task.CreatedBy,
		task.DueDate,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, crm.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// ListTasks retrieves tasks ordered by due date, undated last.
func (r *Repository) ListTasks(ctx context.Context, filter crm.TaskFilter) ([]domain.Task, error) {
	var w where
	w.eq("assigned_to", filter.AssignedTo)
	w.eq("created_by", filter.CreatedBy)

	query := `SELECT ` + taskColumns + ` FROM tasks` + w.String() + ` ORDER BY due_date NULLS LAST, created_at, id`
	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Task, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskStatus changes the status of a task.
func (r *Repository) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return crm.ErrTaskNotFound
	}
	return nil
}

// CreateUpdate creates a new account update in the database.
func (r *Repository) CreateUpdate(ctx context.Context, update *domain.Update) error {
	query := `
		INSERT INTO updates (account_id, project_id, author_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, update.AccountID, update.ProjectID, update.AuthorID, update.Body).
		Scan(&update.ID, &update.CreatedAt)
	if err != nil {
		return fmt.Errorf("create update: %w", err)
	}
	return nil
}

// ListUpdates retrieves updates, newest first.
func (r *Repository) ListUpdates(ctx context.Context, filter crm.UpdateFilter) ([]domain.Update, error) {
	var w where
	w.eq("author_id", filter.AuthorID)
	w.eq("account_id", filter.AccountID)

	query := `SELECT id, account_id, project_id, author_id, body, created_at FROM updates` +
		w.String() + ` ORDER BY created_at DESC, id`
	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	updates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Update, error) {
		var u domain.Update
		err := row.Scan(&u.ID, &u.AccountID, &u.ProjectID, &u.AuthorID, &u.Body, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan updates: %w", err)
	}
	return updates, nil
}

// CreateDeliveryStatus creates a new delivery status in the database.
func (r *Repository) CreateDeliveryStatus(ctx context.Context, status *domain.DeliveryStatus) error {
	query := `
		INSERT INTO delivery_statuses (project_id, author_id, health, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, status.ProjectID, status.AuthorID, status.Health, status.Note).
		Scan(&status.ID, &status.CreatedAt)
	if err != nil {
		return fmt.Errorf("create delivery status: %w", err)
	}
	return nil
}

// ListDeliveryStatuses retrieves delivery statuses, newest first.
func (r *Repository) ListDeliveryStatuses(ctx context.Context, filter crm.DeliveryStatusFilter) ([]domain.DeliveryStatus, error) {
	var w where
	w.eq("author_id", filter.AuthorID)
	w.eq("project_id", filter.ProjectID)

	query := `SELECT id, project_id, author_id, health, note, created_at FROM delivery_statuses` +
		w.String() + ` ORDER BY created_at DESC, id`
	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list delivery statuses: %w", err)
	}
	statuses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DeliveryStatus, error) {
		var s domain.DeliveryStatus
		err := row.Scan(&s.ID, &s.ProjectID, &s.AuthorID, &s.Health, &s.Note, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan delivery statuses: %w", err)
	}
	return statuses, nil
}
