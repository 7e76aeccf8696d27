package domain

import "time"

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

// Project statuses.
const (
	ProjectStatusPlanned   ProjectStatus = "planned"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// IsValid checks if the project status is valid.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPlanned, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted:
		return true
	}
	return false
}

// TaskStatus represents the state of a task.
type TaskStatus string

// Task statuses.
const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// IsValid checks if the task status is valid.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Health is the traffic-light state reported in a delivery status.
type Health string

// Delivery health values.
const (
	HealthGreen Health = "green"
	HealthAmber Health = "amber"
	HealthRed   Health = "red"
)

// IsValid checks if the health value is valid.
func (h Health) IsValid() bool {
	switch h {
	case HealthGreen, HealthAmber, HealthRed:
		return true
	}
	return false
}

// Account is a customer owned by a sales executive.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is a piece of work sold to an account.
type Project struct {
	ID             string        `json:"id"`
	AccountID      string        `json:"account_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Status         ProjectStatus `json:"status"`
	DeliveryHeadID *string       `json:"delivery_head_id,omitempty"`
	CreatedBy      string        `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Task is a unit of work assigned to a user.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   *string    `json:"project_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedBy   string     `json:"created_by"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Update is a note a sales executive records against an account.
type Update struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	ProjectID *string   `json:"project_id,omitempty"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveryStatus is a progress report a delivery head files for a project.
type DeliveryStatus struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	AuthorID  string    `json:"author_id"`
	Health    Health    `json:"health"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
