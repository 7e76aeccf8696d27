// Package postgres provides PostgreSQL implementation of the identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/identity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the identity.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetUserBySecretKeyHash retrieves the user that owns the given key hash.
func (r *Repository) GetUserBySecretKeyHash(ctx context.Context, hash []byte) (*domain.User, error) {
	query := `
		SELECT id, name, role, created_at
		FROM users
		WHERE secret_key_hash = $1
	`
	return r.getUser(ctx, query, hash)
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, name, role, created_at
		FROM users
		WHERE id = $1
	`
	return r.getUser(ctx, query, id)
}

func (r *Repository) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a user with the hash of its secret key.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User, secretKeyHash []byte) error {
	query := `
		INSERT INTO users (name, role, secret_key_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, user.Name, user.Role, secretKeyHash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ListUsers retrieves users ordered by name.
func (r *Repository) ListUsers(ctx context.Context, filter identity.UserFilter) ([]domain.User, error) {
	query := `SELECT id, name, role, created_at FROM users`
	args := []any{}
	if filter.Role != nil {
		query += ` WHERE role = $1`
		args = append(args, *filter.Role)
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		var u domain.User
		err := row.Scan(&u.ID, &u.Name, &u.Role, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

// bundleQueries lists, per bundle field, the ids the user owns or is assigned to.
var bundleQueries = []struct {
	name  string
	query string
	dst   func(b *domain.Bundle) *[]domain.EntityRef
}{
	{"accounts", `SELECT id FROM accounts WHERE owner_id = $1 ORDER BY created_at, id`,
		func(b *domain.Bundle) *[]domain.EntityRef { return &b.Accounts }},
	{"projects", `SELECT id FROM projects WHERE created_by = $1 OR delivery_head_id = $1 ORDER BY created_at, id`,
		func(b *domain.Bundle) *[]domain.EntityRef { return &b.Projects }},
	{"tasks_assigned", `SELECT id FROM tasks WHERE assigned_to = $1 ORDER BY created_at, id`,
		func(b *domain.Bundle) *[]domain.EntityRef { return &b.TasksAssigned }},
	{"tasks_created", `SELECT id FROM tasks WHERE created_by = $1 ORDER BY created_at, id`,
		func(b *domain.Bundle) *[]domain.EntityRef { return &b.TasksCreated }},
	{"updates", `SELECT id FROM updates WHERE author_id = $1 ORDER BY created_at, id`,
		func(b *domain.Bundle) *[]domain.EntityRef { return &b.Updates }},
	{"delivery_statuses", `SELECT id FROM delivery_statuses WHERE author_id = $1 ORDER BY created_at, id`,
		func(b *domain.Bundle) *[]domain.EntityRef { return &b.DeliveryStatuses }},
}

// GetBundle reads the user and all id lists inside one read-only
// repeatable-read transaction, so every list reflects the same snapshot.
func (r *Repository) GetBundle(ctx context.Context, userID string) (*domain.Bundle, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var bundle domain.Bundle
	err = tx.QueryRow(ctx, `SELECT id, name, role FROM users WHERE id = $1`, userID).
		Scan(&bundle.ID, &bundle.Name, &bundle.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get bundle user: %w", err)
	}

	for _, q := range bundleQueries {
		rows, err := tx.Query(ctx, q.query, userID)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.name, err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.name, err)
		}

		refs := make([]domain.EntityRef, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, domain.EntityRef{ID: id})
		}
		*q.dst(&bundle) = refs
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &bundle, nil
}
