package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/identity"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a postgres testcontainer.
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnectionString string
}

// NewPostgresContainer creates a new PostgreSQL container for testing.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("crmdesk"),
		postgres.WithUsername("crmdesk"),
		postgres.WithPassword("crmdesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		ConnectionString:  connStr,
	}, nil
}

// SeedUser inserts a user with a known secret key and returns its id.
// Provisioning over HTTP generates random keys; tests need fixed ones.
func SeedUser(ctx context.Context, db *pgxpool.Pool, name string, role domain.Role, secretKey string) (string, error) {
	var id string
	err := db.QueryRow(ctx,
		`INSERT INTO users (name, role, secret_key_hash) VALUES ($1, $2, $3) RETURNING id`,
		name, role, identity.HashSecretKey(secretKey),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("seed user %s: %w", name, err)
	}
	return id, nil
}
