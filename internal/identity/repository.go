package identity

import (
	"context"

	"github.com/bissquit/crmdesk/internal/domain"
)

// Repository defines the interface for user and bundle data operations.
type Repository interface {
	GetUserBySecretKeyHash(ctx context.Context, hash []byte) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User, secretKeyHash []byte) error
	ListUsers(ctx context.Context, filter UserFilter) ([]domain.User, error)

	// GetBundle assembles the user's bundle from a single consistent snapshot.
	GetBundle(ctx context.Context, userID string) (*domain.Bundle, error)
}

// UserFilter represents filter criteria for listing users.
type UserFilter struct {
	Role *domain.Role
}
