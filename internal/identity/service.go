// Package identity resolves secret keys to users and builds user data bundles.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/pkg/metrics"
)

// Service implements identity business logic.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ProvisionInput holds data for provisioning a user.
type ProvisionInput struct {
	Name string
	Role domain.Role
}

// ProvisionedUser is a newly created user together with its secret key.
// The key is only ever returned here; the database keeps a hash.
type ProvisionedUser struct {
	User      *domain.User `json:"user"`
	SecretKey string       `json:"secret_key"`
}

// ResolveCredential implements httputil.CredentialResolver.
func (s *Service) ResolveCredential(ctx context.Context, secretKey string) (string, domain.Role, error) {
	user, err := s.authenticate(ctx, secretKey)
	if err != nil {
		return "", "", err
	}
	return user.ID, user.Role, nil
}

// Login checks the secret key and returns the caller's bundle.
func (s *Service) Login(ctx context.Context, secretKey string) (*domain.Bundle, error) {
	user, err := s.authenticate(ctx, secretKey)
	if err != nil {
		return nil, err
	}
	return s.GetBundle(ctx, user.ID)
}

// GetBundle returns the full data bundle of a user.
func (s *Service) GetBundle(ctx context.Context, userID string) (*domain.Bundle, error) {
	start := time.Now()
	defer func() { metrics.BundleBuildDuration.Observe(time.Since(start).Seconds()) }()

	bundle, err := s.repo.GetBundle(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get bundle: %w", err)
	}
	return bundle, nil
}

// ProvisionUser creates a user and a fresh secret key for it.
func (s *Service) ProvisionUser(ctx context.Context, input ProvisionInput) (*ProvisionedUser, error) {
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, input.Role)
	}

	secretKey, err := GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}

	user := &domain.User{
		Name: input.Name,
		Role: input.Role,
	}
	if err := s.repo.CreateUser(ctx, user, HashSecretKey(secretKey)); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user provisioned", "user_id", user.ID, "role", user.Role)

	return &ProvisionedUser{User: user, SecretKey: secretKey}, nil
}

// ListUsers returns users, optionally restricted to one role.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	if filter.Role != nil && !filter.Role.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, *filter.Role)
	}
	return s.repo.ListUsers(ctx, filter)
}

// GetUserByID retrieves a user by ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) authenticate(ctx context.Context, secretKey string) (*domain.User, error) {
	if secretKey == "" {
		return nil, ErrInvalidSecretKey
	}

	user, err := s.repo.GetUserBySecretKeyHash(ctx, HashSecretKey(secretKey))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidSecretKey
		}
		return nil, fmt.Errorf("lookup secret key: %w", err)
	}

	if !user.Role.IsValid() {
		return nil, fmt.Errorf("user %s has unknown role %q", user.ID, user.Role)
	}

	return user, nil
}
