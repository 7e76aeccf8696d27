package identity

import (
	"errors"
	"fmt"

	"github.com/bissquit/crmdesk/internal/domain"
)

// Identity errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid role")
	// ErrInvalidSecretKey wraps domain.ErrUnauthenticated so the gate maps it to 401.
	ErrInvalidSecretKey = fmt.Errorf("invalid secret key: %w", domain.ErrUnauthenticated)
)
