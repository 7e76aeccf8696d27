package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/bissquit/crmdesk/internal/pkg/ctxlog"
	"github.com/bissquit/crmdesk/internal/pkg/metrics"
)

// SecretKeyHeader carries the caller's secret key on every protected request.
const SecretKeyHeader = "X-Secret-Key"

// Gate response messages.
const (
	MsgNoSecretKey      = "Unauthorized: No secret key provided."
	MsgInvalidSecretKey = "Unauthorized: Invalid secret key."
	MsgAuthServerError  = "Internal server error during authentication."
)

// Gate decision outcomes, used as log values and metric labels.
const (
	OutcomeAuthorized      = "authorized"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
	OutcomeError           = "error"
)

type contextKey string

// Context keys for storing user information.
const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// CredentialResolver maps a secret key to the user that owns it.
// It must return an error wrapping domain.ErrUnauthenticated when no user matches.
type CredentialResolver interface {
	ResolveCredential(ctx context.Context, secretKey string) (userID string, role domain.Role, err error)
}

// ForbiddenMessage returns the 403 message naming the required role.
func ForbiddenMessage(required domain.Role) string {
	return fmt.Sprintf("Forbidden: %s access required.", required)
}

// Authenticate resolves the secret key and attaches the caller's id and role
// to the request context. Any role is accepted.
func Authenticate(resolver CredentialResolver) func(http.Handler) http.Handler {
	return gate(resolver, "")
}

// Gate resolves the secret key and lets the request through only when the
// caller's role equals required.
func Gate(resolver CredentialResolver, required domain.Role) func(http.Handler) http.Handler {
	if !required.IsValid() {
		panic(fmt.Sprintf("httputil: gate configured with unknown role %q", required))
	}
	return gate(resolver, required)
}

func gate(resolver CredentialResolver, required domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := ctxlog.FromContext(r.Context()).With(
				"path", r.URL.Path,
				"required_role", string(required),
			)

			secretKey := strings.TrimSpace(r.Header.Get(SecretKeyHeader))
			if secretKey == "" {
				logger.Info("auth decision", "outcome", OutcomeUnauthenticated, "reason", "missing secret key")
				metrics.AuthDecisions.WithLabelValues(OutcomeUnauthenticated).Inc()
				Error(w, http.StatusUnauthorized, MsgNoSecretKey)
				return
			}

			userID, role, err := resolver.ResolveCredential(r.Context(), secretKey)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					logger.Info("auth decision", "outcome", OutcomeUnauthenticated, "reason", "unknown secret key")
					metrics.AuthDecisions.WithLabelValues(OutcomeUnauthenticated).Inc()
					Error(w, http.StatusUnauthorized, MsgInvalidSecretKey)
					return
				}
				logger.Error("auth decision", "outcome", OutcomeError, "error", err)
				metrics.AuthDecisions.WithLabelValues(OutcomeError).Inc()
				ServerError(w, MsgAuthServerError, err.Error())
				return
			}

			if required != "" && !role.Satisfies(required) {
				logger.Info("auth decision", "outcome", OutcomeForbidden, "user_id", userID, "role", string(role))
				metrics.AuthDecisions.WithLabelValues(OutcomeForbidden).Inc()
				Error(w, http.StatusForbidden, ForbiddenMessage(required))
				return
			}

			logger.Info("auth decision", "outcome", OutcomeAuthorized, "user_id", userID, "role", string(role))
			metrics.AuthDecisions.WithLabelValues(OutcomeAuthorized).Inc()

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, RoleKey, role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts role from context.
func GetRole(ctx context.Context) domain.Role {
	if role, ok := ctx.Value(RoleKey).(domain.Role); ok {
		return role
	}
	return ""
}
