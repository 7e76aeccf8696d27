// Package store persists the client session: credential, profile and the
// cached id lists derived from the last fetched bundle.
package store

import (
	"context"

	"github.com/bissquit/crmdesk/internal/domain"
)

// Store is typed key-value persistence over a fixed set of keys.
// Absent values read as zero values, never as errors.
type Store interface {
	Credential(ctx context.Context) (string, error)
	SetCredential(ctx context.Context, secretKey string) error

	Profile(ctx context.Context) (*domain.Profile, error)
	SetProfile(ctx context.Context, profile domain.Profile) error

	IDLists(ctx context.Context) (domain.IDLists, error)
	// SetIDLists replaces all six lists in one write.
	SetIDLists(ctx context.Context, lists domain.IDLists) error

	// SetSnapshot replaces the profile and all six lists in one write.
	SetSnapshot(ctx context.Context, profile domain.Profile, lists domain.IDLists) error

	Clear(ctx context.Context) error
}

// Persisted keys.
const (
	KeyCredential       = "secret_key"
	KeyProfile          = "profile"
	KeyAccounts         = "accounts"
	KeyProjects         = "projects"
	KeyTasksAssigned    = "tasks_assigned"
	KeyTasksCreated     = "tasks_created"
	KeyUpdates          = "updates"
	KeyDeliveryStatuses = "delivery_statuses"
)

// listFields pairs each list key with its field in IDLists.
func listFields(l *domain.IDLists) map[string]*[]string {
	return map[string]*[]string{
		KeyAccounts:         &l.Accounts,
		KeyProjects:         &l.Projects,
		KeyTasksAssigned:    &l.TasksAssigned,
		KeyTasksCreated:     &l.TasksCreated,
		KeyUpdates:          &l.Updates,
		KeyDeliveryStatuses: &l.DeliveryStatuses,
	}
}

func emptyLists() domain.IDLists {
	var l domain.IDLists
	for _, field := range listFields(&l) {
		*field = []string{}
	}
	return l
}

func cloneLists(src domain.IDLists) domain.IDLists {
	dst := emptyLists()
	srcFields := listFields(&src)
	for key, field := range listFields(&dst) {
		*field = append(*field, *srcFields[key]...)
	}
	return dst
}
