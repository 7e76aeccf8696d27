package store

import (
	"context"
	"sync"

	"github.com/bissquit/crmdesk/internal/domain"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	credential string
	profile    *domain.Profile
	lists      domain.IDLists
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: emptyLists()}
}

// Credential implements Store.
func (s *MemoryStore) Credential(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, nil
}

// SetCredential implements Store.
func (s *MemoryStore) SetCredential(_ context.Context, secretKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = secretKey
	return nil
}

// Profile implements Store.
func (s *MemoryStore) Profile(context.Context) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil, nil
	}
	p := *s.profile
	return &p, nil
}

// SetProfile implements Store.
func (s *MemoryStore) SetProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = &profile
	return nil
}

// IDLists implements Store.
func (s *MemoryStore) IDLists(context.Context) (domain.IDLists, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLists(s.lists), nil
}

// SetIDLists implements Store.
func (s *MemoryStore) SetIDLists(_ context.Context, lists domain.IDLists) error {
	copied := cloneLists(lists)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = copied
	return nil
}

// SetSnapshot implements Store.
func (s *MemoryStore) SetSnapshot(_ context.Context, profile domain.Profile, lists domain.IDLists) error {
	copied := cloneLists(lists)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = &profile
	s.lists = copied
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	s.profile = nil
	s.lists = emptyLists()
	return nil
}
