// Package session ties the client store, refresh broker and API together.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bissquit/crmdesk/internal/client/broker"
	"github.com/bissquit/crmdesk/internal/client/store"
	"github.com/bissquit/crmdesk/internal/domain"
)

// ErrNoCredential is returned by operations that need a stored secret key.
var ErrNoCredential = errors.New("no stored secret key")

// BundleFetcher reads bundles from the server.
type BundleFetcher interface {
	Login(ctx context.Context, secretKey string) (*domain.Bundle, error)
	FetchBundle(ctx context.Context, secretKey string) (*domain.Bundle, error)
}

// Session is the client application context. Build one per process or test.
type Session struct {
	store   store.Store
	broker  *broker.Broker
	fetcher BundleFetcher
	logger  *slog.Logger

	// mu serializes cache writes with login and logout. generation changes
	// on every login and logout so a refresh started before either one
	// cannot write its bundle afterwards.
	mu         sync.Mutex
	generation uint64
}

// New creates a session. A nil logger uses slog.Default.
func New(st store.Store, fetcher BundleFetcher, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:   st,
		broker:  broker.New(),
		fetcher: fetcher,
		logger:  logger,
	}
}

// Subscribe registers the refresh callback, replacing any previous one.
// fn runs while the session holds its write lock, so it must not call
// Refresh, Login, Logout or Mutate synchronously.
func (s *Session) Subscribe(fn broker.Subscriber) (unsubscribe func()) {
	return s.broker.Subscribe(fn)
}

// Refresh re-fetches the bundle for the stored credential, rewrites the
// cached id lists and profile, and publishes the bundle. Without a stored
// credential it does nothing. Failures are logged, never returned; on
// failure the cache is left as it was and nothing is published.
//
// Concurrent calls are independent: each fetches and the last to finish
// writes last. A bundle that arrives after a login or logout is dropped.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	generation := s.generation
	secretKey, err := s.store.Credential(ctx)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("refresh failed", "stage", "read credential", "error", err)
		return
	}
	if secretKey == "" {
		s.logger.Debug("refresh skipped", "reason", "no stored secret key")
		return
	}

	bundle, err := s.fetcher.FetchBundle(ctx, secretKey)
	if err != nil {
		s.logger.Error("refresh failed", "stage", "fetch bundle", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		s.logger.Debug("refresh discarded", "reason", "session changed during fetch")
		return
	}
	if err := s.apply(ctx, bundle); err != nil {
		s.logger.Error("refresh failed", "stage", "persist bundle", "error", err)
		return
	}

	s.logger.Debug("refresh complete", "user_id", bundle.ID)
	s.broker.Publish(bundle)
}

// Login checks secretKey against the server and on success stores it
// together with the bundle it unlocks, then publishes the bundle.
func (s *Session) Login(ctx context.Context, secretKey string) (*domain.Bundle, error) {
	bundle, err := s.fetcher.Login(ctx, secretKey)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++

	if err := s.store.SetCredential(ctx, secretKey); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}
	if err := s.apply(ctx, bundle); err != nil {
		return nil, err
	}

	s.logger.Info("logged in", "user_id", bundle.ID, "role", bundle.Role)
	s.broker.Publish(bundle)
	return bundle, nil
}

// Logout forgets the credential and every cached value.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

// Mutate runs a write with the stored credential and refreshes after it
// succeeds. The write's error is returned unchanged; refresh errors never are.
func (s *Session) Mutate(ctx context.Context, write func(ctx context.Context, secretKey string) error) error {
	secretKey, err := s.store.Credential(ctx)
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	if secretKey == "" {
		return ErrNoCredential
	}

	if err := write(ctx, secretKey); err != nil {
		return err
	}

	s.Refresh(ctx)
	return nil
}

// RefreshOnSignal refreshes each time signals delivers, until ctx is done
// or signals is closed.
func (s *Session) RefreshOnSignal(ctx context.Context, signals <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			s.Refresh(ctx)
		}
	}
}

// Profile returns the cached profile, or nil before the first login.
func (s *Session) Profile(ctx context.Context) (*domain.Profile, error) {
	return s.store.Profile(ctx)
}

// IDLists returns the cached id lists.
func (s *Session) IDLists(ctx context.Context) (domain.IDLists, error) {
	return s.store.IDLists(ctx)
}

// apply writes the profile and id lists in one store write.
// The caller holds s.mu.
func (s *Session) apply(ctx context.Context, bundle *domain.Bundle) error {
	if err := s.store.SetSnapshot(ctx, bundle.Profile(), bundle.IDLists()); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}
