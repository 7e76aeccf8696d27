package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bissquit/crmdesk/internal/client/api"
	"github.com/bissquit/crmdesk/internal/client/session"
	"github.com/bissquit/crmdesk/internal/client/store"
	"github.com/bissquit/crmdesk/internal/crm"
	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer implements session.BundleFetcher and Writer over an in-memory account list.
type fakeServer struct {
	key      string
	accounts []domain.EntityRef
	created  []crm.AccountRequest
	updates  []crm.CreateUpdateRequest
	projects []crm.CreateProjectRequest
	tasks    []crm.CreateTaskRequest
	statuses []crm.CreateDeliveryStatusRequest
}

func (f *fakeServer) bundle(key string) (*domain.Bundle, error) {
	if key != f.key {
		return nil, &api.Error{Status: 401, Message: "Unauthorized: Invalid secret key."}
	}
	return &domain.Bundle{
		ID:       "u1",
		Name:     "Sam",
		Role:     domain.RoleSalesExecutive,
		Accounts: append([]domain.EntityRef(nil), f.accounts...),
	}, nil
}

func (f *fakeServer) Login(_ context.Context, key string) (*domain.Bundle, error) {
	return f.bundle(key)
}

func (f *fakeServer) FetchBundle(_ context.Context, key string) (*domain.Bundle, error) {
	return f.bundle(key)
}

func (f *fakeServer) CreateAccount(_ context.Context, key string, req crm.AccountRequest) (*domain.Account, error) {
	if key != f.key {
		return nil, &api.Error{Status: 401}
	}
	f.created = append(f.created, req)
	id := "a" + string(rune('0'+len(f.created)))
	f.accounts = append(f.accounts, domain.EntityRef{ID: id})
	return &domain.Account{ID: id, Name: req.Name}, nil
}

func (f *fakeServer) CreateUpdate(_ context.Context, key string, req crm.CreateUpdateRequest) (*domain.Update, error) {
	if key != f.key {
		return nil, &api.Error{Status: 401}
	}
	f.updates = append(f.updates, req)
	return &domain.Update{ID: "up1", AccountID: req.AccountID, Body: req.Body}, nil
}

func (f *fakeServer) CreateProject(_ context.Context, key string, req crm.CreateProjectRequest) (*domain.Project, error) {
	if key != f.key {
		return nil, &api.Error{Status: 401}
	}
	f.projects = append(f.projects, req)
	return &domain.Project{ID: "p1", AccountID: req.AccountID, Name: req.Name}, nil
}

func (f *fakeServer) CreateTask(_ context.Context, key string, req crm.CreateTaskRequest) (*domain.Task, error) {
	if key != f.key {
		return nil, &api.Error{Status: 401}
	}
	f.tasks = append(f.tasks, req)
	return &domain.Task{ID: "t1", Title: req.Title, AssignedTo: req.AssignedTo}, nil
}

func (f *fakeServer) CreateDeliveryStatus(_ context.Context, key string, req crm.CreateDeliveryStatusRequest) (*domain.DeliveryStatus, error) {
	if key != f.key {
		return nil, &api.Error{Status: 401}
	}
	if req.Health != "green" && req.Health != "amber" && req.Health != "red" {
		return nil, &api.Error{Status: 400, Message: "invalid health"}
	}
	f.statuses = append(f.statuses, req)
	return &domain.DeliveryStatus{ID: "s1", ProjectID: req.ProjectID}, nil
}

func newTestApp(t *testing.T) (*App, *fakeServer, *bytes.Buffer) {
	t.Helper()

	srv := &fakeServer{key: "sales-key"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := session.New(store.NewMemoryStore(), srv, logger)

	out := &bytes.Buffer{}
	app := NewApp(s, srv, out)
	app.readSecret = func() (string, error) { return "sales-key\n", nil }
	return app, srv, out
}

func TestRun_NoArgs(t *testing.T) {
	app, _, out := newTestApp(t)

	err := app.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, out.String(), "usage: crmctl")
}

func TestRun_UnknownCommand(t *testing.T) {
	app, _, _ := newTestApp(t)

	err := app.Run(context.Background(), []string{"frobnicate"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("key argument", func(t *testing.T) {
		app, _, out := newTestApp(t)
		require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
		assert.Contains(t, out.String(), "logged in as Sam (Sales Executive)")
	})

	t.Run("prompted key is trimmed", func(t *testing.T) {
		app, _, out := newTestApp(t)
		require.NoError(t, app.Run(ctx, []string{"login"}))
		assert.Contains(t, out.String(), "logged in as Sam")
	})

	t.Run("rejected key", func(t *testing.T) {
		app, _, _ := newTestApp(t)
		err := app.Run(ctx, []string{"login", "nope"})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "nope")

		require.NoError(t, app.Run(ctx, []string{"whoami"}))
	})

	t.Run("prompt failure", func(t *testing.T) {
		app, _, _ := newTestApp(t)
		app.readSecret = func() (string, error) { return "", errors.New("not a terminal") }
		err := app.Run(ctx, []string{"login"})
		assert.ErrorContains(t, err, "not a terminal")
	})
}

func TestWhoamiAndLogout(t *testing.T) {
	ctx := context.Background()
	app, _, out := newTestApp(t)

	require.NoError(t, app.Run(ctx, []string{"whoami"}))
	assert.Contains(t, out.String(), "not logged in")

	require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"whoami"}))
	assert.Equal(t, "u1\tSam\tsales_executive\n", out.String())

	require.NoError(t, app.Run(ctx, []string{"logout"}))
	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"whoami"}))
	assert.Contains(t, out.String(), "not logged in")
}

func TestAddAccount_RefreshesCache(t *testing.T) {
	ctx := context.Background()
	app, srv, out := newTestApp(t)

	require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
	require.NoError(t, app.Run(ctx, []string{"add-account", "Acme", "Heavy", "Industry"}))

	require.Len(t, srv.created, 1)
	assert.Equal(t, crm.AccountRequest{Name: "Acme", Industry: "Heavy Industry"}, srv.created[0])
	assert.Contains(t, out.String(), "created account a1")

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"show"}))
	assert.Contains(t, out.String(), "accounts           1\ta1")
}

func TestAddAccount_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing name", func(t *testing.T) {
		app, _, _ := newTestApp(t)
		assert.ErrorIs(t, app.Run(ctx, []string{"add-account"}), ErrUsage)
	})

	t.Run("not logged in", func(t *testing.T) {
		app, srv, _ := newTestApp(t)
		err := app.Run(ctx, []string{"add-account", "Acme"})
		assert.ErrorIs(t, err, session.ErrNoCredential)
		assert.Empty(t, srv.created)
	})
}

func TestAddUpdate(t *testing.T) {
	ctx := context.Background()
	app, srv, out := newTestApp(t)

	assert.ErrorIs(t, app.Run(ctx, []string{"add-update", "a1"}), ErrUsage)

	require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
	require.NoError(t, app.Run(ctx, []string{"add-update", "a1", "kickoff", "done"}))

	require.Len(t, srv.updates, 1)
	assert.Equal(t, "kickoff done", srv.updates[0].Body)
	assert.Contains(t, out.String(), "created update up1")
}

func TestWatch(t *testing.T) {
	app, _, out := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))

	cancel()
	require.NoError(t, app.Run(ctx, []string{"watch", "-every", "1h"}))
	assert.Contains(t, out.String(), "logged in as Sam")

	assert.ErrorIs(t, app.Run(context.Background(), []string{"watch", "-every", "0s"}), ErrUsage)
}

func TestAddProject(t *testing.T) {
	ctx := context.Background()
	app, srv, out := newTestApp(t)

	assert.ErrorIs(t, app.Run(ctx, []string{"add-project", "a1"}), ErrUsage)

	require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
	require.NoError(t, app.Run(ctx, []string{"add-project", "a1", "Rollout", "phase", "one"}))

	require.Len(t, srv.projects, 1)
	assert.Equal(t, crm.CreateProjectRequest{AccountID: "a1", Name: "Rollout", Description: "phase one"}, srv.projects[0])
	assert.Contains(t, out.String(), "created project p1")
}

func TestAddTask(t *testing.T) {
	ctx := context.Background()

	t.Run("flags and title", func(t *testing.T) {
		app, srv, out := newTestApp(t)
		require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
		require.NoError(t, app.Run(ctx, []string{"add-task", "-project", "p1", "-due", "2026-11-02", "u9", "Ship", "it"}))

		require.Len(t, srv.tasks, 1)
		got := srv.tasks[0]
		assert.Equal(t, "u9", got.AssignedTo)
		assert.Equal(t, "Ship it", got.Title)
		require.NotNil(t, got.ProjectID)
		assert.Equal(t, "p1", *got.ProjectID)
		require.NotNil(t, got.DueDate)
		assert.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), *got.DueDate)
		assert.Contains(t, out.String(), "created task t1")
	})

	t.Run("without optional flags", func(t *testing.T) {
		app, srv, _ := newTestApp(t)
		require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
		require.NoError(t, app.Run(ctx, []string{"add-task", "u9", "Call"}))

		require.Len(t, srv.tasks, 1)
		assert.Nil(t, srv.tasks[0].ProjectID)
		assert.Nil(t, srv.tasks[0].DueDate)
	})

	t.Run("bad input", func(t *testing.T) {
		app, srv, _ := newTestApp(t)
		require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
		assert.ErrorIs(t, app.Run(ctx, []string{"add-task", "u9"}), ErrUsage)
		assert.ErrorIs(t, app.Run(ctx, []string{"add-task", "-due", "tomorrow", "u9", "Call"}), ErrUsage)
		assert.Empty(t, srv.tasks)
	})
}

func TestAddStatus(t *testing.T) {
	ctx := context.Background()
	app, srv, out := newTestApp(t)

	assert.ErrorIs(t, app.Run(ctx, []string{"add-status", "p1"}), ErrUsage)

	require.NoError(t, app.Run(ctx, []string{"login", "sales-key"}))
	require.NoError(t, app.Run(ctx, []string{"add-status", "p1", "amber", "vendor", "delay"}))
	require.Len(t, srv.statuses, 1)
	assert.Equal(t, crm.CreateDeliveryStatusRequest{ProjectID: "p1", Health: "amber", Note: "vendor delay"}, srv.statuses[0])
	assert.Contains(t, out.String(), "created delivery status s1")

	var apiErr *api.Error
	err := app.Run(ctx, []string{"add-status", "p1", "blue"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
}
