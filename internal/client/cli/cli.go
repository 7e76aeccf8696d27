// Package cli implements the crmctl commands on top of a client session.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bissquit/crmdesk/internal/client/api"
	"github.com/bissquit/crmdesk/internal/client/session"
	"github.com/bissquit/crmdesk/internal/crm"
	"github.com/bissquit/crmdesk/internal/domain"
	"golang.org/x/term"
)

// Writer is the part of api.Client the write commands use.
type Writer interface {
	CreateAccount(ctx context.Context, secretKey string, req crm.AccountRequest) (*domain.Account, error)
	CreateProject(ctx context.Context, secretKey string, req crm.CreateProjectRequest) (*domain.Project, error)
	CreateUpdate(ctx context.Context, secretKey string, req crm.CreateUpdateRequest) (*domain.Update, error)
	CreateTask(ctx context.Context, secretKey string, req crm.CreateTaskRequest) (*domain.Task, error)
	CreateDeliveryStatus(ctx context.Context, secretKey string, req crm.CreateDeliveryStatusRequest) (*domain.DeliveryStatus, error)
}

// App runs one crmctl command.
type App struct {
	session *session.Session
	writer  Writer
	out     io.Writer

	// readSecret prompts for the secret key without echo.
	readSecret func() (string, error)
}

// NewApp creates a CLI app.
func NewApp(s *session.Session, writer Writer, out io.Writer) *App {
	return &App{
		session:    s,
		writer:     writer,
		out:        out,
		readSecret: readSecretFromTerminal,
	}
}

const usage = `usage: crmctl <command> [args]

commands:
  login [secret-key]         validate a key and store it (prompts if omitted)
  logout                     forget the stored key and cached data
  whoami                     print the cached profile
  show                       print the cached id lists
  refresh                    re-fetch the data bundle
  watch [-every 30s]         refresh periodically until interrupted
  add-account <name> [industry]
  add-project <account-id> <name> [description...]
  add-update <account-id> <text...>
  add-task [-project id] [-due YYYY-MM-DD] <assignee-id> <title...>
  add-status <project-id> <green|amber|red> [note...]
`

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("invalid usage")

// Run executes the command in args.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := a.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "logged out")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "show":
		return a.show(ctx)
	case "refresh":
		a.session.Refresh(ctx)
		return a.show(ctx)
	case "watch":
		return a.watch(ctx, rest)
	case "add-account":
		return a.addAccount(ctx, rest)
	case "add-project":
		return a.addProject(ctx, rest)
	case "add-update":
		return a.addUpdate(ctx, rest)
	case "add-task":
		return a.addTask(ctx, rest)
	case "add-status":
		return a.addStatus(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}

	fmt.Fprint(a.out, usage)
	return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
}

func (a *App) login(ctx context.Context, args []string) error {
	var secretKey string
	if len(args) > 0 {
		secretKey = args[0]
	} else {
		var err error
		if secretKey, err = a.readSecret(); err != nil {
			return fmt.Errorf("read secret key: %w", err)
		}
	}

	bundle, err := a.session.Login(ctx, strings.TrimSpace(secretKey))
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			return errors.New("the secret key was not accepted")
		}
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s (%s)\n", bundle.Name, bundle.Role.Label())
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	profile, err := a.session.Profile(ctx)
	if err != nil {
		return err
	}
	if profile == nil {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s\t%s\t%s\n", profile.ID, profile.Name, profile.Role)
	return nil
}

func (a *App) show(ctx context.Context) error {
	lists, err := a.session.IDLists(ctx)
	if err != nil {
		return err
	}
	rows := []struct {
		name string
		ids  []string
	}{
		{"accounts", lists.Accounts},
		{"projects", lists.Projects},
		{"tasks_assigned", lists.TasksAssigned},
		{"tasks_created", lists.TasksCreated},
		{"updates", lists.Updates},
		{"delivery_statuses", lists.DeliveryStatuses},
	}
	for _, row := range rows {
		fmt.Fprintf(a.out, "%-18s %d\t%s\n", row.name, len(row.ids), strings.Join(row.ids, ","))
	}
	return nil
}

func (a *App) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(a.out)
	every := fs.Duration("every", 30*time.Second, "refresh interval")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *every <= 0 {
		return fmt.Errorf("%w: -every must be positive", ErrUsage)
	}

	unsubscribe := a.session.Subscribe(func(b *domain.Bundle) {
		fmt.Fprintf(a.out, "%s refreshed: %d accounts, %d projects, %d tasks assigned\n",
			time.Now().Format(time.TimeOnly), len(b.Accounts), len(b.Projects), len(b.TasksAssigned))
	})
	defer unsubscribe()

	signals := make(chan struct{})
	go func() {
		defer close(signals)
		ticker := time.NewTicker(*every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case signals <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	a.session.Refresh(ctx)
	a.session.RefreshOnSignal(ctx, signals)
	return nil
}

// mutate runs write through the session so the cache is refreshed after it.
func mutate[T any](ctx context.Context, s *session.Session, write func(ctx context.Context, secretKey string) (T, error)) (T, error) {
	var created T
	err := s.Mutate(ctx, func(ctx context.Context, secretKey string) error {
		var err error
		created, err = write(ctx, secretKey)
		return err
	})
	return created, err
}

func (a *App) addAccount(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: add-account <name> [industry]", ErrUsage)
	}
	req := crm.AccountRequest{Name: args[0]}
	if len(args) > 1 {
		req.Industry = strings.Join(args[1:], " ")
	}

	created, err := mutate(ctx, a.session, func(ctx context.Context, key string) (*domain.Account, error) {
		return a.writer.CreateAccount(ctx, key, req)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created account %s\n", created.ID)
	return nil
}

func (a *App) addProject(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: add-project <account-id> <name> [description...]", ErrUsage)
	}
	req := crm.CreateProjectRequest{AccountID: args[0], Name: args[1], Description: strings.Join(args[2:], " ")}

	created, err := mutate(ctx, a.session, func(ctx context.Context, key string) (*domain.Project, error) {
		return a.writer.CreateProject(ctx, key, req)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created project %s\n", created.ID)
	return nil
}

func (a *App) addUpdate(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: add-update <account-id> <text...>", ErrUsage)
	}
	req := crm.CreateUpdateRequest{AccountID: args[0], Body: strings.Join(args[1:], " ")}

	created, err := mutate(ctx, a.session, func(ctx context.Context, key string) (*domain.Update, error) {
		return a.writer.CreateUpdate(ctx, key, req)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created update %s\n", created.ID)
	return nil
}

func (a *App) addTask(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-task", flag.ContinueOnError)
	fs.SetOutput(a.out)
	project := fs.String("project", "", "project id")
	due := fs.String("due", "", "due date, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("%w: add-task [-project id] [-due YYYY-MM-DD] <assignee-id> <title...>", ErrUsage)
	}

	req := crm.CreateTaskRequest{AssignedTo: fs.Arg(0), Title: strings.Join(fs.Args()[1:], " ")}
	if *project != "" {
		req.ProjectID = project
	}
	if *due != "" {
		d, err := time.Parse(time.DateOnly, *due)
		if err != nil {
			return fmt.Errorf("%w: -due: %v", ErrUsage, err)
		}
		req.DueDate = &d
	}

	created, err := mutate(ctx, a.session, func(ctx context.Context, key string) (*domain.Task, error) {
		return a.writer.CreateTask(ctx, key, req)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created task %s\n", created.ID)
	return nil
}

func (a *App) addStatus(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: add-status <project-id> <green|amber|red> [note...]", ErrUsage)
	}
	req := crm.CreateDeliveryStatusRequest{ProjectID: args[0], Health: args[1], Note: strings.Join(args[2:], " ")}

	created, err := mutate(ctx, a.session, func(ctx context.Context, key string) (*domain.DeliveryStatus, error) {
		return a.writer.CreateDeliveryStatus(ctx, key, req)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created delivery status %s\n", created.ID)
	return nil
}

func readSecretFromTerminal() (string, error) {
	fmt.Fprint(os.Stderr, "Secret key: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
