package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitkeep/internal/app"
	"github.com/julianstephens/habitkeep/internal/config"
	"github.com/julianstephens/habitkeep/internal/service"
	"github.com/julianstephens/habitkeep/internal/storage"
)

// OpenFunc opens storage for a command. Tests swap it for temp backends.
type OpenFunc func(ctx context.Context, cfg *config.Config, withSessions bool) (*app.Backends, error)

// Context is handed to every command's Run. Storage is opened on first use
// so commands like config never touch it.
type Context struct {
	Config     *config.Config
	ConfigPath string
	Out        io.Writer
	// Ctx bounds storage calls made by commands.
	Ctx context.Context
	// Confirm asks a yes/no question; defaults to a huh prompt.
	Confirm func(title, description string) (bool, error)
	Open    OpenFunc
	// ServiceOptions are passed to the service when it is built.
	ServiceOptions []service.Option

	backends *app.Backends
	svc      *service.Service
	sessions bool
}

func NewContext(ctx context.Context, cfg *config.Config, configPath string) *Context {
	return &Context{
		Config:     cfg,
		ConfigPath: configPath,
		Out:        os.Stdout,
		Ctx:        ctx,
		Confirm:    confirm,
		Open:       app.Open,
	}
}

// User is the local user the CLI acts for.
func (c *Context) User() storage.User {
	return storage.User{ID: c.Config.User.ID, Email: c.Config.User.Email}
}

// Backends opens storage once. Asking for sessions after storage was
// opened without them reopens it.
func (c *Context) Backends(withSessions bool) (*app.Backends, error) {
	if c.backends != nil && (c.sessions || !withSessions) {
		return c.backends, nil
	}
	if err := c.Close(); err != nil {
		return nil, err
	}
	b, err := c.Open(c.Ctx, c.Config, withSessions)
	if err != nil {
		return nil, err
	}
	c.backends, c.sessions = b, withSessions
	return b, nil
}

func (c *Context) Service() (*service.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	b, err := c.Backends(false)
	if err != nil {
		return nil, err
	}
	c.svc = b.Service(c.ServiceOptions...)
	return c.svc, nil
}

// Close releases storage opened by Backends. Safe to call more than once.
func (c *Context) Close() error {
	if c.backends == nil {
		return nil
	}
	err := c.backends.Close()
	c.backends, c.svc, c.sessions = nil, nil, false
	return err
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

func confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
