package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/habitkeep/internal/cli"
	"github.com/julianstephens/habitkeep/internal/config"
)

type InitCmd struct {
	Force bool `help:"Overwrite an existing config file with the current settings."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	path, err := config.ExpandPath(ctx.ConfigPath)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil && !c.Force:
		ctx.Printf("Config already exists at: %s\n", path)
	case statErr == nil || errors.Is(statErr, os.ErrNotExist):
		if err := ctx.Config.Save(path); err != nil {
			return err
		}
		ctx.Printf("Wrote config to: %s\n", path)
	default:
		return fmt.Errorf("failed to access config %s: %w", path, statErr)
	}

	svc, err := ctx.Service()
	if err != nil {
		return err
	}
	list, err := svc.UserList(ctx.Ctx, ctx.User())
	if err != nil {
		return err
	}
	ctx.Printf("Initialized %s storage for %s (%d habits)\n", ctx.Config.Storage.User, ctx.User().Email, list.Len())
	return nil
}
