package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitkeep/internal/cli"
	"github.com/julianstephens/habitkeep/internal/cli/backups"
	"github.com/julianstephens/habitkeep/internal/cli/habits"
	"github.com/julianstephens/habitkeep/internal/cli/system"
	"github.com/julianstephens/habitkeep/internal/config"
	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/errors"
	"github.com/julianstephens/habitkeep/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"${config_path}"`
	Debug   bool   `help:"Log debug output to stderr."`

	Init   system.InitCmd   `cmd:"" help:"Write a config file and initialize storage."`
	Habit  habits.HabitCmd  `cmd:"" help:"Manage and track habits." default:"withargs"`
	Import habits.ImportCmd `cmd:"" help:"Merge habits from a JSON export."`
	Export habits.ExportCmd `cmd:"" help:"Export habits as JSON."`
	Serve  system.ServeCmd  `cmd:"" help:"Serve the habit API over HTTP."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage backups of your habit data."`
	ConfigCmd system.ConfigCmd `cmd:"" name:"config" help:"Manage credentials kept in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Track daily habits from the terminal or over HTTP"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
		},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	if CLI.Debug {
		cfg.Debug = true
	}

	dataDir, err := cfg.DataPath()
	if err != nil {
		errors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, DataDir: dataDir}); err != nil {
		errors.Fatal(err)
	}

	appCtx := cli.NewContext(context.Background(), cfg, CLI.Config)
	err = ctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("Failed to close storage", "error", closeErr)
	}
	if err != nil {
		errors.Fatal(err)
	}
}
