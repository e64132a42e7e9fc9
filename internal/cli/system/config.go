package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitkeep/internal/cli"
	"github.com/julianstephens/habitkeep/internal/keyring"
	"github.com/julianstephens/habitkeep/internal/storage/postgres"
)

type ConfigCmd struct {
	SetConnection      ConfigSetConnectionCmd      `cmd:"" help:"Store the PostgreSQL connection string in the OS keyring."`
	ShowConnection     ConfigShowConnectionCmd     `cmd:"" help:"Show the stored connection string with the password masked."`
	ClearConnection    ConfigClearConnectionCmd    `cmd:"" help:"Remove the stored connection string."`
	SetRedisPassword   ConfigSetRedisPasswordCmd   `cmd:"" help:"Store the Redis password in the OS keyring."`
	ClearRedisPassword ConfigClearRedisPasswordCmd `cmd:"" help:"Remove the stored Redis password."`
	Status             ConfigStatusCmd             `cmd:"" help:"Check the OS keyring and which secrets it holds."`
}

type ConfigSetConnectionCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in the keyring."`
}

func (cmd *ConfigSetConnectionCmd) Run(ctx *cli.Context) error {
	if !strings.HasPrefix(cmd.ConnectionString, "postgres://") &&
		!strings.HasPrefix(cmd.ConnectionString, "postgresql://") &&
		!strings.Contains(cmd.ConnectionString, "host=") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// The keyring is encrypted, so a password is allowed here.
		ctx.Println("⚠️  Warning: Connection string contains embedded credentials.")
		ctx.Println("   It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.Set(keyring.PostgresDSN, cmd.ConnectionString); err != nil {
		return err
	}
	ctx.Println("✓ Connection string stored successfully in OS keyring")
	ctx.Println("  Set storage.user to \"postgres\" in your config to use it")
	return nil
}

type ConfigShowConnectionCmd struct{}

func (cmd *ConfigShowConnectionCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.Get(keyring.PostgresDSN)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'habitkeep config set-connection' to store one")
		}
		return err
	}
	ctx.Println(maskPassword(connStr))
	return nil
}

type ConfigClearConnectionCmd struct{}

func (cmd *ConfigClearConnectionCmd) Run(ctx *cli.Context) error {
	if err := keyring.Delete(keyring.PostgresDSN); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}
	ctx.Println("✓ Connection string deleted from OS keyring")
	return nil
}

type ConfigSetRedisPasswordCmd struct {
	Password string `arg:"" help:"Redis password."`
}

func (cmd *ConfigSetRedisPasswordCmd) Run(ctx *cli.Context) error {
	if err := keyring.Set(keyring.RedisPassword, cmd.Password); err != nil {
		return err
	}
	ctx.Println("✓ Redis password stored in OS keyring")
	return nil
}

type ConfigClearRedisPasswordCmd struct{}

func (cmd *ConfigClearRedisPasswordCmd) Run(ctx *cli.Context) error {
	if err := keyring.Delete(keyring.RedisPassword); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no Redis password found in keyring")
		}
		return err
	}
	ctx.Println("✓ Redis password deleted from OS keyring")
	return nil
}

type ConfigStatusCmd struct{}

func (cmd *ConfigStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("❌ OS keyring is not available on this system")
		return keyring.ErrKeyringUnavailable
	}
	ctx.Println("✓ OS keyring is available")
	for _, account := range []keyring.Account{keyring.PostgresDSN, keyring.RedisPassword} {
		if _, err := keyring.Get(account); err == nil {
			ctx.Printf("✓ %s is stored\n", account)
		} else {
			ctx.Printf("ℹ No %s stored\n", account)
		}
	}
	return nil
}

// maskPassword hides the password in URL or key=value connection strings.
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		idx := strings.Index(connStr, "://")
		remaining := connStr[idx+3:]
		if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
			userInfo := remaining[:atIdx]
			if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
				return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
			}
		}
		return connStr
	}

	parts := strings.Fields(connStr)
	for i, part := range parts {
		if strings.HasPrefix(part, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, " ")
}
