// Package app wires configuration to concrete storage backends.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/julianstephens/habitkeep/internal/backup"
	"github.com/julianstephens/habitkeep/internal/config"
	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/keyring"
	"github.com/julianstephens/habitkeep/internal/logger"
	"github.com/julianstephens/habitkeep/internal/service"
	"github.com/julianstephens/habitkeep/internal/storage"
	"github.com/julianstephens/habitkeep/internal/storage/postgres"
	"github.com/julianstephens/habitkeep/internal/storage/redis"
	"github.com/julianstephens/habitkeep/internal/storage/sqlite"
)

// Backends holds the opened storage for one process.
type Backends struct {
	Users    storage.UserStorage
	Sessions storage.SessionStorage
	// Backups is nil when user data lives in Postgres.
	Backups *backup.UserBackups
}

// OpenUsers opens the user storage named by cfg.Storage.User.
func OpenUsers(ctx context.Context, cfg *config.Config) (storage.UserStorage, *backup.UserBackups, error) {
	policy, err := cfg.OrderPolicy()
	if err != nil {
		return nil, nil, err
	}
	dataDir, err := cfg.DataPath()
	if err != nil {
		return nil, nil, err
	}
	backupDir := filepath.Join(dataDir, constants.BackupDirName)

	switch cfg.Storage.User {
	case config.UserStorageDisk:
		dir, err := cfg.UsersDir()
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewDiskStore(dir, policy)
		if err := store.Init(); err != nil {
			return nil, nil, err
		}
		logger.Debug("Using disk user storage", "dir", dir)
		return store, backup.NewUserBackups(store.Path, backupDir), nil

	case config.UserStorageSQLite:
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, nil, err
		}
		store := sqlite.New(path, policy)
		if err := store.Open(ctx); err != nil {
			return nil, nil, err
		}
		logger.Debug("Using sqlite user storage", "path", path)
		locate := func(storage.User) (string, error) { return path, nil }
		return store, backup.NewUserBackups(locate, backupDir), nil

	case config.UserStoragePostgres:
		dsn, err := PostgresDSN(cfg)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(dsn, policy)
		if err := store.Open(ctx); err != nil {
			return nil, nil, err
		}
		logger.Debug("Using postgres user storage")
		return store, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown user storage %q", cfg.Storage.User)
}

// OpenSessions opens the session storage named by cfg.Storage.Session.
func OpenSessions(ctx context.Context, cfg *config.Config) (storage.SessionStorage, error) {
	policy, err := cfg.OrderPolicy()
	if err != nil {
		return nil, err
	}

	switch cfg.Storage.Session {
	case config.SessionStorageMemory:
		return storage.NewMemorySessionStore(policy), nil
	case config.SessionStorageRedis:
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.Redis.Addr,
			Username:       cfg.Redis.Username,
			Password:       redisPassword(cfg),
			DB:             cfg.Redis.DB,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
			RetryInterval:  cfg.Redis.RetryInterval,
			MaxWait:        cfg.Redis.MaxWait,
			PingTimeout:    cfg.Redis.PingTimeout,
			WarnThreshold:  cfg.Redis.WarnThreshold,
		})
		if err != nil {
			return nil, storage.PersistenceError("connect to redis", err)
		}
		return redis.NewSessionStore(client, cfg.Redis.SessionTTL, policy), nil
	}
	return nil, fmt.Errorf("unknown session storage %q", cfg.Storage.Session)
}

// Open opens user storage and, when withSessions is set, session storage.
func Open(ctx context.Context, cfg *config.Config, withSessions bool) (*Backends, error) {
	users, backups, err := OpenUsers(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b := &Backends{Users: users, Backups: backups}

	if withSessions {
		sessions, err := OpenSessions(ctx, cfg)
		if err != nil {
			users.Close()
			return nil, err
		}
		b.Sessions = sessions
	}
	return b, nil
}

// Service builds a service over the opened backends.
func (b *Backends) Service(opts ...service.Option) *service.Service {
	if b.Sessions != nil {
		opts = append([]service.Option{service.WithSessions(b.Sessions)}, opts...)
	}
	if b.Backups != nil {
		opts = append([]service.Option{service.WithBackups(b.Backups)}, opts...)
	}
	return service.New(b.Users, opts...)
}

func (b *Backends) Close() error {
	var errs []error
	if b.Sessions != nil {
		errs = append(errs, b.Sessions.Close())
	}
	if b.Users != nil {
		errs = append(errs, b.Users.Close())
	}
	return errors.Join(errs...)
}

// PostgresDSN picks the connection string from config (which already
// includes HABITKEEP_DB_CONNECTION) or the OS keyring. A password is
// rejected in config and env but allowed in the keyring, which is encrypted.
func PostgresDSN(cfg *config.Config) (string, error) {
	if dsn := cfg.Postgres.DSN; dsn != "" {
		if err := postgres.ValidateConnString(dsn); err != nil {
			return "", err
		}
		return dsn, nil
	}

	dsn, err := keyring.Get(keyring.PostgresDSN)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("no postgres connection configured: set postgres.dsn, HABITKEEP_DB_CONNECTION or run 'habitkeep config set-connection'")
		}
		return "", err
	}
	if err := postgres.ValidateConnString(dsn); err != nil && !errors.Is(err, postgres.ErrEmbeddedCredentials) {
		return "", err
	}
	return dsn, nil
}

func redisPassword(cfg *config.Config) string {
	if cfg.Redis.Password != "" {
		return cfg.Redis.Password
	}
	secret, err := keyring.Get(keyring.RedisPassword)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			logger.Debug("Redis password not read from keyring", "error", err)
		}
		return ""
	}
	return secret
}
