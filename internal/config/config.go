package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/models"
)

// User storage backends
const (
	UserStorageDisk     = "disk"
	UserStorageSQLite   = "sqlite"
	UserStoragePostgres = "postgres"
)

// Session storage backends
const (
	SessionStorageMemory = "memory"
	SessionStorageRedis  = "redis"
)

type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Debug    bool           `yaml:"debug"`
	User     UserConfig     `yaml:"user"`
	Storage  StorageConfig  `yaml:"storage"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Merge    MergeConfig    `yaml:"merge"`
}

// UserConfig identifies the local user the CLI acts for.
type UserConfig struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
}

type StorageConfig struct {
	User    string `yaml:"user"`
	Session string `yaml:"session"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	// DSN must not embed a password; use ~/.pgpass or PGPASSWORD.
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	MaxWait        time.Duration `yaml:"max_wait"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	WarnThreshold  int           `yaml:"warn_threshold"`
}

type HTTPConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type MergeConfig struct {
	OrderPolicy string `yaml:"order_policy"`
}

// Default returns the configuration used when no file or env var says otherwise.
func Default() *Config {
	return &Config{
		DataDir: constants.DefaultDataDir,
		User: UserConfig{
			ID:    "local",
			Email: "local@habitkeep",
		},
		Storage: StorageConfig{
			User:    UserStorageDisk,
			Session: SessionStorageMemory,
		},
		Redis: RedisConfig{
			Addr:           "localhost:6379",
			SessionTTL:     constants.DefaultSessionTTL,
			ConnectTimeout: 30 * time.Second,
			RetryInterval:  2 * time.Second,
			MaxWait:        10 * time.Second,
			PingTimeout:    5 * time.Second,
			WarnThreshold:  3,
		},
		HTTP: HTTPConfig{
			Listen:          constants.DefaultListenAddr,
			ShutdownTimeout: constants.DefaultShutdownTimeout,
			RequestTimeout:  constants.DefaultRequestTimeout,
		},
		Merge: MergeConfig{
			OrderPolicy: models.OrderUnion.String(),
		},
	}
}

// Load reads path over the defaults, then applies HABITKEEP_* environment
// overrides. A missing file is not an error. An empty path means the
// default location.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = constants.DefaultConfigPath
	}
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid boolean for %s: %q", key, v))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid integer for %s: %q", key, v))
				return
			}
			*dst = i
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid duration for %s: %q", key, v))
				return
			}
			*dst = d
		}
	}

	str("HABITKEEP_DATA_DIR", &c.DataDir)
	boolean("HABITKEEP_DEBUG", &c.Debug)
	str("HABITKEEP_USER_ID", &c.User.ID)
	str("HABITKEEP_USER_EMAIL", &c.User.Email)
	str("HABITKEEP_USER_STORAGE", &c.Storage.User)
	str("HABITKEEP_SESSION_STORAGE", &c.Storage.Session)
	str("HABITKEEP_SQLITE_PATH", &c.SQLite.Path)
	str("HABITKEEP_DB_CONNECTION", &c.Postgres.DSN)
	str("HABITKEEP_REDIS_ADDR", &c.Redis.Addr)
	str("HABITKEEP_REDIS_USERNAME", &c.Redis.Username)
	str("HABITKEEP_REDIS_PASSWORD", &c.Redis.Password)
	integer("HABITKEEP_REDIS_DB", &c.Redis.DB)
	duration("HABITKEEP_SESSION_TTL", &c.Redis.SessionTTL)
	duration("HABITKEEP_REDIS_CONNECT_TIMEOUT", &c.Redis.ConnectTimeout)
	str("HABITKEEP_LISTEN", &c.HTTP.Listen)
	duration("HABITKEEP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)
	str("HABITKEEP_ORDER_POLICY", &c.Merge.OrderPolicy)

	return errors.Join(errs...)
}

// Validate rejects unknown backend names and non-positive timeouts.
func (c *Config) Validate() error {
	switch c.Storage.User {
	case UserStorageDisk, UserStorageSQLite, UserStoragePostgres:
	default:
		return fmt.Errorf("unknown user storage %q (expected disk, sqlite or postgres)", c.Storage.User)
	}
	switch c.Storage.Session {
	case SessionStorageMemory, SessionStorageRedis:
	default:
		return fmt.Errorf("unknown session storage %q (expected memory or redis)", c.Storage.Session)
	}
	if _, err := c.OrderPolicy(); err != nil {
		return err
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if strings.TrimSpace(c.User.ID) == "" || strings.TrimSpace(c.User.Email) == "" {
		return fmt.Errorf("user.id and user.email are required")
	}
	if c.Storage.Session == SessionStorageRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for redis session storage")
	}
	if c.HTTP.ShutdownTimeout <= 0 || c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	return nil
}

// OrderPolicy parses merge.order_policy.
func (c *Config) OrderPolicy() (models.OrderPolicy, error) {
	return models.ParseOrderPolicy(c.Merge.OrderPolicy)
}

// DataPath returns the expanded data directory.
func (c *Config) DataPath() (string, error) {
	return ExpandPath(c.DataDir)
}

// UsersDir is where disk storage keeps one file per user.
func (c *Config) UsersDir() (string, error) {
	dir, err := c.DataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "users"), nil
}

// SQLitePath returns the database file, defaulting to <data_dir>/habitkeep.db.
func (c *Config) SQLitePath() (string, error) {
	if c.SQLite.Path != "" {
		return ExpandPath(c.SQLite.Path)
	}
	dir, err := c.DataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.AppName+".db"), nil
}

// Save writes the config as YAML, creating parent directories. The Redis
// password is never written; keep it in the keyring or environment.
func (c *Config) Save(path string) error {
	path, err := ExpandPath(path)
	if err != nil {
		return err
	}
	out := *c
	out.Redis.Password = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
