package constants

import "time"

const (
	AppName            = "habitkeep"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/habitkeep/config.yaml"
	DefaultDataDir     = "~/.config/habitkeep"
	Version            = "v0.3.0"

	// DateFormat is the day encoding used for records (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// MonthFormat is the month-grouping label used by the heatmap (YYYY/MM)
	MonthFormat = "2006/01"

	// ExportTimeFormat stamps exported documents (YYYY-MM-DD HH:MM:SS)
	ExportTimeFormat = "2006-01-02 15:04:05"

	// MaxHabitNameLength is counted in runes after trimming
	MaxHabitNameLength = 100

	// HabitIDLength is the number of hex characters in a generated habit id
	HabitIDLength = 8

	// Backup constants
	MaxBackups    = 14
	BackupDirName = "backups"

	// Session constants
	SessionCookieName  = "habitkeep_session"
	DefaultSessionTTL  = 30 * 24 * time.Hour
	DemoHabitDays      = 14
	RedisSessionPrefix = "habitkeep:session:"

	// HTTP defaults
	DefaultListenAddr      = ":8787"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultRequestTimeout  = 5 * time.Second
	MaxImportBytes         = 4 << 20
)
