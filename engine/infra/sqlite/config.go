package sqlite

import "time"

const (
	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 4
	memoryPath          = ":memory:"
)

// Config captures SQLite store configuration derived from application settings.
type Config struct {
	// Path is the database location or ":memory:" for in-memory deployments.
	Path string

	// MaxOpenConns controls the pool size exposed by database/sql.
	MaxOpenConns int

	// ConnMaxLifetime bounds connection reuse duration.
	ConnMaxLifetime time.Duration

	// BusyTimeout configures sqlite busy timeout via PRAGMA busy_timeout.
	BusyTimeout time.Duration
}

func (c *Config) inMemory() bool {
	return c.Path == "" || c.Path == memoryPath
}

func (c *Config) busyTimeout() time.Duration {
	if c.BusyTimeout > 0 {
		return c.BusyTimeout
	}
	return defaultBusyTimeout
}
