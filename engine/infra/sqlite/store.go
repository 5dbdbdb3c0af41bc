package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

// Store owns the database handle.
type Store struct {
	db  *sql.DB
	cfg Config
}

// NewStore opens the database and applies pending migrations.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = &Config{Path: memoryPath}
	}
	dsn := buildDSN(cfg)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	configurePool(db, cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.FromContext(ctx).Info("SQLite store ready", "path", displayPath(cfg), "in_memory", cfg.inMemory())
	return &Store{db: db, cfg: *cfg}, nil
}

// configurePool pins in-memory databases to one connection; every new
// connection to :memory: would otherwise see an empty database.
func configurePool(db *sql.DB, cfg *Config) {
	if cfg.inMemory() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// buildDSN renders a modernc DSN with the pragmas every connection needs.
func buildDSN(cfg *Config) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(ON)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.busyTimeout().Milliseconds()))
	if cfg.inMemory() {
		return "file::memory:?" + params.Encode()
	}
	params.Add("_pragma", "journal_mode(WAL)")
	return "file:" + cfg.Path + "?" + params.Encode()
}

func displayPath(cfg *Config) string {
	if cfg.inMemory() {
		return memoryPath
	}
	return cfg.Path
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close database: %w", err)
	}
	logger.FromContext(ctx).Debug("SQLite store closed", "path", displayPath(&s.cfg))
	return nil
}

// ToJSONText encodes v for a TEXT column; nil maps to SQL NULL.
func ToJSONText(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("sqlite: encode json: %w", err)
	}
	if string(b) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// FromJSONText decodes a TEXT column into out; NULL leaves out untouched.
func FromJSONText(src sql.NullString, out any) error {
	if !src.Valid || strings.TrimSpace(src.String) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), out); err != nil {
		return fmt.Errorf("sqlite: decode json: %w", err)
	}
	return nil
}
