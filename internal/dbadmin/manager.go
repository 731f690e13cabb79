// Package dbadmin manages the bootstrap database configuration: the
// DSN can be set and validated over HTTP before the backing schema
// exists, and the accepted DSN is persisted to a JSON file read at the
// next startup.
package dbadmin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"oee-backend/internal/apperr"
)

const pingTimeout = 5 * time.Second

type fileConfig struct {
	DatabaseURL string `json:"database_url"`
}

// Manager holds the current DSN and its on-disk persistence.
type Manager struct {
	mu     sync.Mutex
	dsn    string
	path   string
	logger *zap.Logger

	// open is swappable for tests.
	open func(dsn string) (*sql.DB, error)
}

// NewManager constructs a Manager persisting to path. The initial DSN
// comes from configuration; a persisted file overrides it.
func NewManager(dsn, path string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		dsn:    dsn,
		path:   path,
		logger: logger,
		open:   func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) },
	}
	m.loadFile()
	return m
}

// DSN returns the current connection string.
func (m *Manager) DSN() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dsn
}

// Set validates the DSN by connecting, and on success stores and
// persists it. The new DSN takes effect at the next startup; the
// running pool is not rebuilt.
func (m *Manager) Set(ctx context.Context, dsn string) error {
	if err := m.Validate(ctx, dsn); err != nil {
		return err
	}

	m.mu.Lock()
	m.dsn = dsn
	m.mu.Unlock()

	if err := m.saveFile(dsn); err != nil {
		m.logger.Warn("db config not persisted", zap.Error(err))
		return apperr.Store("dbadmin: persist config", err)
	}
	return nil
}

// Validate connects to the database behind dsn and pings it. An empty
// dsn validates the currently configured one.
func (m *Manager) Validate(ctx context.Context, dsn string) error {
	if dsn == "" {
		dsn = m.DSN()
	}
	if dsn == "" {
		return apperr.Validation("database configuration not set")
	}

	db, err := m.open(dsn)
	if err != nil {
		return apperr.Store("dbadmin: open", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return apperr.Store("dbadmin: database connection failed", err)
	}
	return nil
}

// BuildDSN assembles a postgres connection string from its parts.
func BuildDSN(address, database, username, password string) string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s", username, password, address, database)
}

func (m *Manager) loadFile() {
	if m.path == "" {
		return
	}
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("db config file unreadable", zap.String("path", m.path), zap.Error(err))
		}
		return
	}
	var cfg fileConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		m.logger.Warn("db config file malformed", zap.String("path", m.path), zap.Error(err))
		return
	}
	if cfg.DatabaseURL != "" {
		m.dsn = cfg.DatabaseURL
	}
}

func (m *Manager) saveFile(dsn string) error {
	if m.path == "" {
		return nil
	}
	raw, err := json.Marshal(fileConfig{DatabaseURL: dsn})
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, raw, 0o600)
}
