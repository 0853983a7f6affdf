// Package db provides database connection, schema constants, and
// migration management
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Table names as constants for type safety
const (
	TableInheritanceRecords   = "inheritance_records"
	TablePrincipalPermissions = "principal_permissions"
	TableDelegations          = "delegations"
	TableAuditEvents          = "audit_events"
	TableContextSessions      = "context_sessions"
)

// Column names for compile-time checking
const (
	// Common columns
	ColID          = "id"
	ColPrincipalID = "principal_id"

	// Inheritance record columns
	ColProvider           = "provider"
	ColSourceGroups       = "source_groups"
	ColGrantedPermissions = "granted_permissions"
	ColResolvedAt         = "resolved_at"

	// Principal permission columns
	ColPermission = "permission"

	// Delegation columns
	ColFromPrincipal = "from_principal"
	ColToPrincipal   = "to_principal"
	ColDocument      = "document"
	ColDelegatedAt   = "delegated_at"

	// Audit event columns
	ColEventType = "event_type"
	ColDetails   = "details"
	ColTimestamp = "timestamp"

	// Context session columns
	ColSessionID  = "session_id"
	ColSwitchedAt = "switched_at"
)

// Config holds PostgreSQL connection settings
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultConfig returns connection settings suitable for local development
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "authz",
		Database:        "authz",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DSN renders the config as a lib/pq connection string
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Open opens a connection pool and verifies connectivity
func Open(cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}
