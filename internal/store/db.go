package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DB wraps sql.DB for Postgres (pgx) or SQLite (modernc).
type DB struct {
	Client *sql.DB
	Driver string
}

// NewDB opens a connection pool and verifies it with a ping.
func NewDB(driver, connString string) (*DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if driver == DriverSQLite {
		connString = sqliteDSN(connString)
	}
	db, err := sql.Open(driver, connString)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &DB{Client: db, Driver: driver}, nil
}

// sqliteDSN adds a sortable time format and a busy timeout unless the caller set them.
func sqliteDSN(dsn string) string {
	var opts []string
	if !strings.Contains(dsn, "_time_format") {
		opts = append(opts, "_time_format=sqlite")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		opts = append(opts, "_pragma=busy_timeout(5000)")
	}
	if len(opts) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(opts, "&")
}

// Migrate creates the schema when it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if d.Driver == DriverSQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Healthy reports whether the database answers a ping.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS attendees (
		id           TEXT PRIMARY KEY,
		full_name    TEXT NOT NULL,
		email        TEXT NOT NULL,
		phone        TEXT,
		category     TEXT NOT NULL CHECK (category IN ('Team', 'Student', 'Guest')),
		student_id   TEXT,
		organization TEXT,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		date       DATE NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_logs (
		id          TEXT PRIMARY KEY,
		attendee_id TEXT NOT NULL REFERENCES attendees(id),
		session_id  TEXT NOT NULL REFERENCES sessions(id),
		scanned_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		status      TEXT NOT NULL DEFAULT 'present' CHECK (status IN ('present', 'late', 'early'))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_logs_pair ON attendance_logs (attendee_id, session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_logs_session ON attendance_logs (session_id)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token      TEXT PRIMARY KEY,
		admin_id   TEXT NOT NULL REFERENCES admins(id),
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS attendees (
		id           TEXT PRIMARY KEY,
		full_name    TEXT NOT NULL,
		email        TEXT NOT NULL,
		phone        TEXT,
		category     TEXT NOT NULL CHECK (category IN ('Team', 'Student', 'Guest')),
		student_id   TEXT,
		organization TEXT,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		date       DATE NOT NULL,
		is_active  BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_logs (
		id          TEXT PRIMARY KEY,
		attendee_id TEXT NOT NULL REFERENCES attendees(id),
		session_id  TEXT NOT NULL REFERENCES sessions(id),
		scanned_at  DATETIME NOT NULL,
		status      TEXT NOT NULL DEFAULT 'present' CHECK (status IN ('present', 'late', 'early'))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_logs_pair ON attendance_logs (attendee_id, session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_logs_session ON attendance_logs (session_id)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token      TEXT PRIMARY KEY,
		admin_id   TEXT NOT NULL REFERENCES admins(id),
		expires_at DATETIME NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT 0
	)`,
}
