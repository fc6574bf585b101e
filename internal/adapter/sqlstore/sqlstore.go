// Package sqlstore implements the domain repositories on a relational
// database. PostgreSQL (lib/pq) and SQLite (mattn/go-sqlite3) are supported;
// both share the same queries and differ only in schema and connection setup.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql     *sql.DB
	dialect dialect
}

type dialect struct {
	driver string
	schema []string
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: []string{
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
		"CREATE TABLE IF NOT EXISTS messages (id BIGSERIAL PRIMARY KEY, user_id BIGINT REFERENCES users(id), author TEXT NOT NULL, content TEXT NOT NULL, likes INTEGER NOT NULL DEFAULT 0, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);",
		"CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id);",
		"CREATE TABLE IF NOT EXISTS replies (id BIGSERIAL PRIMARY KEY, message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE, user_id BIGINT REFERENCES users(id), author TEXT NOT NULL, content TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_replies_message_id ON replies(message_id);",
		"CREATE TABLE IF NOT EXISTS notifications (id BIGSERIAL PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE, text TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);",
	},
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		"CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY AUTOINCREMENT, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMP NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE, expires_at TIMESTAMP NOT NULL, created_at TIMESTAMP NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
		"CREATE TABLE IF NOT EXISTS messages (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER REFERENCES users(id), author TEXT NOT NULL, content TEXT NOT NULL, likes INTEGER NOT NULL DEFAULT 0, created_at TIMESTAMP NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);",
		"CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id);",
		"CREATE TABLE IF NOT EXISTS replies (id INTEGER PRIMARY KEY AUTOINCREMENT, message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE, user_id INTEGER REFERENCES users(id), author TEXT NOT NULL, content TEXT NOT NULL, created_at TIMESTAMP NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_replies_message_id ON replies(message_id);",
		"CREATE TABLE IF NOT EXISTS notifications (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE, message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE, text TEXT NOT NULL, created_at TIMESTAMP NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);",
	},
}

// Open connects to the database named by url, pings, and runs migrations.
//
// Accepted forms are postgres://..., postgresql://..., sqlite://<path>,
// file:<path> and a bare filesystem path (SQLite).
func Open(url string) (*DB, error) {
	d, connStr, err := parseURL(url)
	if err != nil {
		return nil, err
	}

	s, err := sql.Open(d.driver, connStr)
	if err != nil {
		return nil, err
	}
	if d.driver == sqliteDialect.driver {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		s.SetMaxOpenConns(1)
	} else {
		s.SetMaxOpenConns(10)
		s.SetMaxIdleConns(5)
		s.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	db := &DB{sql: s, dialect: d}
	if err := db.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return db, nil
}

// Driver returns the database/sql driver name in use.
func (d *DB) Driver() string {
	return d.dialect.driver
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func parseURL(url string) (dialect, string, error) {
	switch {
	case url == "":
		return dialect{}, "", errors.New("database url is empty")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgresDialect, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqliteDialect, sqliteDSN(strings.TrimPrefix(url, "sqlite://")), nil
	case strings.HasPrefix(url, "file:"):
		return sqliteDialect, sqliteDSN(strings.TrimPrefix(url, "file:")), nil
	case strings.Contains(url, "://"):
		return dialect{}, "", fmt.Errorf("unsupported database url scheme: %q", url)
	default:
		return sqliteDialect, sqliteDSN(url), nil
	}
}

func sqliteDSN(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range d.dialect.schema {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint failure from
// either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
