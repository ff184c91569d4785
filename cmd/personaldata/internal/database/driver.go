// Package database provides the row source whose records are written to the
// redacting logger. It supports MySQL, PostgreSQL and SQLite with automatic
// dialect detection from connection strings.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/thalib/personaldata/cmd/personaldata/internal/constants"
)

// DialectType represents the type of database dialect
type DialectType string

const (
	DialectPostgres DialectType = "postgres"
	DialectMySQL    DialectType = "mysql"
	DialectSQLite   DialectType = "sqlite"
)

// Driver defines the interface for database operations
type Driver interface {
	// Connect establishes a connection to the database
	Connect(ctx context.Context) error

	// Close closes the database connection
	Close() error

	// Exec executes a query without returning rows
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// Ping verifies the connection to the database is still alive
	Ping(ctx context.Context) error

	// Dialect returns the database dialect type
	Dialect() DialectType

	// DB returns the underlying *sql.DB instance
	DB() *sql.DB

	// TableExists checks if a table exists in the database
	TableExists(ctx context.Context, tableName string) (bool, error)
}

// Config holds database connection configuration
type Config struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// DBConfig holds the individual connection settings read from the
// environment. Connection selects the dialect (mysql, postgres, sqlite).
type DBConfig struct {
	Connection string
	Username   string
	Password   string
	Host       string
	Name       string
}

// baseDriver implements common functionality for all database drivers
type baseDriver struct {
	db      *sql.DB
	dialect DialectType
	dsn     string
	config  Config
}

// Connect establishes a connection to the database
func (d *baseDriver) Connect(ctx context.Context) error {
	var err error

	d.db, err = sql.Open(string(d.dialect), d.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	d.db.SetMaxOpenConns(d.config.MaxOpenConns)
	d.db.SetMaxIdleConns(d.config.MaxIdleConns)
	d.db.SetConnMaxLifetime(d.config.ConnMaxLifetime)

	// Verify connection
	if err := d.db.PingContext(ctx); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *baseDriver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Exec executes a query without returning rows
func (d *baseDriver) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows
func (d *baseDriver) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

// Ping verifies the connection to the database is still alive
func (d *baseDriver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Dialect returns the database dialect type
func (d *baseDriver) Dialect() DialectType {
	return d.dialect
}

// DB returns the underlying *sql.DB instance
func (d *baseDriver) DB() *sql.DB {
	return d.db
}

// TableExists checks if a table exists in the database
func (d *baseDriver) TableExists(ctx context.Context, tableName string) (bool, error) {
	if !isValidIdentifier(tableName) {
		return false, fmt.Errorf("invalid table name: %s", tableName)
	}

	var query string
	switch d.dialect {
	case DialectSQLite:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?`
	case DialectMySQL:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	case DialectPostgres:
		query = `SELECT COUNT(*) FROM pg_catalog.pg_tables WHERE schemaname = 'public' AND tablename = $1`
	default:
		return false, fmt.Errorf("unsupported database dialect: %s", d.dialect)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, tableName).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return count > 0, nil
}

// NewDriver creates a new database driver based on the connection string
func NewDriver(config Config) (Driver, error) {
	dialect, dsn, err := detectDialect(config.ConnectionString)
	if err != nil {
		return nil, err
	}

	driver := &baseDriver{
		dialect: dialect,
		dsn:     dsn,
		config:  config,
	}

	return driver, nil
}

// BuildConnectionString assembles a connection string NewDriver accepts from
// individual settings. MySQL hosts without a port get the default port.
func BuildConnectionString(cfg DBConfig) (string, error) {
	if cfg.Name == "" {
		return "", fmt.Errorf("database name is required")
	}

	switch DialectType(strings.ToLower(cfg.Connection)) {
	case DialectMySQL, "":
		mc := mysql.NewConfig()
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = withPort(cfg.Host, constants.DefaultMySQLPort)
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Timeout = constants.ConnectTimeout
		return mc.FormatDSN(), nil

	case DialectPostgres, "postgresql":
		u := url.URL{
			Scheme:   "postgres",
			Host:     cfg.Host,
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		if cfg.Username != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		}
		return u.String(), nil

	case DialectSQLite:
		return "sqlite://" + cfg.Name, nil
	}

	return "", fmt.Errorf("unsupported database connection: %s", cfg.Connection)
}

func withPort(host, port string) string {
	if host == "" {
		host = "localhost"
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}

// detectDialect detects the database dialect from the connection string
func detectDialect(connectionString string) (DialectType, string, error) {
	if connectionString == "" {
		return "", "", fmt.Errorf("connection string is empty")
	}

	lower := strings.ToLower(connectionString)

	// Check for URL-style connection strings
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres, connectionString, nil
	}

	if strings.HasPrefix(lower, "mysql://") {
		// Convert mysql:// to MySQL DSN format
		return DialectMySQL, connectionString[len("mysql://"):], nil
	}

	if strings.HasPrefix(lower, "sqlite://") {
		dsn := connectionString[len("sqlite://"):]

		// Shared cache lets every pooled connection see the same in-memory database
		if dsn == ":memory:" {
			dsn = "file::memory:?mode=memory&cache=shared"
		}

		return DialectSQLite, dsn, nil
	}

	// Check for standard MySQL DSN (user:password@tcp(host:port)/database)
	if strings.Contains(lower, "@tcp(") || strings.Contains(lower, "charset=") {
		return DialectMySQL, connectionString, nil
	}

	// Check for file-based connection strings (SQLite)
	if lower == ":memory:" || strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3") {
		return DialectSQLite, connectionString, nil
	}

	// Key/value DSNs are PostgreSQL
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return DialectPostgres, connectionString, nil
	}

	return "", "", fmt.Errorf("unable to detect database dialect from connection string")
}
