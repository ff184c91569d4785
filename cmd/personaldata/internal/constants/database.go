package constants

import "time"

// Database defaults.
const (
	// DefaultUsersTable is the table streamed through the logger.
	// Used in: config/config.go
	DefaultUsersTable = "users"

	// DefaultMySQLPort is appended to hosts given without a port.
	// Used in: database/driver.go
	DefaultMySQLPort = "3306"

	// ConnectTimeout bounds establishing and pinging the connection.
	// Used in: main.go
	ConnectTimeout = 10 * time.Second

	// NullValue is how a NULL column is rendered into a log line.
	// Used in: database/rows.go
	NullValue = "NULL"

	// MaxIdentifierLength is the longest accepted table name.
	// Used in: database/rows.go
	MaxIdentifierLength = 64
)
