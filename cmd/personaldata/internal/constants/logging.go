package constants

// Logging defaults.
const (
	// DefaultLoggerName is the logger name rendered into every line.
	// Used in: logging/logger.go, config/config.go
	DefaultLoggerName = "user_data"

	// LogFormat is the base layout applied before redaction. It references the
	// record attributes name, level, time and message.
	// Used in: logging/formatter.go
	LogFormat = `[HOLBERTON] {{.name}} {{.level}} {{printf "%-15s" .time}}: {{.message}}`

	// LogTimeLayout renders the record time, e.g. 2019-11-19 18:24:25,105.
	// Used in: logging/formatter.go
	LogTimeLayout = "2006-01-02 15:04:05,000"

	// RunIDKey is the event field holding the per-process run identifier.
	// Used in: logging/logger.go
	RunIDKey = "run_id"
)
