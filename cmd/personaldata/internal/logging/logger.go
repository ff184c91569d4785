// Package logging provides the redacting logger used for personal data.
// Events are built with zerolog, rendered through a base template and then
// masked by a RedactingFormatter before they reach the console or a
// rotating log file.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/thalib/personaldata/cmd/personaldata/internal/constants"
)

// NameKey is the event field carrying the logger name.
const NameKey = "logger"

// formatWriter decodes zerolog JSON events into Records and writes them
// through a Formatter. Lines are written one at a time.
type formatWriter struct {
	mu        sync.Mutex
	name      string
	formatter Formatter
	out       io.Writer
	metrics   *Metrics
	now       func() time.Time
}

func (fw *formatWriter) Write(p []byte) (n int, err error) {
	rec := fw.decode(p)

	line, err := fw.formatter.Format(rec)
	if err != nil {
		fw.metrics.formatFailed()
		return 0, err
	}
	fw.metrics.recordWritten(rec.Level)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if _, err := io.WriteString(fw.out, line+"\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (fw *formatWriter) decode(p []byte) Record {
	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		// Not an event; format the raw text as an INFO message so it is
		// still masked.
		return Record{
			Name:    fw.name,
			Level:   strings.ToUpper(zerolog.InfoLevel.String()),
			Time:    fw.now(),
			Message: strings.TrimRight(string(p), "\r\n"),
		}
	}

	rec := Record{
		Name: fw.name,
		Time: fw.now(),
	}
	if name, ok := entry[NameKey].(string); ok {
		rec.Name = name
	}
	if level, ok := entry[zerolog.LevelFieldName].(string); ok {
		rec.Level = strings.ToUpper(level)
	}
	if msg, ok := entry[zerolog.MessageFieldName].(string); ok {
		rec.Message = msg
	}
	if ts, ok := entry[zerolog.TimestampFieldName].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Time = t
		}
	}

	for _, k := range []string{NameKey, zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.TimestampFieldName} {
		delete(entry, k)
	}
	if len(entry) > 0 {
		rec.Fields = entry
	}
	return rec
}

// dualWriter writes every line to two sinks:
// - consoleWriter: the terminal
// - fileWriter: the rotating log file
type dualWriter struct {
	consoleWriter io.Writer
	fileWriter    io.Writer
}

func (dw *dualWriter) Write(p []byte) (n int, err error) {
	n1, err1 := dw.consoleWriter.Write(p)

	// File writer (always attempt, even if console fails)
	n2, err2 := dw.fileWriter.Write(p)

	if n1 > n2 {
		n = n1
	} else {
		n = n2
	}

	if err1 != nil {
		return n, err1
	}
	return n, err2
}

// Level represents logging levels
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel converts s to a Level. The empty string selects LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return LevelInfo, nil
	case LevelDebug:
		return LevelDebug, nil
	case LevelInfo:
		return LevelInfo, nil
	case LevelWarn, "warning":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	// Name is rendered as the logger name (default: user_data)
	Name string

	// Level is the minimum log level (debug, info, warn, error)
	Level Level

	// Output is the console writer (default: os.Stderr)
	Output io.Writer

	// FilePath is a rotating log file. If set, Output is ignored unless
	// DualOutput is true.
	FilePath string

	// MaxSizeMB, MaxBackups and Compress control file rotation.
	MaxSizeMB  int
	MaxBackups int
	Compress   bool

	// DualOutput writes every line to both Output and FilePath.
	DualOutput bool

	// Redacting configures masking. Nil selects DefaultRedactingConfig.
	Redacting *RedactingConfig

	// RunID tags every event of this logger; generated when empty.
	RunID string

	// Registerer receives the logger metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// Logger is a zerolog logger whose output is always masked.
type Logger struct {
	logger  zerolog.Logger
	config  LoggerConfig
	closers []io.Closer
}

// NewLogger creates a new redacting logger. It fails when the redaction
// settings are invalid.
func NewLogger(config LoggerConfig) (*Logger, error) {
	if config.Name == "" {
		config.Name = constants.DefaultLoggerName
	}
	if config.Level == "" {
		config.Level = LevelInfo
	}
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}

	redacting := DefaultRedactingConfig()
	if config.Redacting != nil {
		redacting = *config.Redacting
	}
	formatter, err := NewRedactingFormatter(redacting)
	if err != nil {
		return nil, fmt.Errorf("invalid redaction settings: %w", err)
	}

	var (
		output  io.Writer
		closers []io.Closer
	)
	console := config.Output
	if console == nil {
		console = os.Stderr
	}

	if config.FilePath != "" {
		file := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			Compress:   config.Compress,
			LocalTime:  true,
		}
		closers = append(closers, file)

		if config.DualOutput {
			output = &dualWriter{
				consoleWriter: console,
				fileWriter:    file,
			}
		} else {
			output = file
		}
	} else {
		output = console
	}

	fw := &formatWriter{
		name:      config.Name,
		formatter: formatter,
		out:       output,
		metrics:   NewMetrics(config.Registerer),
		now:       time.Now,
	}

	logger := zerolog.New(fw).Level(config.Level.zerolog()).With().
		Str(NameKey, config.Name).
		Str(constants.RunIDKey, config.RunID).
		Logger()

	return &Logger{
		logger:  logger,
		config:  config,
		closers: closers,
	}, nil
}

// Name returns the logger name.
func (l *Logger) Name() string {
	return l.config.Name
}

// RunID returns the identifier attached to every event.
func (l *Logger) RunID() string {
	return l.config.RunID
}

// With returns a logger with an additional field. The field is available
// to the base template but is not part of the message body.
func (l *Logger) With(key string, value any) *Logger {
	newLogger := *l
	newLogger.logger = l.logger.With().Interface(key, value).Logger()
	return &newLogger
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

// ErrorWithErr logs msg followed by err at error level.
func (l *Logger) ErrorWithErr(msg string, err error) {
	l.logger.Error().Msgf("%s: %v", msg, err)
}

// Write logs p as one info message so the standard library logger can be
// routed through redaction.
func (l *Logger) Write(p []byte) (int, error) {
	l.logger.Info().Msg(strings.TrimRight(string(p), "\r\n"))
	return len(p), nil
}

// Close releases file sinks.
func (l *Logger) Close() error {
	var errs error
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
