// Package config loads the personaldata settings. Values come from an
// optional .env file, PERSONAL_DATA_* environment variables and an optional
// YAML file, on top of centralized defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/thalib/personaldata/cmd/personaldata/internal/constants"
	"github.com/thalib/personaldata/cmd/personaldata/internal/database"
	"github.com/thalib/personaldata/cmd/personaldata/internal/logging"
)

// EnvPrefix prefixes every environment variable, e.g. PERSONAL_DATA_DB_NAME.
const EnvPrefix = "PERSONAL_DATA"

// DefaultEnvFile is read when no env file is given. It may be absent.
const DefaultEnvFile = ".env"

// Defaults contains all default configuration values
// centralized in one place to avoid hardcoded literals
var Defaults = struct {
	Database struct {
		Connection string
		Username   string
		Password   string
		Host       string
		Table      string
	}
	Logging struct {
		Level      string
		MaxSizeMB  int
		MaxBackups int
	}
}{
	Database: struct {
		Connection string
		Username   string
		Password   string
		Host       string
		Table      string
	}{
		Connection: "mysql",
		Username:   "root",
		Password:   "",
		Host:       "localhost",
		Table:      constants.DefaultUsersTable,
	},
	Logging: struct {
		Level      string
		MaxSizeMB  int
		MaxBackups int
	}{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 3,
	},
}

// AppConfig holds the application configuration.
// It is designed to be immutable after initialization.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"db"`
	Logging  LoggingConfig  `mapstructure:"log"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Connection string `mapstructure:"connection"` // database type: mysql, postgres, sqlite
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Host       string `mapstructure:"host"` // host or host:port
	Name       string `mapstructure:"name"` // database name, or file for sqlite
	Table      string `mapstructure:"table"`
}

// LoggingConfig holds logging and redaction configuration.
type LoggingConfig struct {
	Level      string   `mapstructure:"level"`
	File       string   `mapstructure:"file"`        // rotating log file; empty logs to stderr only
	Fields     []string `mapstructure:"fields"`      // fields to redact, comma separated in the environment
	Separator  string   `mapstructure:"separator"`   // ends a field value
	Token      string   `mapstructure:"token"`       // replaces redacted values
	Template   string   `mapstructure:"template"`    // base line template
	Sequential bool     `mapstructure:"sequential"`  // re-scan the line once per field
	MaxSizeMB  int      `mapstructure:"max_size_mb"` // rotation size
	MaxBackups int      `mapstructure:"max_backups"`
	Compress   bool     `mapstructure:"compress"`
}

// Load reads envFile into the process environment, then builds the
// configuration from defaults, configPath (optional YAML) and the
// environment, in increasing order of precedence.
//
// An empty envFile reads DefaultEnvFile if it exists. Variables already
// present in the environment are never overwritten by the file.
func Load(envFile, configPath string) (*AppConfig, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set default values from centralized Defaults struct
	v.SetDefault("db.connection", Defaults.Database.Connection)
	v.SetDefault("db.username", Defaults.Database.Username)
	v.SetDefault("db.password", Defaults.Database.Password)
	v.SetDefault("db.host", Defaults.Database.Host)
	v.SetDefault("db.name", "")
	v.SetDefault("db.table", Defaults.Database.Table)
	v.SetDefault("log.level", Defaults.Logging.Level)
	v.SetDefault("log.file", "")
	v.SetDefault("log.fields", constants.PIIFields)
	v.SetDefault("log.separator", constants.FieldSeparator)
	v.SetDefault("log.token", constants.RedactedPlaceholder)
	v.SetDefault("log.template", constants.LogFormat)
	v.SetDefault("log.sequential", false)
	v.SetDefault("log.max_size_mb", Defaults.Logging.MaxSizeMB)
	v.SetDefault("log.max_backups", Defaults.Logging.MaxBackups)
	v.SetDefault("log.compress", false)

	// db.name is read from PERSONAL_DATA_DB_NAME
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal configuration into struct
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", DefaultEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return nil
}

// validate checks that required configuration fields are present.
func validate(cfg *AppConfig) error {
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required (set %s_DB_NAME)", EnvPrefix)
	}

	// Apply default database values if not provided
	if cfg.Database.Connection == "" {
		cfg.Database.Connection = Defaults.Database.Connection
	}
	cfg.Database.Connection = strings.ToLower(cfg.Database.Connection)
	if cfg.Database.Table == "" {
		cfg.Database.Table = Defaults.Database.Table
	}

	if cfg.Logging.Separator == "" {
		return fmt.Errorf("log separator must not be empty")
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return err
	}

	// Trim the comma list and drop empty entries
	fields := make([]string, 0, len(cfg.Logging.Fields))
	for _, f := range cfg.Logging.Fields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	cfg.Logging.Fields = fields

	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = Defaults.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxBackups < 0 {
		cfg.Logging.MaxBackups = Defaults.Logging.MaxBackups
	}

	return nil
}

// ConnectionString returns the connection string for the configured database.
func (c *AppConfig) ConnectionString() (string, error) {
	return database.BuildConnectionString(database.DBConfig{
		Connection: c.Database.Connection,
		Username:   c.Database.Username,
		Password:   c.Database.Password,
		Host:       c.Database.Host,
		Name:       c.Database.Name,
	})
}

// Redacting returns the formatter settings for the configured log fields.
func (c *AppConfig) Redacting() logging.RedactingConfig {
	return logging.RedactingConfig{
		Fields:     append([]string(nil), c.Logging.Fields...),
		Token:      c.Logging.Token,
		Separator:  c.Logging.Separator,
		Template:   c.Logging.Template,
		Sequential: c.Logging.Sequential,
	}
}

// LoggerConfig returns the logger settings, without output or metrics.
func (c *AppConfig) LoggerConfig() logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.Logging.Level)
	redacting := c.Redacting()
	return logging.LoggerConfig{
		Level:      level,
		FilePath:   c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		Compress:   c.Logging.Compress,
		Redacting:  &redacting,
	}
}
