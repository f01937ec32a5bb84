// Package config loads settings from .env files and the environment and
// builds the process logger.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dealercrm/internal/database"
	"dealercrm/internal/storage"
)

const DriverMongo = "mongo"

var DefaultEnvFiles = []string{".env", ".env.local"}

type StorageOptions struct {
	Backend     string `env:"STORAGE_BACKEND" envDefault:"file"`
	Path        string `env:"STORAGE_PATH" envDefault:"./data/storage.json"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"dealercrm:"`
	QuotaBytes  int    `env:"STORAGE_QUOTA_BYTES" envDefault:"5242880"`
}

type BackupOptions struct {
	Driver        string `env:"BACKUP_DRIVER" envDefault:"sqlite"`
	DSN           string `env:"BACKUP_DSN" envDefault:"./data/backups.db"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"dealercrm"`
	Retention     int    `env:"BACKUP_RETENTION" envDefault:"10"`
}

type Configuration struct {
	Storage    StorageOptions
	Backup     BackupOptions
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	RemoteURL  string `env:"REMOTE_URL" envDefault:"http://localhost:8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
	LogPath    string `env:"LOG_PATH"`

	logFile *os.File
	logger  *logrus.Logger
}

// LoadEnv loads the env files that exist and reports how many did.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads envFiles, parses the environment and opens the logger.
func Load(envFiles []string) (*Configuration, error) {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := c.openLogger(); err != nil {
		return nil, err
	}

	if n == 0 {
		c.logger.Debugf("No .env files found. Tried: %v", envFiles)
	}
	return c, nil
}

func (c *Configuration) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendRedis, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	switch c.Backup.Driver {
	case database.DriverMySQL, database.DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unknown BACKUP_DRIVER %q", c.Backup.Driver)
	}
	if c.Backup.Retention <= 0 {
		return fmt.Errorf("BACKUP_RETENTION must be positive, got %d", c.Backup.Retention)
	}
	if c.Storage.QuotaBytes <= 0 {
		return fmt.Errorf("STORAGE_QUOTA_BYTES must be positive, got %d", c.Storage.QuotaBytes)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

func (c *Configuration) StorageOptions() storage.Options {
	return storage.Options{
		Backend:     c.Storage.Backend,
		Path:        c.Storage.Path,
		RedisURL:    c.Storage.RedisURL,
		RedisPrefix: c.Storage.RedisPrefix,
	}
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// RedirectLog sends log output to path, for front ends that own the
// terminal.
func (c *Configuration) RedirectLog(path string) error {
	f, err := openLogFile(path)
	if err != nil {
		return err
	}
	c.closeLogFile()
	c.logFile = f
	c.logger.SetOutput(f)
	return nil
}

func (c *Configuration) openLogger() error {
	logger := logrus.New()
	logger.SetLevel(c.LogrusLogLevel())
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stderr
	if c.LogPath != "" {
		f, err := openLogFile(c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		out = f
	}
	logger.SetOutput(out)
	c.logger = logger
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func (c *Configuration) closeLogFile() {
	if c.logFile != nil {
		c.logFile.Close()
		c.logFile = nil
	}
}

// Unload releases the log file, if any.
func (c *Configuration) Unload() {
	c.closeLogFile()
}
