package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort            = 8080
	DefaultDBFile          = "db.json"
	DefaultStaticDir       = "."
	DefaultMaxBodyBytes    = 10 << 20
	DefaultShutdownTimeout = 5 * time.Second
	DefaultLogLevel        = "info"
)

// Config holds everything the server needs at construction time.
type Config struct {
	Host            string
	Port            int
	DBFile          string
	StaticDir       string
	WorkDir         string
	DatabaseURL     string
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	LogLevel        string
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Default returns the configuration used when no environment is set.
// WorkDir is left empty; Load fills it with the executable's directory.
func Default() Config {
	return Config{
		Port:            DefaultPort,
		DBFile:          DefaultDBFile,
		StaticDir:       DefaultStaticDir,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        DefaultLogLevel,
	}
}

// Load reads an optional .env file and then TEAMVAULT_* environment variables.
// The bool reports whether a .env file was found.
func Load() (Config, bool, error) {
	loadedEnv := godotenv.Load() == nil

	cfg, err := FromEnv()
	if err != nil {
		return cfg, loadedEnv, err
	}
	if cfg.WorkDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return cfg, loadedEnv, fmt.Errorf("resolve executable path: %w", err)
		}
		cfg.WorkDir = filepath.Dir(exe)
	}
	return cfg, loadedEnv, nil
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Default()

	cfg.Host = env("TEAMVAULT_HOST", cfg.Host)
	cfg.DBFile = env("TEAMVAULT_DB_FILE", cfg.DBFile)
	cfg.StaticDir = env("TEAMVAULT_STATIC_DIR", cfg.StaticDir)
	cfg.WorkDir = env("TEAMVAULT_WORKDIR", cfg.WorkDir)
	cfg.DatabaseURL = env("TEAMVAULT_DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = strings.ToLower(env("TEAMVAULT_LOG_LEVEL", cfg.LogLevel))

	if raw := env("TEAMVAULT_PORT", ""); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return cfg, fmt.Errorf("invalid TEAMVAULT_PORT %q: must be 1-65535", raw)
		}
		cfg.Port = port
	}

	if raw := env("TEAMVAULT_MAX_BODY_BYTES", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid TEAMVAULT_MAX_BODY_BYTES %q: must be a positive integer", raw)
		}
		cfg.MaxBodyBytes = n
	}

	if raw := env("TEAMVAULT_SHUTDOWN_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid TEAMVAULT_SHUTDOWN_TIMEOUT %q: must be a positive duration", raw)
		}
		cfg.ShutdownTimeout = d
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
