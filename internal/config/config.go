// Package config loads runtime settings from the environment.
//
// Every key has a hardcoded fallback so a fresh checkout starts with no
// setup at all. An optional .env file is read first; real environment
// variables win over it, because godotenv never overwrites a variable that
// is already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds every setting the server needs.
type Config struct {
	Port         int
	StoreDriver  string
	MongoURI     string
	MongoDB      string
	DBPath       string
	JWTSecret    string
	TokenTTL     time.Duration
	UploadDir    string
	MaxBodyBytes int64
	PasswordMode string
	LogLevel     string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:         5001,
		StoreDriver:  DriverMongo,
		MongoURI:     "mongodb://127.0.0.1:27017/blogApp",
		MongoDB:      "blogDB",
		DBPath:       "data/blog.db",
		JWTSecret:    "jwtsecretekey",
		TokenTTL:     time.Hour,
		UploadDir:    "uploads",
		MaxBodyBytes: 10 << 20, // 10 MiB
		PasswordMode: "plaintext",
		LogLevel:     "info",
	}
}

// LoadDotEnv reads KEY=value pairs from path into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from the environment on top of Defaults.
//
// Malformed numbers and durations are reported rather than silently
// replaced by the default: a typo in PORT should stop the server, not move it.
func Load() (Config, error) {
	cfg := Defaults()
	var errs []error

	cfg.Port = envInt("PORT", cfg.Port, &errs)
	cfg.StoreDriver = envString("STORE_DRIVER", cfg.StoreDriver)
	cfg.MongoURI = envString("MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = envString("MONGO_DB", cfg.MongoDB)
	cfg.DBPath = envString("DB_PATH", cfg.DBPath)
	cfg.JWTSecret = envString("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = envDuration("TOKEN_TTL", cfg.TokenTTL, &errs)
	cfg.UploadDir = envString("UPLOAD_DIR", cfg.UploadDir)
	cfg.MaxBodyBytes = int64(envInt("MAX_BODY_BYTES", int(cfg.MaxBodyBytes), &errs))
	cfg.PasswordMode = envString("PASSWORD_MODE", cfg.PasswordMode)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)

	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Port))
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("config: MONGO_URI is required for the mongo driver"))
		}
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("config: DB_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store driver %q", c.StoreDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("config: JWT_SECRET must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("config: token ttl %v must be positive", c.TokenTTL))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("config: max body bytes %d must be positive", c.MaxBodyBytes))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
	}
	return level, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s=%q is not an integer", key, v))
		return def
	}
	return n
}

func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s=%q is not a duration", key, v))
		return def
	}
	return d
}
