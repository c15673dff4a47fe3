package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment can't leak in.
// t.Setenv restores the original values when the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "STORE_DRIVER", "MONGO_URI", "MONGO_DB", "DB_PATH", "JWT_SECRET",
		"TOKEN_TTL", "UPLOAD_DIR", "MAX_BODY_BYTES", "PASSWORD_MODE", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, "jwtsecretekey", cfg.JWTSecret)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("PASSWORD_MODE", "bcrypt")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "bcrypt", cfg.PasswordMode)
}

func TestLoad_MalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("TOKEN_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "TOKEN_TTL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too big", func(c *Config) { c.Port = 70000 }},
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }},
		{"mongo without uri", func(c *Config) { c.MongoURI = "" }},
		{"sqlite without path", func(c *Config) { c.StoreDriver = DriverSQLite; c.DBPath = "" }},
		{"empty secret", func(c *Config) { c.JWTSecret = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=6000\nUPLOAD_DIR=media\n"), 0644))

	// Unset rather than blank: godotenv only fills variables that are absent.
	os.Unsetenv("PORT")
	os.Unsetenv("UPLOAD_DIR")

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, "media", cfg.UploadDir)
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "INFO": "INFO", "warn": "WARN", "error": "ERROR"} {
		level, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, level.String())
	}
}
