// Package main is the entry point for the blog API server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (.env file, environment, command-line flags)
//  2. Create the logger
//  3. Start the application
//
// All actual logic lives in internal/server and the packages it wires.
//
// CONFIGURATION PRECEDENCE (lowest to highest):
//
//	hardcoded defaults → .env file → environment variables → flags
//
// Example:
//
//	STORE_DRIVER=sqlite go run ./cmd/server --port 8080
package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/blog-api/internal/apperror"
	"github.com/sakif/blog-api/internal/auth"
	"github.com/sakif/blog-api/internal/config"
	"github.com/sakif/blog-api/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("blog-api exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// flagValues holds what was passed on the command line. A flag only
// overrides the environment when it was actually set.
type flagValues struct {
	envFile      string
	port         int
	store        string
	mongoURI     string
	mongoDB      string
	dbPath       string
	uploadDir    string
	passwordMode string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:   "blog-api",
		Short: "Blog backend: accounts, posts with media, likes and comments",
		Args:  cobra.NoArgs,
		// Errors are logged once by main; cobra's usage dump would bury them.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, fv)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fv.envFile, "env-file", ".env", "optional KEY=value file loaded before reading the environment")
	f.IntVar(&fv.port, "port", 0, "listen port (PORT)")
	f.StringVar(&fv.store, "store", "", "store driver: mongo or sqlite (STORE_DRIVER)")
	f.StringVar(&fv.mongoURI, "mongo-uri", "", "MongoDB connection string (MONGO_URI)")
	f.StringVar(&fv.mongoDB, "mongo-db", "", "MongoDB database name (MONGO_DB)")
	f.StringVar(&fv.dbPath, "db", "", "SQLite database file (DB_PATH)")
	f.StringVar(&fv.uploadDir, "upload-dir", "", "directory for uploaded media (UPLOAD_DIR)")
	f.StringVar(&fv.passwordMode, "password-mode", "", "plaintext or bcrypt (PASSWORD_MODE)")
	f.StringVar(&fv.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")

	return cmd
}

func run(cmd *cobra.Command, fv flagValues) error {
	// === 1. READ CONFIGURATION ===
	if err := config.LoadDotEnv(fv.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("port") {
		cfg.Port = fv.port
	}
	if f.Changed("store") {
		cfg.StoreDriver = fv.store
	}
	if f.Changed("mongo-uri") {
		cfg.MongoURI = fv.mongoURI
	}
	if f.Changed("mongo-db") {
		cfg.MongoDB = fv.mongoDB
	}
	if f.Changed("db") {
		cfg.DBPath = fv.dbPath
	}
	if f.Changed("upload-dir") {
		cfg.UploadDir = fv.uploadDir
	}
	if f.Changed("password-mode") {
		cfg.PasswordMode = fv.passwordMode
	}
	if f.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.PasswordMode != auth.ModeBcrypt {
		logger.Warn("passwords are stored in plaintext; set PASSWORD_MODE=bcrypt to hash them")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cmd.Context(), cfg, logger)
	if err != nil {
		if errors.Is(err, apperror.ErrStoreUnavailable) {
			logger.Error("store unavailable",
				slog.String("driver", cfg.StoreDriver),
				slog.String("error", err.Error()),
			)
		}
		return err
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	return srv.Start()
}
