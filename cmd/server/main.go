/*
main.go - Application entry point

PURPOSE:
  Command line for the reporting engine: runs the HTTP server, applies the
  database schema and creates API accounts.

COMMANDS:
  serve        Start the HTTP API (default when no command is given)
  migrate      Create or upgrade the database schema and exit
  user create  Register an API account

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, YAML file, environment)
  2. Configure slog and the Snowflake id node
  3. Open the SQLite store (migrations run on open)
  4. Create the API handler and router
  5. Start the expired token sweeper
  6. Start the server with graceful shutdown

FLAGS:
  --db     SQLite database path, overrides REPORTING_DB_PATH
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server serve --db=./data/reporting.db
  REPORTING_SERVER_PORT=3000 ./server
  ./server user create --username analyst --email a@example.com \
      --password '...' --first-name Ana --last-name Lyst

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/holistic/reporting-engine/api"
	"github.com/holistic/reporting-engine/auth"
	"github.com/holistic/reporting-engine/config"
	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/store/sqlite"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Therapist reporting engine",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE:  runMigrate,
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an API account",
	RunE:  runUserCreate,
}

var (
	dbFlag      string
	newUsername string
	newEmail    string
	newPassword string
	newFirst    string
	newLast     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (overrides config)")

	f := userCreateCmd.Flags()
	f.StringVar(&newUsername, "username", "", "Account username")
	f.StringVar(&newEmail, "email", "", "Account email")
	f.StringVar(&newPassword, "password", "", "Account password")
	f.StringVar(&newFirst, "first-name", "", "First name")
	f.StringVar(&newLast, "last-name", "", "Last name")
	for _, name := range []string{"username", "email", "password", "first-name", "last-name"} {
		_ = userCreateCmd.MarkFlagRequired(name)
	}

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and opens the store.
func setup() (config.Config, *slog.Logger, *sqlite.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if dbFlag != "" {
		cfg.DB.Path = dbFlag
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := generic.InitIDs(cfg.IDs.NodeID); err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("init ids: %w", err)
	}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, store, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, logger, auth.Options{TokenTTL: cfg.Auth.TokenTTL})
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	if cfg.Auth.SweepInterval > 0 {
		sweeper := api.NewTokenSweeper(handler.Auth(), logger, cfg.Auth.SweepInterval)
		sweeper.Start()
		defer sweeper.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "env", cfg.Env, "db", cfg.DB.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("schema up to date", "db", cfg.DB.Path)
	return nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	cfg, logger, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()

	accounts := auth.NewService(store, auth.Options{TokenTTL: cfg.Auth.TokenTTL, Logger: logger})
	user, err := accounts.Register(cmd.Context(), auth.RegisterInput{
		Username:  newUsername,
		Email:     newEmail,
		Password:  newPassword,
		FirstName: newFirst,
		LastName:  newLast,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
	return nil
}
