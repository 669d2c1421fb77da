package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/formkeeper/formkeeper/internal/core/api"
	"github.com/formkeeper/formkeeper/internal/core/auth"
	"github.com/formkeeper/formkeeper/internal/core/config"
	"github.com/formkeeper/formkeeper/internal/core/db"
	"github.com/formkeeper/formkeeper/internal/core/server"
	"github.com/formkeeper/formkeeper/internal/core/store"
	"github.com/formkeeper/formkeeper/internal/jobs"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the survey API service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadEffectiveConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel, cfg.LogFormat)

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	statuses, err := db.MigrationStatuses(database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, st := range statuses {
		if !st.Applied {
			return fmt.Errorf("migration %s not applied - run 'formkeeper migrate' first", st.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set FK_HMAC_SECRET environment variable)")
	}
	authenticator := auth.NewAuthenticator(secrets, queries)

	surveys := store.NewSurveyStore(queries)
	rules := store.NewLogicStore(queries)
	responses := store.NewResponseStore(queries)

	service, err := api.NewService(surveys, rules, responses, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	scheduler, err := jobs.NewScheduler(surveys, responses, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	httpServer, err := server.NewHTTPServer(cfg, service, authenticator, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("starting formkeeper", "version", Version, "host", cfg.Host, "port", cfg.Port)
	scheduler.Start()
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		scheduler.Stop()
		return err
	case <-sigChan:
		log.Info("shutting down gracefully")
		scheduler.Stop()
		return httpServer.Shutdown(ctx)
	}
}

// loadEffectiveConfig applies flag overrides on top of the loaded config.
func loadEffectiveConfig(cmd *cobra.Command) (*config.ServerConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd != nil {
		if cmd.Flags().Changed("host") {
			cfg.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}
