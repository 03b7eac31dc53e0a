// Package cli provides the command-line interface for clearcat.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmulder/clearcat/internal/cache"
	"github.com/jmulder/clearcat/internal/config"
	"github.com/jmulder/clearcat/internal/db"
	"github.com/jmulder/clearcat/internal/llm"
	"github.com/jmulder/clearcat/internal/metrics"
	"github.com/jmulder/clearcat/internal/providers"
	"github.com/jmulder/clearcat/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logging and db client
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	dbClient *db.Client
	mc       *metrics.Collector

	// Shared components built in PersistentPreRunE
	store      cache.Cache
	faculty    *service.FacultyMapper
	dispatcher *service.Dispatcher
	jobManager *service.JobManager
	stagingSvc *service.StagingService
	reconciler *service.ReconcileService
	reporter   *service.ReportService

	// Lazy-initialized: only commands that enrich pay for provider and
	// classifier setup.
	enricher *service.EnrichService
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "clearcat",
	Short: "Copyright compliance catalog for teaching materials",
	Long: `Clearcat ingests course-material spreadsheets into a compliance
catalog, reconciles them against existing records with a full audit
trail, and enriches items with course, lecturer and document data
from external systems.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		mc = metrics.NewCollector()

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger, mc)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		if cfg.RedisAddr != "" {
			store, err = cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
		} else {
			store = cache.NewMemory()
		}

		faculty, err = service.NewFacultyMapper(cfg.FacultyMappingFile)
		if err != nil {
			return fmt.Errorf("load faculty mapping: %w", err)
		}

		dispatcher = service.NewDispatcher()
		jobManager = service.NewJobManager(cfg.EnrichConcurrency, dbClient)
		stagingSvc = service.NewStagingService(dbClient, logger, mc)
		reconciler = service.NewReconcileService(dbClient, faculty, dispatcher, store, logger, mc)
		reporter = service.NewReportService(dbClient, store, cfg.CacheTTL, logger)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// getEnricher builds the enrichment service on first use. The classifier is
// optional: with no LLM provider configured, items are enriched without
// classification suggestions.
func getEnricher(ctx context.Context) (*service.EnrichService, error) {
	if enricher != nil {
		return enricher, nil
	}

	classifier, err := llm.NewClassifier(cfg, mc)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	provider := providers.NewHTTP(cfg.CourseRegistryURL, cfg.PersonDirectoryURL, providers.Limits{
		RequestTimeout: cfg.ProviderTimeout,
		MinInterval:    cfg.ProviderMinInterval,
	}, logger, mc)

	enricher = service.NewEnrichService(dbClient, provider, classifier, store, logger, mc,
		cfg.EnrichConcurrency, cfg.RunningTTL, cfg.CompletedTTL)
	go enricher.ConsumeEvents(ctx, dispatcher.Subscribe(0))

	return enricher, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(batchesCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
