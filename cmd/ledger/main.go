package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/boddenberg/finance-ledger-go/internal/calendar"
	"github.com/boddenberg/finance-ledger-go/internal/config"
	"github.com/boddenberg/finance-ledger-go/internal/domain"
	"github.com/boddenberg/finance-ledger-go/internal/handler"
	"github.com/boddenberg/finance-ledger-go/internal/infra/cache"
	"github.com/boddenberg/finance-ledger-go/internal/infra/observability"
	"github.com/boddenberg/finance-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/finance-ledger-go/internal/infra/sqlite"
	"github.com/boddenberg/finance-ledger-go/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "ledger",
		Short:        "Personal finance ledger",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./ledger.yaml)")

	loadConfig := func() (*config.Config, error) {
		// --- Load .env file (for local development) ---
		_ = config.LoadDotEnv(".env")

		v, err := config.New(configFile)
		if err != nil {
			return nil, err
		}
		bindFlags(root, v)
		cfg := config.Load(v)
		return cfg, cfg.Validate()
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	serve.Flags().Int("port", 0, "listen port (overrides PORT)")
	serve.Flags().String("db", "", "database path (overrides DB_PATH)")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg.LogLevel)
			defer logger.Sync()

			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			version, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", store.Path(), version)
			return nil
		},
	}
	migrate.Flags().String("db", "", "database path (overrides DB_PATH)")

	dueDate := &cobra.Command{
		Use:   "due-date <purchase-date> <closing-day> <due-day>",
		Short: "Print the credit card due date of a purchase",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			purchase, err := domain.ParseDate(args[0])
			if err != nil {
				return err
			}
			closing, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid closing day %q", args[1])
			}
			due, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid due day %q", args[2])
			}
			fmt.Fprintln(cmd.OutOrStdout(), calendar.DueDate(purchase, closing, due))
			return nil
		},
	}

	root.AddCommand(serve, migrate, dueDate)
	root.RunE = serve.RunE
	return root
}

// bindFlags lets explicitly set command flags win over env and file.
func bindFlags(root *cobra.Command, v *viper.Viper) {
	for _, cmd := range root.Commands() {
		if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
			v.Set("PORT", f.Value.String())
		}
		if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
			v.Set("DB_PATH", f.Value.String())
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlite.Store, error) {
	return sqlite.Open(ctx, sqlite.Options{
		Path:        cfg.DBPath,
		BusyTimeout: cfg.DBBusyTimeout,
		Resilience: resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		Logger: logger,
	})
}

func runServer(cfg *config.Config) error {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("db_path", cfg.DBPath),
		zap.Duration("db_busy_timeout", cfg.DBBusyTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("locale", cfg.Locale),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finance-ledger")
	if err != nil {
		logger.Error("failed to init tracer", zap.Error(err))
		return err
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	referenceCache := cache.New[any](cfg.CacheTTL)
	defer referenceCache.Close()

	// --- Storage ---
	store, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
		return err
	}
	defer store.Close()

	// --- Services ---
	ledgerSvc := service.NewLedgerService(store, referenceCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, metrics, handler.MoneyFormat{Locale: cfg.Locale, Currency: cfg.Currency}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("server failed", zap.Error(err))
		return err
	case <-quit:
	}

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
