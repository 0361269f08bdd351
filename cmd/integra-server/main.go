package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vidalink/integra/internal/config"
	"github.com/vidalink/integra/internal/dispatch"
	"github.com/vidalink/integra/internal/domain/consent"
	"github.com/vidalink/integra/internal/domain/partner"
	"github.com/vidalink/integra/internal/domain/patient"
	"github.com/vidalink/integra/internal/domain/records"
	"github.com/vidalink/integra/internal/domain/sync"
	"github.com/vidalink/integra/internal/platform/db"
	"github.com/vidalink/integra/internal/platform/middleware"
	"github.com/vidalink/integra/internal/platform/notify"
	"github.com/vidalink/integra/internal/platform/push"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "integra-server",
		Short: "Partner ingestion gateway and reminder dispatcher",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dispatchCmd())
	rootCmd.AddCommand(partnerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func dispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Run one reminder dispatch pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc, err := buildDispatcher(cfg, pool, logger)
			if err != nil {
				return err
			}
			summary, err := svc.Run(ctx, time.Now())
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(summary, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
}

func partnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partner",
		Short: "Manage ERP integration partners",
	}

	withService := func(fn func(ctx context.Context, svc *partner.Service) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := partner.NewService(
			partner.NewRepoPG(pool),
			partner.NewRateLimitRepoPG(pool),
			cfg.SyncRateLimit,
			time.Duration(cfg.SyncRateWindowSeconds)*time.Second,
		)
		return fn(ctx, svc)
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new partner and print its API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			return withService(func(ctx context.Context, svc *partner.Service) error {
				p, rawKey, err := svc.CreatePartner(ctx, name)
				if err != nil {
					return err
				}
				fmt.Printf("Partner created: %s (%s)\n", p.Name, p.ID)
				fmt.Printf("API key (shown only once, store it now): %s\n", rawKey)
				return nil
			})
		},
	}
	createCmd.Flags().String("name", "", "Partner display name")
	cmd.AddCommand(createCmd)

	revokeCmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a partner's key",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			partnerID, err := uuid.Parse(id)
			if err != nil {
				return fmt.Errorf("--id must be a valid partner uuid")
			}
			return withService(func(ctx context.Context, svc *partner.Service) error {
				if err := svc.RevokePartner(ctx, partnerID); err != nil {
					return err
				}
				fmt.Println("Partner revoked.")
				return nil
			})
		},
	}
	revokeCmd.Flags().String("id", "", "Partner id")
	cmd.AddCommand(revokeCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered partners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(ctx context.Context, svc *partner.Service) error {
				partners, err := svc.ListPartners(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%-38s %-30s %-14s %s\n", "ID", "NAME", "KEY PREFIX", "STATUS")
				for _, p := range partners {
					status := "active"
					if !p.Active || p.RevokedAt != nil {
						status = "revoked"
					}
					fmt.Printf("%-38s %-30s %-14s %s\n", p.ID, p.Name, p.KeyPrefix, status)
				}
				return nil
			})
		},
	}
	cmd.AddCommand(listCmd)

	return cmd
}

// noCredentials satisfies the dispatcher's token dependency when the
// service account is not configured, so a triggered run fails with a
// clear error instead of a nil dereference.
type noCredentials struct{}

func (noCredentials) Token(context.Context) (string, error) {
	return "", push.ErrMissingCredentials
}

func buildDispatcher(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*dispatch.Service, error) {
	// Without credentials every run aborts at token acquisition, so the
	// sender is never reached; it still gets a real implementation.
	var tokens dispatch.TokenProvider = noCredentials{}
	var sender push.Sender = push.NewHTTPSender(cfg.PushProjectID, "", nil)
	if cfg.PushConfigured() {
		ts, err := push.NewTokenSource(push.Credentials{
			ClientEmail:   cfg.PushClientEmail,
			PrivateKeyPEM: cfg.PushPrivateKey,
			ProjectID:     cfg.PushProjectID,
			TokenURL:      cfg.PushTokenURL,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid push credentials: %w", err)
		}
		tokens = ts
		sender = push.NewHTTPSender(cfg.PushProjectID, "", nil)
	}
	return dispatch.NewService(
		records.NewRepoPG(pool),
		patient.NewSubscriptionRepoPG(pool),
		dispatch.NewLedgerRepoPG(pool),
		tokens,
		sender,
		logger,
	), nil
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "X-Request-ID", sync.APIKeyHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	apiV1 := e.Group("/v1")

	// Ingestion gateway
	partnerSvc := partner.NewService(
		partner.NewRepoPG(pool),
		partner.NewRateLimitRepoPG(pool),
		cfg.SyncRateLimit,
		time.Duration(cfg.SyncRateWindowSeconds)*time.Second,
	)
	patientRepo := patient.NewRepoPG(pool)
	consentSvc := consent.NewService(consent.NewRepoPG(pool))
	recordsRepo := records.NewRepoPG(pool)
	syncSvc := sync.NewService(patientRepo, consentSvc, recordsRepo, logger)
	sync.NewHandler(partnerSvc, syncSvc, logger).RegisterRoutes(apiV1)

	// Reminder dispatcher
	if !cfg.PushConfigured() {
		logger.Warn().Msg("push credentials not configured; dispatch runs will fail until they are set")
	}
	dispatchSvc, err := buildDispatcher(cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build dispatcher")
	}
	dispatch.NewHandler(dispatchSvc, logger).RegisterRoutes(apiV1)

	// Storage-upgrade notifier
	var email notify.EmailSender
	if cfg.SMTPHost != "" {
		email = &notify.SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}
	}
	notifier := notify.NewNotifier(notify.NewRepoPG(pool), email, logger)
	notify.NewHandler(notifier, logger).RegisterRoutes(apiV1)

	// Start and wait for shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
