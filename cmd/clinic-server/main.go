package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/admin"
	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/prescription"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/cache"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/internal/platform/mongodb"
	"github.com/clinic/clinic/internal/platform/telemetry"
	"github.com/clinic/clinic/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic appointment API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// connectPool loads config and opens the pool for one-shot commands.
func connectPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, pool, err := connectPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, pool, err := connectPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
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
	})

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			ctx := context.Background()
			cfg, pool, err := connectPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := admin.NewService(admin.NewRepo(pool), nil, newLogger(cfg.Env))
			a, err := svc.Create(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Printf("Admin %q created (id %s).\n", a.Username, a.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Admin username")
	createCmd.Flags().String("password", "", "Admin password (min 8 characters)")

	cmd.AddCommand(createCmd)
	return cmd
}

// routeRegistrar is implemented by every domain handler.
type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

// txSkipper keeps reads, logout and the prescription saga outside the request
// transaction. The saga's status change must not be rolled back with it.
func txSkipper(c echo.Context) bool {
	if db.SkipReads(c) {
		return true
	}
	path := c.Path()
	return path == "/api/v1/auth/logout" || strings.HasPrefix(path, "/api/v1/prescriptions")
}

// newRouter assembles middleware and routes. pool may be nil in tests, in
// which case only skipped routes can be served.
func newRouter(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, tokens *auth.TokenService, deps map[string]db.Pinger, handlers ...routeRegistrar) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewRequestValidator()

	var poolGauge telemetry.PoolGauge
	if pool != nil {
		poolGauge = func() (int64, int64) {
			st := pool.Stat()
			return int64(st.TotalConns()), int64(st.IdleConns())
		}
	}
	metrics := telemetry.NewMetrics(poolGauge)

	e.Use(middleware.Recovery(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(auth.JWTMiddleware(tokens, auth.AuthSkipper))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool, deps))
	e.GET("/metrics", metrics.Handler())

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg), db.TxMiddleware(pool, logger, txSkipper))
	for _, h := range handlers {
		h.RegisterRoutes(apiV1)
	}
	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	loc, _ := cfg.Location()

	flushSentry, err := telemetry.InitSentry(cfg.SentryDSN, cfg.Env, version, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise sentry")
	}
	defer flushSentry()

	ctx := context.Background()

	// Postgres: doctors, patients, admins, appointments
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// MongoDB: prescriptions
	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDatabase)
	if err := prescription.EnsureIndexes(ctx, mongoDB); err != nil {
		logger.Warn().Err(err).Msg("prescription indexes not created")
	}
	logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongodb")

	deps := map[string]db.Pinger{
		"postgres": db.PingFunc(pool.Ping),
		"mongodb":  mongodb.Pinger{Client: mongoClient},
	}

	// Token revocation: redis when configured, in-memory otherwise
	var revocations auth.RevocationStore
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		revocations = auth.NewRedisRevocationStore(rdb)
		deps["redis"] = cache.Pinger{Client: rdb}
		logger.Info().Msg("token revocation backed by redis")
	} else {
		mem := auth.NewMemoryRevocationStore(5 * time.Minute)
		defer mem.Close()
		revocations = mem
		logger.Warn().Msg("REDIS_URL unset; token revocation is process-local")
	}
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTTTL, revocations)

	// Domain wiring
	apptRepo := appointment.NewRepo(pool)
	doctorSvc := doctor.NewService(doctor.NewRepo(pool), apptRepo, tokens, logger)
	apptSvc := appointment.NewService(apptRepo, doctorSvc, logger,
		appointment.WithLocation(loc),
		appointment.WithStrictUpdates(cfg.StrictUpdateAvailability),
	)
	patientSvc := patient.NewService(patient.NewRepo(pool), tokens, logger)
	adminSvc := admin.NewService(admin.NewRepo(pool), tokens, logger)
	rxSvc := prescription.NewService(prescription.NewRepo(mongoDB), apptSvc, logger)

	e := newRouter(cfg, logger, pool, tokens, deps,
		admin.NewHandler(adminSvc),
		auth.NewLogoutHandler(tokens, logger),
		doctor.NewHandler(doctorSvc),
		patient.NewHandler(patientSvc),
		appointment.NewHandler(apptSvc),
		prescription.NewHandler(rxSvc),
	)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", loc.String()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
