package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicare/voiceclinic/internal/config"
	"github.com/medicare/voiceclinic/internal/domain/clinic"
	"github.com/medicare/voiceclinic/internal/domain/scheduling"
	"github.com/medicare/voiceclinic/internal/platform/db"
	"github.com/medicare/voiceclinic/internal/platform/knowledge"
	"github.com/medicare/voiceclinic/internal/platform/middleware"
	"github.com/medicare/voiceclinic/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Voice assistant clinic scheduling API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(notifyWorkerCmd())
	rootCmd.AddCommand(kbCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string, w io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// routeRegistrar mounts a module's endpoints on the tool and admin groups.
type routeRegistrar func(tools, admin *echo.Group)

// newRouter builds the echo instance with the global middleware chain and
// health endpoint. The returned func releases the rate limiter.
func newRouter(cfg *config.Config, logger zerolog.Logger, modules ...routeRegistrar) (*echo.Echo, func()) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.RateLimit(limiter))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	admin := api.Group("/admin")
	for _, register := range modules {
		register(api, admin)
	}
	return e, limiter.Close
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg.Env, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Slot lock
	locker, closeLocker, err := buildLocker(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up slot lock")
	}
	defer closeLocker()

	// Notifications
	sender, closeSender, err := buildSender(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up notifications")
	}
	defer closeSender()
	dispatcher := notification.NewDispatcher(notification.NewTemplateEngine(cfg.ClinicName), sender, cfg.NotifyTimeout, logger)

	// Knowledge base
	loader, err := buildLoader(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up knowledge base")
	}
	kb := knowledge.NewIndex(loader, logger)
	if err := kb.Load(ctx); err != nil {
		// Searches answer "could not find" until a reload succeeds.
		logger.Warn().Err(err).Msg("knowledge base not loaded")
	}

	// Repositories and services
	branches := clinic.NewBranchRepoPG(pool)
	doctors := clinic.NewDoctorRepoPG(pool)
	patients := clinic.NewPatientRepoPG(pool)
	tests := clinic.NewTestRepoPG(pool)
	appts := scheduling.NewAppointmentRepoPG(pool)

	clinicSvc := clinic.NewService(branches, doctors, patients, tests, dispatcher, logger)

	machine := scheduling.NewMachine(scheduling.MachineConfig{
		Tx:               db.NewTxManager(pool),
		Locker:           locker,
		Appointments:     appts,
		TestAppointments: scheduling.NewTestAppointmentRepoPG(pool),
		Doctors:          doctors,
		Patients:         patients,
		Tests:            tests,
		Day:              scheduling.ClinicDay,
	})
	schedSvc := scheduling.NewService(
		scheduling.NewResolver(doctors, nil),
		scheduling.NewCalendar(appts, scheduling.ClinicDay),
		machine,
		tests,
		dispatcher,
		logger,
	)

	clinicH := clinic.NewHandler(clinicSvc, cfg.AuditActorID)
	schedH := scheduling.NewHandler(schedSvc, cfg.AuditActorID)
	kbH := knowledge.NewHandler(kb)

	e, closeRouter := newRouter(cfg, logger,
		clinicH.RegisterRoutes,
		func(tools, _ *echo.Group) { schedH.RegisterRoutes(tools) },
		kbH.RegisterRoutes,
	)
	defer closeRouter()
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	dispatcher.Wait()
	logger.Info().Msg("server stopped")
	return nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}
