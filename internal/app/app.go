package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"dumpsift/internal/config"
	apierrors "dumpsift/internal/errors"
	"dumpsift/internal/infrastructure"
	custommw "dumpsift/internal/middleware"
	"dumpsift/internal/services"
	handlers "dumpsift/internal/transport/http"
)

const VERSION = "1.0.0"

var (
	// BuildTime is set at compile time via -ldflags.
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID identifies this build in logs.
	BuildID = generateBuildID()
)

func generateBuildID() string {
	sum := sha256.Sum256([]byte(VERSION + "/" + time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", sum[:6])
}

// Application is the main application container. All components are wired
// together at construction time.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	SplitService  *services.SplitService
	HealthService *services.HealthService

	collector   *infrastructure.SystemMetricsCollector
	closeLogger func() error
}

// NewApplication creates a fully wired application instance.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, closeLogger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", VERSION),
		slog.String("build_id", BuildID))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("resolving paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensuring directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initializing OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		closeLogger:   closeLogger,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the service layer. A failed metrics collector is
// logged and skipped; the health service tolerates a nil collector.
func (a *Application) initializeServices() {
	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
	if err != nil {
		a.Logger.Warn("system metrics collector unavailable",
			slog.String("error", err.Error()))
	} else {
		a.collector = collector
	}

	a.SplitService = services.NewSplitService(a.Config, a.Paths, a.OTelProviders, a.Logger)
	a.HealthService = services.NewHealthService(VERSION, BuildTime, a.Paths, a.collector, a.Logger)
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	validator := custommw.NewValidationMiddleware(a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	splitHandler := handlers.NewSplitHandler(a.SplitService, validator, errorHandler, a.Logger)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := custommw.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("failed to create OpenTelemetry middleware",
				slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(custommw.MetricsMiddleware(a.OTelProviders.Metrics))
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(custommw.CORS(a.corsConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Get("/", healthHandler.Descriptor)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Group(func(r chi.Router) {
				r.Use(custommw.Timeout(a.Config.Server.ReadTimeout, a.Logger))

				r.Get("/health", healthHandler.HealthCheck)
				r.Get("/health/ready", healthHandler.ReadinessCheck)
				r.Get("/health/live", healthHandler.LivenessCheck)
				r.Get("/version", healthHandler.Version)
				r.Get("/stats", healthHandler.Stats)
				r.Get("/recognizers", splitHandler.Recognizers)
			})

			// Split runs carry their own deadline; the HTTP window sits above
			// it so the run-level timeout fires first.
			r.Group(func(r chi.Router) {
				r.Use(custommw.Timeout(a.Config.Split.Timeout+10*time.Second, a.Logger))
				r.Use(custommw.ContentTypeValidator("application/json"))
				r.Use(validator.ValidateRequest)

				r.Post("/split", splitHandler.Split)
			})
		})
	})

	// Prometheus endpoint stays outside the middleware group.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
}

// corsConfig builds the CORS policy: same-origin plus any configured extras.
func (a *Application) corsConfig() custommw.CORSConfig {
	origins := []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}
	origins = append(origins, a.Config.Security.AllowedOrigins...)

	return custommw.CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	// A synchronous split must finish writing its response, so the write
	// window never sits below the run deadline.
	writeTimeout := a.Config.Server.WriteTimeout
	if minWindow := a.Config.Split.Timeout + 30*time.Second; writeTimeout < minWindow {
		writeTimeout = minWindow
	}

	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server and background collectors. A server failure
// cancels the provided context instead of exiting the process.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("output_dir", a.Paths.OutputDir))

	if a.collector != nil {
		go a.collector.Start(ctx)
	}

	go func() {
		err := a.Server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.startupCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "startup check warnings",
			slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// startupCheck verifies the working directories are writable. Warnings are
// non-fatal; the readiness endpoint reports them too.
func (a *Application) startupCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"data":   a.Paths.DataDir,
		"output": a.Paths.OutputDir,
		"logs":   a.Paths.LogsDir,
	}
	for name, dir := range directories {
		probe := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(probe)
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "startup check passed")
	return nil
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if a.collector != nil {
		a.collector.Stop()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")

	if a.closeLogger != nil {
		if err := a.closeLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "closing log output: %v\n", err)
		}
	}
	return nil
}

// Run runs the application until interrupted. The run context ends on
// SIGINT, SIGTERM, or a server failure reported through Start.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("shutting down")

	// The run context is already cancelled; shutdown gets its own.
	return a.Stop(context.Background())
}
