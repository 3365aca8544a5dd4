package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fcig/internal/config"
	"fcig/internal/errors"
	"fcig/internal/infrastructure"
	customMiddleware "fcig/internal/middleware"
	"fcig/internal/pipeline"
	"fcig/internal/sink"
	handlers "fcig/internal/transport/http"
	"fcig/internal/validation"
	"fcig/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.IndexMetrics
	Sink          *sink.InfluxSink
	Runs          *pipeline.Manager
	Hub           *websocket.Hub
	ErrorHandler  *errors.ErrorHandler
	Router        *chi.Mux
	Server        *http.Server
}

// Components are the pieces shared by the server and the batch command.
type Components struct {
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.IndexMetrics
	Sink          *sink.InfluxSink
	Runner        *pipeline.Runner
}

// Close flushes the sink and shuts down telemetry.
func (c *Components) Close(ctx context.Context) error {
	if c.Sink != nil {
		c.Sink.Close()
	}
	if c.OTelProviders != nil {
		return c.OTelProviders.Shutdown(ctx)
	}
	return nil
}

// NewComponents prepares directories, telemetry, the optional InfluxDB sink
// and a runner for cfg.Index.
func NewComponents(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if cfg.Paths != nil {
		if err := cfg.Paths.EnsureDirectories(cfg.Index.OutputDir); err != nil {
			return nil, errors.NewStorageError("failed to ensure directories", err)
		}
		cfg.Paths.LogPathResolution(logger)
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.NewIndexMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create index metrics: %w", err)
	}

	c := &Components{OTelProviders: providers, Metrics: metrics}
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(metrics),
	}

	if cfg.Influx.Enabled {
		c.Sink = sink.NewInfluxSink(cfg.Influx, logger)
		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Influx.Timeout)
		if err := c.Sink.Ping(pingCtx); err != nil {
			logger.Warn("InfluxDB not reachable at startup",
				slog.String("url", cfg.Influx.URL),
				slog.String("error", err.Error()))
		}
		cancel()
		opts = append(opts, pipeline.WithSink(c.Sink))
	}

	c.Runner, err = pipeline.NewRunner(cfg.Index, opts...)
	if err != nil {
		c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

// NewApplication wires the server for cfg.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	// A failed preflight leaves the server up in degraded state.
	if err := validation.NewFileValidator(logger).ValidateIndexInputs(cfg.Index); err != nil {
		logger.Warn("Index inputs failed preflight", slog.String("error", err.Error()))
	}

	components, err := NewComponents(cfg, logger)
	if err != nil {
		return nil, err
	}

	hub := websocket.NewHub(logger, components.Metrics)
	hub.Start()

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: components.OTelProviders,
		Metrics:       components.Metrics,
		Sink:          components.Sink,
		Runs:          pipeline.NewManager(components.Runner, hub),
		Hub:           hub,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → Timeout
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// Scrapes skip the request middleware.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.Runs, config.AppVersion, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)

			indexHandler := handlers.NewIndexHandler(a.Runs, a.Logger, a.ErrorHandler)
			r.Mount("/v1", indexHandler.Routes())
		})

		// The event stream outlives any request timeout.
		eventsHandler := handlers.NewEventsHandler(a.Hub, a.Config.Server.AllowedOrigins, a.Logger, a.ErrorHandler)
		r.Get("/v1/events", eventsHandler.ServeHTTP)

		// Recompute runs inside the request, so it gets the run timeout.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RunTimeout, a.Logger))

			runsHandler := handlers.NewRunsHandler(a.Runs, a.Config.Server.AllowRecompute, a.Logger, a.ErrorHandler)
			r.Mount("/v1/runs", runsHandler.Routes())
		})
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// ComputeInitial runs the index once. A failure is logged and leaves the
// server up with nothing to serve until a recompute succeeds.
func (a *Application) ComputeInitial(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(infrastructure.EnsureTraceID(ctx), a.Config.Server.RunTimeout)
	defer cancel()

	run, err := a.Runs.Execute(ctx)
	if err != nil {
		a.Logger.ErrorContext(ctx, "Initial index run failed",
			slog.String("error", err.Error()))
		return err
	}
	a.Logger.InfoContext(ctx, "Initial index run completed",
		slog.String("run_id", run.ID),
		slog.Int("published", run.Published))
	return nil
}

// Run starts the application and blocks until SIGINT or SIGTERM, or until
// the listener fails, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	// The run context is already cancelled when the listener failed.
	return a.Stop(context.Background())
}

// Start computes the index in the background and starts serving.
// cancel is called if the listener fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go a.ComputeInitial(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var serverErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		serverErr = fmt.Errorf("server shutdown error: %w", err)
	}
	a.Hub.Stop()

	components := &Components{OTelProviders: a.OTelProviders, Sink: a.Sink}
	if err := components.Close(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
	}

	if serverErr != nil {
		return serverErr
	}
	a.Logger.InfoContext(ctx, "Application stopped")
	return nil
}
