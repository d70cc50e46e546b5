package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/d5h-foss/hwtest/internal/component"
	"github.com/d5h-foss/hwtest/internal/config"
	"github.com/d5h-foss/hwtest/internal/controller"
	"github.com/d5h-foss/hwtest/internal/handlers"
	"github.com/d5h-foss/hwtest/internal/logger"
	"github.com/d5h-foss/hwtest/internal/logging"
	"github.com/d5h-foss/hwtest/internal/metrics"
	"github.com/d5h-foss/hwtest/internal/repository"
	"github.com/d5h-foss/hwtest/internal/sampler"
	"github.com/d5h-foss/hwtest/internal/server"
	"github.com/d5h-foss/hwtest/internal/service"
	"github.com/d5h-foss/hwtest/internal/sim"
)

const configDir = "configs"

func main() {
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	cfg, err := config.Load(configDir)
	if err != nil {
		log.Fatalw("error reading config", "err", err)
	}
	log = logger.Get(cfg.LogLevel)

	// open DB
	db, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// metrics registry with its exposition handler
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	metricsHandler := promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})

	// wire dependencies
	repos := repository.NewRepository(db)
	buf := &sampler.Handoff{}
	services := service.NewService(service.Deps{
		Repos:   repos,
		Factory: newRunFactory(cfg, repos, buf, m, log),
		Buffer:  buf,
		Log:     log,
		Auth: service.AuthConfig{
			SigningKey: cfg.SigningKey,
			TokenTTL:   cfg.TokenTTL,
		},
	})
	apiHandler := handlers.NewHandler(services, log, metricsHandler)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, log)
}

// newRunFactory assembles a fresh scenario per run: a simulated valve
// driver, one sampler feeding the shared handoff buffer, one result
// sink persisting PASS/FAIL lines, and one lossy telemetry sink.
func newRunFactory(cfg *config.Config, repos *repository.Repository, buf *sampler.Handoff, m *metrics.Metrics, log *logger.Logger) service.RunFactory {
	// Policies were validated at load time.
	resultPolicy, _ := config.ParsePolicy(cfg.ResultPolicy)
	telemetryPolicy, _ := config.ParsePolicy(cfg.TelemetryPolicy)

	return func(ctx context.Context) (*service.Run, error) {
		onSinkError := func(err error) {
			log.Errorw("sink_backend_failed", "err", err)
		}

		resultSink := logging.NewSink(
			logging.NewMultiBackend(
				logging.NewLineBackend(nil),
				logging.NewStoreBackend(repos.EventRepo),
			),
			logging.WithCapacity(cfg.QueueCapacity),
			logging.WithPolicy(resultPolicy),
			logging.WithErrorHandler(onSinkError),
			logging.WithDropHook(m.ObserveDroppedEvent),
		)
		telemetrySink := logging.NewSink(
			logging.NewStoreBackend(repos.EventRepo),
			logging.WithCapacity(cfg.QueueCapacity),
			logging.WithPolicy(telemetryPolicy),
			logging.WithErrorHandler(onSinkError),
			logging.WithDropHook(m.ObserveDroppedEvent),
		)
		cleanup := func() error {
			err := resultSink.Close()
			if terr := telemetrySink.Close(); err == nil {
				err = terr
			}
			return err
		}

		driver := sim.NewValveDriver()
		smp := sampler.New(driver, log, sampler.Config{
			Device:           sim.DeviceName,
			Period:           cfg.SamplingPeriod,
			FailureThreshold: cfg.FailureThreshold,
			Buffer:           buf,
			Sink:             telemetrySink,
			Metrics:          m,
		})

		registry := component.NewRegistry(resultSink, m)
		valve := sim.NewValve(sim.DeviceName, driver, buf)
		if err := registry.Register(valve); err != nil {
			_ = cleanup()
			return nil, err
		}

		ctrl := controller.New(sim.Scenario(valve), registry,
			controller.WithDefaultAction(defaultAction(cfg)),
			controller.WithSinks(resultSink, telemetrySink),
			controller.WithLogger(log),
		)

		return &service.Run{
			Controller: ctrl,
			Sampler:    smp,
			StopGrace:  cfg.StopGrace,
			Cleanup:    cleanup,
		}, nil
	}
}

// defaultAction maps the configured default check-point behavior.
func defaultAction(cfg *config.Config) controller.Action {
	if cfg.DefaultAction == config.ActionCheckAndWait {
		return controller.CheckAndWait{Delay: cfg.DefaultDelay}
	}
	return controller.WaitAndCheck{Delay: cfg.DefaultDelay}
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "hwtest.db")
		dbPath = "hwtest.db"
	}
	return repository.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && err != http.ErrServerClosed {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
