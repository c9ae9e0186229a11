// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package app wires the scms service together and runs it.
//
// # Lifecycle
//
//	New ──► settings, logger, tracing, metrics, stores (loaded), runners,
//	        process registry, router, reloader (when reload is on)
//	Run ──► serves HTTP and watches files until ctx is done, then drains
//	        requests and stops the watcher
//	Close ► flushes traces and closes the log file
//
// Detached daemons are not waited for on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/scms/pkg/logging"
	"github.com/AleutianAI/scms/services/scms/action"
	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/handlers"
	"github.com/AleutianAI/scms/services/scms/middleware"
	"github.com/AleutianAI/scms/services/scms/observability"
	"github.com/AleutianAI/scms/services/scms/process"
	"github.com/AleutianAI/scms/services/scms/routes"
	"github.com/AleutianAI/scms/services/scms/settings"
	"github.com/AleutianAI/scms/services/scms/store"
	"github.com/AleutianAI/scms/services/scms/tasks"
	"github.com/AleutianAI/scms/services/scms/watcher"
)

// ShutdownTimeout bounds the drain of in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Options configures New.
type Options struct {
	// Paths locates the settings sources. Default: settings.DefaultPaths().
	Paths settings.Paths

	// Version is reported by /health and /.
	Version string

	// LogOutput replaces stderr for logs. Used by tests.
	LogOutput io.Writer
}

// App is a fully wired scms service.
type App struct {
	version   string
	settings  *settings.Store
	logger    *logging.Logger
	metrics   *observability.Metrics
	registry  *prometheus.Registry
	stores    *Stores
	histories []*action.History
	processes *process.Registry
	reloader  *watcher.Reloader
	engine    *gin.Engine
	server    *http.Server

	shutdownTracing observability.ShutdownFunc
}

// New builds the service and loads every store.
//
// # Outputs
//
//   - *App: Ready to Run.
//   - error: Invalid settings, a missing or unparseable store file, a
//     tracing exporter failure, or a watcher failure. Invalid records are
//     logged and do not fail startup.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Paths == (settings.Paths{}) {
		opts.Paths = settings.DefaultPaths()
	}

	initial, err := settings.Load(opts.Paths)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:   levelOf(initial),
		LogDir:  initial.LogDir,
		Service: "scms",
		JSON:    opts.LogOutput != nil || !logging.IsTerminal(os.Stderr),
		Output:  opts.LogOutput,
	})
	slog.SetDefault(logger.Slog())

	a := &App{
		version:   opts.Version,
		logger:    logger,
		registry:  prometheus.NewRegistry(),
		processes: process.NewRegistry(logger.Slog()),
	}

	a.settings, err = settings.NewStore(opts.Paths, logger.Slog())
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	s := a.settings.Current()

	a.shutdownTracing, err = observability.InitTracing(ctx, s.Tracing, opts.Version)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = observability.NewMetrics(a.registry)
	a.metrics.RegisterDaemons(a.processes)

	a.stores = NewStores(s, store.WithLogger(logger.Slog()), store.WithObserver(a.metrics))
	// Invalid records are logged by each store and served as errors.
	if _, err := a.stores.LoadAll(); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.engine = a.newEngine(s)
	a.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.Reload {
		if err := a.watch(); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	a.settings.OnChange(a.applySettings)

	return a, nil
}

func (a *App) newEngine(s *settings.Settings) *gin.Engine {
	if !s.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, datatypes.ErrorResponse{
				Error: fmt.Sprint(recovered),
				Code:  datatypes.CodeInternal,
			})
		}),
		otelgin.Middleware(observability.ServiceName),
		middleware.RequestID(),
		middleware.Logger(a.logger.Slog()),
		middleware.Metrics(a.metrics),
	)

	runnerConfig := func() action.RunnerConfig {
		h := action.NewHistory(s.HistorySize)
		a.histories = append(a.histories, h)
		return action.RunnerConfig{History: h, Metrics: a.metrics, Logger: a.logger.Slog()}
	}

	st := a.stores
	routes.SetupRoutes(engine, routes.Config{
		Version: a.version,
		Chains: handlers.NewCategory(handlers.CategoryConfig[datatypes.Chain]{
			Category: datatypes.CategoryChains,
			Records:  st.Chains,
		}),
		Commands: handlers.NewCategory(handlers.CategoryConfig[datatypes.Command]{
			Category: datatypes.CategoryCommands,
			Records:  st.Commands,
			Runner:   action.NewRunner[datatypes.Command](datatypes.CategoryCommands, st.Commands, runnerConfig()),
			Task:     &tasks.CommandTask{Processes: a.processes},
			Payload:  handlers.PayloadNone,
		}),
		Configurations: handlers.NewCategory(handlers.CategoryConfig[datatypes.Configuration]{
			Category: datatypes.CategoryConfigurations,
			Records:  st.Configurations,
			Output: func(c datatypes.Configuration) (any, error) {
				return tasks.ReadConfiguration(c)
			},
			Runner:  action.NewRunner[datatypes.Configuration](datatypes.CategoryConfigurations, st.Configurations, runnerConfig()),
			Task:    tasks.ConfigurationTask{},
			Payload: handlers.PayloadRequired,
		}),
		Parameters: handlers.NewCategory(handlers.CategoryConfig[datatypes.Parameter]{
			Category: datatypes.CategoryParameters,
			Records:  st.Parameters,
			Output: func(p datatypes.Parameter) (any, error) {
				return tasks.ReadParameter(p)
			},
			Runner:  action.NewRunner[datatypes.Parameter](datatypes.CategoryParameters, st.Parameters, runnerConfig()),
			Task:    tasks.ParameterTask{},
			Payload: handlers.PayloadRequired,
		}),
		Processes: a.processes,
		Gatherer:  a.registry,
		Limit:     middleware.Limit(s.Workers, a.metrics.InFlightRequests),
	})
	return engine
}

// watch registers the store files and the settings sources with a new
// reloader. Settings sources whose directory does not exist are skipped.
func (a *App) watch() error {
	opts := watcher.DefaultFileWatcherOptions()
	opts.Logger = a.logger.Slog()
	reloader, err := watcher.NewReloader(&opts)
	if err != nil {
		return err
	}
	a.reloader = reloader

	for _, l := range a.stores.Loaders() {
		if err := reloader.Register(string(l.Category), l.Path, l.Load); err != nil {
			return err
		}
	}

	paths := a.settings.Paths()
	for _, path := range []string{paths.Settings, paths.Secrets, paths.Env} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			a.logger.Warn("settings source not watched", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		if err := reloader.Register("settings", path, a.settings.Reload); err != nil {
			return err
		}
	}
	return nil
}

// applySettings applies the settings that take effect without a restart.
func (a *App) applySettings(old, next *settings.Settings) {
	if levelOf(old) != levelOf(next) {
		a.logger.SetLevel(levelOf(next))
		a.logger.Info("log level changed", slog.String("level", levelOf(next).String()))
	}
	if old.HistorySize != next.HistorySize {
		for _, h := range a.histories {
			h.SetLimit(next.HistorySize)
		}
		a.logger.Info("history size changed", slog.Int("history_size", next.HistorySize))
	}
}

func levelOf(s *settings.Settings) logging.Level {
	if s.Debug {
		return logging.LevelDebug
	}
	level, _ := logging.ParseLevel(s.LogLevel)
	return level
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.engine }

// Settings returns the current settings.
func (a *App) Settings() *settings.Settings { return a.settings.Current() }

// Stores returns the record stores.
func (a *App) Stores() *Stores { return a.stores }

// Processes returns the daemon registry.
func (a *App) Processes() *process.Registry { return a.processes }

// Logger returns the service logger.
func (a *App) Logger() *logging.Logger { return a.logger }

// Run listens on the configured address and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done or the server fails.
//
// # Description
//
// The reloader starts alongside the server. When ctx is done, in-flight
// requests get ShutdownTimeout to finish and the reloader stops. Serve
// takes ownership of ln.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			_ = ln.Close()
			return err
		}
	}

	g.Go(func() error {
		a.logger.Info("scms listening",
			slog.String("addr", ln.Addr().String()),
			slog.Int("workers", a.Settings().Workers),
			slog.Bool("reload", a.reloader != nil))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("scms shutting down")
		if a.reloader != nil {
			a.reloader.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close flushes traces, stops the reloader and closes the log file.
// Safe to call after Serve returns.
func (a *App) Close() error {
	if a.reloader != nil {
		a.reloader.Stop()
	}
	var errs []error
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracing: %w", err))
		}
	}
	if err := a.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
