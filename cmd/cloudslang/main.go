package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/bilalinamdar/cloud-slang"
	"github.com/bilalinamdar/cloud-slang/internal/config"
	"github.com/bilalinamdar/cloud-slang/internal/engine"
	"github.com/bilalinamdar/cloud-slang/internal/events"
	"github.com/bilalinamdar/cloud-slang/internal/metrics"
	"github.com/bilalinamdar/cloud-slang/internal/script"
	"github.com/bilalinamdar/cloud-slang/internal/server"
	"github.com/bilalinamdar/cloud-slang/pkg/log"
)

type cloudslang struct {
	cfg        *config.Config
	hub        *events.Hub
	delivery   *events.Delivery
	metrics    *metrics.Metrics
	engine     *engine.Engine
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateEvaluator = errors.New("failed to create expression evaluator")
	ErrStartDelivery   = errors.New("failed to start event delivery")
)

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &cloudslang{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *cloudslang) run() error {
	if err := s.initializeEngine(); err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *cloudslang) setupLogging() {
	level := log.ParseLevel(s.cfg.LogLevel)

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("CloudSlang engine starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("expression_backend", string(s.cfg.ExpressionBackend)),
		slog.Int("max_steps", s.cfg.MaxSteps),
		slog.String("redis_addr", s.cfg.Redis.Addr),
		slog.String("archive_bucket", s.cfg.Archive.BucketURL),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *cloudslang) initializeEngine() error {
	eval, err := script.NewService(s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateEvaluator, err)
	}

	s.hub = events.NewHub()
	s.delivery, err = events.StartDelivery(context.Background(), s.hub, s.cfg)
	if err != nil {
		s.hub.Close()
		return fmt.Errorf("%w: %w", ErrStartDelivery, err)
	}

	s.metrics = metrics.New()
	s.engine = engine.New(s.cfg, eval, s.hub, engine.WithMetrics(s.metrics))
	return nil
}

func (s *cloudslang) startServer() {
	s.apiServer = server.NewServer(s.engine, s.hub, s.metrics.Handler())
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *cloudslang) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()

	if err := s.engine.Stop(); err != nil {
		slog.Error("Engine shutdown failed", log.Error(err))
	}

	s.hub.Close()
	if err := s.delivery.Stop(); err != nil {
		slog.Error("Event delivery shutdown failed", log.Error(err))
	}

	slog.Info("Server exited")
}
