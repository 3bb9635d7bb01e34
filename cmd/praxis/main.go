package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"praxis/internal/api"
	"praxis/internal/config"
	"praxis/internal/database"
	"praxis/internal/exchange"
	"praxis/internal/metrics"
	"praxis/internal/risk"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(logger, &cfg); err != nil {
		logger.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine := risk.NewEngine(logger, cfg)
	logger.Info("Simulation engine ready",
		"trials", engine.Trials(),
		"seeded", cfg.Simulation.Seeded,
		"seed", cfg.Simulation.Seed,
	)

	var repo database.Repository
	var recorder *exchange.Recorder
	if cfg.Database.Enabled {
		pg, err := database.NewPostgresRepository(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		repo = pg
		logger.Info("Connected to database", "host", cfg.Database.Host, "db", cfg.Database.DBName)

		recorder, err = exchange.NewRecorder(logger, pg, m, cfg.Feeds)
		if err != nil {
			return err
		}
	} else if len(cfg.Feeds) > 0 {
		logger.Warn("Feeds configured but database disabled, not recording", "feeds", len(cfg.Feeds))
	}

	server, err := api.NewServer(logger, cfg, engine, repo, m, reg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	if recorder != nil {
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
