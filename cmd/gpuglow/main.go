package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speedwagon-io/gpuglow/internal/applier"
	"github.com/speedwagon-io/gpuglow/internal/config"
	"github.com/speedwagon-io/gpuglow/internal/gradient"
	"github.com/speedwagon-io/gpuglow/internal/health"
	"github.com/speedwagon-io/gpuglow/internal/journal"
	"github.com/speedwagon-io/gpuglow/internal/lib/logger/sl"
	"github.com/speedwagon-io/gpuglow/internal/model"
	"github.com/speedwagon-io/gpuglow/internal/monitor"
	"github.com/speedwagon-io/gpuglow/internal/sampler"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log colors instead of applying them")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)

	log.Info("starting gpuglow",
		slog.String("env", cfg.Env),
		slog.Int("gpu_index", cfg.GPU.Index),
		slog.Bool("dry_run", *dryRun),
	)

	low, err := model.ParseHex(cfg.Colors.Low)
	if err != nil {
		log.Error("invalid low color", sl.Err(err))
		os.Exit(1)
	}
	high, err := model.ParseHex(cfg.Colors.High)
	if err != nil {
		log.Error("invalid high color", sl.Err(err))
		os.Exit(1)
	}
	grad := gradient.New(low, high)

	var resetColor *model.RGB
	if cfg.Colors.ResetOnExit {
		reset, err := model.ParseHex(cfg.Colors.Reset)
		if err != nil {
			log.Error("invalid reset color", sl.Err(err))
			os.Exit(1)
		}
		resetColor = &reset
	}

	var smp sampler.Sampler
	switch cfg.GPU.Sampler {
	case "nvml":
		smp = sampler.NewNVMLSampler(log, cfg.GPU.Index)
	case "nvidia-smi":
		smp = sampler.NewSMISampler(log, cfg.GPU.Index)
	default:
		log.Error("unknown sampler", slog.String("sampler", cfg.GPU.Sampler))
		os.Exit(1)
	}

	// Use LogApplier for dry-run mode, LiquidctlApplier otherwise
	var app applier.Applier
	if *dryRun {
		app = applier.NewLogApplier(log)
		log.Info("dry-run mode: colors will be logged instead of applied")
	} else {
		app = applier.NewLiquidctlApplier(log, &cfg.Lighting)
	}

	var jrnl journal.Journal
	if cfg.Journal.Enabled {
		sqliteJrnl, err := journal.NewSQLiteJournal(log, cfg.Journal.Path)
		if err != nil {
			log.Error("failed to create journal", sl.Err(err))
			os.Exit(1)
		}
		jrnl = sqliteJrnl
		log.Info("journal enabled", slog.String("path", cfg.Journal.Path))
	}

	mon := monitor.NewMonitor(log, cfg, grad, resetColor, smp, app, jrnl)

	healthServer := health.NewServer(log, cfg.Health.Address)
	healthServer.AddChecker(health.NewSamplerHealthChecker(mon.LastSampleError))
	healthServer.AddChecker(health.NewApplierHealthChecker(app.Health))
	if jrnl != nil {
		healthServer.AddChecker(health.NewJournalHealthChecker(jrnl.Count))
	}

	if err := healthServer.Start(); err != nil {
		log.Error("failed to start health server", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	mon.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	mon.Stop()

	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop health server", sl.Err(err))
	}

	if jrnl != nil {
		if err := jrnl.Close(); err != nil {
			log.Error("failed to close journal", sl.Err(err))
		}
	}

	log.Info("gpuglow stopped")
}
