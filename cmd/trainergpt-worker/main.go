// Command trainergpt-worker runs the scheduled deload sweep and the
// per-user recompute tasks.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/multierr"

	"github.com/meltforce/trainergpt/internal/cache"
	"github.com/meltforce/trainergpt/internal/config"
	"github.com/meltforce/trainergpt/internal/storage"
	"github.com/meltforce/trainergpt/internal/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	sweepNow := flag.Bool("sweep-now", false, "enqueue one deload sweep and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := cfg.Log.NewLogger(os.Stdout)
	log.Info("TrainerGPT worker starting", "version", Version)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	client := asynq.NewClient(redisOpt)

	if *sweepNow {
		info, err := client.Enqueue(worker.NewSweepTask(), asynq.Queue(worker.QueueDeload))
		client.Close()
		if err != nil {
			log.Error("enqueueing sweep", "error", err)
			os.Exit(1)
		}
		log.Info("sweep enqueued", "id", info.ID)
		return
	}

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	c, closeCache, err := cache.Open(cfg.Cache, cfg.Redis, cfg.Features.Cache, log)
	if err != nil {
		log.Error("failed to open cache", "error", err)
		os.Exit(1)
	}
	if c == nil {
		log.Warn("cache disabled: deload recommendations will be computed but not stored")
	}

	handlers := worker.NewHandlers(db, client, c, log, worker.WithActiveWithinDays(cfg.Worker.ActiveWithinDays))
	mux := asynq.NewServeMux()
	handlers.Register(mux)

	srv := worker.NewServer(redisOpt, cfg.Worker.Concurrency, log)
	if err := srv.Start(mux); err != nil {
		log.Error("worker start failed", "error", err)
		os.Exit(1)
	}

	sched, err := worker.NewScheduler(redisOpt, cfg.Worker.DeloadCron, log)
	if err != nil {
		log.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	if err := sched.Start(); err != nil {
		log.Error("scheduler start failed", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	sched.Shutdown()
	srv.Shutdown()
	if err := multierr.Append(closeCache(), client.Close()); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("worker stopped")
}
