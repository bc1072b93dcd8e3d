package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/payroll-engine/internal/app"
	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/jobs"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/logger"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, logger.Options{
		App:     "payroll-worker",
		Version: version,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})
	slog.SetDefault(log)

	if !cfg.RedisEnabled() {
		slog.Error("REDIS_ADDR is required to run the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime, err := app.NewRuntime(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize payroll runtime", "error", err)
		os.Exit(1)
	}
	defer runtime.Close()

	tasks := jobs.NewPayrollTasks(runtime.PayrollService, log)
	worker := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   app.RedisClientOpt(cfg),
		Concurrency: cfg.Worker.Concurrency,
		Logger:      log,
		Handlers:    tasks.Handlers(),
	})

	slog.Info("Worker started", "queue", jobs.QueuePayroll, "concurrency", cfg.Worker.Concurrency)
	if err := worker.Run(ctx); err != nil {
		slog.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
}
