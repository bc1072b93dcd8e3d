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
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/app"
	"github.com/cmlabs-hris/payroll-engine/internal/config"
	appHTTP "github.com/cmlabs-hris/payroll-engine/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine/internal/jobs"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, logger.Options{
		App:     "payroll-engine",
		Version: version,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime, err := app.NewRuntime(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize payroll runtime", "error", err)
		os.Exit(1)
	}
	defer runtime.Close()

	var queue appHTTP.TaskQueue
	if cfg.RedisEnabled() {
		client := jobs.NewClient(app.RedisClientOpt(cfg))
		defer client.Close()
		queue = client
	} else {
		slog.Warn("REDIS_ADDR is empty, payslip distribution runs inside the request")
	}

	scheduler := cron.NewScheduler()
	if cfg.Payroll.AutoGenerate {
		cron.NewPayrollJobs(runtime.Companies, runtime.PayrollService, cfg.Payroll.AutoGenerateDay).RegisterJobs(scheduler)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	payrollHandler := appHTTP.NewPayrollHandler(runtime.PayrollService, queue)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Logger:                log,
		AllowedOrigins:        cfg.App.AllowedOrigins,
		Production:            cfg.App.Env == "production",
		DistributionRateLimit: cfg.Payroll.DistributionRateLimit,
		MetricsHandler:        promhttp.HandlerFor(runtime.Registry, promhttp.HandlerOpts{}),
	}, JWTService, payrollHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
