package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/company"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/email"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jobmetrics"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/payslip"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/storage"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/sqlite"
	payrollService "github.com/cmlabs-hris/payroll-engine/internal/service/payroll"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Runtime holds the wired payroll service shared by the API and the worker.
type Runtime struct {
	PayrollService payroll.PayrollService
	Companies      company.CompanyRepository
	Registry       *prometheus.Registry
	Redis          *redis.Client

	closers []func()
}

type repositories struct {
	payrolls     payroll.PayrollRepository
	employees    employee.EmployeeRepository
	companies    company.CompanyRepository
	customFields payroll.CustomFieldRegistry
}

func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Registry: prometheus.NewRegistry()}
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	repos, err := rt.openRepositories(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Companies = repos.companies

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}

	mailer, err := email.NewEmailService(cfg.SMTP)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}

	var summaryCache *cache.VersionedCache
	if cfg.RedisEnabled() {
		rt.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		rt.closers = append(rt.closers, func() {
			if err := rt.Redis.Close(); err != nil {
				slog.Warn("Failed to close redis client", "error", err)
			}
		})
		if err := rt.Redis.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis ping failed, summaries will be read from the database", "error", err)
		}
		summaryCache = cache.New(rt.Redis, "payroll", cfg.Payroll.SummaryCacheTTL)
	}

	calculator := payroll.NewCalculator(payroll.StatutoryRates{
		Employee:  cfg.Payroll.EmployeeRate,
		EmployerA: cfg.Payroll.EmployerARate,
		EmployerB: cfg.Payroll.EmployerBRate,
	}, cfg.Payroll.ExemptClassifications)

	rt.PayrollService = payrollService.NewPayrollService(payrollService.Config{
		DefaultCountry:   cfg.Payroll.DefaultCountry,
		DefaultCurrency:  cfg.Payroll.DefaultCurrency,
		BatchConcurrency: cfg.Payroll.BatchConcurrency,
		DistributionCC:   cfg.Payroll.DistributionCC,
	}, payrollService.Dependencies{
		PayrollRepo:  repos.payrolls,
		EmployeeRepo: repos.employees,
		CompanyRepo:  repos.companies,
		CustomFields: repos.customFields,
		Calculator:   calculator,
		Renderer:     payslip.NewRenderer(cfg.Payroll.Locale),
		Storage:      fileStorage,
		Mailer:       mailer,
		SummaryCache: summaryCache,
		Metrics:      jobmetrics.NewMetrics(rt.Registry),
		Formatter:    money.NewFormatter(cfg.Payroll.Locale),
	})

	return rt, nil
}

func (rt *Runtime) openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(cfg.Database.SQLitePath)
		if err != nil {
			return repositories{}, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = db.Close() })
		if err := database.MigrateSQLite(ctx, db); err != nil {
			return repositories{}, err
		}
		return repositories{
			payrolls:     sqlite.NewPayrollStore(db),
			employees:    sqlite.NewEmployeeStore(db),
			companies:    sqlite.NewCompanyStore(db),
			customFields: sqlite.NewCustomFieldStore(db),
		}, nil

	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return repositories{}, fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		if err := database.MigratePostgres(ctx, db); err != nil {
			return repositories{}, err
		}
		return repositories{
			payrolls:     postgresql.NewPayrollRepository(db),
			employees:    postgresql.NewEmployeeRepository(db),
			companies:    postgresql.NewCompanyRepository(db),
			customFields: postgresql.NewCustomFieldRepository(db),
		}, nil
	}
}

// RedisClientOpt returns the asynq connection options for the configured Redis.
func RedisClientOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
