package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Storage  StorageConfig
	Payroll  PayrollConfig
	Worker   WorkerConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int      `default:"8080"`
	Env            string   `default:"development"`
	LogLevel       string   `split_words:"true" default:"info"`
	AllowedOrigins []string `split_words:"true" default:"http://localhost:3000"`
}

type DatabaseConfig struct {
	Driver     string `default:"postgres"`
	Host       string `default:"localhost"`
	Port       int    `default:"5432"`
	User       string `default:"postgres"`
	Password   string
	Name       string `default:"payroll"`
	SSLMode    string `split_words:"true" default:"disable"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"payroll.db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration `split_words:"true" default:"1h"`
}

// RedisConfig enables the job queue and the summary cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int    `default:"0"`
}

// SMTPConfig - an empty Host disables delivery (emails are logged instead)
type SMTPConfig struct {
	Host     string
	Port     int    `default:"587"`
	Username string
	Password string
	From     string `default:"payroll@localhost"`
	FromName string `split_words:"true" default:"Payroll"`
}

type StorageConfig struct {
	BasePath string `split_words:"true" default:"./storage"`
}

type PayrollConfig struct {
	DefaultCountry        string          `split_words:"true"`
	DefaultCurrency       string          `split_words:"true" default:"USD"`
	EmployeeRate          decimal.Decimal `split_words:"true" default:"0.08"`
	EmployerARate         decimal.Decimal `envconfig:"EMPLOYER_A_RATE" default:"0.12"`
	EmployerBRate         decimal.Decimal `envconfig:"EMPLOYER_B_RATE" default:"0.03"`
	ExemptClassifications []string        `split_words:"true" default:"internship,intern,trainee"`
	BatchConcurrency      int             `split_words:"true" default:"4"`
	DistributionCC        []string        `envconfig:"DISTRIBUTION_CC"`
	DistributionRateLimit int             `split_words:"true" default:"10"`
	AutoGenerate          bool            `split_words:"true" default:"false"`
	AutoGenerateDay       int             `split_words:"true" default:"25"`
	SummaryCacheTTL       time.Duration   `envconfig:"SUMMARY_CACHE_TTL" default:"10m"`
	Locale                string          `default:"en"`
}

type WorkerConfig struct {
	Concurrency int `default:"10"`
}

// groups binds each section to its environment prefix.
func (c *Config) groups() []struct {
	prefix string
	spec   interface{}
} {
	return []struct {
		prefix string
		spec   interface{}
	}{
		{"APP", &c.App},
		{"DB", &c.Database},
		{"JWT", &c.JWT},
		{"REDIS", &c.Redis},
		{"SMTP", &c.SMTP},
		{"STORAGE", &c.Storage},
		{"PAYROLL", &c.Payroll},
		{"WORKER", &c.Worker},
	}
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	for _, g := range config.groups() {
		if err := envconfig.Process(g.prefix, g.spec); err != nil {
			return nil, fmt.Errorf("invalid %s configuration: %w", g.prefix, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if config.SMTP.Host == "" {
		slog.Warn("SMTP_HOST is empty, payslip emails will be logged and not delivered")
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DB_SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Payroll.DefaultCurrency == "" {
		return fmt.Errorf("PAYROLL_DEFAULT_CURRENCY is required")
	}
	if c.Payroll.BatchConcurrency < 1 {
		return fmt.Errorf("PAYROLL_BATCH_CONCURRENCY must be at least 1")
	}
	if c.Payroll.AutoGenerateDay < 1 || c.Payroll.AutoGenerateDay > 28 {
		return fmt.Errorf("PAYROLL_AUTO_GENERATE_DAY must be between 1 and 28")
	}
	if c.Payroll.EmployeeRate.IsNegative() || c.Payroll.EmployerARate.IsNegative() || c.Payroll.EmployerBRate.IsNegative() {
		return fmt.Errorf("statutory rates must be non-negative")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RedisEnabled reports whether the job queue and cache are available.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
