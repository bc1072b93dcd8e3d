package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/requestctx"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
	"github.com/unrolled/secure"
)

type RouterConfig struct {
	Logger                *slog.Logger
	AllowedOrigins        []string
	Production            bool
	DistributionRateLimit int
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, payrollHandler PayrollHandler) *chi.Mux {
	r := chi.NewRouter()
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DistributionRateLimit < 1 {
		cfg.DistributionRateLimit = 10
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !cfg.Production,
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))
	r.Use(secureMiddleware.Handler)

	r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	distributionLimiter := httprate.Limit(cfg.DistributionRateLimit, time.Minute,
		httprate.WithKeyFuncs(companyRateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			response.TooManyRequests(w, "Too many distribution requests, try again later")
		}),
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireCompany)

			r.Route("/payroll", func(r chi.Router) {
				r.Route("/records", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/", payrollHandler.ListPayrollRecords)
					r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Post("/", payrollHandler.UpsertPayrollRecord)
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/{id}", payrollHandler.GetPayrollRecord)
					r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Delete("/{id}", payrollHandler.DeletePayrollRecord)
				})

				r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Post("/generate", payrollHandler.GeneratePayroll)
				r.With(
					middleware.RequirePermission(user.PermissionPayrollDistribute),
					distributionLimiter,
				).Post("/distribute", payrollHandler.DistributePayslips)
				r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/summary", payrollHandler.GetPayrollSummary)

				r.Route("/custom-fields", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/", payrollHandler.ListCustomFields)
					r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Put("/", payrollHandler.ReplaceCustomFields)
				})
			})
		})
	})
	return r
}

// companyRateLimitKey limits per tenant, falling back to the client IP.
func companyRateLimitKey(r *http.Request) (string, error) {
	if companyID := requestctx.CompanyID(r.Context()); companyID != "" {
		return "company:" + companyID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
