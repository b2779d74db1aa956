package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions carries the settings the router needs from config.
type RouterOptions struct {
	AllowedOrigins []string
	LogLevel       slog.Level
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(
	opts RouterOptions,
	logger *slog.Logger,
	JWTService jwt.Service,
	payrollHandler PayrollHandler,
	loanHandler LoanHandler,
	eventHandler EventHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))
	r.Use(metrics.Instrument)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	limiter := middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Handler)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/payroll", func(r chi.Router) {
				r.Route("/components", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/", payrollHandler.ListComponents)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionPayrollManage))
						r.Post("/", payrollHandler.CreateComponent)
						r.Post("/seed", payrollHandler.SeedDefaultComponents)
					})
				})

				r.Route("/employees/{employeeId}/structures", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/", payrollHandler.ListStructures)
					r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Post("/", payrollHandler.AssignStructure)
				})
				r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Delete("/structures/{id}", payrollHandler.DeactivateStructure)

				r.Route("/cycles", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/", payrollHandler.ListCycles)
					r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Post("/", payrollHandler.CreateCycle)

					r.Route("/{id}", func(r chi.Router) {
						r.Group(func(r chi.Router) {
							r.Use(middleware.RequirePermission(user.PermissionPayrollView))
							r.Get("/", payrollHandler.GetCycle)
							r.Get("/summary", payrollHandler.GetCycleSummary)
							r.Get("/runs", payrollHandler.ListRuns)
						})
						r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Post("/compute", payrollHandler.ComputeCycle)
						r.With(middleware.RequirePermission(user.PermissionPayrollFinalize)).Post("/settle", payrollHandler.SettleCycle)
					})
				})

				r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/events", eventHandler.Stream)

				// Ownership of the run is checked by the service
				r.With(middleware.RequirePermission(user.PermissionPayslipViewOwn)).Get("/runs/{id}/payslip", payrollHandler.GetPayslip)
			})

			r.Route("/loan-types", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLoanViewOwn)).Get("/", loanHandler.ListLoanTypes)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionLoanManage))
					r.Post("/", loanHandler.CreateLoanType)
					r.Post("/seed", loanHandler.SeedDefaultLoanTypes)
				})
			})

			r.Route("/loans", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLoanViewOwn)).Get("/", loanHandler.ListLoans)
				r.With(middleware.RequirePermission(user.PermissionLoanApply)).Post("/", loanHandler.ApplyLoan)

				r.Route("/{id}", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionLoanViewOwn))
						r.Get("/", loanHandler.GetLoan)
						r.Get("/postings", loanHandler.ListLoanPostings)
					})
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionLoanApprove))
						r.Post("/approve", loanHandler.ApproveLoan)
						r.Post("/reject", loanHandler.RejectLoan)
					})
				})
			})

			r.Route("/advances", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLoanViewOwn)).Get("/", loanHandler.ListAdvances)
				r.With(middleware.RequirePermission(user.PermissionLoanApply)).Post("/", loanHandler.RequestAdvance)

				r.Route("/{id}", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionLoanViewOwn))
						r.Get("/", loanHandler.GetAdvance)
						r.Get("/postings", loanHandler.ListAdvancePostings)
					})
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionLoanApprove))
						r.Post("/approve", loanHandler.ApproveAdvance)
						r.Post("/reject", loanHandler.RejectAdvance)
					})
				})
			})

			r.With(middleware.RequirePermission(user.PermissionLoanViewOwn)).Get("/borrowing-limit", loanHandler.GetBorrowingLimit)
		})
	})
	return r
}
