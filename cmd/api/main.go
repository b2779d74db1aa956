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

	"github.com/cmlabs-hris/payroll-backend-go/internal/config"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/payroll-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	loanService "github.com/cmlabs-hris/payroll-backend-go/internal/service/loan"
	payrollService "github.com/cmlabs-hris/payroll-backend-go/internal/service/payroll"
	"github.com/go-chi/httplog/v3"
)

type repositories struct {
	tx           database.Transactor
	payrollRepo  payroll.PayrollRepository
	loanRepo     loan.LoanRepository
	employeeRepo employee.EmployeeRepository
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-cmlabs"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", slog.String("driver", cfg.Storage.Driver), slog.Any("error", err))
		os.Exit(1)
	}
	defer repos.close()

	resolver := payrollService.NewSalaryResolver(repos.payrollRepo)
	scheduler := loanService.NewObligationScheduler(repos.loanRepo)
	taxEngine := payrollService.NewTaxEngine(payrollService.DefaultTaxRules())
	coordinator := payrollService.NewCoordinator(repos.tx, repos.payrollRepo, repos.employeeRepo, resolver, taxEngine, scheduler, logger)
	reconciler := payrollService.NewReconciler(repos.tx, repos.payrollRepo, repos.loanRepo, logger)

	hub := sse.NewHub()
	payrollSvc := payrollService.WithEvents(
		payrollService.NewPayrollService(repos.tx, repos.payrollRepo, repos.employeeRepo, repos.loanRepo, coordinator, reconciler, logger),
		hub,
	)
	limitCalculator := loanService.NewLimitCalculator(repos.loanRepo, resolver)
	loanSvc := loanService.WithEvents(
		loanService.NewLoanService(repos.tx, repos.loanRepo, repos.employeeRepo, limitCalculator, logger),
		hub,
	)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)
	loanHandler := appHTTP.NewLoanHandler(loanSvc)
	eventHandler := appHTTP.NewEventHandler(hub)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       level,
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
		},
		logger,
		JWTService,
		payrollHandler,
		loanHandler,
		eventHandler,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server running", slog.String("addr", server.Addr), slog.String("storage", cfg.Storage.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		logger.Warn("using in-memory storage; data is lost on restart")
		return repositories{
			tx:           store,
			payrollRepo:  memory.NewPayrollRepository(store),
			loanRepo:     memory.NewLoanRepository(store),
			employeeRepo: memory.NewEmployeeRepository(store),
			close:        func() {},
		}, nil

	case config.DriverPostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return repositories{}, fmt.Errorf("connect to database: %w", err)
		}
		return repositories{
			tx:           postgresql.NewTransactor(db, logger),
			payrollRepo:  postgresql.NewPayrollRepository(db),
			loanRepo:     postgresql.NewLoanRepository(db),
			employeeRepo: postgresql.NewEmployeeRepository(db),
			close:        db.Close,
		}, nil
	}
	return repositories{}, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}
