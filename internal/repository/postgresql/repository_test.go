package postgresql_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/ids"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL, which must point at a database
// migrated with migrations/. Tests are skipped when it is unset.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, `
		TRUNCATE TABLE repayment_postings, salary_advances, loans, loan_types,
			payroll_line_items, payroll_runs, payroll_cycles, compensation_structures,
			payroll_components, employees CASCADE
	`)
	require.NoError(t, err)
	return db
}

type fixture struct {
	companyID  string
	employeeID string
	cycle      payroll.Cycle
	run        payroll.Run
	loan       loan.Loan
}

func seed(t *testing.T, db *database.DB) fixture {
	t.Helper()
	ctx := context.Background()

	f := fixture{companyID: ids.NewID(), employeeID: ids.NewID()}
	_, err := db.Exec(ctx, `
		INSERT INTO employees (id, company_id, employee_code, full_name, hire_date)
		VALUES ($1, $2, 'E001', 'Ada Obi', '2024-01-01')
	`, f.employeeID, f.companyID)
	require.NoError(t, err)

	payrollRepo := postgresql.NewPayrollRepository(db)
	f.cycle, err = payrollRepo.CreateCycle(ctx, payroll.Cycle{
		CompanyID:   f.companyID,
		Label:       "March 2026",
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		PaymentDate: time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC),
		Status:      payroll.CycleStatusOpen,
	})
	require.NoError(t, err)

	f.run, err = payrollRepo.UpsertRun(ctx, payroll.Run{
		CycleID:          f.cycle.ID,
		EmployeeID:       f.employeeID,
		CompanyID:        f.companyID,
		Basic:            decimal.NewFromInt(100000),
		TotalEarnings:    decimal.NewFromInt(100000),
		TotalDeductions:  decimal.NewFromInt(20000),
		Gross:            decimal.NewFromInt(100000),
		Net:              decimal.NewFromInt(80000),
		PensionEmployer:  decimal.Zero,
		SettlementStatus: payroll.SettlementPending,
	})
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.loan, err = postgresql.NewLoanRepository(db).CreateLoan(ctx, loan.Loan{
		CompanyID:          f.companyID,
		EmployeeID:         f.employeeID,
		DisbursedAmount:    decimal.NewFromInt(60000),
		InterestAmount:     decimal.Zero,
		Principal:          decimal.NewFromInt(60000),
		TenureMonths:       3,
		MonthlyInstallment: decimal.NewFromInt(20000),
		RemainingBalance:   decimal.NewFromInt(60000),
		Status:             loan.LoanStatusActive,
		RepaymentStartDate: &start,
	})
	require.NoError(t, err)
	return f
}

func posting(f fixture, posted time.Time) loan.RepaymentPosting {
	return loan.RepaymentPosting{
		Reference:  ids.Reference(posted),
		CompanyID:  f.companyID,
		DebtType:   payroll.DebtTypeLoan,
		DebtID:     f.loan.ID,
		RunID:      f.run.ID,
		CycleID:    f.cycle.ID,
		EmployeeID: f.employeeID,
		Amount:     decimal.NewFromInt(20000),
		PostedDate: posted,
	}
}

func TestPostingMonthIsUnique(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	ctx := context.Background()
	repo := postgresql.NewLoanRepository(db)

	_, err := repo.CreatePosting(ctx, posting(f, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	has, err := repo.HasPostingInMonth(ctx, payroll.DebtTypeLoan, f.loan.ID, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, has)

	_, err = repo.CreatePosting(ctx, posting(f, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, loan.ErrPostingExists)

	_, err = repo.CreatePosting(ctx, posting(f, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
}

func TestTransactorRollsBack(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	ctx := context.Background()
	tx := postgresql.NewTransactor(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	repo := postgresql.NewLoanRepository(db)

	boom := errors.New("boom")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		l, err := repo.GetLoanForUpdate(ctx, f.loan.ID, f.companyID)
		if err != nil {
			return err
		}
		l.RemainingBalance = decimal.NewFromInt(40000)
		if err := repo.UpdateLoan(ctx, l); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	l, err := repo.GetLoanByID(ctx, f.loan.ID, f.companyID)
	require.NoError(t, err)
	assert.True(t, l.RemainingBalance.Equal(decimal.NewFromInt(60000)))
}

func TestTransactorWrapsDriverFailures(t *testing.T) {
	db := openTestDB(t)
	tx := postgresql.NewTransactor(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err := tx.WithinTransaction(canceled, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)

	// A failed statement aborts the transaction, so COMMIT rolls back.
	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		_, _ = postgresql.GetQuerier(ctx, db).Exec(ctx, `SELECT 1/0`)
		return nil
	})
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.ErrorIs(t, err, pgx.ErrTxCommitRollback)
}

func TestUpsertRunKeepsTimestampWhenUnchanged(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	same, err := repo.UpsertRun(ctx, f.run)
	require.NoError(t, err)
	assert.True(t, same.UpdatedAt.Equal(f.run.UpdatedAt))

	changed := f.run
	changed.Net = decimal.NewFromInt(79000)
	changed.TotalDeductions = decimal.NewFromInt(21000)
	changed, err = repo.UpsertRun(ctx, changed)
	require.NoError(t, err)
	assert.True(t, changed.UpdatedAt.After(f.run.UpdatedAt))
}

func TestUpsertRunKeepsIdentity(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	again := f.run
	again.ID = ""
	again.Net = decimal.NewFromInt(75000)
	again.TotalDeductions = decimal.NewFromInt(25000)
	updated, err := repo.UpsertRun(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, f.run.ID, updated.ID)

	runs, err := repo.ListRunsByCycle(ctx, f.cycle.ID, f.companyID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Net.Equal(decimal.NewFromInt(75000)))
	require.NotNil(t, runs[0].EmployeeCode)
	assert.Equal(t, "E001", *runs[0].EmployeeCode)
}

func TestHasOverlappingCycle(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(db)

	overlaps, err := repo.HasOverlappingCycle(ctx, f.companyID,
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, overlaps)

	overlaps, err = repo.HasOverlappingCycle(ctx, f.companyID,
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, overlaps)
}
