package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewPayrollRepository(store)

	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := repo.CreateComponent(ctx, payroll.Component{CompanyID: "co-1", Code: "BASIC", Name: "Basic", Category: payroll.CategoryBasic})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	components, err := repo.ListComponents(ctx, "co-1")
	require.NoError(t, err)
	assert.Empty(t, components)
}

func TestWithinTransactionCommitsAndNests(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewPayrollRepository(store)

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.CreateComponent(ctx, payroll.Component{CompanyID: "co-1", Code: "BASIC", Name: "Basic", Category: payroll.CategoryBasic}); err != nil {
			return err
		}
		return store.WithinTransaction(ctx, func(ctx context.Context) error {
			_, err := repo.CreateComponent(ctx, payroll.Component{CompanyID: "co-1", Code: "HOUSING", Name: "Housing", Category: payroll.CategoryAllowance})
			return err
		})
	})
	require.NoError(t, err)

	components, err := repo.ListComponents(ctx, "co-1")
	require.NoError(t, err)
	assert.Len(t, components, 2)
}

func TestFailOnSkipsThenFails(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewPayrollRepository(store)

	driverErr := errors.New("disk full")
	store.FailOn("CreateCycle", 1, driverErr)

	_, err := repo.CreateCycle(ctx, payroll.Cycle{CompanyID: "co-1"})
	require.NoError(t, err)

	_, err = repo.CreateCycle(ctx, payroll.Cycle{CompanyID: "co-1"})
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.ErrorIs(t, err, driverErr)

	_, err = repo.CreateCycle(ctx, payroll.Cycle{CompanyID: "co-1"})
	assert.NoError(t, err)
}

func TestCreatePostingRejectsSecondPostingInMonth(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewLoanRepository(store)

	posting := loan.RepaymentPosting{
		CompanyID:  "co-1",
		DebtType:   payroll.DebtTypeLoan,
		DebtID:     "loan-1",
		Amount:     decimal.NewFromInt(100),
		PostedDate: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	_, err := repo.CreatePosting(ctx, posting)
	require.NoError(t, err)

	posting.PostedDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	_, err = repo.CreatePosting(ctx, posting)
	assert.ErrorIs(t, err, loan.ErrPostingExists)

	has, err := repo.HasPostingInMonth(ctx, payroll.DebtTypeLoan, "loan-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasPostingInMonth(ctx, payroll.DebtTypeLoan, "loan-1", time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestUpsertRunKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutEmployee(employee.Employee{ID: "emp-1", CompanyID: "co-1", EmployeeCode: "E001", FullName: "Ada"})
	repo := NewPayrollRepository(store)

	first, err := repo.UpsertRun(ctx, payroll.Run{CycleID: "cy-1", EmployeeID: "emp-1", CompanyID: "co-1", Net: decimal.NewFromInt(10)})
	require.NoError(t, err)

	second, err := repo.UpsertRun(ctx, payroll.Run{CycleID: "cy-1", EmployeeID: "emp-1", CompanyID: "co-1", Net: decimal.NewFromInt(20)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	runs, err := repo.ListRunsByCycle(ctx, "cy-1", "co-1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Net.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, runs[0].EmployeeCode)
	assert.Equal(t, "E001", *runs[0].EmployeeCode)
}

func TestHasOverlappingCycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewPayrollRepository(store)

	_, err := repo.CreateCycle(ctx, payroll.Cycle{
		CompanyID: "co-1",
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	overlap, err := repo.HasOverlappingCycle(ctx, "co-1", time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = repo.HasOverlappingCycle(ctx, "co-1", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, overlap)

	overlap, err = repo.HasOverlappingCycle(ctx, "co-2", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, overlap)
}
