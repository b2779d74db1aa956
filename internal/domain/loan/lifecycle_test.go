package loan

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanLifecycle(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	l := Loan{ID: "l-1", Status: LoanStatusPending, RemainingBalance: decimal.NewFromInt(30000)}

	_, err := l.ApplyRepayment(decimal.NewFromInt(100), now)
	assert.True(t, apperror.IsStateConflict(err))

	l, err = l.Approve("u-1", now, start)
	require.NoError(t, err)
	assert.Equal(t, LoanStatusApproved, l.Status)
	assert.Equal(t, start, *l.RepaymentStartDate)

	_, err = l.Reject("u-1", now, "late")
	assert.True(t, apperror.IsStateConflict(err))

	l, err = l.ApplyRepayment(decimal.NewFromInt(20000), now)
	require.NoError(t, err)
	assert.Equal(t, LoanStatusActive, l.Status)
	assert.True(t, l.RemainingBalance.Equal(decimal.NewFromInt(10000)))

	_, err = l.ApplyRepayment(decimal.NewFromInt(10001), now)
	assert.True(t, apperror.IsStateConflict(err))

	l, err = l.ApplyRepayment(decimal.NewFromInt(10000), now)
	require.NoError(t, err)
	assert.Equal(t, LoanStatusCompleted, l.Status)
	assert.False(t, l.IsRepayable())
}

func TestRejectedLoanKeepsReason(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	l, err := Loan{ID: "l-2", Status: LoanStatusPending}.Reject("u-1", now, "insufficient tenure")
	require.NoError(t, err)
	assert.Equal(t, LoanStatusRejected, l.Status)
	assert.Equal(t, "insufficient tenure", *l.RejectionReason)

	_, err = l.Approve("u-1", now, now)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestAdvanceLifecycle(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	a := SalaryAdvance{ID: "a-1", Status: AdvanceStatusPending, Amount: decimal.NewFromInt(50000)}

	a, err := a.Approve("u-1", now, now)
	require.NoError(t, err)

	a, err = a.ApplyRepayment(decimal.NewFromInt(30000), now)
	require.NoError(t, err)
	assert.Equal(t, AdvanceStatusApproved, a.Status)
	assert.True(t, a.Outstanding().Equal(decimal.NewFromInt(20000)))

	a, err = a.ApplyRepayment(decimal.NewFromInt(20000), now)
	require.NoError(t, err)
	assert.Equal(t, AdvanceStatusDeducted, a.Status)

	_, err = a.ApplyRepayment(decimal.NewFromInt(1), now)
	assert.True(t, apperror.IsStateConflict(err))
}

func TestMonthOf(t *testing.T) {
	got := MonthOf(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
}
