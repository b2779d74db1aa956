package loan

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

var (
	ErrLoanTypeNotFound      = errors.New("loan type not found")
	ErrLoanTypeInactive      = errors.New("loan type is not active")
	ErrLoanTypeNameExists    = errors.New("loan type name already exists")
	ErrLoanNotFound          = errors.New("loan not found")
	ErrAdvanceNotFound       = errors.New("salary advance not found")
	ErrAmountExceedsLoanType = errors.New("amount exceeds loan type maximum")
	ErrTenureExceedsLoanType = errors.New("tenure exceeds loan type maximum")

	// ErrPostingExists is a state conflict: the debt was already collected
	// in that calendar month.
	ErrPostingExists = fmt.Errorf("%w: repayment already posted for this debt in this month", apperror.ErrStateConflict)
)

// LimitExceededError is returned when an advance would push monthly debt
// repayments above the borrowing limit.
type LimitExceededError struct {
	Limit     BorrowingLimit
	Requested decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("monthly repayment %s exceeds available borrowing limit %s (max %s, committed %s)",
		e.Requested.StringFixed(2), e.Limit.Available.StringFixed(2),
		e.Limit.MaxLimit.StringFixed(2), e.Limit.Committed.StringFixed(2))
}

func (e *LimitExceededError) Unwrap() error {
	return apperror.ErrBusinessRuleViolation
}

// Details returns the figures a caller needs to display the rejection.
func (e *LimitExceededError) Details() map[string]string {
	return map[string]string{
		"gross_salary":                  e.Limit.GrossSalary.StringFixed(2),
		"max_limit":                     e.Limit.MaxLimit.StringFixed(2),
		"committed_monthly_obligations": e.Limit.Committed.StringFixed(2),
		"available_amount":              e.Limit.Available.StringFixed(2),
		"requested_monthly_repayment":   e.Requested.StringFixed(2),
	}
}
