package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var limitErr *loan.LimitExceededError
	if errors.As(err, &limitErr) {
		BusinessRuleViolation(w, "BORROWING_LIMIT_EXCEEDED", limitErr.Error(), limitErr.Details())
		return
	}

	switch {
	// Actor errors
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")
	case errors.Is(err, user.ErrUserIDRequired), errors.Is(err, user.ErrCompanyIDRequired):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrEmployeeIDRequired):
		BadRequest(w, "employee_id is required for callers without an employee record", nil)

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		BusinessRuleViolation(w, "EMPLOYEE_INACTIVE", err.Error(), nil)

	// Payroll domain errors
	case errors.Is(err, payroll.ErrComponentNotFound):
		NotFound(w, "Payroll component not found")
	case errors.Is(err, payroll.ErrStructureNotFound):
		NotFound(w, "Compensation structure not found")
	case errors.Is(err, payroll.ErrCycleNotFound):
		NotFound(w, "Payroll cycle not found")
	case errors.Is(err, payroll.ErrRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, payroll.ErrComponentCodeExists):
		Conflict(w, "Component code already exists")
	case errors.Is(err, payroll.ErrCycleOverlaps):
		Conflict(w, "Cycle overlaps an existing cycle")
	case errors.Is(err, payroll.ErrStructureComponentInvalid):
		BusinessRuleViolation(w, "INVALID_STRUCTURE_COMPONENT", err.Error(), nil)
	case errors.Is(err, payroll.ErrMultipleBasicComponents):
		BusinessRuleViolation(w, "MULTIPLE_BASIC_COMPONENTS", err.Error(), nil)
	case errors.Is(err, payroll.ErrNegativeNetPay):
		BusinessRuleViolation(w, "NEGATIVE_NET_PAY", err.Error(), nil)
	case errors.Is(err, payroll.ErrSystemComponentMissing):
		BusinessRuleViolation(w, "SYSTEM_COMPONENT_MISSING", err.Error(), nil)

	// Loan domain errors
	case errors.Is(err, loan.ErrLoanTypeNotFound):
		NotFound(w, "Loan type not found")
	case errors.Is(err, loan.ErrLoanNotFound):
		NotFound(w, "Loan not found")
	case errors.Is(err, loan.ErrAdvanceNotFound):
		NotFound(w, "Salary advance not found")
	case errors.Is(err, loan.ErrLoanTypeNameExists):
		Conflict(w, "Loan type name already exists")
	case errors.Is(err, loan.ErrLoanTypeInactive),
		errors.Is(err, loan.ErrAmountExceedsLoanType),
		errors.Is(err, loan.ErrTenureExceedsLoanType):
		BusinessRuleViolation(w, "LOAN_TYPE_LIMIT", err.Error(), nil)

	// Categories
	case errors.Is(err, apperror.ErrStateConflict):
		Conflict(w, err.Error())
	case errors.Is(err, apperror.ErrBusinessRuleViolation):
		BusinessRuleViolation(w, "BUSINESS_RULE_VIOLATION", err.Error(), nil)
	case errors.Is(err, apperror.ErrPersistence):
		slog.Error("persistence failure", "error", err)
		PersistenceFailure(w)

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
