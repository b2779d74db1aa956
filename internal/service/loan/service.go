package loan

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/fixtures"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type LoanServiceImpl struct {
	tx           database.Transactor
	loanRepo     loan.LoanRepository
	employeeRepo employee.EmployeeRepository
	limits       *LimitCalculator
	logger       *slog.Logger
	now          func() time.Time
}

func NewLoanService(
	tx database.Transactor,
	loanRepo loan.LoanRepository,
	employeeRepo employee.EmployeeRepository,
	limits *LimitCalculator,
	logger *slog.Logger,
) loan.LoanService {
	return &LoanServiceImpl{
		tx:           tx,
		loanRepo:     loanRepo,
		employeeRepo: employeeRepo,
		limits:       limits,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func requirePermission(actor user.Actor, permission user.Permission) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.Can(permission) {
		return user.ErrInsufficientPermissions
	}
	return nil
}

// targetEmployee resolves whose debt a request is about. Callers without
// loan.view_all may only act for themselves.
func targetEmployee(actor user.Actor, requested string) (string, error) {
	if requested == "" {
		if actor.EmployeeID == nil || *actor.EmployeeID == "" {
			return "", user.ErrEmployeeIDRequired
		}
		return *actor.EmployeeID, nil
	}
	if actor.Can(user.PermissionLoanViewAll) {
		return requested, nil
	}
	if actor.EmployeeID != nil && *actor.EmployeeID == requested {
		return requested, nil
	}
	return "", user.ErrInsufficientPermissions
}

// canView reports whether actor may read a debt owned by employeeID.
func canView(actor user.Actor, employeeID string) bool {
	if actor.Can(user.PermissionLoanViewAll) {
		return true
	}
	return actor.Can(user.PermissionLoanViewOwn) && actor.EmployeeID != nil && *actor.EmployeeID == employeeID
}

// firstOfNextMonth is the default repayment start for approvals.
func firstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

func (s *LoanServiceImpl) repaymentStart(req loan.ApproveRequest, at time.Time) time.Time {
	if req.RepaymentStartDate != nil {
		start, _ := validator.IsValidDate(*req.RepaymentStartDate)
		return start
	}
	return firstOfNextMonth(at)
}

// ========== LOAN TYPES ==========

func (s *LoanServiceImpl) CreateLoanType(ctx context.Context, actor user.Actor, req loan.CreateLoanTypeRequest) (loan.LoanTypeResponse, error) {
	if err := requirePermission(actor, user.PermissionLoanManage); err != nil {
		return loan.LoanTypeResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return loan.LoanTypeResponse{}, err
	}

	created, err := s.loanRepo.CreateLoanType(ctx, loan.LoanType{
		CompanyID:       actor.CompanyID,
		Name:            req.Name,
		MaxAmount:       req.MaxAmount,
		MaxTenureMonths: req.MaxTenureMonths,
		InterestRate:    req.InterestRate,
		Active:          true,
	})
	if err != nil {
		return loan.LoanTypeResponse{}, err
	}
	return created.ToResponse(), nil
}

func (s *LoanServiceImpl) ListLoanTypes(ctx context.Context, actor user.Actor) ([]loan.LoanTypeResponse, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	types, err := s.loanRepo.ListLoanTypes(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	out := make([]loan.LoanTypeResponse, 0, len(types))
	for _, t := range types {
		out = append(out, t.ToResponse())
	}
	return out, nil
}

// SeedDefaultLoanTypes creates the standard loan products the company does
// not have yet, matched by name.
func (s *LoanServiceImpl) SeedDefaultLoanTypes(ctx context.Context, actor user.Actor) ([]loan.LoanTypeResponse, error) {
	if err := requirePermission(actor, user.PermissionLoanManage); err != nil {
		return nil, err
	}

	var created []loan.LoanTypeResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created = nil
		existing, err := s.loanRepo.ListLoanTypes(ctx, actor.CompanyID)
		if err != nil {
			return err
		}
		names := make(map[string]bool, len(existing))
		for _, t := range existing {
			names[t.Name] = true
		}

		for _, def := range fixtures.GetDefaultLoanTypes(actor.CompanyID) {
			if names[def.Name] {
				continue
			}
			t, err := s.loanRepo.CreateLoanType(ctx, def)
			if err != nil {
				return err
			}
			created = append(created, t.ToResponse())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ========== LOANS ==========

// ApplyLoan records a pending loan. Total repayable is the amount plus flat
// interest over the tenure; the installment is rounded up so the last
// cycle never collects more than is left.
func (s *LoanServiceImpl) ApplyLoan(ctx context.Context, actor user.Actor, req loan.ApplyLoanRequest) (loan.LoanResponse, error) {
	if err := requirePermission(actor, user.PermissionLoanApply); err != nil {
		return loan.LoanResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return loan.LoanResponse{}, err
	}
	employeeID, err := targetEmployee(actor, req.EmployeeID)
	if err != nil {
		return loan.LoanResponse{}, err
	}

	var created loan.Loan
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		emp, err := s.employeeRepo.GetByID(ctx, employeeID, actor.CompanyID)
		if err != nil {
			return err
		}
		if emp.EmploymentStatus != employee.EmploymentStatusActive {
			return employee.ErrEmployeeInactive
		}
		loanType, err := s.loanRepo.GetLoanTypeByID(ctx, req.LoanTypeID, actor.CompanyID)
		if err != nil {
			return err
		}
		if !loanType.Active {
			return loan.ErrLoanTypeInactive
		}
		if req.Amount.GreaterThan(loanType.MaxAmount) {
			return loan.ErrAmountExceedsLoanType
		}
		if req.TenureMonths > loanType.MaxTenureMonths {
			return loan.ErrTenureExceedsLoanType
		}

		tenure := decimal.NewFromInt(int64(req.TenureMonths))
		interest := req.Amount.
			Mul(loanType.InterestRate).Div(decimal.NewFromInt(100)).
			Mul(tenure).Div(decimal.NewFromInt(12)).
			Round(2)
		principal := req.Amount.Add(interest)

		created, err = s.loanRepo.CreateLoan(ctx, loan.Loan{
			CompanyID:          actor.CompanyID,
			EmployeeID:         employeeID,
			LoanTypeID:         loanType.ID,
			DisbursedAmount:    req.Amount,
			InterestAmount:     interest,
			Principal:          principal,
			TenureMonths:       req.TenureMonths,
			MonthlyInstallment: principal.Div(tenure).RoundCeil(2),
			RemainingBalance:   principal,
			Status:             loan.LoanStatusPending,
			Purpose:            req.Purpose,
		})
		return err
	})
	if err != nil {
		return loan.LoanResponse{}, err
	}

	s.logger.InfoContext(ctx, "loan application created", "loan_id", created.ID, "employee_id", employeeID, "principal", created.Principal.StringFixed(2))
	return created.ToResponse(), nil
}

func (s *LoanServiceImpl) ApproveLoan(ctx context.Context, actor user.Actor, req loan.ApproveRequest) (loan.LoanResponse, error) {
	if err := requirePermission(actor, user.PermissionLoanApprove); err != nil {
		return loan.LoanResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return loan.LoanResponse{}, err
	}

	var updated loan.Loan
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		l, err := s.loanRepo.GetLoanForUpdate(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		at := s.now()
		updated, err = l.Approve(actor.UserID, at, s.repaymentStart(req, at))
		if err != nil {
			return err
		}
		return s.loanRepo.UpdateLoan(ctx, updated)
	})
	if err != nil {
		return loan.LoanResponse{}, err
	}

	s.logger.InfoContext(ctx, "loan approved", "loan_id", updated.ID, "approved_by", actor.UserID)
	return updated.ToResponse(), nil
}

func (s *LoanServiceImpl) RejectLoan(ctx context.Context, actor user.Actor, req loan.RejectRequest) (loan.LoanResponse, error) {
	if err := requirePermission(actor, user.PermissionLoanApprove); err != nil {
		return loan.LoanResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return loan.LoanResponse{}, err
	}

	var updated loan.Loan
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		l, err := s.loanRepo.GetLoanForUpdate(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		updated, err = l.Reject(actor.UserID, s.now(), req.Reason)
		if err != nil {
			return err
		}
		return s.loanRepo.UpdateLoan(ctx, updated)
	})
	if err != nil {
		return loan.LoanResponse{}, err
	}
	return updated.ToResponse(), nil
}

func (s *LoanServiceImpl) GetLoan(ctx context.Context, actor user.Actor, id string) (loan.LoanResponse, error) {
	if err := actor.Validate(); err != nil {
		return loan.LoanResponse{}, err
	}
	l, err := s.loanRepo.GetLoanByID(ctx, id, actor.CompanyID)
	if err != nil {
		return loan.LoanResponse{}, err
	}
	if !canView(actor, l.EmployeeID) {
		return loan.LoanResponse{}, user.ErrInsufficientPermissions
	}
	return l.ToResponse(), nil
}

func (s *LoanServiceImpl) scopeFilter(actor user.Actor, filter loan.DebtFilter) (loan.DebtFilter, error) {
	if err := actor.Validate(); err != nil {
		return filter, err
	}
	if filter.Status != nil && !loan.LoanStatus(*filter.Status).IsValid() && !loan.AdvanceStatus(*filter.Status).IsValid() {
		var errs validator.ValidationErrors
		errs.Add("status", "unknown status value")
		return filter, errs
	}
	if actor.Can(user.PermissionLoanViewAll) {
		return filter, nil
	}
	if !actor.Can(user.PermissionLoanViewOwn) || actor.EmployeeID == nil {
		return filter, user.ErrInsufficientPermissions
	}
	own := *actor.EmployeeID
	filter.EmployeeID = &own
	return filter, nil
}

func (s *LoanServiceImpl) ListLoans(ctx context.Context, actor user.Actor, filter loan.DebtFilter) ([]loan.LoanResponse, error) {
	filter, err := s.scopeFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	loans, err := s.loanRepo.ListLoans(ctx, actor.CompanyID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]loan.LoanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, l.ToResponse())
	}
	return out, nil
}

func (s *LoanServiceImpl) ListLoanPostings(ctx context.Context, actor user.Actor, loanID string) ([]loan.PostingResponse, error) {
	l, err := s.GetLoan(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	return s.postings(ctx, actor, payroll.DebtTypeLoan, l.ID)
}

func (s *LoanServiceImpl) postings(ctx context.Context, actor user.Actor, debtType payroll.DebtType, debtID string) ([]loan.PostingResponse, error) {
	postings, err := s.loanRepo.ListPostingsByDebt(ctx, debtType, debtID, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	out := make([]loan.PostingResponse, 0, len(postings))
	for _, p := range postings {
		out = append(out, p.ToResponse())
	}
	return out, nil
}

// ========== ADVANCES ==========

// RequestAdvance records a pending advance after checking that its implied
// monthly deduction fits under the borrowing limit.
func (s *LoanServiceImpl) RequestAdvance(ctx context.Context, actor user.Actor, req loan.RequestAdvanceRequest) (loan.AdvanceResponse, error) {
	if err := requirePermission(actor, user.PermissionLoanApply); err != nil {
		return loan.AdvanceResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return loan.AdvanceResponse{}, err
	}
	employeeID, err := targetEmployee(actor, req.EmployeeID)
	if err != nil {
		return loan.AdvanceResponse{}, err
	}

	monthly := req.Amount.Div(decimal.NewFromInt(int64(req.RepaymentMonths))).RoundCeil(2)

	var created loan.SalaryAdvance
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		emp, err := s.employeeRepo.GetByID(ctx, employeeID, actor.CompanyID)
		if err != nil {
			return err
		}
		if emp.EmploymentStatus != employee.EmploymentStatusActive {
			return employee.ErrEmployeeInactive
		}
		if _, err := s.limits.CheckAdvance(ctx, actor.CompanyID, employeeID, monthly, s.now()); err != nil {
			return err
		}

		created, err = s.loanRepo.CreateAdvance(ctx, loan.SalaryAdvance{
			CompanyID:        actor.CompanyID,
			EmployeeID:       employeeID,
			Amount:           req.Amount,
			RepaymentMonths:  req.RepaymentMonths,
			MonthlyDeduction: monthly,
			DeductedAmount:   decimal.Zero,
			Status:           loan.AdvanceStatusPending,
			Reason:           req.Reason,
		})
		return err
	})
	if err != nil {
		return loan.AdvanceResponse{}, err
	}

	s.logger.InfoContext(ctx, "salary advance requested", "advance_id", created.ID, "employee_id", employeeID, "amount", created.Amount.StringFixed(2))
	return created.ToResponse(), nil
}

func (s *LoanServiceImpl) ApproveAdvance(ctx context.Context, actor user.Actor, req loan.ApproveRequest) (loan.AdvanceResponse, error) {
	if err := requirePermission(actor, user.PermissionLoanApprove); err != nil {
		return loan.AdvanceResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return loan.AdvanceResponse{}, err
	}

	var updated loan.SalaryAdvance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		a, err := s.loanRepo.GetAdvanceForUpdate(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		at := s.now()
		updated, err = a.Approve(actor.UserID, at, s.repaymentStart(req, at))
		if err != nil {
			return err
		}
		return s.loanRepo.UpdateAdvance(ctx, updated)
	})
	if err != nil {
		return loan.AdvanceResponse{}, err
	}

	s.logger.InfoContext(ctx, "salary advance approved", "advance_id", updated.ID, "approved_by", actor.UserID)
	return updated.ToResponse(), nil
}

func (s *LoanServiceImpl) RejectAdvance(ctx context.Context, actor user.Actor, req loan.RejectRequest) (loan.AdvanceResponse, error) {
	if err := requirePermission(actor, user.PermissionLoanApprove); err != nil {
		return loan.AdvanceResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return loan.AdvanceResponse{}, err
	}

	var updated loan.SalaryAdvance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		a, err := s.loanRepo.GetAdvanceForUpdate(ctx, req.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		updated, err = a.Reject(actor.UserID, s.now(), req.Reason)
		if err != nil {
			return err
		}
		return s.loanRepo.UpdateAdvance(ctx, updated)
	})
	if err != nil {
		return loan.AdvanceResponse{}, err
	}
	return updated.ToResponse(), nil
}

func (s *LoanServiceImpl) GetAdvance(ctx context.Context, actor user.Actor, id string) (loan.AdvanceResponse, error) {
	if err := actor.Validate(); err != nil {
		return loan.AdvanceResponse{}, err
	}
	a, err := s.loanRepo.GetAdvanceByID(ctx, id, actor.CompanyID)
	if err != nil {
		return loan.AdvanceResponse{}, err
	}
	if !canView(actor, a.EmployeeID) {
		return loan.AdvanceResponse{}, user.ErrInsufficientPermissions
	}
	return a.ToResponse(), nil
}

func (s *LoanServiceImpl) ListAdvances(ctx context.Context, actor user.Actor, filter loan.DebtFilter) ([]loan.AdvanceResponse, error) {
	filter, err := s.scopeFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	advances, err := s.loanRepo.ListAdvances(ctx, actor.CompanyID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]loan.AdvanceResponse, 0, len(advances))
	for _, a := range advances {
		out = append(out, a.ToResponse())
	}
	return out, nil
}

func (s *LoanServiceImpl) ListAdvancePostings(ctx context.Context, actor user.Actor, advanceID string) ([]loan.PostingResponse, error) {
	a, err := s.GetAdvance(ctx, actor, advanceID)
	if err != nil {
		return nil, err
	}
	return s.postings(ctx, actor, payroll.DebtTypeAdvance, a.ID)
}

// ========== LIMIT ==========

func (s *LoanServiceImpl) GetBorrowingLimit(ctx context.Context, actor user.Actor, employeeID string) (loan.BorrowingLimitResponse, error) {
	if err := actor.Validate(); err != nil {
		return loan.BorrowingLimitResponse{}, err
	}
	if !canView(actor, employeeID) {
		return loan.BorrowingLimitResponse{}, user.ErrInsufficientPermissions
	}
	if _, err := s.employeeRepo.GetByID(ctx, employeeID, actor.CompanyID); err != nil {
		return loan.BorrowingLimitResponse{}, err
	}

	limit, err := s.limits.BorrowingLimit(ctx, actor.CompanyID, employeeID, s.now())
	if err != nil {
		return loan.BorrowingLimitResponse{}, err
	}
	return limit.ToResponse(), nil
}
