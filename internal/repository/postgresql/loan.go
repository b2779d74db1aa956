package postgresql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/ids"
	"github.com/jackc/pgx/v5"
)

type loanRepository struct {
	db *database.DB
}

func NewLoanRepository(db *database.DB) loan.LoanRepository {
	return &loanRepository{db: db}
}

// debtFilterClause appends the optional employee/status filter to a WHERE
// clause whose first parameter is the company ID.
func debtFilterClause(filter loan.DebtFilter) (string, []any) {
	var conditions []string
	var args []any
	argIndex := 2

	if filter.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", argIndex))
		args = append(args, *filter.EmployeeID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(conditions, " AND "), args
}

// ========== LOAN TYPES ==========

const loanTypeColumns = `id, company_id, name, max_amount, max_tenure_months, interest_rate, active, created_at`

func scanLoanType(row pgx.Row) (loan.LoanType, error) {
	var lt loan.LoanType
	err := row.Scan(&lt.ID, &lt.CompanyID, &lt.Name, &lt.MaxAmount, &lt.MaxTenureMonths, &lt.InterestRate, &lt.Active, &lt.CreatedAt)
	return lt, err
}

func (r *loanRepository) CreateLoanType(ctx context.Context, loanType loan.LoanType) (loan.LoanType, error) {
	q := GetQuerier(ctx, r.db)

	if loanType.ID == "" {
		loanType.ID = ids.NewID()
	}

	query := `
		INSERT INTO loan_types (id, company_id, name, max_amount, max_tenure_months, interest_rate, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + loanTypeColumns

	lt, err := scanLoanType(q.QueryRow(ctx, query,
		loanType.ID, loanType.CompanyID, loanType.Name, loanType.MaxAmount,
		loanType.MaxTenureMonths, loanType.InterestRate, loanType.Active,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_loan_type_name") {
			return loan.LoanType{}, loan.ErrLoanTypeNameExists
		}
		return loan.LoanType{}, apperror.Persistence("create loan type", err)
	}
	return lt, nil
}

func (r *loanRepository) GetLoanTypeByID(ctx context.Context, id string, companyID string) (loan.LoanType, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + loanTypeColumns + ` FROM loan_types WHERE id = $1 AND company_id = $2`

	lt, err := scanLoanType(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return loan.LoanType{}, loan.ErrLoanTypeNotFound
		}
		return loan.LoanType{}, apperror.Persistence("get loan type", err)
	}
	return lt, nil
}

func (r *loanRepository) ListLoanTypes(ctx context.Context, companyID string) ([]loan.LoanType, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+loanTypeColumns+` FROM loan_types WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, apperror.Persistence("list loan types", err)
	}
	defer rows.Close()

	var types []loan.LoanType
	for rows.Next() {
		lt, err := scanLoanType(rows)
		if err != nil {
			return nil, apperror.Persistence("scan loan type", err)
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

// ========== LOANS ==========

const loanColumns = `
	id, company_id, employee_id, COALESCE(loan_type_id::text, ''), disbursed_amount, interest_amount,
	principal, tenure_months, monthly_installment, remaining_balance, status, purpose,
	repayment_start_date, repayment_end_date, approved_by, approved_at, rejected_by, rejected_at,
	rejection_reason, created_at, updated_at`

func scanLoan(row pgx.Row) (loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.EmployeeID, &l.LoanTypeID, &l.DisbursedAmount, &l.InterestAmount,
		&l.Principal, &l.TenureMonths, &l.MonthlyInstallment, &l.RemainingBalance, &l.Status, &l.Purpose,
		&l.RepaymentStartDate, &l.RepaymentEndDate, &l.ApprovedBy, &l.ApprovedAt, &l.RejectedBy, &l.RejectedAt,
		&l.RejectionReason, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func (r *loanRepository) queryLoans(ctx context.Context, query string, args ...any) ([]loan.Loan, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Persistence("list loans", err)
	}
	defer rows.Close()

	var loans []loan.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, apperror.Persistence("scan loan", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (r *loanRepository) CreateLoan(ctx context.Context, l loan.Loan) (loan.Loan, error) {
	q := GetQuerier(ctx, r.db)

	if l.ID == "" {
		l.ID = ids.NewID()
	}

	query := `
		INSERT INTO loans (
			id, company_id, employee_id, loan_type_id, disbursed_amount, interest_amount, principal,
			tenure_months, monthly_installment, remaining_balance, status, purpose,
			repayment_start_date, repayment_end_date
		) VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + loanColumns

	created, err := scanLoan(q.QueryRow(ctx, query,
		l.ID, l.CompanyID, l.EmployeeID, l.LoanTypeID, l.DisbursedAmount, l.InterestAmount, l.Principal,
		l.TenureMonths, l.MonthlyInstallment, l.RemainingBalance, l.Status, l.Purpose,
		l.RepaymentStartDate, l.RepaymentEndDate,
	))
	if err != nil {
		return loan.Loan{}, apperror.Persistence("create loan", err)
	}
	return created, nil
}

func (r *loanRepository) getLoan(ctx context.Context, id string, companyID string, forUpdate bool) (loan.Loan, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 AND company_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	l, err := scanLoan(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return loan.Loan{}, loan.ErrLoanNotFound
		}
		return loan.Loan{}, apperror.Persistence("get loan", err)
	}
	return l, nil
}

func (r *loanRepository) GetLoanByID(ctx context.Context, id string, companyID string) (loan.Loan, error) {
	return r.getLoan(ctx, id, companyID, false)
}

func (r *loanRepository) GetLoanForUpdate(ctx context.Context, id string, companyID string) (loan.Loan, error) {
	return r.getLoan(ctx, id, companyID, true)
}

func (r *loanRepository) ListLoans(ctx context.Context, companyID string, filter loan.DebtFilter) ([]loan.Loan, error) {
	clause, args := debtFilterClause(filter)
	query := `SELECT ` + loanColumns + ` FROM loans WHERE company_id = $1` + clause + ` ORDER BY created_at DESC, id DESC`
	return r.queryLoans(ctx, query, append([]any{companyID}, args...)...)
}

func (r *loanRepository) ListRepayableLoans(ctx context.Context, employeeID string, companyID string) ([]loan.Loan, error) {
	query := `SELECT ` + loanColumns + `
		FROM loans
		WHERE employee_id = $1 AND company_id = $2
			AND status IN ('approved', 'active') AND remaining_balance > 0
		ORDER BY id
	`
	return r.queryLoans(ctx, query, employeeID, companyID)
}

func (r *loanRepository) UpdateLoan(ctx context.Context, l loan.Loan) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE loans
		SET remaining_balance = $1, status = $2, repayment_start_date = $3, repayment_end_date = $4,
			approved_by = $5, approved_at = $6, rejected_by = $7, rejected_at = $8,
			rejection_reason = $9, updated_at = NOW()
		WHERE id = $10 AND company_id = $11
	`
	tag, err := q.Exec(ctx, query,
		l.RemainingBalance, l.Status, l.RepaymentStartDate, l.RepaymentEndDate,
		l.ApprovedBy, l.ApprovedAt, l.RejectedBy, l.RejectedAt,
		l.RejectionReason, l.ID, l.CompanyID,
	)
	if err != nil {
		return apperror.Persistence("update loan", err)
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrLoanNotFound
	}
	return nil
}

// ========== ADVANCES ==========

const advanceColumns = `
	id, company_id, employee_id, amount, repayment_months, monthly_deduction, deducted_amount,
	status, reason, repayment_start_date, approved_by, approved_at, rejected_by, rejected_at,
	rejection_reason, created_at, updated_at`

func scanAdvance(row pgx.Row) (loan.SalaryAdvance, error) {
	var a loan.SalaryAdvance
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.EmployeeID, &a.Amount, &a.RepaymentMonths, &a.MonthlyDeduction, &a.DeductedAmount,
		&a.Status, &a.Reason, &a.RepaymentStartDate, &a.ApprovedBy, &a.ApprovedAt, &a.RejectedBy, &a.RejectedAt,
		&a.RejectionReason, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *loanRepository) queryAdvances(ctx context.Context, query string, args ...any) ([]loan.SalaryAdvance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Persistence("list salary advances", err)
	}
	defer rows.Close()

	var advances []loan.SalaryAdvance
	for rows.Next() {
		a, err := scanAdvance(rows)
		if err != nil {
			return nil, apperror.Persistence("scan salary advance", err)
		}
		advances = append(advances, a)
	}
	return advances, rows.Err()
}

func (r *loanRepository) CreateAdvance(ctx context.Context, a loan.SalaryAdvance) (loan.SalaryAdvance, error) {
	q := GetQuerier(ctx, r.db)

	if a.ID == "" {
		a.ID = ids.NewID()
	}

	query := `
		INSERT INTO salary_advances (
			id, company_id, employee_id, amount, repayment_months, monthly_deduction,
			deducted_amount, status, reason, repayment_start_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + advanceColumns

	created, err := scanAdvance(q.QueryRow(ctx, query,
		a.ID, a.CompanyID, a.EmployeeID, a.Amount, a.RepaymentMonths, a.MonthlyDeduction,
		a.DeductedAmount, a.Status, a.Reason, a.RepaymentStartDate,
	))
	if err != nil {
		return loan.SalaryAdvance{}, apperror.Persistence("create salary advance", err)
	}
	return created, nil
}

func (r *loanRepository) getAdvance(ctx context.Context, id string, companyID string, forUpdate bool) (loan.SalaryAdvance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + advanceColumns + ` FROM salary_advances WHERE id = $1 AND company_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	a, err := scanAdvance(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return loan.SalaryAdvance{}, loan.ErrAdvanceNotFound
		}
		return loan.SalaryAdvance{}, apperror.Persistence("get salary advance", err)
	}
	return a, nil
}

func (r *loanRepository) GetAdvanceByID(ctx context.Context, id string, companyID string) (loan.SalaryAdvance, error) {
	return r.getAdvance(ctx, id, companyID, false)
}

func (r *loanRepository) GetAdvanceForUpdate(ctx context.Context, id string, companyID string) (loan.SalaryAdvance, error) {
	return r.getAdvance(ctx, id, companyID, true)
}

func (r *loanRepository) ListAdvances(ctx context.Context, companyID string, filter loan.DebtFilter) ([]loan.SalaryAdvance, error) {
	clause, args := debtFilterClause(filter)
	query := `SELECT ` + advanceColumns + ` FROM salary_advances WHERE company_id = $1` + clause + ` ORDER BY created_at DESC, id DESC`
	return r.queryAdvances(ctx, query, append([]any{companyID}, args...)...)
}

func (r *loanRepository) ListRepayableAdvances(ctx context.Context, employeeID string, companyID string) ([]loan.SalaryAdvance, error) {
	query := `SELECT ` + advanceColumns + `
		FROM salary_advances
		WHERE employee_id = $1 AND company_id = $2
			AND status = 'approved' AND deducted_amount < amount
		ORDER BY id
	`
	return r.queryAdvances(ctx, query, employeeID, companyID)
}

func (r *loanRepository) UpdateAdvance(ctx context.Context, a loan.SalaryAdvance) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE salary_advances
		SET deducted_amount = $1, status = $2, repayment_start_date = $3,
			approved_by = $4, approved_at = $5, rejected_by = $6, rejected_at = $7,
			rejection_reason = $8, updated_at = NOW()
		WHERE id = $9 AND company_id = $10
	`
	tag, err := q.Exec(ctx, query,
		a.DeductedAmount, a.Status, a.RepaymentStartDate,
		a.ApprovedBy, a.ApprovedAt, a.RejectedBy, a.RejectedAt,
		a.RejectionReason, a.ID, a.CompanyID,
	)
	if err != nil {
		return apperror.Persistence("update salary advance", err)
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrAdvanceNotFound
	}
	return nil
}

// ========== POSTINGS ==========

const postingColumns = `
	id, reference, company_id, debt_type, debt_id, run_id, cycle_id, employee_id,
	amount, posted_date, created_at`

func scanPosting(row pgx.Row) (loan.RepaymentPosting, error) {
	var p loan.RepaymentPosting
	err := row.Scan(
		&p.ID, &p.Reference, &p.CompanyID, &p.DebtType, &p.DebtID, &p.RunID, &p.CycleID, &p.EmployeeID,
		&p.Amount, &p.PostedDate, &p.CreatedAt,
	)
	return p, err
}

// CreatePosting relies on uk_repayment_posting_month to reject a second
// posting for the same debt in the same calendar month.
func (r *loanRepository) CreatePosting(ctx context.Context, p loan.RepaymentPosting) (loan.RepaymentPosting, error) {
	q := GetQuerier(ctx, r.db)

	if p.ID == "" {
		p.ID = ids.NewID()
	}

	query := `
		INSERT INTO repayment_postings (
			id, reference, company_id, debt_type, debt_id, run_id, cycle_id, employee_id, amount, posted_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + postingColumns

	created, err := scanPosting(q.QueryRow(ctx, query,
		p.ID, p.Reference, p.CompanyID, p.DebtType, p.DebtID, p.RunID, p.CycleID, p.EmployeeID, p.Amount, p.PostedDate,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_repayment_posting_month") {
			return loan.RepaymentPosting{}, loan.ErrPostingExists
		}
		return loan.RepaymentPosting{}, apperror.Persistence("create repayment posting", err)
	}
	return created, nil
}

func (r *loanRepository) HasPostingInMonth(ctx context.Context, debtType payroll.DebtType, debtID string, month time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM repayment_postings
			WHERE debt_type = $1 AND debt_id = $2 AND posted_month = $3
		)
	`
	var exists bool
	if err := q.QueryRow(ctx, query, debtType, debtID, loan.MonthOf(month)).Scan(&exists); err != nil {
		return false, apperror.Persistence("check repayment posting", err)
	}
	return exists, nil
}

func (r *loanRepository) queryPostings(ctx context.Context, query string, args ...any) ([]loan.RepaymentPosting, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Persistence("list repayment postings", err)
	}
	defer rows.Close()

	var postings []loan.RepaymentPosting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, apperror.Persistence("scan repayment posting", err)
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

func (r *loanRepository) ListPostingsByDebt(ctx context.Context, debtType payroll.DebtType, debtID string, companyID string) ([]loan.RepaymentPosting, error) {
	query := `SELECT ` + postingColumns + `
		FROM repayment_postings
		WHERE debt_type = $1 AND debt_id = $2 AND company_id = $3
		ORDER BY posted_date, reference
	`
	return r.queryPostings(ctx, query, debtType, debtID, companyID)
}

func (r *loanRepository) ListPostingsByRun(ctx context.Context, runID string) ([]loan.RepaymentPosting, error) {
	query := `SELECT ` + postingColumns + ` FROM repayment_postings WHERE run_id = $1 ORDER BY posted_date, reference`
	return r.queryPostings(ctx, query, runID)
}
