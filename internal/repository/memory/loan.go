package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/ids"
)

type loanRepository struct {
	store *Store
}

func NewLoanRepository(store *Store) loan.LoanRepository {
	return &loanRepository{store: store}
}

// ========== LOAN TYPES ==========

func (r *loanRepository) CreateLoanType(ctx context.Context, loanType loan.LoanType) (loan.LoanType, error) {
	defer r.store.lock(ctx)()

	for _, t := range r.store.data.loanTypes {
		if t.CompanyID == loanType.CompanyID && t.Name == loanType.Name {
			return loan.LoanType{}, loan.ErrLoanTypeNameExists
		}
	}
	if loanType.ID == "" {
		loanType.ID = ids.NewID()
	}
	loanType.CreatedAt = r.store.now()
	r.store.data.loanTypes[loanType.ID] = loanType
	return loanType, nil
}

func (r *loanRepository) GetLoanTypeByID(ctx context.Context, id string, companyID string) (loan.LoanType, error) {
	defer r.store.lock(ctx)()

	t, ok := r.store.data.loanTypes[id]
	if !ok || t.CompanyID != companyID {
		return loan.LoanType{}, loan.ErrLoanTypeNotFound
	}
	return t, nil
}

func (r *loanRepository) ListLoanTypes(ctx context.Context, companyID string) ([]loan.LoanType, error) {
	defer r.store.lock(ctx)()

	var out []loan.LoanType
	for _, t := range r.store.data.loanTypes {
		if t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ========== LOANS ==========

func (r *loanRepository) CreateLoan(ctx context.Context, l loan.Loan) (loan.Loan, error) {
	defer r.store.lock(ctx)()
	if err := r.store.fail("CreateLoan"); err != nil {
		return loan.Loan{}, apperror.Persistence("create loan", err)
	}

	if l.ID == "" {
		l.ID = ids.NewID()
	}
	now := r.store.now()
	l.CreatedAt = now
	l.UpdatedAt = now
	r.store.data.loans[l.ID] = l
	return l, nil
}

func (r *loanRepository) GetLoanByID(ctx context.Context, id string, companyID string) (loan.Loan, error) {
	defer r.store.lock(ctx)()

	l, ok := r.store.data.loans[id]
	if !ok || l.CompanyID != companyID {
		return loan.Loan{}, loan.ErrLoanNotFound
	}
	return l, nil
}

func (r *loanRepository) GetLoanForUpdate(ctx context.Context, id string, companyID string) (loan.Loan, error) {
	return r.GetLoanByID(ctx, id, companyID)
}

func matchesFilter(employeeID, status string, filter loan.DebtFilter) bool {
	if filter.EmployeeID != nil && *filter.EmployeeID != employeeID {
		return false
	}
	if filter.Status != nil && *filter.Status != status {
		return false
	}
	return true
}

func (r *loanRepository) ListLoans(ctx context.Context, companyID string, filter loan.DebtFilter) ([]loan.Loan, error) {
	defer r.store.lock(ctx)()

	var out []loan.Loan
	for _, l := range r.store.data.loans {
		if l.CompanyID == companyID && matchesFilter(l.EmployeeID, string(l.Status), filter) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *loanRepository) ListRepayableLoans(ctx context.Context, employeeID string, companyID string) ([]loan.Loan, error) {
	defer r.store.lock(ctx)()

	var out []loan.Loan
	for _, l := range r.store.data.loans {
		if l.CompanyID == companyID && l.EmployeeID == employeeID && l.IsRepayable() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *loanRepository) UpdateLoan(ctx context.Context, l loan.Loan) error {
	defer r.store.lock(ctx)()
	if err := r.store.fail("UpdateLoan"); err != nil {
		return apperror.Persistence("update loan", err)
	}

	existing, ok := r.store.data.loans[l.ID]
	if !ok || existing.CompanyID != l.CompanyID {
		return loan.ErrLoanNotFound
	}
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = r.store.now()
	r.store.data.loans[l.ID] = l
	return nil
}

// ========== ADVANCES ==========

func (r *loanRepository) CreateAdvance(ctx context.Context, a loan.SalaryAdvance) (loan.SalaryAdvance, error) {
	defer r.store.lock(ctx)()
	if err := r.store.fail("CreateAdvance"); err != nil {
		return loan.SalaryAdvance{}, apperror.Persistence("create advance", err)
	}

	if a.ID == "" {
		a.ID = ids.NewID()
	}
	now := r.store.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.store.data.advances[a.ID] = a
	return a, nil
}

func (r *loanRepository) GetAdvanceByID(ctx context.Context, id string, companyID string) (loan.SalaryAdvance, error) {
	defer r.store.lock(ctx)()

	a, ok := r.store.data.advances[id]
	if !ok || a.CompanyID != companyID {
		return loan.SalaryAdvance{}, loan.ErrAdvanceNotFound
	}
	return a, nil
}

func (r *loanRepository) GetAdvanceForUpdate(ctx context.Context, id string, companyID string) (loan.SalaryAdvance, error) {
	return r.GetAdvanceByID(ctx, id, companyID)
}

func (r *loanRepository) ListAdvances(ctx context.Context, companyID string, filter loan.DebtFilter) ([]loan.SalaryAdvance, error) {
	defer r.store.lock(ctx)()

	var out []loan.SalaryAdvance
	for _, a := range r.store.data.advances {
		if a.CompanyID == companyID && matchesFilter(a.EmployeeID, string(a.Status), filter) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *loanRepository) ListRepayableAdvances(ctx context.Context, employeeID string, companyID string) ([]loan.SalaryAdvance, error) {
	defer r.store.lock(ctx)()

	var out []loan.SalaryAdvance
	for _, a := range r.store.data.advances {
		if a.CompanyID == companyID && a.EmployeeID == employeeID && a.IsRepayable() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *loanRepository) UpdateAdvance(ctx context.Context, a loan.SalaryAdvance) error {
	defer r.store.lock(ctx)()
	if err := r.store.fail("UpdateAdvance"); err != nil {
		return apperror.Persistence("update advance", err)
	}

	existing, ok := r.store.data.advances[a.ID]
	if !ok || existing.CompanyID != a.CompanyID {
		return loan.ErrAdvanceNotFound
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = r.store.now()
	r.store.data.advances[a.ID] = a
	return nil
}

// ========== POSTINGS ==========

func (r *loanRepository) CreatePosting(ctx context.Context, p loan.RepaymentPosting) (loan.RepaymentPosting, error) {
	defer r.store.lock(ctx)()
	if err := r.store.fail("CreatePosting"); err != nil {
		return loan.RepaymentPosting{}, apperror.Persistence("create posting", err)
	}

	month := p.Month()
	for _, existing := range r.store.data.postings {
		if existing.DebtType == p.DebtType && existing.DebtID == p.DebtID && existing.Month().Equal(month) {
			return loan.RepaymentPosting{}, loan.ErrPostingExists
		}
	}
	if p.ID == "" {
		p.ID = ids.NewID()
	}
	p.CreatedAt = r.store.now()
	r.store.data.postings[p.ID] = p
	return p, nil
}

func (r *loanRepository) HasPostingInMonth(ctx context.Context, debtType payroll.DebtType, debtID string, month time.Time) (bool, error) {
	defer r.store.lock(ctx)()

	target := loan.MonthOf(month)
	for _, p := range r.store.data.postings {
		if p.DebtType == debtType && p.DebtID == debtID && p.Month().Equal(target) {
			return true, nil
		}
	}
	return false, nil
}

func sortPostings(out []loan.RepaymentPosting) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PostedDate.Equal(out[j].PostedDate) {
			return out[i].PostedDate.Before(out[j].PostedDate)
		}
		return out[i].Reference < out[j].Reference
	})
}

func (r *loanRepository) ListPostingsByDebt(ctx context.Context, debtType payroll.DebtType, debtID string, companyID string) ([]loan.RepaymentPosting, error) {
	defer r.store.lock(ctx)()

	var out []loan.RepaymentPosting
	for _, p := range r.store.data.postings {
		if p.CompanyID == companyID && p.DebtType == debtType && p.DebtID == debtID {
			out = append(out, p)
		}
	}
	sortPostings(out)
	return out, nil
}

func (r *loanRepository) ListPostingsByRun(ctx context.Context, runID string) ([]loan.RepaymentPosting, error) {
	defer r.store.lock(ctx)()

	var out []loan.RepaymentPosting
	for _, p := range r.store.data.postings {
		if p.RunID == runID {
			out = append(out, p)
		}
	}
	sortPostings(out)
	return out, nil
}
