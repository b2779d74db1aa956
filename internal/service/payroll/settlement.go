package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/ids"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Reconciler finalizes a cycle: it posts the debt lines computed for the
// cycle, marks every run paid and locks the cycle, all or nothing.
type Reconciler struct {
	tx          database.Transactor
	payrollRepo payroll.PayrollRepository
	loanRepo    loan.LoanRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewReconciler(
	tx database.Transactor,
	payrollRepo payroll.PayrollRepository,
	loanRepo loan.LoanRepository,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		tx:          tx,
		payrollRepo: payrollRepo,
		loanRepo:    loanRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SettleCycle consumes the persisted line items, not live debt state. A
// second call on the same cycle fails with a StateConflict and changes
// nothing.
func (r *Reconciler) SettleCycle(ctx context.Context, actor user.Actor, cycleID string) (result payroll.SettlementResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCycleOperation("settle", start, err) }()

	var posted []loan.RepaymentPosting

	err = r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		posted = nil

		if err := r.payrollRepo.LockCompanyPayroll(ctx, actor.CompanyID); err != nil {
			return err
		}
		cycle, err := r.payrollRepo.GetCycleForUpdate(ctx, cycleID, actor.CompanyID)
		if err != nil {
			return err
		}
		if err := cycle.EnsureSettleable(); err != nil {
			return err
		}

		runs, err := r.payrollRepo.ListRunsByCycle(ctx, cycle.ID, actor.CompanyID)
		if err != nil {
			return err
		}
		runByID := make(map[string]payroll.Run, len(runs))
		for _, run := range runs {
			runByID[run.ID] = run
		}
		items, err := r.payrollRepo.ListLineItemsByCycle(ctx, cycle.ID)
		if err != nil {
			return err
		}

		at := r.now()
		total := decimal.Zero
		for _, item := range items {
			if item.Debt == nil {
				continue
			}
			run, ok := runByID[item.RunID]
			if !ok {
				return apperror.Persistence("settle cycle", fmt.Errorf("line item %s references unknown run %s", item.ID, item.RunID))
			}

			posting, err := r.post(ctx, cycle, run, item, at)
			if err != nil {
				return err
			}
			posted = append(posted, posting)
			total = total.Add(posting.Amount)
		}

		paid, err := r.payrollRepo.MarkRunsPaid(ctx, cycle.ID)
		if err != nil {
			return err
		}

		cycle, err = cycle.Lock(actor.UserID, at)
		if err != nil {
			return err
		}
		if err := r.payrollRepo.UpdateCycle(ctx, cycle); err != nil {
			return err
		}

		result = payroll.SettlementResult{
			Cycle:       cycle.ToResponse(),
			RunsPaid:    paid,
			Postings:    len(posted),
			TotalRepaid: total,
		}
		return nil
	})
	if err != nil {
		return payroll.SettlementResult{}, err
	}

	for _, p := range posted {
		metrics.ObserveRepayment(string(p.DebtType), p.Amount)
	}
	r.logger.InfoContext(ctx, "payroll cycle settled",
		"cycle_id", cycleID,
		"company_id", actor.CompanyID,
		"runs", result.RunsPaid,
		"postings", result.Postings,
		"total_repaid", result.TotalRepaid.StringFixed(2),
		"duration", time.Since(start),
	)
	return result, nil
}

// post applies one debt line to its loan or advance and records the
// posting. The posting is dated at the cycle end so the month guard sees
// the same month the scheduler checked.
func (r *Reconciler) post(ctx context.Context, cycle payroll.Cycle, run payroll.Run, item payroll.LineItem, at time.Time) (loan.RepaymentPosting, error) {
	debt := *item.Debt

	already, err := r.loanRepo.HasPostingInMonth(ctx, debt.Type, debt.ID, cycle.EndDate)
	if err != nil {
		return loan.RepaymentPosting{}, err
	}
	if already {
		return loan.RepaymentPosting{}, fmt.Errorf("%s %s in %s: %w",
			debt.Type, debt.ID, cycle.EndDate.Format("2006-01"), loan.ErrPostingExists)
	}

	switch debt.Type {
	case payroll.DebtTypeLoan:
		l, err := r.loanRepo.GetLoanForUpdate(ctx, debt.ID, cycle.CompanyID)
		if err != nil {
			return loan.RepaymentPosting{}, err
		}
		l, err = l.ApplyRepayment(item.Amount, at)
		if err != nil {
			return loan.RepaymentPosting{}, err
		}
		if err := r.loanRepo.UpdateLoan(ctx, l); err != nil {
			return loan.RepaymentPosting{}, err
		}
	case payroll.DebtTypeAdvance:
		a, err := r.loanRepo.GetAdvanceForUpdate(ctx, debt.ID, cycle.CompanyID)
		if err != nil {
			return loan.RepaymentPosting{}, err
		}
		a, err = a.ApplyRepayment(item.Amount, at)
		if err != nil {
			return loan.RepaymentPosting{}, err
		}
		if err := r.loanRepo.UpdateAdvance(ctx, a); err != nil {
			return loan.RepaymentPosting{}, err
		}
	default:
		return loan.RepaymentPosting{}, fmt.Errorf("unknown debt type %q", debt.Type)
	}

	return r.loanRepo.CreatePosting(ctx, loan.RepaymentPosting{
		Reference:  ids.Reference(at),
		CompanyID:  cycle.CompanyID,
		DebtType:   debt.Type,
		DebtID:     debt.ID,
		RunID:      run.ID,
		CycleID:    cycle.ID,
		EmployeeID: run.EmployeeID,
		Amount:     item.Amount,
		PostedDate: cycle.EndDate,
	})
}
