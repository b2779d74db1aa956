package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/fixtures"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type PayrollServiceImpl struct {
	tx           database.Transactor
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	loanRepo     loan.LoanRepository
	coordinator  *Coordinator
	reconciler   *Reconciler
	logger       *slog.Logger
}

func NewPayrollService(
	tx database.Transactor,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	loanRepo loan.LoanRepository,
	coordinator *Coordinator,
	reconciler *Reconciler,
	logger *slog.Logger,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		tx:           tx,
		payrollRepo:  payrollRepo,
		employeeRepo: employeeRepo,
		loanRepo:     loanRepo,
		coordinator:  coordinator,
		reconciler:   reconciler,
		logger:       logger,
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

// ========== COMPONENTS ==========

func (s *PayrollServiceImpl) CreateComponent(ctx context.Context, actor user.Actor, req payroll.CreateComponentRequest) (payroll.ComponentResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.ComponentResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.ComponentResponse{}, err
	}

	category := payroll.ComponentCategory(req.Category)
	component := payroll.Component{
		CompanyID: actor.CompanyID,
		Code:      req.Code,
		Name:      req.Name,
		Category:  category,
		Taxable:   category.IsEarning(),
	}
	if req.Taxable != nil {
		component.Taxable = *req.Taxable
	}
	if req.Pensionable != nil {
		component.Pensionable = *req.Pensionable
	}

	created, err := s.payrollRepo.CreateComponent(ctx, component)
	if err != nil {
		return payroll.ComponentResponse{}, err
	}
	return created.ToResponse(), nil
}

func (s *PayrollServiceImpl) ListComponents(ctx context.Context, actor user.Actor) ([]payroll.ComponentResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollView); err != nil {
		return nil, err
	}

	components, err := s.payrollRepo.ListComponents(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	out := make([]payroll.ComponentResponse, 0, len(components))
	for _, c := range components {
		out = append(out, c.ToResponse())
	}
	return out, nil
}

// SeedDefaultComponents creates any default catalog entry the company is
// missing, matched by code.
func (s *PayrollServiceImpl) SeedDefaultComponents(ctx context.Context, actor user.Actor) ([]payroll.ComponentResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return nil, err
	}

	var created []payroll.ComponentResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created = nil
		for _, def := range fixtures.GetDefaultComponents(actor.CompanyID) {
			_, err := s.payrollRepo.GetComponentByCode(ctx, def.Code, actor.CompanyID)
			if err == nil {
				continue
			}
			if !errors.Is(err, payroll.ErrComponentNotFound) {
				return err
			}
			c, err := s.payrollRepo.CreateComponent(ctx, def)
			if err != nil {
				return err
			}
			created = append(created, c.ToResponse())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ========== STRUCTURES ==========

func (s *PayrollServiceImpl) AssignStructure(ctx context.Context, actor user.Actor, req payroll.AssignStructureRequest) (payroll.StructureResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.StructureResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.StructureResponse{}, err
	}

	effective, _ := validator.IsValidDate(req.EffectiveDate)
	structure := payroll.CompensationStructure{
		EmployeeID:    req.EmployeeID,
		ComponentID:   req.ComponentID,
		Amount:        req.Amount,
		EffectiveDate: effective,
		Active:        true,
	}
	if req.EndDate != nil {
		end, _ := validator.IsValidDate(*req.EndDate)
		structure.EndDate = &end
	}

	var created payroll.CompensationStructure
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, actor.CompanyID); err != nil {
			return err
		}
		component, err := s.payrollRepo.GetComponentByID(ctx, req.ComponentID, actor.CompanyID)
		if err != nil {
			return err
		}
		if !component.Category.IsEarning() {
			return payroll.ErrStructureComponentInvalid
		}

		if component.Category == payroll.CategoryBasic {
			rows, err := s.payrollRepo.ListStructures(ctx, req.EmployeeID, actor.CompanyID, true)
			if err != nil {
				return err
			}
			for _, row := range rows {
				if row.Component != nil && row.Component.Category == payroll.CategoryBasic && row.ComponentID != component.ID {
					return fmt.Errorf("%w: %s is already assigned", payroll.ErrMultipleBasicComponents, row.Component.Code)
				}
			}
		}

		created, err = s.payrollRepo.CreateStructure(ctx, structure)
		return err
	})
	if err != nil {
		return payroll.StructureResponse{}, err
	}
	return created.ToResponse(), nil
}

func (s *PayrollServiceImpl) ListStructures(ctx context.Context, actor user.Actor, employeeID string) ([]payroll.StructureResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollView); err != nil {
		return nil, err
	}
	if _, err := s.employeeRepo.GetByID(ctx, employeeID, actor.CompanyID); err != nil {
		return nil, err
	}

	rows, err := s.payrollRepo.ListStructures(ctx, employeeID, actor.CompanyID, false)
	if err != nil {
		return nil, err
	}
	out := make([]payroll.StructureResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToResponse())
	}
	return out, nil
}

func (s *PayrollServiceImpl) DeactivateStructure(ctx context.Context, actor user.Actor, id string) error {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return err
	}
	return s.payrollRepo.DeactivateStructure(ctx, id, actor.CompanyID)
}

// ========== CYCLES ==========

func (s *PayrollServiceImpl) CreateCycle(ctx context.Context, actor user.Actor, req payroll.CreateCycleRequest) (payroll.CycleResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.CycleResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.CycleResponse{}, err
	}

	start, _ := validator.IsValidDate(req.StartDate)
	end, _ := validator.IsValidDate(req.EndDate)
	payment, _ := validator.IsValidDate(req.PaymentDate)

	var created payroll.Cycle
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		overlaps, err := s.payrollRepo.HasOverlappingCycle(ctx, actor.CompanyID, start, end)
		if err != nil {
			return err
		}
		if overlaps {
			return payroll.ErrCycleOverlaps
		}
		created, err = s.payrollRepo.CreateCycle(ctx, payroll.Cycle{
			CompanyID:   actor.CompanyID,
			Label:       req.Label,
			StartDate:   start,
			EndDate:     end,
			PaymentDate: payment,
			Status:      payroll.CycleStatusOpen,
		})
		return err
	})
	if err != nil {
		return payroll.CycleResponse{}, err
	}

	s.logger.InfoContext(ctx, "payroll cycle created", "cycle_id", created.ID, "company_id", actor.CompanyID, "label", created.Label)
	return created.ToResponse(), nil
}

func (s *PayrollServiceImpl) GetCycle(ctx context.Context, actor user.Actor, id string) (payroll.CycleResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollView); err != nil {
		return payroll.CycleResponse{}, err
	}
	cycle, err := s.payrollRepo.GetCycleByID(ctx, id, actor.CompanyID)
	if err != nil {
		return payroll.CycleResponse{}, err
	}
	return cycle.ToResponse(), nil
}

func (s *PayrollServiceImpl) ListCycles(ctx context.Context, actor user.Actor) ([]payroll.CycleResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollView); err != nil {
		return nil, err
	}
	cycles, err := s.payrollRepo.ListCycles(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	out := make([]payroll.CycleResponse, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, c.ToResponse())
	}
	return out, nil
}

func (s *PayrollServiceImpl) ComputeCycle(ctx context.Context, actor user.Actor, cycleID string) (payroll.ComputeResult, error) {
	if err := requirePermission(actor, user.PermissionPayrollManage); err != nil {
		return payroll.ComputeResult{}, err
	}
	return s.coordinator.ComputeCycle(ctx, actor, cycleID)
}

func (s *PayrollServiceImpl) SettleCycle(ctx context.Context, actor user.Actor, cycleID string) (payroll.SettlementResult, error) {
	if err := requirePermission(actor, user.PermissionPayrollFinalize); err != nil {
		return payroll.SettlementResult{}, err
	}
	return s.reconciler.SettleCycle(ctx, actor, cycleID)
}

func (s *PayrollServiceImpl) GetCycleSummary(ctx context.Context, actor user.Actor, cycleID string) (payroll.CycleSummaryResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollView); err != nil {
		return payroll.CycleSummaryResponse{}, err
	}

	cycle, err := s.payrollRepo.GetCycleByID(ctx, cycleID, actor.CompanyID)
	if err != nil {
		return payroll.CycleSummaryResponse{}, err
	}
	runs, err := s.payrollRepo.ListRunsByCycle(ctx, cycle.ID, actor.CompanyID)
	if err != nil {
		return payroll.CycleSummaryResponse{}, err
	}
	items, err := s.payrollRepo.ListLineItemsByCycle(ctx, cycle.ID)
	if err != nil {
		return payroll.CycleSummaryResponse{}, err
	}

	summary := payroll.CycleSummaryResponse{
		Cycle:                cycle.ToResponse(),
		TotalEmployees:       len(runs),
		TotalBasic:           decimal.Zero,
		TotalGross:           decimal.Zero,
		TotalDeductions:      decimal.Zero,
		TotalNet:             decimal.Zero,
		TotalPensionEmployee: decimal.Zero,
		TotalPensionEmployer: decimal.Zero,
		TotalTax:             decimal.Zero,
		TotalDebtRecovery:    decimal.Zero,
	}
	for _, run := range runs {
		summary.TotalBasic = summary.TotalBasic.Add(run.Basic)
		summary.TotalGross = summary.TotalGross.Add(run.Gross)
		summary.TotalDeductions = summary.TotalDeductions.Add(run.TotalDeductions)
		summary.TotalNet = summary.TotalNet.Add(run.Net)
		summary.TotalPensionEmployer = summary.TotalPensionEmployer.Add(run.PensionEmployer)
		if run.SettlementStatus == payroll.SettlementPaid {
			summary.PaidCount++
		} else {
			summary.PendingCount++
		}
	}
	for _, item := range items {
		switch {
		case item.Debt != nil:
			summary.TotalDebtRecovery = summary.TotalDebtRecovery.Add(item.Amount)
		case item.ComponentCode == payroll.CodePension:
			summary.TotalPensionEmployee = summary.TotalPensionEmployee.Add(item.Amount)
		case item.ComponentCode == payroll.CodeIncomeTax:
			summary.TotalTax = summary.TotalTax.Add(item.Amount)
		}
	}
	return summary, nil
}

// ========== RUNS ==========

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, actor user.Actor, cycleID string) ([]payroll.RunResponse, error) {
	if err := requirePermission(actor, user.PermissionPayrollView); err != nil {
		return nil, err
	}
	if _, err := s.payrollRepo.GetCycleByID(ctx, cycleID, actor.CompanyID); err != nil {
		return nil, err
	}

	runs, err := s.payrollRepo.ListRunsByCycle(ctx, cycleID, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	out := make([]payroll.RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, run.ToResponse())
	}
	return out, nil
}

// GetPayslip returns a run with its lines and postings. Employees without
// payroll.view only see their own runs.
func (s *PayrollServiceImpl) GetPayslip(ctx context.Context, actor user.Actor, runID string) (payroll.PayslipResponse, error) {
	if err := actor.Validate(); err != nil {
		return payroll.PayslipResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, runID, actor.CompanyID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	if !actor.Can(user.PermissionPayrollView) {
		own := actor.Can(user.PermissionPayslipViewOwn) && actor.EmployeeID != nil && *actor.EmployeeID == run.EmployeeID
		if !own {
			return payroll.PayslipResponse{}, user.ErrInsufficientPermissions
		}
	}

	cycle, err := s.payrollRepo.GetCycleByID(ctx, run.CycleID, actor.CompanyID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	items, err := s.payrollRepo.ListLineItems(ctx, run.ID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	postings, err := s.loanRepo.ListPostingsByRun(ctx, run.ID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	slip := payroll.PayslipResponse{
		Run:        run.ToResponse(),
		Cycle:      cycle.ToResponse(),
		Earnings:   []payroll.LineItemResponse{},
		Deductions: []payroll.LineItemResponse{},
		Postings:   []payroll.PostingLine{},
	}
	for _, item := range items {
		if item.IsDeduction() {
			slip.Deductions = append(slip.Deductions, item.ToResponse())
		} else {
			slip.Earnings = append(slip.Earnings, item.ToResponse())
		}
	}
	for _, p := range postings {
		slip.Postings = append(slip.Postings, payroll.PostingLine{
			Reference:  p.Reference,
			DebtType:   string(p.DebtType),
			DebtID:     p.DebtID,
			Amount:     p.Amount,
			PostedDate: p.PostedDate.Format(validator.DateLayout),
		})
	}
	return slip, nil
}
