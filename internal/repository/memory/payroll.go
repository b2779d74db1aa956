package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/ids"
)

type payrollRepository struct {
	store *Store
}

func NewPayrollRepository(store *Store) payroll.PayrollRepository {
	return &payrollRepository{store: store}
}

// ========== COMPONENTS ==========

func (r *payrollRepository) CreateComponent(ctx context.Context, component payroll.Component) (payroll.Component, error) {
	defer r.store.lock(ctx)()
	if err := r.store.fail("CreateComponent"); err != nil {
		return payroll.Component{}, apperror.Persistence("create component", err)
	}

	for _, c := range r.store.data.components {
		if c.CompanyID == component.CompanyID && c.Code == component.Code {
			return payroll.Component{}, payroll.ErrComponentCodeExists
		}
	}
	if component.ID == "" {
		component.ID = ids.NewID()
	}
	component.CreatedAt = r.store.now()
	r.store.data.components[component.ID] = component
	return component, nil
}

func (r *payrollRepository) GetComponentByID(ctx context.Context, id string, companyID string) (payroll.Component, error) {
	defer r.store.lock(ctx)()

	c, ok := r.store.data.components[id]
	if !ok || c.CompanyID != companyID {
		return payroll.Component{}, payroll.ErrComponentNotFound
	}
	return c, nil
}

func (r *payrollRepository) GetComponentByCode(ctx context.Context, code string, companyID string) (payroll.Component, error) {
	defer r.store.lock(ctx)()

	for _, c := range r.store.data.components {
		if c.CompanyID == companyID && c.Code == code {
			return c, nil
		}
	}
	return payroll.Component{}, payroll.ErrComponentNotFound
}

func (r *payrollRepository) ListComponents(ctx context.Context, companyID string) ([]payroll.Component, error) {
	defer r.store.lock(ctx)()

	var out []payroll.Component
	for _, c := range r.store.data.components {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ========== STRUCTURES ==========

func (r *payrollRepository) CreateStructure(ctx context.Context, structure payroll.CompensationStructure) (payroll.CompensationStructure, error) {
	defer r.store.lock(ctx)()
	if err := r.store.fail("CreateStructure"); err != nil {
		return payroll.CompensationStructure{}, apperror.Persistence("create structure", err)
	}

	if structure.ID == "" {
		structure.ID = ids.NewID()
	}
	now := r.store.now()
	structure.CreatedAt = now
	structure.UpdatedAt = now
	structure.Component = nil
	r.store.data.structures[structure.ID] = structure
	return r.joinComponent(structure), nil
}

func (r *payrollRepository) joinComponent(s payroll.CompensationStructure) payroll.CompensationStructure {
	if c, ok := r.store.data.components[s.ComponentID]; ok {
		s.Component = &c
	}
	return s
}

func (r *payrollRepository) ownsEmployee(employeeID, companyID string) bool {
	e, ok := r.store.data.employees[employeeID]
	return ok && e.CompanyID == companyID
}

func (r *payrollRepository) GetStructureByID(ctx context.Context, id string, companyID string) (payroll.CompensationStructure, error) {
	defer r.store.lock(ctx)()

	s, ok := r.store.data.structures[id]
	if !ok || !r.ownsEmployee(s.EmployeeID, companyID) {
		return payroll.CompensationStructure{}, payroll.ErrStructureNotFound
	}
	return r.joinComponent(s), nil
}

func (r *payrollRepository) ListStructures(ctx context.Context, employeeID string, companyID string, activeOnly bool) ([]payroll.CompensationStructure, error) {
	defer r.store.lock(ctx)()

	if !r.ownsEmployee(employeeID, companyID) {
		return nil, nil
	}
	var out []payroll.CompensationStructure
	for _, s := range r.store.data.structures {
		if s.EmployeeID != employeeID || (activeOnly && !s.Active) {
			continue
		}
		out = append(out, r.joinComponent(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].EffectiveDate.After(out[j].EffectiveDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *payrollRepository) DeactivateStructure(ctx context.Context, id string, companyID string) error {
	defer r.store.lock(ctx)()

	s, ok := r.store.data.structures[id]
	if !ok || !r.ownsEmployee(s.EmployeeID, companyID) {
		return payroll.ErrStructureNotFound
	}
	s.Active = false
	s.UpdatedAt = r.store.now()
	r.store.data.structures[id] = s
	return nil
}

// ========== CYCLES ==========

func (r *payrollRepository) CreateCycle(ctx context.Context, cycle payroll.Cycle) (payroll.Cycle, error) {
	defer r.store.lock(ctx)()
	if err := r.store.fail("CreateCycle"); err != nil {
		return payroll.Cycle{}, apperror.Persistence("create cycle", err)
	}

	if cycle.ID == "" {
		cycle.ID = ids.NewID()
	}
	now := r.store.now()
	cycle.CreatedAt = now
	cycle.UpdatedAt = now
	r.store.data.cycles[cycle.ID] = cycle
	return cycle, nil
}

func (r *payrollRepository) GetCycleByID(ctx context.Context, id string, companyID string) (payroll.Cycle, error) {
	defer r.store.lock(ctx)()

	c, ok := r.store.data.cycles[id]
	if !ok || c.CompanyID != companyID {
		return payroll.Cycle{}, payroll.ErrCycleNotFound
	}
	return c, nil
}

// GetCycleForUpdate is GetCycleByID; the transaction already holds the
// store mutex.
func (r *payrollRepository) GetCycleForUpdate(ctx context.Context, id string, companyID string) (payroll.Cycle, error) {
	return r.GetCycleByID(ctx, id, companyID)
}

func (r *payrollRepository) ListCycles(ctx context.Context, companyID string) ([]payroll.Cycle, error) {
	defer r.store.lock(ctx)()

	var out []payroll.Cycle
	for _, c := range r.store.data.cycles {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r *payrollRepository) HasOverlappingCycle(ctx context.Context, companyID string, start, end time.Time) (bool, error) {
	defer r.store.lock(ctx)()

	for _, c := range r.store.data.cycles {
		if c.CompanyID != companyID {
			continue
		}
		if !start.After(c.EndDate) && !end.Before(c.StartDate) {
			return true, nil
		}
	}
	return false, nil
}

func (r *payrollRepository) UpdateCycle(ctx context.Context, cycle payroll.Cycle) error {
	defer r.store.lock(ctx)()
	if err := r.store.fail("UpdateCycle"); err != nil {
		return apperror.Persistence("update cycle", err)
	}

	existing, ok := r.store.data.cycles[cycle.ID]
	if !ok || existing.CompanyID != cycle.CompanyID {
		return payroll.ErrCycleNotFound
	}
	cycle.CreatedAt = existing.CreatedAt
	cycle.UpdatedAt = r.store.now()
	r.store.data.cycles[cycle.ID] = cycle
	return nil
}

// LockCompanyPayroll is a no-op: transactions are already serialized by the
// store mutex.
func (r *payrollRepository) LockCompanyPayroll(ctx context.Context, companyID string) error {
	return nil
}

// ========== RUNS ==========

func (r *payrollRepository) joinEmployee(run payroll.Run) payroll.Run {
	if e, ok := r.store.data.employees[run.EmployeeID]; ok {
		name, code := e.FullName, e.EmployeeCode
		run.EmployeeName = &name
		run.EmployeeCode = &code
	}
	return run
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string, companyID string) (payroll.Run, error) {
	defer r.store.lock(ctx)()

	run, ok := r.store.data.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.Run{}, payroll.ErrRunNotFound
	}
	return r.joinEmployee(run), nil
}

func (r *payrollRepository) ListRunsByCycle(ctx context.Context, cycleID string, companyID string) ([]payroll.Run, error) {
	defer r.store.lock(ctx)()

	var out []payroll.Run
	for _, run := range r.store.data.runs {
		if run.CycleID == cycleID && run.CompanyID == companyID {
			out = append(out, r.joinEmployee(run))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := "", ""
		if out[i].EmployeeCode != nil {
			ci = *out[i].EmployeeCode
		}
		if out[j].EmployeeCode != nil {
			cj = *out[j].EmployeeCode
		}
		if ci != cj {
			return ci < cj
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

func (r *payrollRepository) UpsertRun(ctx context.Context, run payroll.Run) (payroll.Run, error) {
	defer r.store.lock(ctx)()
	if err := r.store.fail("UpsertRun"); err != nil {
		return payroll.Run{}, apperror.Persistence("upsert run", err)
	}

	now := r.store.now()
	for id, existing := range r.store.data.runs {
		if existing.CycleID == run.CycleID && existing.EmployeeID == run.EmployeeID {
			run.ID = id
			run.CreatedAt = existing.CreatedAt
			run.UpdatedAt = now
			if existing.SameFigures(run) {
				run.UpdatedAt = existing.UpdatedAt
			}
			r.store.data.runs[id] = run
			return run, nil
		}
	}
	if run.ID == "" {
		run.ID = ids.NewID()
	}
	run.CreatedAt = now
	run.UpdatedAt = now
	r.store.data.runs[run.ID] = run
	return run, nil
}

func (r *payrollRepository) DeleteRun(ctx context.Context, id string) error {
	defer r.store.lock(ctx)()

	if _, ok := r.store.data.runs[id]; !ok {
		return payroll.ErrRunNotFound
	}
	delete(r.store.data.runs, id)
	delete(r.store.data.lineItems, id)
	return nil
}

func (r *payrollRepository) MarkRunsPaid(ctx context.Context, cycleID string) (int, error) {
	defer r.store.lock(ctx)()
	if err := r.store.fail("MarkRunsPaid"); err != nil {
		return 0, apperror.Persistence("mark runs paid", err)
	}

	count := 0
	now := r.store.now()
	for id, run := range r.store.data.runs {
		if run.CycleID != cycleID || run.SettlementStatus == payroll.SettlementPaid {
			continue
		}
		run.SettlementStatus = payroll.SettlementPaid
		run.UpdatedAt = now
		r.store.data.runs[id] = run
		count++
	}
	return count, nil
}

// ========== LINE ITEMS ==========

func (r *payrollRepository) ReplaceLineItems(ctx context.Context, runID string, items []payroll.LineItem) error {
	defer r.store.lock(ctx)()
	if err := r.store.fail("ReplaceLineItems"); err != nil {
		return apperror.Persistence("replace line items", err)
	}

	stored := make([]payroll.LineItem, len(items))
	for i, item := range items {
		item.RunID = runID
		if item.ID == "" {
			item.ID = ids.NewID()
		}
		stored[i] = item
	}
	r.store.data.lineItems[runID] = stored
	return nil
}

func (r *payrollRepository) joinLineItem(item payroll.LineItem) payroll.LineItem {
	if c, ok := r.store.data.components[item.ComponentID]; ok {
		item.ComponentCode = c.Code
		item.ComponentName = c.Name
		item.ComponentCategory = c.Category
	}
	return item
}

func (r *payrollRepository) ListLineItems(ctx context.Context, runID string) ([]payroll.LineItem, error) {
	defer r.store.lock(ctx)()

	list := r.store.data.lineItems[runID]
	out := make([]payroll.LineItem, 0, len(list))
	for _, item := range list {
		out = append(out, r.joinLineItem(item))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *payrollRepository) ListLineItemsByCycle(ctx context.Context, cycleID string) ([]payroll.LineItem, error) {
	defer r.store.lock(ctx)()

	var runIDs []string
	for id, run := range r.store.data.runs {
		if run.CycleID == cycleID {
			runIDs = append(runIDs, id)
		}
	}
	sort.Strings(runIDs)

	var out []payroll.LineItem
	for _, runID := range runIDs {
		list := append([]payroll.LineItem(nil), r.store.data.lineItems[runID]...)
		sort.SliceStable(list, func(i, j int) bool { return list[i].Position < list[j].Position })
		for _, item := range list {
			out = append(out, r.joinLineItem(item))
		}
	}
	return out, nil
}
