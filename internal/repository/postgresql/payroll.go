package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/ids"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== COMPONENTS ==========

const componentColumns = `id, company_id, code, name, category, taxable, pensionable, created_at`

func scanComponent(row pgx.Row) (payroll.Component, error) {
	var c payroll.Component
	err := row.Scan(&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.Category, &c.Taxable, &c.Pensionable, &c.CreatedAt)
	return c, err
}

func (r *payrollRepository) CreateComponent(ctx context.Context, component payroll.Component) (payroll.Component, error) {
	q := GetQuerier(ctx, r.db)

	if component.ID == "" {
		component.ID = ids.NewID()
	}

	query := `
		INSERT INTO payroll_components (id, company_id, code, name, category, taxable, pensionable)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + componentColumns

	c, err := scanComponent(q.QueryRow(ctx, query,
		component.ID, component.CompanyID, component.Code, component.Name,
		component.Category, component.Taxable, component.Pensionable,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_payroll_component_code") {
			return payroll.Component{}, payroll.ErrComponentCodeExists
		}
		return payroll.Component{}, apperror.Persistence("create payroll component", err)
	}
	return c, nil
}

func (r *payrollRepository) GetComponentByID(ctx context.Context, id string, companyID string) (payroll.Component, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + componentColumns + ` FROM payroll_components WHERE id = $1 AND company_id = $2`

	c, err := scanComponent(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return payroll.Component{}, payroll.ErrComponentNotFound
		}
		return payroll.Component{}, apperror.Persistence("get payroll component", err)
	}
	return c, nil
}

func (r *payrollRepository) GetComponentByCode(ctx context.Context, code string, companyID string) (payroll.Component, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + componentColumns + ` FROM payroll_components WHERE code = $1 AND company_id = $2`

	c, err := scanComponent(q.QueryRow(ctx, query, code, companyID))
	if err != nil {
		if isNotFound(err) {
			return payroll.Component{}, payroll.ErrComponentNotFound
		}
		return payroll.Component{}, apperror.Persistence("get payroll component by code", err)
	}
	return c, nil
}

func (r *payrollRepository) ListComponents(ctx context.Context, companyID string) ([]payroll.Component, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + componentColumns + ` FROM payroll_components WHERE company_id = $1 ORDER BY code`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperror.Persistence("list payroll components", err)
	}
	defer rows.Close()

	var components []payroll.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, apperror.Persistence("scan payroll component", err)
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

// ========== STRUCTURES ==========

const structureSelect = `
	SELECT s.id, s.employee_id, s.component_id, s.amount, s.effective_date, s.end_date, s.active,
		s.created_at, s.updated_at,
		c.id, c.company_id, c.code, c.name, c.category, c.taxable, c.pensionable, c.created_at
	FROM compensation_structures s
	JOIN payroll_components c ON c.id = s.component_id
	JOIN employees e ON e.id = s.employee_id
`

func scanStructure(row pgx.Row) (payroll.CompensationStructure, error) {
	var s payroll.CompensationStructure
	var c payroll.Component
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.ComponentID, &s.Amount, &s.EffectiveDate, &s.EndDate, &s.Active,
		&s.CreatedAt, &s.UpdatedAt,
		&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.Category, &c.Taxable, &c.Pensionable, &c.CreatedAt,
	)
	if err != nil {
		return payroll.CompensationStructure{}, err
	}
	s.Component = &c
	return s, nil
}

func (r *payrollRepository) CreateStructure(ctx context.Context, structure payroll.CompensationStructure) (payroll.CompensationStructure, error) {
	q := GetQuerier(ctx, r.db)

	if structure.ID == "" {
		structure.ID = ids.NewID()
	}

	query := `
		INSERT INTO compensation_structures (id, employee_id, component_id, amount, effective_date, end_date, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.Exec(ctx, query,
		structure.ID, structure.EmployeeID, structure.ComponentID, structure.Amount,
		structure.EffectiveDate, structure.EndDate, structure.Active,
	)
	if err != nil {
		return payroll.CompensationStructure{}, apperror.Persistence("create compensation structure", err)
	}

	s, err := scanStructure(q.QueryRow(ctx, structureSelect+` WHERE s.id = $1`, structure.ID))
	if err != nil {
		return payroll.CompensationStructure{}, apperror.Persistence("reload compensation structure", err)
	}
	return s, nil
}

func (r *payrollRepository) GetStructureByID(ctx context.Context, id string, companyID string) (payroll.CompensationStructure, error) {
	q := GetQuerier(ctx, r.db)

	s, err := scanStructure(q.QueryRow(ctx, structureSelect+` WHERE s.id = $1 AND e.company_id = $2`, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return payroll.CompensationStructure{}, payroll.ErrStructureNotFound
		}
		return payroll.CompensationStructure{}, apperror.Persistence("get compensation structure", err)
	}
	return s, nil
}

func (r *payrollRepository) ListStructures(ctx context.Context, employeeID string, companyID string, activeOnly bool) ([]payroll.CompensationStructure, error) {
	q := GetQuerier(ctx, r.db)

	query := structureSelect + `
		WHERE s.employee_id = $1 AND e.company_id = $2 AND (s.active OR NOT $3)
		ORDER BY s.effective_date DESC, s.created_at DESC, s.id DESC
	`

	rows, err := q.Query(ctx, query, employeeID, companyID, activeOnly)
	if err != nil {
		return nil, apperror.Persistence("list compensation structures", err)
	}
	defer rows.Close()

	var structures []payroll.CompensationStructure
	for rows.Next() {
		s, err := scanStructure(rows)
		if err != nil {
			return nil, apperror.Persistence("scan compensation structure", err)
		}
		structures = append(structures, s)
	}
	return structures, rows.Err()
}

func (r *payrollRepository) DeactivateStructure(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE compensation_structures s
		SET active = FALSE, updated_at = NOW()
		FROM employees e
		WHERE s.id = $1 AND e.id = s.employee_id AND e.company_id = $2
	`
	tag, err := q.Exec(ctx, query, id, companyID)
	if err != nil {
		return apperror.Persistence("deactivate compensation structure", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrStructureNotFound
	}
	return nil
}

// ========== CYCLES ==========

const cycleColumns = `
	id, company_id, label, start_date, end_date, payment_date, status,
	computed_at, computed_by, locked_at, locked_by, created_at, updated_at`

func scanCycle(row pgx.Row) (payroll.Cycle, error) {
	var c payroll.Cycle
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Label, &c.StartDate, &c.EndDate, &c.PaymentDate, &c.Status,
		&c.ComputedAt, &c.ComputedBy, &c.LockedAt, &c.LockedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *payrollRepository) CreateCycle(ctx context.Context, cycle payroll.Cycle) (payroll.Cycle, error) {
	q := GetQuerier(ctx, r.db)

	if cycle.ID == "" {
		cycle.ID = ids.NewID()
	}

	query := `
		INSERT INTO payroll_cycles (id, company_id, label, start_date, end_date, payment_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + cycleColumns

	c, err := scanCycle(q.QueryRow(ctx, query,
		cycle.ID, cycle.CompanyID, cycle.Label, cycle.StartDate, cycle.EndDate, cycle.PaymentDate, cycle.Status,
	))
	if err != nil {
		return payroll.Cycle{}, apperror.Persistence("create payroll cycle", err)
	}
	return c, nil
}

func (r *payrollRepository) getCycle(ctx context.Context, id string, companyID string, forUpdate bool) (payroll.Cycle, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + cycleColumns + ` FROM payroll_cycles WHERE id = $1 AND company_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c, err := scanCycle(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return payroll.Cycle{}, payroll.ErrCycleNotFound
		}
		return payroll.Cycle{}, apperror.Persistence("get payroll cycle", err)
	}
	return c, nil
}

func (r *payrollRepository) GetCycleByID(ctx context.Context, id string, companyID string) (payroll.Cycle, error) {
	return r.getCycle(ctx, id, companyID, false)
}

func (r *payrollRepository) GetCycleForUpdate(ctx context.Context, id string, companyID string) (payroll.Cycle, error) {
	return r.getCycle(ctx, id, companyID, true)
}

func (r *payrollRepository) ListCycles(ctx context.Context, companyID string) ([]payroll.Cycle, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + cycleColumns + ` FROM payroll_cycles WHERE company_id = $1 ORDER BY start_date DESC`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, apperror.Persistence("list payroll cycles", err)
	}
	defer rows.Close()

	var cycles []payroll.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, apperror.Persistence("scan payroll cycle", err)
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

func (r *payrollRepository) HasOverlappingCycle(ctx context.Context, companyID string, start, end time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM payroll_cycles
			WHERE company_id = $1 AND start_date <= $3 AND end_date >= $2
		)
	`
	var exists bool
	if err := q.QueryRow(ctx, query, companyID, start, end).Scan(&exists); err != nil {
		return false, apperror.Persistence("check overlapping cycles", err)
	}
	return exists, nil
}

func (r *payrollRepository) UpdateCycle(ctx context.Context, cycle payroll.Cycle) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_cycles
		SET label = $1, status = $2, computed_at = $3, computed_by = $4,
			locked_at = $5, locked_by = $6, updated_at = NOW()
		WHERE id = $7 AND company_id = $8
	`
	tag, err := q.Exec(ctx, query,
		cycle.Label, cycle.Status, cycle.ComputedAt, cycle.ComputedBy,
		cycle.LockedAt, cycle.LockedBy, cycle.ID, cycle.CompanyID,
	)
	if err != nil {
		return apperror.Persistence("update payroll cycle", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrCycleNotFound
	}
	return nil
}

// LockCompanyPayroll takes a transaction-scoped advisory lock keyed by the
// company, so compute and settle for one company never interleave.
func (r *payrollRepository) LockCompanyPayroll(ctx context.Context, companyID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('payroll:' || $1))`, companyID); err != nil {
		return apperror.Persistence("lock company payroll", err)
	}
	return nil
}

// ========== RUNS ==========

const runSelect = `
	SELECT r.id, r.cycle_id, r.employee_id, r.company_id, r.basic, r.total_earnings,
		r.total_deductions, r.gross, r.net, r.pension_employer, r.settlement_status,
		r.created_at, r.updated_at, e.full_name, e.employee_code
	FROM payroll_runs r
	LEFT JOIN employees e ON e.id = r.employee_id
`

func scanRun(row pgx.Row) (payroll.Run, error) {
	var run payroll.Run
	err := row.Scan(
		&run.ID, &run.CycleID, &run.EmployeeID, &run.CompanyID, &run.Basic, &run.TotalEarnings,
		&run.TotalDeductions, &run.Gross, &run.Net, &run.PensionEmployer, &run.SettlementStatus,
		&run.CreatedAt, &run.UpdatedAt, &run.EmployeeName, &run.EmployeeCode,
	)
	return run, err
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string, companyID string) (payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	run, err := scanRun(q.QueryRow(ctx, runSelect+` WHERE r.id = $1 AND r.company_id = $2`, id, companyID))
	if err != nil {
		if isNotFound(err) {
			return payroll.Run{}, payroll.ErrRunNotFound
		}
		return payroll.Run{}, apperror.Persistence("get payroll run", err)
	}
	return run, nil
}

func (r *payrollRepository) ListRunsByCycle(ctx context.Context, cycleID string, companyID string) ([]payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	query := runSelect + ` WHERE r.cycle_id = $1 AND r.company_id = $2 ORDER BY e.employee_code, r.employee_id`

	rows, err := q.Query(ctx, query, cycleID, companyID)
	if err != nil {
		return nil, apperror.Persistence("list payroll runs", err)
	}
	defer rows.Close()

	var runs []payroll.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, apperror.Persistence("scan payroll run", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *payrollRepository) UpsertRun(ctx context.Context, run payroll.Run) (payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	if run.ID == "" {
		run.ID = ids.NewID()
	}

	query := `
		INSERT INTO payroll_runs (
			id, cycle_id, employee_id, company_id, basic, total_earnings, total_deductions,
			gross, net, pension_employer, settlement_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (cycle_id, employee_id) DO UPDATE SET
			basic = EXCLUDED.basic,
			total_earnings = EXCLUDED.total_earnings,
			total_deductions = EXCLUDED.total_deductions,
			gross = EXCLUDED.gross,
			net = EXCLUDED.net,
			pension_employer = EXCLUDED.pension_employer,
			settlement_status = EXCLUDED.settlement_status,
			updated_at = CASE
				WHEN (payroll_runs.basic, payroll_runs.total_earnings, payroll_runs.total_deductions,
					payroll_runs.gross, payroll_runs.net, payroll_runs.pension_employer,
					payroll_runs.settlement_status)
				IS DISTINCT FROM (EXCLUDED.basic, EXCLUDED.total_earnings, EXCLUDED.total_deductions,
					EXCLUDED.gross, EXCLUDED.net, EXCLUDED.pension_employer,
					EXCLUDED.settlement_status)
				THEN NOW()
				ELSE payroll_runs.updated_at
			END
		RETURNING id, created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		run.ID, run.CycleID, run.EmployeeID, run.CompanyID, run.Basic, run.TotalEarnings,
		run.TotalDeductions, run.Gross, run.Net, run.PensionEmployer, run.SettlementStatus,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return payroll.Run{}, apperror.Persistence("upsert payroll run", err)
	}
	return run, nil
}

func (r *payrollRepository) DeleteRun(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_runs WHERE id = $1`, id)
	if err != nil {
		return apperror.Persistence("delete payroll run", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}
	return nil
}

func (r *payrollRepository) MarkRunsPaid(ctx context.Context, cycleID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs
		SET settlement_status = $1, updated_at = NOW()
		WHERE cycle_id = $2 AND settlement_status <> $1
	`
	tag, err := q.Exec(ctx, query, payroll.SettlementPaid, cycleID)
	if err != nil {
		return 0, apperror.Persistence("mark payroll runs paid", err)
	}
	return int(tag.RowsAffected()), nil
}

// ========== LINE ITEMS ==========

func (r *payrollRepository) ReplaceLineItems(ctx context.Context, runID string, items []payroll.LineItem) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_line_items WHERE run_id = $1`, runID); err != nil {
		return apperror.Persistence("clear payroll line items", err)
	}

	query := `
		INSERT INTO payroll_line_items (id, run_id, component_id, position, amount, debt_type, debt_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, item := range items {
		if item.ID == "" {
			item.ID = ids.NewID()
		}
		var debtType, debtID *string
		if item.Debt != nil {
			t, id := string(item.Debt.Type), item.Debt.ID
			debtType, debtID = &t, &id
		}
		if _, err := q.Exec(ctx, query, item.ID, runID, item.ComponentID, item.Position, item.Amount, debtType, debtID); err != nil {
			return apperror.Persistence(fmt.Sprintf("insert payroll line item %d", item.Position), err)
		}
	}
	return nil
}

const lineItemSelect = `
	SELECT li.id, li.run_id, li.component_id, li.position, li.amount, li.debt_type, li.debt_id,
		c.code, c.name, c.category
	FROM payroll_line_items li
	JOIN payroll_components c ON c.id = li.component_id
`

func (r *payrollRepository) queryLineItems(ctx context.Context, query string, arg string) ([]payroll.LineItem, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, apperror.Persistence("list payroll line items", err)
	}
	defer rows.Close()

	var items []payroll.LineItem
	for rows.Next() {
		var item payroll.LineItem
		var debtType, debtID *string
		err := rows.Scan(
			&item.ID, &item.RunID, &item.ComponentID, &item.Position, &item.Amount, &debtType, &debtID,
			&item.ComponentCode, &item.ComponentName, &item.ComponentCategory,
		)
		if err != nil {
			return nil, apperror.Persistence("scan payroll line item", err)
		}
		if debtType != nil && debtID != nil {
			item.Debt = &payroll.DebtReference{Type: payroll.DebtType(*debtType), ID: *debtID}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *payrollRepository) ListLineItems(ctx context.Context, runID string) ([]payroll.LineItem, error) {
	return r.queryLineItems(ctx, lineItemSelect+` WHERE li.run_id = $1 ORDER BY li.position`, runID)
}

func (r *payrollRepository) ListLineItemsByCycle(ctx context.Context, cycleID string) ([]payroll.LineItem, error) {
	query := lineItemSelect + `
		JOIN payroll_runs r ON r.id = li.run_id
		WHERE r.cycle_id = $1
		ORDER BY li.run_id, li.position
	`
	return r.queryLineItems(ctx, query, cycleID)
}
