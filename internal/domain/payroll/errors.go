package payroll

import "errors"

var (
	ErrComponentNotFound         = errors.New("compensation component not found")
	ErrComponentCodeExists       = errors.New("compensation component code already exists")
	ErrSystemComponentMissing    = errors.New("system compensation component missing from catalog")
	ErrStructureNotFound         = errors.New("compensation structure not found")
	ErrStructureComponentInvalid = errors.New("deduction components cannot be assigned to a salary structure")
	ErrMultipleBasicComponents   = errors.New("employee has more than one active basic component")
	ErrCycleNotFound             = errors.New("payroll cycle not found")
	ErrCycleOverlaps             = errors.New("payroll cycle overlaps an existing cycle")
	ErrRunNotFound               = errors.New("payroll run not found")
	ErrNegativeNetPay            = errors.New("deductions exceed gross pay")
)
