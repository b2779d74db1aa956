package user

type Permission string

const (
	// Payroll
	PermissionPayrollView     Permission = "payroll.view"
	PermissionPayrollManage   Permission = "payroll.manage"
	PermissionPayrollFinalize Permission = "payroll.finalize"
	PermissionPayslipViewOwn  Permission = "payslip.view_own"

	// Lending
	PermissionLoanApply   Permission = "loan.apply"
	PermissionLoanViewOwn Permission = "loan.view_own"
	PermissionLoanViewAll Permission = "loan.view_all"
	PermissionLoanApprove Permission = "loan.approve"
	PermissionLoanManage  Permission = "loan.manage_types"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollFinalize,
		PermissionPayslipViewOwn,
		PermissionLoanApply,
		PermissionLoanViewOwn,
		PermissionLoanViewAll,
		PermissionLoanApprove,
		PermissionLoanManage,
	},
	RoleManager: {
		// Manager can run payroll but finalization stays with the owner
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayslipViewOwn,
		PermissionLoanApply,
		PermissionLoanViewOwn,
		PermissionLoanViewAll,
		PermissionLoanApprove,
	},
	RoleEmployee: {
		PermissionPayslipViewOwn,
		PermissionLoanApply,
		PermissionLoanViewOwn,
	},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
