package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Runs payroll, approves loans and advances
	RoleEmployee Role = "employee" // Regular employee
	RolePending  Role = "pending"  // Still in onboarding
)

// Actor is the caller of a payroll or lending operation. It is built once
// per request from the verified token and passed explicitly into services.
type Actor struct {
	UserID     string
	EmployeeID *string
	CompanyID  string
	Role       Role
}

// IsManager checks if actor is manager or owner
func (a Actor) IsManager() bool {
	return a.Role == RoleManager || a.Role == RoleOwner
}

// Can checks the role permission table.
func (a Actor) Can(permission Permission) bool {
	return HasPermission(a.Role, permission)
}

// Validate ensures the actor carries the identifiers every operation needs.
func (a Actor) Validate() error {
	if a.UserID == "" {
		return ErrUserIDRequired
	}
	if a.CompanyID == "" {
		return ErrCompanyIDRequired
	}
	return nil
}
