package user

import "errors"

var (
	ErrUserIDRequired          = errors.New("user ID is required")
	ErrCompanyIDRequired       = errors.New("company ID is required")
	ErrEmployeeIDRequired      = errors.New("employee ID is required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
