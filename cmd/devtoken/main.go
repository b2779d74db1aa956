// Command devtoken prints a signed access token for local testing against
// the API. It reads JWT_SECRET_KEY and JWT_ACCESS_EXPIRATION_TIME from the
// environment or .env, without the database settings the server needs.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/config"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/ids"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
)

func main() {
	userID := flag.String("user", "", "user id (random when empty)")
	companyID := flag.String("company", "", "company id")
	employeeID := flag.String("employee", "", "employee id of the caller, if any")
	role := flag.String("role", string(user.RoleOwner), "owner, manager or employee")
	flag.Parse()

	jwtCfg, err := config.LoadJWT()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	actor := user.Actor{
		UserID:    *userID,
		CompanyID: *companyID,
		Role:      user.Role(*role),
	}
	if actor.UserID == "" {
		actor.UserID = ids.NewID()
	}
	if *employeeID != "" {
		actor.EmployeeID = employeeID
	}
	if err := actor.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid actor:", err)
		os.Exit(2)
	}
	if _, ok := user.RolePermissions[actor.Role]; !ok {
		fmt.Fprintf(os.Stderr, "Unknown role %q\n", *role)
		os.Exit(2)
	}

	token, expiresAt, err := jwt.NewJWTService(jwtCfg.Secret, jwtCfg.AccessExpiration).GenerateAccessToken(actor)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error signing token:", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339))
	fmt.Println(token)
}
