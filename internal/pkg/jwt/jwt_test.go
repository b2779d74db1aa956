package jwt

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "15m")
	employeeID := "emp-1"

	token, expiresAt, err := svc.GenerateAccessToken(user.Actor{
		UserID: "user-1", EmployeeID: &employeeID, CompanyID: "co-1", Role: user.RoleEmployee,
	})
	require.NoError(t, err)
	assert.NotZero(t, expiresAt)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)

	actor, err := ActorFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.UserID)
	assert.Equal(t, "co-1", actor.CompanyID)
	assert.Equal(t, user.RoleEmployee, actor.Role)
	require.NotNil(t, actor.EmployeeID)
	assert.Equal(t, "emp-1", *actor.EmployeeID)
}

func TestActorFromClaimsRejectsOtherTokenTypes(t *testing.T) {
	_, err := ActorFromClaims(map[string]interface{}{"type": "refresh", "user_id": "u", "role": "owner"})
	assert.ErrorIs(t, err, ErrInvalidClaims)

	_, err = ActorFromClaims(map[string]interface{}{"type": "access", "role": "owner"})
	assert.ErrorIs(t, err, ErrInvalidClaims)

	actor, err := ActorFromClaims(map[string]interface{}{"type": "access", "user_id": "u", "role": "owner", "employee_id": nil})
	require.NoError(t, err)
	assert.Nil(t, actor.EmployeeID)
}

func TestInvalidExpiration(t *testing.T) {
	svc := NewJWTService("test-secret", "soon")
	_, _, err := svc.GenerateAccessToken(user.Actor{UserID: "u", CompanyID: "c", Role: user.RoleOwner})
	assert.Error(t, err)
}
