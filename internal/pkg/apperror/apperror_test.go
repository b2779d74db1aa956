package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateConflictError(t *testing.T) {
	err := NewStateConflict("payroll cycle", "c-1", "locked", "settle")

	assert.True(t, errors.Is(err, ErrStateConflict))
	assert.False(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, `cannot settle payroll cycle c-1 in status "locked"`, err.Error())

	var sc *StateConflictError
	assert.True(t, errors.As(err, &sc))
	assert.Equal(t, "locked", sc.Status)
}

func TestPersistence(t *testing.T) {
	driverErr := errors.New("connection reset")

	err := Persistence("insert posting", driverErr)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, driverErr))
	assert.Equal(t, "insert posting: connection reset", err.Error())

	assert.Nil(t, Persistence("noop", nil))

	conflict := NewStateConflict("loan", "l-1", "approved", "approve")
	assert.Same(t, conflict, Persistence("approve loan", conflict))
}
