package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/apperror"
)

// A cycle only ever moves open -> processing -> locked. Each legal move has
// its own function; anything else is a StateConflict.

const cycleEntity = "payroll cycle"

// EnsureComputable allows (re)computation while the cycle is not locked.
func (c Cycle) EnsureComputable() error {
	if c.Status == CycleStatusOpen || c.Status == CycleStatusProcessing {
		return nil
	}
	return apperror.NewStateConflict(cycleEntity, c.ID, string(c.Status), "compute")
}

// EnsureSettleable allows settlement of a processing cycle only.
func (c Cycle) EnsureSettleable() error {
	if c.Status == CycleStatusProcessing {
		return nil
	}
	return apperror.NewStateConflict(cycleEntity, c.ID, string(c.Status), "settle")
}

// StartProcessing moves an open cycle to processing.
func (c Cycle) StartProcessing(actorID string, at time.Time) (Cycle, error) {
	if c.Status != CycleStatusOpen {
		return c, apperror.NewStateConflict(cycleEntity, c.ID, string(c.Status), "start processing")
	}
	c.Status = CycleStatusProcessing
	c.ComputedAt = &at
	c.ComputedBy = &actorID
	c.UpdatedAt = at
	return c, nil
}

// MarkRecomputed stamps a processing cycle after a recomputation.
func (c Cycle) MarkRecomputed(actorID string, at time.Time) (Cycle, error) {
	if c.Status != CycleStatusProcessing {
		return c, apperror.NewStateConflict(cycleEntity, c.ID, string(c.Status), "recompute")
	}
	c.ComputedAt = &at
	c.ComputedBy = &actorID
	c.UpdatedAt = at
	return c, nil
}

// Lock moves a processing cycle to its terminal state.
func (c Cycle) Lock(actorID string, at time.Time) (Cycle, error) {
	if c.Status != CycleStatusProcessing {
		return c, apperror.NewStateConflict(cycleEntity, c.ID, string(c.Status), "lock")
	}
	c.Status = CycleStatusLocked
	c.LockedAt = &at
	c.LockedBy = &actorID
	c.UpdatedAt = at
	return c, nil
}
