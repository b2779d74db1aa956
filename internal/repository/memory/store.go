// Package memory keeps every repository in process memory. A single mutex
// guards the whole store; WithinTransaction holds it for the entire callback
// and restores a snapshot when the callback fails, so callers observe the
// same all-or-nothing behaviour as the PostgreSQL repositories.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/loan"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

type state struct {
	employees  map[string]employee.Employee
	components map[string]payroll.Component
	structures map[string]payroll.CompensationStructure
	cycles     map[string]payroll.Cycle
	runs       map[string]payroll.Run
	lineItems  map[string][]payroll.LineItem // by run ID
	loanTypes  map[string]loan.LoanType
	loans      map[string]loan.Loan
	advances   map[string]loan.SalaryAdvance
	postings   map[string]loan.RepaymentPosting
}

func newState() *state {
	return &state{
		employees:  make(map[string]employee.Employee),
		components: make(map[string]payroll.Component),
		structures: make(map[string]payroll.CompensationStructure),
		cycles:     make(map[string]payroll.Cycle),
		runs:       make(map[string]payroll.Run),
		lineItems:  make(map[string][]payroll.LineItem),
		loanTypes:  make(map[string]loan.LoanType),
		loans:      make(map[string]loan.Loan),
		advances:   make(map[string]loan.SalaryAdvance),
		postings:   make(map[string]loan.RepaymentPosting),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	items := make(map[string][]payroll.LineItem, len(s.lineItems))
	for runID, list := range s.lineItems {
		items[runID] = append([]payroll.LineItem(nil), list...)
	}
	return &state{
		employees:  cloneMap(s.employees),
		components: cloneMap(s.components),
		structures: cloneMap(s.structures),
		cycles:     cloneMap(s.cycles),
		runs:       cloneMap(s.runs),
		lineItems:  items,
		loanTypes:  cloneMap(s.loanTypes),
		loans:      cloneMap(s.loans),
		advances:   cloneMap(s.advances),
		postings:   cloneMap(s.postings),
	}
}

type txKey struct{}

// Store is the shared backing state of the memory repositories.
type Store struct {
	mu   sync.Mutex
	data *state

	// failures are consulted by fail(); they survive rollbacks.
	failMu   sync.Mutex
	failures map[string]*failure

	now func() time.Time
}

type failure struct {
	skip int
	err  error
}

func NewStore() *Store {
	return &Store{
		data:     newState(),
		failures: make(map[string]*failure),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithinTransaction implements database.Transactor. Nested calls join the
// outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// lock takes the store mutex unless ctx already runs inside one of this
// store's transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// FailOn makes the named repository operation return err after it has
// succeeded skip times. Used to exercise rollback paths.
func (s *Store) FailOn(op string, skip int, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[op] = &failure{skip: skip, err: err}
}

func (s *Store) fail(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	f, ok := s.failures[op]
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	delete(s.failures, op)
	return f.err
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// PutEmployee stores e. Employee records are owned by the HR service; the
// memory store is seeded directly.
func (s *Store) PutEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
		e.UpdatedAt = e.CreatedAt
	}
	s.data.employees[e.ID] = e
}
