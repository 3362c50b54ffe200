// internal/solver/solver.go
package solver

import (
	"context"
	"sync"

	"github.com/solatis/ruleproof/internal/mip"
)

/*
 * Solver boundary.
 *
 * Everything above this package asks exactly one kind of question: does
 * this program admit any assignment at all. The interface therefore
 * returns a feasibility verdict plus a witness assignment, never an
 * objective value.
 *
 * The error return is strictly separated from the verdict: a timeout, a
 * numerical breakdown or a node-limit hit yields an error and an unknown
 * status. Callers must never fold an error into "infeasible"; an absent
 * proof is not a proof of absence.
 */

// Status is a solver verdict.
type Status int

const (
	// StatusUnknown accompanies a non-nil error.
	StatusUnknown Status = iota

	// StatusFeasible means a satisfying assignment was found.
	StatusFeasible

	// StatusInfeasible means the solver proved no assignment exists.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// Result is the outcome of a feasibility check.
type Result struct {
	Status Status

	// Assignment maps column names to values of one satisfying point.
	// Only populated when Status is StatusFeasible.
	Assignment map[string]float64
}

// Solver answers feasibility questions about a program.
type Solver interface {
	Solve(ctx context.Context, p *mip.Program) (Result, error)
}

// Serialized wraps a non-reentrant backend so concurrent queries take
// turns instead of corrupting it.
func Serialized(s Solver) Solver {
	return &serialized{inner: s}
}

type serialized struct {
	mu    sync.Mutex
	inner Solver
}

func (s *serialized) Solve(ctx context.Context, p *mip.Program) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Solve(ctx, p)
}
