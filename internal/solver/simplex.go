// internal/solver/simplex.go
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/solatis/ruleproof/internal/mip"
	"github.com/solatis/ruleproof/internal/types"
)

/*
 * Simplex-based feasibility backend.
 *
 * Pure-Go MIP via LP relaxation plus depth-first branch and bound over the
 * binary columns:
 *
 *   1. Constant rows (no columns) are screened before any matrix work; a
 *      violated one settles the whole program.
 *   2. Each node solves an LP relaxation with the phase-1/phase-2 simplex.
 *      Branching fixes a binary by tightening its bounds, never by adding
 *      equality rows, so the standard-form matrix keeps its full-rank slack
 *      identity and the solver cannot go singular on our account.
 *   3. An integral relaxation is a witness; a fractional one branches on
 *      the first fractional binary, exploring the 1-branch first because
 *      selectors and indicators usually need to be on.
 *
 * With a zero objective unboundedness cannot occur, so any simplex error
 * other than infeasibility is surfaced as a SolverError. The node budget
 * and the context deadline are SolverErrors too: giving up is never an
 * infeasibility verdict.
 */

const (
	// DefaultTol is the simplex pivot tolerance.
	DefaultTol = 1e-10

	// DefaultIntTol decides when a binary relaxation value counts as
	// integral.
	DefaultIntTol = 1e-6

	// DefaultMaxNodes caps the branch-and-bound tree. Rule programs keep
	// selector counts small, so a search that grows past this is stuck,
	// not working.
	DefaultMaxNodes = 16384
)

// SimplexOptions tunes the backend. Zero values select the defaults.
type SimplexOptions struct {
	Tol      float64
	IntTol   float64
	MaxNodes int
}

// Simplex is a stateless Solver; it is safe for concurrent use.
type Simplex struct {
	opts SimplexOptions
}

func NewSimplex(opts SimplexOptions) *Simplex {
	if opts.Tol <= 0 {
		opts.Tol = DefaultTol
	}
	if opts.IntTol <= 0 {
		opts.IntTol = DefaultIntTol
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	return &Simplex{opts: opts}
}

// Solve implements Solver.
func (s *Simplex) Solve(ctx context.Context, p *mip.Program) (Result, error) {
	vars := p.Variables()
	n := len(vars)

	rows := make([]mip.Row, 0, len(p.Rows()))
	for _, r := range p.Rows() {
		if len(r.Coeffs) == 0 {
			if !constantHolds(r) {
				return Result{Status: StatusInfeasible}, nil
			}
			continue
		}
		rows = append(rows, r)
	}

	if n == 0 {
		return Result{Status: StatusFeasible, Assignment: map[string]float64{}}, nil
	}

	lo := make([]float64, n)
	hi := make([]float64, n)
	for i, v := range vars {
		lo[i], hi[i] = v.Lower, v.Upper
	}

	type node struct {
		lo, hi []float64
	}
	stack := []node{{lo: lo, hi: hi}}
	visited := 0

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, &types.SolverError{Err: err}
		}
		visited++
		if visited > s.opts.MaxNodes {
			return Result{}, &types.SolverError{
				Err: fmt.Errorf("branch node budget exhausted after %d nodes", s.opts.MaxNodes),
			}
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, status, err := s.solveRelaxation(rows, nd.lo, nd.hi, n)
		if err != nil {
			return Result{}, err
		}
		if status == StatusInfeasible {
			continue
		}

		branch := -1
		for i, v := range vars {
			if v.Type != mip.Binary {
				continue
			}
			if math.Abs(x[i]-math.Round(x[i])) > s.opts.IntTol {
				branch = i
				break
			}
		}
		if branch < 0 {
			return Result{Status: StatusFeasible, Assignment: s.assignment(vars, x)}, nil
		}

		zero := node{lo: fixed(nd.lo, branch, 0), hi: fixed(nd.hi, branch, 0)}
		one := node{lo: fixed(nd.lo, branch, 1), hi: fixed(nd.hi, branch, 1)}
		// LIFO: push the 0-branch under the 1-branch.
		stack = append(stack, zero, one)
	}

	return Result{Status: StatusInfeasible}, nil
}

// solveRelaxation runs one LP over the row set with the node's bounds.
// Bounds enter as inequality rows, equalities split into a <=/>= pair, and
// the whole system converts to standard form for the simplex.
func (s *Simplex) solveRelaxation(rows []mip.Row, lo, hi []float64, n int) ([]float64, Status, error) {
	nIneq := 2 * n
	for _, r := range rows {
		if r.Sense == mip.SenseEQ {
			nIneq += 2
		} else {
			nIneq++
		}
	}

	g := mat.NewDense(nIneq, n, nil)
	h := make([]float64, nIneq)
	ri := 0
	add := func(coeffs map[int]float64, scale, rhs float64) {
		for col, c := range coeffs {
			g.Set(ri, col, scale*c)
		}
		h[ri] = rhs
		ri++
	}
	for _, r := range rows {
		switch r.Sense {
		case mip.SenseLE:
			add(r.Coeffs, 1, r.RHS)
		case mip.SenseGE:
			add(r.Coeffs, -1, -r.RHS)
		case mip.SenseEQ:
			add(r.Coeffs, 1, r.RHS)
			add(r.Coeffs, -1, -r.RHS)
		}
	}
	for i := 0; i < n; i++ {
		g.Set(ri, i, 1)
		h[ri] = hi[i]
		ri++
		g.Set(ri, i, -1)
		h[ri] = -lo[i]
		ri++
	}

	// Zero objective: any feasible vertex will do.
	c := make([]float64, n)
	cNew, aNew, bNew := lp.Convert(c, g, h, nil, nil)
	_, xStd, err := lp.Simplex(cNew, aNew, bNew, s.opts.Tol, nil)
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return nil, StatusInfeasible, nil
	default:
		return nil, StatusUnknown, &types.SolverError{Err: err}
	}

	// Standard form splits x into positive and negative parts; fold them
	// back into the original columns.
	x := make([]float64, n)
	for i := range x {
		x[i] = xStd[i] - xStd[n+i]
	}
	return x, StatusFeasible, nil
}

func (s *Simplex) assignment(vars []mip.Variable, x []float64) map[string]float64 {
	out := make(map[string]float64, len(vars))
	for i, v := range vars {
		val := x[i]
		if v.Type == mip.Binary {
			val = math.Round(val)
		}
		out[v.Name] = val
	}
	return out
}

// constantHolds evaluates a row with no columns: 0 Sense RHS.
func constantHolds(r mip.Row) bool {
	switch r.Sense {
	case mip.SenseLE:
		return 0 <= r.RHS
	case mip.SenseGE:
		return 0 >= r.RHS
	case mip.SenseEQ:
		return r.RHS == 0
	default:
		return false
	}
}

func fixed(bounds []float64, idx int, v float64) []float64 {
	out := make([]float64, len(bounds))
	copy(out, bounds)
	out[idx] = v
	return out
}
