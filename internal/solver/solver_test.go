package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/solatis/ruleproof/internal/mip"
	"github.com/solatis/ruleproof/internal/types"
)

func newTestProgram() *mip.Program { return mip.NewProgram() }

func mustSolve(t *testing.T, p *mip.Program) Result {
	t.Helper()
	res, err := NewSimplex(SimplexOptions{}).Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	return res
}

// checkRows verifies the witness satisfies every row of the program.
func checkRows(t *testing.T, p *mip.Program, assignment map[string]float64) {
	t.Helper()
	const slack = 1e-6
	vars := p.Variables()
	for _, r := range p.Rows() {
		lhs := 0.0
		for col, coef := range r.Coeffs {
			lhs += coef * assignment[vars[col].Name]
		}
		ok := false
		switch r.Sense {
		case mip.SenseLE:
			ok = lhs <= r.RHS+slack
		case mip.SenseGE:
			ok = lhs >= r.RHS-slack
		case mip.SenseEQ:
			ok = math.Abs(lhs-r.RHS) <= slack
		}
		if !ok {
			t.Errorf("witness violates row %q: lhs = %g, want %s %g", r.Label, lhs, r.Sense, r.RHS)
		}
	}
}

func TestSimplex_FeasibleContinuous(t *testing.T) {
	p := newTestProgram()
	x := p.AddVariable(mip.Variable{Name: "x", Type: mip.Continuous, Lower: 0, Upper: 10})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseGE, RHS: 3, Label: "lo"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseLE, RHS: 7, Label: "hi"})

	res := mustSolve(t, p)
	if res.Status != StatusFeasible {
		t.Fatalf("Status = %v, want feasible", res.Status)
	}
	got := res.Assignment["x"]
	if got < 3-1e-6 || got > 7+1e-6 {
		t.Errorf("x = %g, want within [3, 7]", got)
	}
	checkRows(t, p, res.Assignment)
}

func TestSimplex_InfeasibleContinuous(t *testing.T) {
	p := newTestProgram()
	x := p.AddVariable(mip.Variable{Name: "x", Type: mip.Continuous, Lower: 0, Upper: 10})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseGE, RHS: 8, Label: "lo"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseLE, RHS: 2, Label: "hi"})

	if res := mustSolve(t, p); res.Status != StatusInfeasible {
		t.Errorf("Status = %v, want infeasible", res.Status)
	}
}

func TestSimplex_EqualityRow(t *testing.T) {
	p := newTestProgram()
	x := p.AddVariable(mip.Variable{Name: "x", Type: mip.Continuous, Lower: 0, Upper: 100})
	y := p.AddVariable(mip.Variable{Name: "y", Type: mip.Continuous, Lower: 0, Upper: 100})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1, y: 1}, Sense: mip.SenseEQ, RHS: 10, Label: "sum"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseGE, RHS: 4, Label: "floor"})

	res := mustSolve(t, p)
	if res.Status != StatusFeasible {
		t.Fatalf("Status = %v, want feasible", res.Status)
	}
	checkRows(t, p, res.Assignment)
}

func TestSimplex_ConstantRowShortCircuit(t *testing.T) {
	p := newTestProgram()
	p.AddVariable(mip.Variable{Name: "x", Type: mip.Continuous, Lower: 0, Upper: 10})
	// The canonical impossible row: 0 >= 1.
	p.AddRow(mip.Row{Sense: mip.SenseGE, RHS: 1, Label: "impossible"})

	if res := mustSolve(t, p); res.Status != StatusInfeasible {
		t.Errorf("Status = %v, want infeasible", res.Status)
	}
}

func TestSimplex_EmptyProgram(t *testing.T) {
	res := mustSolve(t, newTestProgram())
	if res.Status != StatusFeasible {
		t.Errorf("Status = %v, want feasible", res.Status)
	}
	if len(res.Assignment) != 0 {
		t.Errorf("Assignment = %v, want empty", res.Assignment)
	}
}

func TestSimplex_BranchesToIntegrality(t *testing.T) {
	// a + b == 1 with a continuous tie-breaker that rewards the split
	// relaxation: x <= 10a and x <= 10b and x >= 3 forces the relaxation
	// toward a = b = 0.5, so the verdict needs branching.
	p := newTestProgram()
	a := p.AddVariable(mip.Variable{Name: "a", Type: mip.Binary})
	b := p.AddVariable(mip.Variable{Name: "b", Type: mip.Binary})
	x := p.AddVariable(mip.Variable{Name: "x", Type: mip.Continuous, Lower: 0, Upper: 10})
	p.AddRow(mip.Row{Coeffs: map[int]float64{a: 1, b: 1}, Sense: mip.SenseEQ, RHS: 1, Label: "one"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1, a: -10}, Sense: mip.SenseLE, RHS: 0, Label: "capA"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1, b: -10}, Sense: mip.SenseLE, RHS: 0, Label: "capB"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseGE, RHS: 3, Label: "floor"})

	res := mustSolve(t, p)
	if res.Status != StatusInfeasible {
		t.Fatalf("Status = %v, want infeasible", res.Status)
	}
}

func TestSimplex_IntegerOnlyInfeasibility(t *testing.T) {
	// 2a + 2b == 1 has the fractional solution a+b = 0.5 but no integer
	// one; only branch and bound can prove that.
	p := newTestProgram()
	a := p.AddVariable(mip.Variable{Name: "a", Type: mip.Binary})
	b := p.AddVariable(mip.Variable{Name: "b", Type: mip.Binary})
	p.AddRow(mip.Row{Coeffs: map[int]float64{a: 2, b: 2}, Sense: mip.SenseEQ, RHS: 1, Label: "odd"})

	if res := mustSolve(t, p); res.Status != StatusInfeasible {
		t.Errorf("Status = %v, want infeasible", res.Status)
	}
}

func TestSimplex_BinaryWitnessIsIntegral(t *testing.T) {
	p := newTestProgram()
	a := p.AddVariable(mip.Variable{Name: "a", Type: mip.Binary})
	b := p.AddVariable(mip.Variable{Name: "b", Type: mip.Binary})
	p.AddRow(mip.Row{Coeffs: map[int]float64{a: 1, b: 1}, Sense: mip.SenseEQ, RHS: 1, Label: "one"})

	res := mustSolve(t, p)
	if res.Status != StatusFeasible {
		t.Fatalf("Status = %v, want feasible", res.Status)
	}
	for _, name := range []string{"a", "b"} {
		v := res.Assignment[name]
		if v != 0 && v != 1 {
			t.Errorf("%s = %g, want exactly 0 or 1", name, v)
		}
	}
	if res.Assignment["a"]+res.Assignment["b"] != 1 {
		t.Errorf("a + b = %g, want 1", res.Assignment["a"]+res.Assignment["b"])
	}
}

func TestSimplex_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestProgram()
	x := p.AddVariable(mip.Variable{Name: "x", Type: mip.Continuous, Lower: 0, Upper: 10})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseGE, RHS: 3, Label: "lo"})

	_, err := NewSimplex(SimplexOptions{}).Solve(ctx, p)
	var solverErr *types.SolverError
	if !errors.As(err, &solverErr) {
		t.Fatalf("Solve() error = %v, want *SolverError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want wrapped context.Canceled", err)
	}
}

func TestSimplex_NodeBudget(t *testing.T) {
	// One node is never enough once branching is required.
	p := newTestProgram()
	a := p.AddVariable(mip.Variable{Name: "a", Type: mip.Binary})
	b := p.AddVariable(mip.Variable{Name: "b", Type: mip.Binary})
	x := p.AddVariable(mip.Variable{Name: "x", Type: mip.Continuous, Lower: 0, Upper: 10})
	p.AddRow(mip.Row{Coeffs: map[int]float64{a: 1, b: 1}, Sense: mip.SenseEQ, RHS: 1, Label: "one"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1, a: -10}, Sense: mip.SenseLE, RHS: 0, Label: "capA"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1, b: -10}, Sense: mip.SenseLE, RHS: 0, Label: "capB"})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseGE, RHS: 3, Label: "floor"})

	_, err := NewSimplex(SimplexOptions{MaxNodes: 1}).Solve(context.Background(), p)
	var solverErr *types.SolverError
	if !errors.As(err, &solverErr) {
		t.Fatalf("Solve() error = %v, want *SolverError", err)
	}
}

func TestSerialized_Passthrough(t *testing.T) {
	p := newTestProgram()
	x := p.AddVariable(mip.Variable{Name: "x", Type: mip.Continuous, Lower: 0, Upper: 10})
	p.AddRow(mip.Row{Coeffs: map[int]float64{x: 1}, Sense: mip.SenseGE, RHS: 3, Label: "lo"})

	s := Serialized(NewSimplex(SimplexOptions{}))
	res, err := s.Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if res.Status != StatusFeasible {
		t.Errorf("Status = %v, want feasible", res.Status)
	}
}
