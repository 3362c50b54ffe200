package rules

import (
	"testing"

	"github.com/solatis/ruleproof/internal/types"
)

func numBinding(v string, n float64) Bindings {
	return Bindings{v: {Kind: types.KindNumeric, Number: n}}
}

func labelBinding(v, l string) Bindings {
	return Bindings{v: {Kind: types.KindCategorical, Label: l}}
}

func TestSubstitute_FoldsIntoConstant(t *testing.T) {
	// 2x + 3y <= 12 with y=2 becomes 2x <= 6
	e := cmp(types.RelLE, 12, lt("x", 2), lt("y", 3))

	got := SubstituteExpr(e, numBinding("y", 2))
	c, ok := got.(*types.Comparison)
	if !ok {
		t.Fatalf("SubstituteExpr() = %T, want *Comparison", got)
	}
	if len(c.Terms) != 1 || c.Terms[0].Var != "x" || c.Terms[0].Coef != 2 {
		t.Errorf("Terms = %+v, want [2x]", c.Terms)
	}
	if c.Const != 6 {
		t.Errorf("Const = %v, want 6", c.Const)
	}
	if c.Rel != types.RelLE {
		t.Errorf("Rel = %v, want <=", c.Rel)
	}
}

func TestSubstitute_FullyBoundComparison(t *testing.T) {
	e := cmp(types.RelGT, 5, lt("x", 1))

	if got := SubstituteExpr(e, numBinding("x", 6)); got.(*types.BoolLit).Value != true {
		t.Errorf("x>5 with x=6 = %v, want true literal", got)
	}
	if got := SubstituteExpr(e, numBinding("x", 5)); got.(*types.BoolLit).Value != false {
		t.Errorf("x>5 with x=5 = %v, want false literal", got)
	}
}

func TestSubstitute_Membership(t *testing.T) {
	in := member("color", "red", "green")
	out := excluded("color", "red", "green")

	tests := []struct {
		name string
		expr types.Expr
		bind Bindings
		want bool
	}{
		{"member hit", in, labelBinding("color", "red"), true},
		{"member miss", in, labelBinding("color", "blue"), false},
		{"excluded hit", out, labelBinding("color", "red"), false},
		{"excluded miss", out, labelBinding("color", "blue"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SubstituteExpr(tt.expr, tt.bind)
			lit, ok := got.(*types.BoolLit)
			if !ok {
				t.Fatalf("SubstituteExpr() = %T, want *BoolLit", got)
			}
			if lit.Value != tt.want {
				t.Errorf("Value = %v, want %v", lit.Value, tt.want)
			}
		})
	}
}

func TestSubstitute_ConditionalFolding(t *testing.T) {
	condIf := cmp(types.RelGT, 5, lt("x", 1))
	condThen := cmp(types.RelLE, 3, lt("y", 1))
	e := &types.Conditional{If: condIf, Then: condThen}

	// Antecedent false: the rule is vacuously satisfied.
	got := SubstituteExpr(e, numBinding("x", 0))
	if lit, ok := got.(*types.BoolLit); !ok || !lit.Value {
		t.Errorf("vacuous conditional = %v, want true literal", got)
	}

	// Antecedent true: only the consequent remains.
	got = SubstituteExpr(e, numBinding("x", 10))
	if c, ok := got.(*types.Comparison); !ok || c.Terms[0].Var != "y" {
		t.Errorf("triggered conditional = %v, want y <= 3", got)
	}

	// Consequent false: the rule now forbids the antecedent.
	got = SubstituteExpr(e, numBinding("y", 4))
	if n, ok := got.(*types.Not); !ok {
		t.Errorf("dead consequent = %T, want *Not", got)
	} else if c, ok := n.X.(*types.Comparison); !ok || c.Terms[0].Var != "x" {
		t.Errorf("negated antecedent = %v, want x > 5 under Not", n.X)
	}
}

func TestSubstitute_JunctionFolding(t *testing.T) {
	a := cmp(types.RelLE, 1, lt("x", 1))
	b := cmp(types.RelLE, 2, lt("y", 1))

	// x=0 satisfies a, so the conjunction reduces to b alone.
	and := &types.And{Xs: []types.Expr{a, b}}
	got := SubstituteExpr(and, numBinding("x", 0))
	if c, ok := got.(*types.Comparison); !ok || c.Terms[0].Var != "y" {
		t.Errorf("And fold = %v, want y <= 2", got)
	}

	// x=5 falsifies a, which absorbs the whole conjunction.
	got = SubstituteExpr(and, numBinding("x", 5))
	if lit, ok := got.(*types.BoolLit); !ok || lit.Value {
		t.Errorf("And absorb = %v, want false literal", got)
	}

	// x=0 satisfies a, which absorbs the whole disjunction.
	or := &types.Or{Xs: []types.Expr{a, b}}
	got = SubstituteExpr(or, numBinding("x", 0))
	if lit, ok := got.(*types.BoolLit); !ok || !lit.Value {
		t.Errorf("Or absorb = %v, want true literal", got)
	}
}

func TestSubstitute_AlwaysFalseStaysExplicit(t *testing.T) {
	// Both branches die: the result must be a false literal, not nothing.
	e := &types.Or{Xs: []types.Expr{
		cmp(types.RelGT, 5, lt("x", 1)),
		cmp(types.RelLT, 0, lt("x", 1)),
	}}

	got := SubstituteExpr(e, numBinding("x", 3))
	lit, ok := got.(*types.BoolLit)
	if !ok {
		t.Fatalf("SubstituteExpr() = %T, want *BoolLit", got)
	}
	if lit.Value {
		t.Errorf("Value = true, want false")
	}
}

func TestSubstitute_SharesUntouchedNodes(t *testing.T) {
	e := &types.And{Xs: []types.Expr{
		cmp(types.RelLE, 1, lt("x", 1)),
		cmp(types.RelLE, 2, lt("y", 1)),
	}}

	if got := SubstituteExpr(e, Bindings{}); got != types.Expr(e) {
		t.Errorf("empty bindings: got new node, want same pointer")
	}
	if got := SubstituteExpr(e, numBinding("z", 1)); got != types.Expr(e) {
		t.Errorf("irrelevant binding: got new node, want same pointer")
	}
}
