// internal/rules/evaluate_test.go
package rules

import (
	"errors"
	"testing"

	"github.com/solatis/ruleproof/internal/types"
)

func TestEvaluate_SimpleComparison(t *testing.T) {
	expr := cmp(types.RelLE, 100, lt("weight", 1))

	got, err := EvaluateExpr(expr, Bindings{
		"weight": {Kind: types.KindNumeric, Number: 80},
	})
	if err != nil {
		t.Fatalf("EvaluateExpr() error = %v, want nil", err)
	}
	if !got {
		t.Errorf("weight=80 under weight<=100 = false, want true")
	}

	got, err = EvaluateExpr(expr, Bindings{
		"weight": {Kind: types.KindNumeric, Number: 120},
	})
	if err != nil {
		t.Fatalf("EvaluateExpr() error = %v, want nil", err)
	}
	if got {
		t.Errorf("weight=120 under weight<=100 = true, want false")
	}
}

func TestEvaluate_WeightedSum(t *testing.T) {
	// 2x + y > 10
	expr := cmp(types.RelGT, 10, lt("x", 2), lt("y", 1))

	tests := []struct {
		x, y float64
		want bool
	}{
		{x: 4, y: 3, want: true},  // 11 > 10
		{x: 4, y: 2, want: false}, // 10 > 10
		{x: 0, y: 0, want: false},
	}
	for _, tt := range tests {
		b := Bindings{
			"x": {Kind: types.KindNumeric, Number: tt.x},
			"y": {Kind: types.KindNumeric, Number: tt.y},
		}
		got, err := EvaluateExpr(expr, b)
		if err != nil {
			t.Fatalf("EvaluateExpr(x=%g, y=%g) error = %v, want nil", tt.x, tt.y, err)
		}
		if got != tt.want {
			t.Errorf("EvaluateExpr(x=%g, y=%g) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

// Strict relations compare exactly at the boundary. The solver widens them
// by epsilon for feasibility, but evaluation is the ground truth and must
// not.
func TestEvaluate_ExactBoundaries(t *testing.T) {
	b := Bindings{"x": {Kind: types.KindNumeric, Number: 5}}

	tests := []struct {
		rel  types.Relation
		want bool
	}{
		{types.RelLT, false},
		{types.RelLE, true},
		{types.RelEQ, true},
		{types.RelGE, true},
		{types.RelGT, false},
	}
	for _, tt := range tests {
		got, err := EvaluateExpr(cmp(tt.rel, 5, lt("x", 1)), b)
		if err != nil {
			t.Fatalf("EvaluateExpr(%v) error = %v, want nil", tt.rel, err)
		}
		if got != tt.want {
			t.Errorf("x=5 under x %v 5 = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestEvaluate_MultiConditionAND(t *testing.T) {
	expr := &types.And{Xs: []types.Expr{
		cmp(types.RelGE, 10, lt("x", 1)),
		cmp(types.RelLE, 20, lt("x", 1)),
	}}

	tests := []struct {
		x    float64
		want bool
	}{
		{x: 15, want: true},
		{x: 5, want: false},
		{x: 25, want: false},
	}
	for _, tt := range tests {
		b := Bindings{"x": {Kind: types.KindNumeric, Number: tt.x}}
		got, err := EvaluateExpr(expr, b)
		if err != nil {
			t.Fatalf("EvaluateExpr(x=%g) error = %v, want nil", tt.x, err)
		}
		if got != tt.want {
			t.Errorf("x=%g under 10<=x<=20 = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestEvaluate_OrGroups(t *testing.T) {
	expr := &types.Or{Xs: []types.Expr{
		cmp(types.RelLT, 0, lt("x", 1)),
		member("tier", "gold", "silver"),
	}}

	b := Bindings{
		"x":    {Kind: types.KindNumeric, Number: 3},
		"tier": {Kind: types.KindCategorical, Label: "silver"},
	}
	got, err := EvaluateExpr(expr, b)
	if err != nil {
		t.Fatalf("EvaluateExpr() error = %v, want nil", err)
	}
	if !got {
		t.Errorf("second disjunct holds but Or = false, want true")
	}

	b["tier"] = Value{Kind: types.KindCategorical, Label: "bronze"}
	got, err = EvaluateExpr(expr, b)
	if err != nil {
		t.Fatalf("EvaluateExpr() error = %v, want nil", err)
	}
	if got {
		t.Errorf("no disjunct holds but Or = true, want false")
	}
}

func TestEvaluate_MembershipAndExclusion(t *testing.T) {
	gold := Bindings{"tier": {Kind: types.KindCategorical, Label: "gold"}}
	trial := Bindings{"tier": {Kind: types.KindCategorical, Label: "trial"}}

	in := member("tier", "gold", "silver")
	if got, _ := EvaluateExpr(in, gold); !got {
		t.Errorf("gold under tier in {gold,silver} = false, want true")
	}
	if got, _ := EvaluateExpr(in, trial); got {
		t.Errorf("trial under tier in {gold,silver} = true, want false")
	}

	out := excluded("tier", "trial")
	if got, _ := EvaluateExpr(out, gold); !got {
		t.Errorf("gold under tier not in {trial} = false, want true")
	}
	if got, _ := EvaluateExpr(out, trial); got {
		t.Errorf("trial under tier not in {trial} = true, want false")
	}
}

func TestEvaluate_ConditionalVacuousTruth(t *testing.T) {
	expr := &types.Conditional{
		If:   member("tier", "gold"),
		Then: cmp(types.RelGT, 50, lt("weight", 1)),
	}

	tests := []struct {
		tier   string
		weight float64
		want   bool
	}{
		{tier: "silver", weight: 10, want: true}, // antecedent fails, vacuously true
		{tier: "gold", weight: 60, want: true},
		{tier: "gold", weight: 40, want: false},
	}
	for _, tt := range tests {
		b := Bindings{
			"tier":   {Kind: types.KindCategorical, Label: tt.tier},
			"weight": {Kind: types.KindNumeric, Number: tt.weight},
		}
		got, err := EvaluateExpr(expr, b)
		if err != nil {
			t.Fatalf("EvaluateExpr(tier=%s, weight=%g) error = %v, want nil", tt.tier, tt.weight, err)
		}
		if got != tt.want {
			t.Errorf("EvaluateExpr(tier=%s, weight=%g) = %v, want %v", tt.tier, tt.weight, got, tt.want)
		}
	}
}

func TestEvaluate_Negation(t *testing.T) {
	b := Bindings{"x": {Kind: types.KindNumeric, Number: 7}}

	got, err := EvaluateExpr(&types.Not{X: cmp(types.RelLE, 5, lt("x", 1))}, b)
	if err != nil {
		t.Fatalf("EvaluateExpr() error = %v, want nil", err)
	}
	if !got {
		t.Errorf("x=7 under not(x<=5) = false, want true")
	}
}

func TestEvaluate_UnboundVariable(t *testing.T) {
	expr := cmp(types.RelLE, 5, lt("x", 1), lt("y", 1))
	b := Bindings{"x": {Kind: types.KindNumeric, Number: 1}}

	_, err := EvaluateExpr(expr, b)
	if !errors.Is(err, types.ErrUnboundVariable) {
		t.Fatalf("EvaluateExpr() error = %v, want ErrUnboundVariable", err)
	}

	nf := mustNormalize(t, expr)
	_, err = EvaluateForm(nf, b)
	if !errors.Is(err, types.ErrUnboundVariable) {
		t.Fatalf("EvaluateForm() error = %v, want ErrUnboundVariable", err)
	}
}

// Conditionals normalize into a disjunction that looks nothing like the
// original tree; both evaluation paths still have to agree point for point.
func TestEvaluateForm_AgreesOnConditional(t *testing.T) {
	expr := &types.Conditional{
		If:   cmp(types.RelGE, 10, lt("x", 1)),
		Then: member("tier", "gold"),
	}
	nf := mustNormalize(t, expr)

	for _, x := range []float64{5, 10, 15} {
		for _, tier := range []string{"gold", "silver"} {
			b := Bindings{
				"x":    {Kind: types.KindNumeric, Number: x},
				"tier": {Kind: types.KindCategorical, Label: tier},
			}
			want, err := EvaluateExpr(expr, b)
			if err != nil {
				t.Fatalf("EvaluateExpr(x=%g, tier=%s) error = %v, want nil", x, tier, err)
			}
			got, err := EvaluateForm(nf, b)
			if err != nil {
				t.Fatalf("EvaluateForm(x=%g, tier=%s) error = %v, want nil", x, tier, err)
			}
			if got != want {
				t.Errorf("EvaluateForm(x=%g, tier=%s) = %v, expr says %v", x, tier, got, want)
			}
		}
	}
}

func TestEvaluateForm_ConstantForms(t *testing.T) {
	b := Bindings{}

	truth := mustNormalize(t, &types.BoolLit{Value: true})
	if got, err := EvaluateForm(truth, b); err != nil || !got {
		t.Errorf("EvaluateForm(true form) = %v, %v, want true, nil", got, err)
	}

	falsity := mustNormalize(t, &types.BoolLit{Value: false})
	if got, err := EvaluateForm(falsity, b); err != nil || got {
		t.Errorf("EvaluateForm(false form) = %v, %v, want false, nil", got, err)
	}
}
